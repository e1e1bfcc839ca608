package models

// Record is an untyped entity, used for resources declared at runtime.
type Record map[string]any

// Identifier resolves uuid first, then id. It returns the zero Identifier when neither is usable.
func (r Record) Identifier() Identifier {
	id, err := IdentifierOf(r)
	if err != nil {
		return Identifier{}
	}
	return id
}

// Without returns a shallow copy of r minus the given keys.
func (r Record) Without(keys ...string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
