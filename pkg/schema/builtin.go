package schema

// Timestamp is the server managed created_at/updated_at value: an optional, nullable date-time
// converted to time.Time.
func Timestamp() Shape {
	return Pipe{
		Inner:     Nullable{Inner: String{Format: FormatDateTime}},
		Transform: MustTransform("time"),
	}
}

// UUIDEntity is the base shape of resources keyed by uuid, extended with fields.
func UUIDEntity(fields ...Field) Object {
	base := Object{Fields: []Field{
		Required("uuid", String{Format: FormatUUID}),
		Optional("created_at", Timestamp()),
		Optional("updated_at", Timestamp()),
	}}
	return Extend(base, fields...)
}

// NumericEntity is the base shape of resources keyed by a positive integer id.
func NumericEntity(fields ...Field) Object {
	base := Object{Fields: []Field{
		Required("id", Positive()),
		Optional("created_at", Timestamp()),
		Optional("updated_at", Timestamp()),
	}}
	return Extend(base, fields...)
}

// Choice is a select option: a label and a string or numeric value.
func Choice() Object {
	return Object{Fields: []Field{
		Required("label", String{}),
		Required("value", Union{Options: []Shape{String{}, Number{}}}),
	}}
}

func pageInfo() []Field {
	return []Field{
		Required("count", Number{Integer: true, Min: Float(0)}),
		Required("next", Nullable{Inner: String{Format: FormatURL}}),
		Required("previous", Nullable{Inner: String{Format: FormatURL}}),
	}
}

// PageOf is a paginated envelope whose results are a tolerant list of elem.
func PageOf(elem Shape) Object {
	return Object{Fields: append(pageInfo(), Required("results", SoftArray{Elem: elem}))}
}

// StrictPageOf is PageOf with a strict results list.
func StrictPageOf(elem Shape) Object {
	return Object{Fields: append(pageInfo(), Required("results", Array{Elem: elem}))}
}
