package schema

import (
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
)

// ParseListJSON is the tolerant list parse over raw bytes. It returns the conforming elements in
// input order together with a report of every dropped one. keys select a nested array, as in
// jsonparser.Get. Input that is not an array fails.
func ParseListJSON(elem Shape, data []byte, keys ...string) ([]any, []Drop, error) {
	raw, dataType, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return nil, nil, fail(keysPath(keys), "malformed JSON: %v", err)
	}
	if dataType != jsonparser.Array {
		return nil, nil, fail(keysPath(keys), "expected array, got %s", dataType.String())
	}

	var (
		out   []any
		drops []Drop
		index int
		perr  error
	)
	p := newParser(nil)
	path := keysPath(keys)
	_, err = jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, _ int, cbErr error) {
		if cbErr != nil && perr == nil {
			perr = cbErr
		}
		i := index
		index++
		v, decodeErr := rawValue(value, dataType)
		if decodeErr != nil {
			drops = append(drops, Drop{Path: path, Index: i, Err: fail(indexPath(path, i), "%v", decodeErr)})
			return
		}
		parsed, verr := p.parse(elem, v, indexPath(path, i))
		if verr != nil {
			drops = append(drops, Drop{Path: path, Index: i, Err: verr})
			return
		}
		out = append(out, parsed)
	})
	if err == nil {
		err = perr
	}
	if err != nil {
		return nil, nil, fail(path, "malformed JSON: %v", err)
	}
	if out == nil {
		out = []any{}
	}
	return out, drops, nil
}

func rawValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		if _, err := strconv.ParseFloat(string(value), 64); err != nil {
			return nil, err
		}
		return codec.Number(value), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	default:
		var v any
		err := codec.Default.Unmarshal(value, &v)
		return v, err
	}
}

func keysPath(keys []string) string {
	path := ""
	for _, k := range keys {
		path = keyPath(path, k)
	}
	return path
}
