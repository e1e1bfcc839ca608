package codec

import (
	"bytes"
	"io"

	"github.com/goccy/go-json"
)

// JSON marshals with goccy/go-json. Unmarshal keeps numbers as json.Number so that
// integers survive until the schema layer decides their type.
type JSON struct{}

var Default = JSON{}

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) NewEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (JSON) Unmarshal(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}

func (JSON) NewDecoder(r io.Reader) Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Number is the decoded representation of JSON numbers.
type Number = json.Number
