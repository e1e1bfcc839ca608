package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Choice is one option of a select list.
type Choice struct {
	Label string      `json:"label"`
	Value ChoiceValue `json:"value"`
}

// ChoiceValue holds either a string or a number, as the backend sends both.
type ChoiceValue struct {
	str    string
	num    float64
	number bool
}

func StringChoice(s string) ChoiceValue {
	return ChoiceValue{str: s}
}

func NumberChoice(n float64) ChoiceValue {
	return ChoiceValue{num: n, number: true}
}

func (v ChoiceValue) IsNumber() bool { return v.number }

func (v ChoiceValue) Number() (float64, bool) { return v.num, v.number }

func (v ChoiceValue) String() string {
	if v.number {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

func (v ChoiceValue) MarshalJSON() ([]byte, error) {
	if v.number {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

func (v *ChoiceValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringChoice(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("choice value must be a string or a number: %w", err)
	}
	*v = NumberChoice(n)
	return nil
}
