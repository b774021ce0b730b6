package script

import (
	"bytes"
	"encoding/json"
	"errors"
)

// DecodeJSON decodes one JSON value into the Go types ToGo produces.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return FromJSON(v), nil
}

// FromJSON replaces json.Number with int64 when the number is integral and
// float64 otherwise, recursing into arrays and objects. Slices and maps are
// modified in place.
func FromJSON(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = FromJSON(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = FromJSON(v[k])
		}
		return v
	}
	return v
}
