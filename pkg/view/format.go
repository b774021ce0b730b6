package view

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultDecimalKeys are the key fragments whose numeric values render
// with two decimals.
var DefaultDecimalKeys = []string{"Total", "Tax", "Subtotal"}

// Formatter turns stored values into display text.
type Formatter struct {
	// DecimalKeys lists key fragments; numbers stored under a key that
	// contains any of them render with two decimals.
	DecimalKeys []string
}

// NewFormatter returns a Formatter with DefaultDecimalKeys.
func NewFormatter() Formatter {
	return Formatter{DecimalKeys: DefaultDecimalKeys}
}

// Format renders value as text for key. Only reactive elements use the
// key-dependent decimal rule; bound selectors use Text.
func (f Formatter) Format(key string, value any) string {
	if n, ok := toFloat(value); ok && f.isDecimalKey(key) {
		return strconv.FormatFloat(n, 'f', 2, 64)
	}
	return Text(value)
}

func (f Formatter) isDecimalKey(key string) bool {
	for _, frag := range f.DecimalKeys {
		if frag != "" && strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

// Text renders value without key-specific rules: nil is empty, numbers use
// the shortest exact form, and sequences are comma-joined.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Text(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(value)
}

func toFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
