package view

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		key   string
		value any
		want  string
	}{
		{"cartTotal", 21.6, "21.60"},
		{"cartTax", 1.6, "1.60"},
		{"cartSubtotal", 20, "20.00"},
		{"cartTotal", nil, ""},
		{"cartTotal", "n/a", "n/a"},
		{"count", 21.6, "21.6"},
		{"count", 3, "3"},
		{"flag", true, "true"},
		{"todos", []string{"a", "b"}, "a,b"},
		{"ids", []any{1, "x", nil}, "1,x,"},
		{"empty", []int{}, ""},
		{"wait", 2 * time.Second, "2s"},
	}
	for _, tt := range tests {
		if got := f.Format(tt.key, tt.value); got != tt.want {
			t.Errorf("Format(%q, %v) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestFormatterWithoutDecimalKeys(t *testing.T) {
	f := Formatter{}
	if got := f.Format("cartTotal", 21.6); got != "21.6" {
		t.Errorf("Format() = %q, want 21.6", got)
	}
}
