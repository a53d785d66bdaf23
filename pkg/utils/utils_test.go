package utils

import (
	"testing"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"no args", nil, ""},
		{"all empty", []string{"", ""}, ""},
		{"first wins", []string{"geoagent-api", "fallback"}, "geoagent-api"},
		{"skips leading empties", []string{"", "", "localhost:4318"}, "localhost:4318"},
		{"single value", []string{"info"}, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoalesceString(tt.in...); got != tt.want {
				t.Errorf("CoalesceString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultInt(t *testing.T) {
	tests := []struct {
		v, def, want int
	}{
		{0, 8080, 8080},
		{9090, 8080, 9090},
		{-1, 8080, -1},
	}
	for _, tt := range tests {
		if got := DefaultInt(tt.v, tt.def); got != tt.want {
			t.Errorf("DefaultInt(%d, %d) = %d, want %d", tt.v, tt.def, got, tt.want)
		}
	}
}
