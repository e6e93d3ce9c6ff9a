package engine

import (
	"math"
	"testing"
)

func TestParseTrafficValue(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"4.758.439 kbit/s", 4758.439, true},
		{"1,5 Gbit/s", 1500, true},
		{"250 mbit/s", 250, true},
		{"250 Mbit", 250, true},
		{"0,5 tbit/s", 500000, true},
		{"12 KBIT/S", 0.012, true},
		{"Traffic: 1.024 kbit/s (in)", 1.024, true},
		{"garbage", 0, false},
		{"", 0, false},
		{"100 ms", 0, false},
		{"42 %", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseTrafficValue(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseTrafficValue(%q): ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseTrafficValue(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
