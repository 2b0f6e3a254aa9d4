package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		expected float64
		ok       bool
	}{
		{name: "too short", prices: []float64{100}, ok: false},
		{name: "monotonic rise", prices: []float64{100, 110, 120}, expected: 0, ok: true},
		{name: "single dip", prices: []float64{100, 80, 120}, expected: 0.2, ok: true},
		{name: "deepest after new peak", prices: []float64{100, 90, 200, 100, 150}, expected: 0.5, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, ok := MaxDrawdown(tt.prices)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, dd, 1e-12)
		})
	}
}
