package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "BTC",
			expected: []string{"BTC"},
		},
		{
			name:     "two values",
			input:    "BTC, NYSE",
			expected: []string{"BTC", "NYSE"},
		},
		{
			name:     "three values with varied spacing",
			input:    "BTC,  NYSE , GLD",
			expected: []string{"BTC", "NYSE", "GLD"},
		},
		{
			name:     "trailing comma",
			input:    "BTC,",
			expected: []string{"BTC"},
		},
		{
			name:     "leading comma",
			input:    ",NYSE",
			expected: []string{"NYSE"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "comma only",
			input:    ",",
			expected: nil,
		},
		{
			name:     "multiple commas",
			input:    ",,BTC,,NYSE,,",
			expected: []string{"BTC", "NYSE"},
		},
		{
			name:     "duplicates keep first occurrence",
			input:    "NYSE, BTC, NYSE",
			expected: []string{"NYSE", "BTC"},
		},
		{
			name:     "value with internal spaces preserved",
			input:    "S&P 500, Gold Spot",
			expected: []string{"S&P 500", "Gold Spot"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseList(tt.input))
		})
	}
}

func TestParseList_PreservesInput(t *testing.T) {
	input := "BTC, NYSE"
	originalInput := input

	_ = ParseList(input)

	assert.Equal(t, originalInput, input, "input should not be modified")
}
