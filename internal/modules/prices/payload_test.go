package prices

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	body := `{
		"dates": ["2024-01-03", "2024-01-02", "2024-01-04"],
		"prices": {"NYSE": [101, 100, null], "BTC": [2, 1, 3]}
	}`
	p, err := DecodePayload(strings.NewReader(body))
	require.NoError(t, err)

	series, report, err := p.Series(nil)
	require.NoError(t, err)
	require.Len(t, series, 2)

	// Assets default to name order and rows to date order.
	assert.Equal(t, "BTC", series[0].Asset)
	assert.Equal(t, []float64{1, 2, 3}, series[0].Prices())
	assert.Equal(t, "NYSE", series[1].Asset)
	assert.Equal(t, []float64{100, 101}, series[1].Prices())
	assert.Equal(t, 1, report.Missing["NYSE"])
	assert.Equal(t, 0, report.Missing["BTC"])
}

func TestPayload_AssetOrder(t *testing.T) {
	p := Payload{
		Dates:  []string{"2024-01-02", "2024-01-03"},
		Assets: []string{"NYSE", "BTC"},
		Prices: map[string][]*float64{
			"BTC":  {ptr(1), ptr(2)},
			"NYSE": {ptr(10), ptr(11)},
		},
	}
	series, _, err := p.Series(nil)
	require.NoError(t, err)
	assert.Equal(t, "NYSE", series[0].Asset)
	assert.Equal(t, "BTC", series[1].Asset)

	series, _, err = p.Series([]string{"BTC"})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "BTC", series[0].Asset)
}

func TestPayload_Errors(t *testing.T) {
	_, err := DecodePayload(strings.NewReader(`{"dates": [], "prices": {}, "extra": 1}`))
	assert.True(t, errors.Is(err, ErrMalformedTable))

	_, err = DecodePayload(strings.NewReader(`not json`))
	assert.True(t, errors.Is(err, ErrMalformedTable))

	tests := []struct {
		name string
		p    Payload
	}{
		{"no prices", Payload{Dates: []string{"2024-01-02"}}},
		{"length mismatch", Payload{
			Dates:  []string{"2024-01-02", "2024-01-03"},
			Prices: map[string][]*float64{"A": {ptr(1)}},
		}},
		{"bad date", Payload{
			Dates:  []string{"soon"},
			Prices: map[string][]*float64{"A": {ptr(1)}},
		}},
		{"unknown asset", Payload{
			Dates:  []string{"2024-01-02"},
			Assets: []string{"B"},
			Prices: map[string][]*float64{"A": {ptr(1)}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.p.Series(nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTable))
		})
	}
}

func ptr(v float64) *float64 { return &v }
