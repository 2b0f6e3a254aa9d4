package prices

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,BTC,NYSE
2024-01-02,42000.5,16500
2024-01-03,43000,
2024-01-04,41000,16600.25
2024-01-05,NaN,16700
`

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02", want},
		{" 2024-01-02 ", want},
		{"2024-01-02 15:04:05", want.Add(15*time.Hour + 4*time.Minute + 5*time.Second)},
		{"2024-01-02T00:00:00Z", want},
		{"1/2/2024", want},
		{"2024/01/02", want},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseDate("yesterday")
	assert.True(t, errors.Is(err, ErrMalformedTable))
}

func TestCSVSource_Load(t *testing.T) {
	src := NewCSVSource(zerolog.Nop())
	series, report, err := src.Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, "BTC", series[0].Asset)
	assert.Equal(t, []float64{42000.5, 43000, 41000}, series[0].Prices())
	assert.Equal(t, "NYSE", series[1].Asset)
	assert.Equal(t, []float64{16500, 16600.25, 16700}, series[1].Prices())

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, []string{"BTC", "NYSE"}, report.Assets)
	assert.Equal(t, map[string]int{"BTC": 1, "NYSE": 1}, report.Missing)

	for _, s := range series {
		assert.NoError(t, s.Validate())
	}
}

func TestCSVSource_LoadSortsRows(t *testing.T) {
	in := "date,A\n2024-01-04,3\n2024-01-02,1\n2024-01-03,2\n"
	series, _, err := NewCSVSource(zerolog.Nop()).Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, series[0].Prices())
	assert.Equal(t, 2, series[0].Points[0].Date.Day())
}

func TestCSVSource_Columns(t *testing.T) {
	src := NewCSVSource(zerolog.Nop())
	src.Columns = []string{"NYSE"}
	series, report, err := src.Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "NYSE", series[0].Asset)
	assert.Equal(t, []string{"NYSE"}, report.Assets)

	src.Columns = []string{"ETH"}
	_, _, err = src.Load(strings.NewReader(sampleCSV))
	assert.True(t, errors.Is(err, ErrMalformedTable))
}

func TestCSVSource_DateColumn(t *testing.T) {
	in := "A,Date,B\n1,2024-01-02,10\n2,2024-01-03,11\n"
	src := NewCSVSource(zerolog.Nop())
	src.DateColumn = "Date"
	series, _, err := src.Load(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "A", series[0].Asset)
	assert.Equal(t, "B", series[1].Asset)
	assert.Equal(t, []float64{10, 11}, series[1].Prices())
}

func TestCSVSource_ByteOrderMark(t *testing.T) {
	in := "\ufeffdate,A\n2024-01-02,1\n2024-01-03,2\n"
	src := NewCSVSource(zerolog.Nop())
	src.DateColumn = "date"
	series, _, err := src.Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "A", series[0].Asset)
}

func TestCSVSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"date only", "date\n2024-01-02\n"},
		{"duplicate column", "date,A,A\n2024-01-02,1,2\n"},
		{"blank column name", "date,,B\n2024-01-02,1,2\n"},
		{"bad date", "date,A\nnot-a-date,1\n"},
		{"bad price", "date,A\n2024-01-02,abc\n"},
		{"short row", "date,A,B\n2024-01-02,1\n"},
		{"duplicate date", "date,A\n2024-01-02,1\n2024-01-02,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewCSVSource(zerolog.Nop()).Load(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTable), "got %v", err)
		})
	}
}

func TestCSVSource_LoadFileTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.tsv")
	require.NoError(t, os.WriteFile(path, []byte("date\tA\n2024-01-02\t1\n2024-01-03\t2\n"), 0o644))

	series, report, err := NewCSVSource(zerolog.Nop()).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, series[0].Prices())
	assert.Equal(t, 2, report.Rows)

	_, _, err = NewCSVSource(zerolog.Nop()).LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
