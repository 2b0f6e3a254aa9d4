// Package prices loads per-asset price histories from tabular sources.
package prices

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
)

// ErrMalformedTable is returned when a price table cannot be parsed.
var ErrMalformedTable = errors.New("malformed price table")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"2006/01/02",
}

// ParseDate accepts the date layouts commonly found in exported price files.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrMalformedTable, s)
}

// isMissing reports whether a cell holds no observation.
func isMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "nan", "null", "na", "n/a", "-":
		return true
	}
	return false
}

// LoadReport describes what a load read and skipped.
type LoadReport struct {
	Rows    int            `json:"rows" msgpack:"rows"`
	Assets  []string       `json:"assets" msgpack:"assets"`
	Missing map[string]int `json:"missing" msgpack:"missing"`
}

// CSVSource reads a wide price table: one date column followed by one
// column of prices per asset.
type CSVSource struct {
	// Columns selects and orders the asset columns; empty means all of them.
	Columns []string
	// DateColumn names the date column; empty means the first column.
	DateColumn string
	// Delimiter defaults to ','; files ending in .tsv default to tab.
	Delimiter rune

	log zerolog.Logger
}

// NewCSVSource creates a CSV price source.
func NewCSVSource(log zerolog.Logger) *CSVSource {
	return &CSVSource{log: log.With().Str("component", "csv_source").Logger()}
}

// LoadFile opens path and loads it.
func (s *CSVSource) LoadFile(path string) ([]domain.PriceSeries, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	src := *s
	if src.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		src.Delimiter = '\t'
	}
	series, report, err := src.Load(f)
	if err != nil {
		return nil, report, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return series, report, nil
}

// Load parses the table. Missing cells (empty, NaN, null) are left out of
// that asset's series and counted in the report. Rows may come in any date
// order; each series is returned sorted by date.
func (s *CSVSource) Load(r io.Reader) ([]domain.PriceSeries, LoadReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if s.Delimiter != 0 {
		cr.Comma = s.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, LoadReport{}, fmt.Errorf("%w: empty input", ErrMalformedTable)
		}
		return nil, LoadReport{}, fmt.Errorf("%w: read header: %w", ErrMalformedTable, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	dateIdx, assetIdx, assets, err := s.resolveColumns(header)
	if err != nil {
		return nil, LoadReport{}, err
	}

	dates := make([]time.Time, 0, 256)
	cols := make([][]float64, len(assets))
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("%w: line %d: %w", ErrMalformedTable, line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(header) {
			return nil, LoadReport{}, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrMalformedTable, line, len(record), len(header))
		}

		date, err := ParseDate(record[dateIdx])
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("line %d: %w", line, err)
		}
		dates = append(dates, date)

		for k, idx := range assetIdx {
			cell := record[idx]
			if isMissing(cell) {
				cols[k] = append(cols[k], math.NaN())
				continue
			}
			price, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, LoadReport{}, fmt.Errorf("%w: line %d: %s price %q is not a number",
					ErrMalformedTable, line, assets[k], cell)
			}
			cols[k] = append(cols[k], price)
		}
	}

	series, report, err := FromColumns(dates, assets, cols)
	if err != nil {
		return nil, report, err
	}

	s.log.Debug().
		Int("rows", report.Rows).
		Strs("assets", assets).
		Interface("missing", report.Missing).
		Msg("Loaded price table")
	return series, report, nil
}

func (s *CSVSource) resolveColumns(header []string) (int, []int, []string, error) {
	if len(header) < 2 {
		return 0, nil, nil, fmt.Errorf("%w: header needs a date column and at least one asset", ErrMalformedTable)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return 0, nil, nil, fmt.Errorf("%w: column %d has no name", ErrMalformedTable, i+1)
		}
		if _, dup := index[name]; dup {
			return 0, nil, nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedTable, name)
		}
		index[name] = i
	}

	dateIdx := 0
	if s.DateColumn != "" {
		i, ok := index[s.DateColumn]
		if !ok {
			return 0, nil, nil, fmt.Errorf("%w: no date column %q", ErrMalformedTable, s.DateColumn)
		}
		dateIdx = i
	}

	var assets []string
	if len(s.Columns) > 0 {
		assets = s.Columns
	} else {
		for i, name := range header {
			if i != dateIdx {
				assets = append(assets, strings.TrimSpace(name))
			}
		}
	}

	assetIdx := make([]int, len(assets))
	for k, a := range assets {
		i, ok := index[a]
		if !ok || i == dateIdx {
			return 0, nil, nil, fmt.Errorf("%w: no asset column %q", ErrMalformedTable, a)
		}
		assetIdx[k] = i
	}
	return dateIdx, assetIdx, assets, nil
}

// FromColumns builds one series per asset from a shared date column and
// per-asset price columns, where NaN marks a missing observation.
func FromColumns(dates []time.Time, assets []string, cols [][]float64) ([]domain.PriceSeries, LoadReport, error) {
	report := LoadReport{Rows: len(dates), Assets: assets, Missing: make(map[string]int, len(assets))}
	if len(cols) != len(assets) {
		return nil, report, fmt.Errorf("%w: %d price columns for %d assets", ErrMalformedTable, len(cols), len(assets))
	}

	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dates[order[a]].Before(dates[order[b]])
	})
	for k := 1; k < len(order); k++ {
		if dates[order[k]].Equal(dates[order[k-1]]) {
			return nil, report, fmt.Errorf("%w: duplicate date %s",
				ErrMalformedTable, dates[order[k]].Format(time.DateOnly))
		}
	}

	series := make([]domain.PriceSeries, len(assets))
	for a, asset := range assets {
		if len(cols[a]) != len(dates) {
			return nil, report, fmt.Errorf("%w: %s has %d prices for %d dates",
				ErrMalformedTable, asset, len(cols[a]), len(dates))
		}
		points := make([]domain.PricePoint, 0, len(dates))
		for _, i := range order {
			if math.IsNaN(cols[a][i]) {
				report.Missing[asset]++
				continue
			}
			points = append(points, domain.PricePoint{Date: dates[i], Price: cols[a][i]})
		}
		series[a] = domain.PriceSeries{Asset: asset, Points: points}
	}
	return series, report, nil
}
