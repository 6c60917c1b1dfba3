// Package barsource loads OHLCV bars from files and databases.
package barsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/evdnx/gosmc/types"
)

// msThreshold separates second from millisecond timestamps: any value
// above it is read as milliseconds.
const msThreshold = 100_000_000_000

var columnAliases = map[string]string{
	"time": "time", "timestamp": "time", "open_time": "time", "open_time_ms": "time",
	"date": "time", "datetime": "time", "ts": "time",
	"open": "open", "o": "open",
	"high": "high", "h": "high",
	"low": "low", "l": "low",
	"close": "close", "c": "close",
	"volume": "volume", "vol": "volume", "v": "volume",
}

// LoadCSV reads the bars in path. See ReadCSV.
func LoadCSV(path string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses time,open,high,low,close,volume rows. A UTF-8 or UTF-16
// byte order mark is honoured. An optional header row may name the
// columns in any order. Times are unix seconds, unix milliseconds or
// RFC 3339. The result is checked with types.ValidateBars.
func ReadCSV(r io.Reader) ([]types.Bar, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	cols := map[string]int{"time": 0, "open": 1, "high": 2, "low": 3, "close": 4, "volume": 5}
	var bars []types.Bar
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if line == 1 && isHeader(rec) {
			if cols, err = headerColumns(rec); err != nil {
				return nil, err
			}
			continue
		}
		b, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	if err := types.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func isHeader(rec []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err == nil {
		return false
	}
	_, err = time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
	return err != nil
}

func headerColumns(rec []string) (map[string]int, error) {
	cols := map[string]int{}
	for i, name := range rec {
		if c, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	for _, c := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("header %v: missing %s column", rec, c)
		}
	}
	return cols, nil
}

func parseRow(rec []string, cols map[string]int) (types.Bar, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}
	num := func(name string) (float64, error) {
		s, ok := field(name)
		if !ok {
			return 0, fmt.Errorf("missing %s", name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var b types.Bar
	ts, ok := field("time")
	if !ok {
		return b, errors.New("missing time")
	}
	t, err := parseTime(ts)
	if err != nil {
		return b, err
	}
	b.Time = t
	if b.Open, err = num("open"); err != nil {
		return b, err
	}
	if b.High, err = num("high"); err != nil {
		return b, err
	}
	if b.Low, err = num("low"); err != nil {
		return b, err
	}
	if b.Close, err = num("close"); err != nil {
		return b, err
	}
	// Volume is optional.
	if _, ok := field("volume"); ok {
		if b.Volume, err = num("volume"); err != nil {
			return b, err
		}
	}
	return b, nil
}

func parseTime(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v > msThreshold {
			v /= 1000
		}
		return v, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v > msThreshold {
			v /= 1000
		}
		return int64(v), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("time %q: want unix seconds, milliseconds or RFC 3339", s)
	}
	return t.Unix(), nil
}
