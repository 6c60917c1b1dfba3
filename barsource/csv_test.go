package barsource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"github.com/evdnx/gosmc/types"
)

const plain = `timestamp,open,high,low,close,volume
1700000000,100,101,99,100.5,10
1700000060,100.5,102,100,101.5,12
1700000120,101.5,101.8,100.9,101,8
`

func TestReadCSVWithHeader(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(plain))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	want := types.Bar{Time: 1700000060, Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 12}
	if bars[1] != want {
		t.Fatalf("bar 1 = %+v, want %+v", bars[1], want)
	}
}

func TestReadCSVEncodings(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(plain)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		"utf8 bom":  "\ufeff" + plain,
		"utf16 bom": utf16,
		"crlf":      strings.ReplaceAll(plain, "\n", "\r\n"),
	}
	for name, in := range cases {
		bars, err := ReadCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(bars) != 3 || bars[0].Time != 1700000000 || bars[2].Close != 101 {
			t.Fatalf("%s: unexpected bars %+v", name, bars)
		}
	}
}

func TestReadCSVLayouts(t *testing.T) {
	cases := []struct {
		name string
		in   string
		time int64
		vol  float64
	}{
		{"no header, milliseconds", "1700000000000,1,2,0.5,1.5,3\n", 1700000000, 3},
		{"reordered header", "close,low,high,open,date\n1.5,0.5,2,1,1700000000\n", 1700000000, 0},
		{"rfc3339", "2023-11-14T22:13:20Z,1,2,0.5,1.5,3\n", 1700000000, 3},
		{"quoted", "\"1700000000\",\"1\",\"2\",\"0.5\",\"1.5\",\"3\"\n", 1700000000, 3},
	}
	for _, c := range cases {
		bars, err := ReadCSV(strings.NewReader(c.in))
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if len(bars) != 1 || bars[0].Time != c.time || bars[0].Open != 1 || bars[0].High != 2 || bars[0].Volume != c.vol {
			t.Fatalf("%s: got %+v", c.name, bars)
		}
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("1700000060,1,2,0.5,1.5,3\n1700000000,1,2,0.5,1.5,3\n"))
	if !errors.Is(err, types.ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
	if _, err := ReadCSV(strings.NewReader("1700000000,1,2,abc,1.5,3\n")); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected a line-numbered parse error, got %v", err)
	}
	if _, err := ReadCSV(strings.NewReader("time,open,high,close\n")); err == nil {
		t.Fatalf("expected a missing-column error")
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(plain), 0o644); err != nil {
		t.Fatal(err)
	}
	bars, err := LoadCSV(path)
	if err != nil || len(bars) != 3 {
		t.Fatalf("LoadCSV: %d bars, %v", len(bars), err)
	}
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
