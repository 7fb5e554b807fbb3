// Package schema infers per-column type schemas for CSV blobs and caches
// them as blob metadata.
//
// Inference is a pure function of the input bytes: the first row is the
// header, up to sampleRows data rows are sampled, and each column is
// classified by an ordered cascade of predicates. That purity is what makes
// the lock-free metadata cache in cache.go safe.
package schema

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Column types produced by Infer.
const (
	TypeDate    = "date"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeString  = "string"
)

// sampleRows is how many data rows are examined per blob. Five rows keeps
// inference cheap on large blobs while being enough to separate the types
// the cascade distinguishes.
const sampleRows = 5

// Column is one entry of an inferred schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is an ordered schema, one Column per header cell.
type Table []Column

// Infer analyzes CSV bytes and returns one typed column per header cell.
//
// Edge cases:
//   - A header with zero data rows types every column string.
//   - Short rows contribute only the cells they have; the missing tail is
//     treated as absent, not as an empty string.
//   - Empty cells never participate in classification.
//   - Completely empty input is an error (there is no header to type).
func Infer(data []byte) (Table, error) {
	data, err := normalizeCharset(data)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	header, rows, err := readSample(data)
	if err != nil {
		return nil, err
	}

	table := make(Table, len(header))
	for col, name := range header {
		var values []string
		for _, r := range rows {
			if col >= len(r) {
				continue
			}
			v := strings.TrimSpace(r[col])
			if v == "" {
				continue
			}
			values = append(values, v)
		}
		table[col] = Column{Name: name, Type: classify(values)}
	}
	return table, nil
}

// readSample parses the header row plus up to sampleRows data rows.
func readSample(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are expected; missing cells are absent
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0, sampleRows)
	for len(rows) < sampleRows {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("read csv sample: %w", err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// cascade is the classification order. Evaluated top to bottom, first
// predicate matching every sampled value wins; a column with no values, or
// matching nothing, is a string.
//
// Date runs before number so "2024-01-01" never classifies by its numeric
// year substrings, and number runs before boolean so "0"/"1" columns stay
// numeric.
var cascade = []struct {
	typ   string
	match func(string) bool
}{
	{TypeDate, isDate},
	{TypeFloat, isNumber}, // refined to integer below when all values are whole
	{TypeBoolean, isBoolean},
}

func classify(values []string) string {
	if len(values) == 0 {
		return TypeString
	}
	for _, c := range cascade {
		all := true
		for _, v := range values {
			if !c.match(v) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		if c.typ == TypeFloat && allWhole(values) {
			return TypeInteger
		}
		return c.typ
	}
	return TypeString
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

func isDate(s string) bool {
	for _, lay := range dateLayouts {
		if _, err := time.Parse(lay, s); err == nil {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// allWhole reports whether every value parses to a whole number, so "1.0"
// counts as integer while "2.5" demotes the column to float.
func allWhole(values []string) bool {
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f != math.Trunc(f) {
			return false
		}
	}
	return true
}

func isBoolean(s string) bool {
	switch strings.ToLower(s) {
	case "1", "t", "true", "yes", "y", "0", "f", "false", "no", "n":
		return true
	default:
		return false
	}
}

// normalizeCharset strips a UTF-8 BOM and transcodes UTF-16 payloads, so
// Excel-exported CSVs classify the same as plain UTF-8 ones.
func normalizeCharset(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		return out, err
	default:
		return data, nil
	}
}
