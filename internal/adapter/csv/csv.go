// Package csv reads and writes water-level series as two-column
// timestamp,level CSV. A header row is optional; lines starting with # are
// comments.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ReadFile opens path and reads its samples.
func ReadFile(path string) ([]domain.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// Read parses samples in file order. Each sample's OriginalIndex is its data
// row number counting from zero, so the header and comments do not count.
func Read(r io.Reader) ([]domain.Sample, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var samples []domain.Sample
	first := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: want timestamp,level, got %d field(s)", line, len(row))
		}
		if first {
			first = false
			if isHeader(row) {
				continue
			}
		}

		ts, err := parseTimestamp(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		level, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse level %q: %w", line, row[1], err)
		}
		samples = append(samples, domain.Sample{Timestamp: ts, Level: level, OriginalIndex: len(samples)})
	}
	return samples, nil
}

// Write emits a header followed by one RFC 3339 timestamp,level row per sample.
func Write(w io.Writer, samples []domain.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "level"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			s.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(s.Level, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// isHeader treats a first row whose level column is not a number as a header.
func isHeader(row []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	return err != nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
