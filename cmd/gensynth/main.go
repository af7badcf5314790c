// Command gensynth writes a deterministic synthetic water-level series as
// timestamp,level CSV. The series carries a mixed semidiurnal and diurnal tide
// plus a storm surge, a seiche burst, a spike, a flatline, and a data gap, so
// every detector has something to find.
//
// Usage:
//
//	go run ./cmd/gensynth -days 3 -out data/synthetic.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/adapter/csv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output CSV path (stdout when empty)")
	days := flag.Int("days", 3, "length of the series in days")
	seed := flag.Uint64("seed", 1, "noise seed")
	start := flag.String("start", "2024-03-10T00:00:00Z", "first timestamp (RFC 3339)")
	flag.Parse()

	t0, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	if *days < 1 {
		return fmt.Errorf("-days must be at least 1, got %d", *days)
	}

	samples := generate(synthParams{Start: t0, Days: *days, Seed: *seed})

	if *out == "" {
		return csv.Write(os.Stdout, samples)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := csv.Write(f, samples); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", *out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %d samples to %s", len(samples), *out)
	return nil
}
