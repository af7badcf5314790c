// Command analyze runs the analysis engine over a timestamp,level CSV file and
// writes the report to stdout.
//
// Usage:
//
//	go run ./cmd/analyze -station 8518750 -method lowpass data/battery.csv
//	go run ./cmd/analyze -format msgpack -confidence high data/battery.csv > report.msgpack
//
// Analysis defaults come from the same config file and environment variables
// the service reads; flags override them.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/water-level-analysis/internal/adapter/csv"
	"github.com/couchcryptid/water-level-analysis/internal/adapter/format"
	"github.com/couchcryptid/water-level-analysis/internal/analysis"
	"github.com/couchcryptid/water-level-analysis/internal/config"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

type options struct {
	configPath string
	format     string
	station    string
	method     string
	threshold  float64
	confidence string
	start      string
	end        string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "optional YAML, TOML, or JSON config file")
	flag.StringVar(&opts.format, "format", "json", "output format: json or msgpack")
	flag.StringVar(&opts.station, "station", "", "station identifier recorded in the report")
	flag.StringVar(&opts.method, "method", "", "tide removal method: harmonic or lowpass")
	flag.Float64Var(&opts.threshold, "threshold", 0, "extreme deviation from the mean level, in meters")
	flag.StringVar(&opts.confidence, "confidence", "", "minimum confidence: low, medium, or high")
	flag.StringVar(&opts.start, "start", "", "analysis range start (RFC 3339)")
	flag.StringVar(&opts.end, "end", "", "analysis range end (RFC 3339)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <series.csv>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), flag.Arg(0), opts, logger); err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, opts options, logger *slog.Logger) error {
	out, err := format.Parse(opts.format)
	if err != nil {
		return err
	}

	cfg, err := analysisConfig(opts)
	if err != nil {
		return err
	}

	samples, err := csv.ReadFile(path)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := analysis.NewEngine().Analyze(ctx, samples, cfg)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	report := domain.NewReport(uuid.NewString(), opts.station, cfg, result)

	logger.Info("analysis complete",
		"file", path,
		"samples", report.Summary.InputSamples,
		"gap_filled", report.Summary.InterpolatedSamples,
		"events", report.Summary.EventCount,
		"duration", time.Since(started),
	)

	w := bufio.NewWriter(os.Stdout)
	if err := format.Encode(w, out, report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return w.Flush()
}

// analysisConfig starts from the configured defaults and applies any flags set.
func analysisConfig(opts options) (domain.AnalysisConfig, error) {
	base, err := config.Load(opts.configPath)
	if err != nil {
		return domain.AnalysisConfig{}, err
	}
	cfg, err := base.Analysis()
	if err != nil {
		return domain.AnalysisConfig{}, err
	}

	if opts.method != "" {
		m, err := domain.ParseTideRemovalMethod(opts.method)
		if err != nil {
			return domain.AnalysisConfig{}, err
		}
		cfg.TideRemovalMethod = m
	}
	if opts.threshold != 0 {
		cfg.ExtremeThreshold = opts.threshold
	}
	if opts.confidence != "" {
		c, err := domain.ParseConfidence(opts.confidence)
		if err != nil {
			return domain.AnalysisConfig{}, err
		}
		cfg.ConfidenceThreshold = c
	}
	if opts.start != "" {
		t, err := time.Parse(time.RFC3339, opts.start)
		if err != nil {
			return domain.AnalysisConfig{}, fmt.Errorf("parse -start: %w", err)
		}
		cfg.StartTime = &t
	}
	if opts.end != "" {
		t, err := time.Parse(time.RFC3339, opts.end)
		if err != nil {
			return domain.AnalysisConfig{}, fmt.Errorf("parse -end: %w", err)
		}
		cfg.EndTime = &t
	}
	return cfg, cfg.Validate()
}
