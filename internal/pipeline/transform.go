package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
	"github.com/couchcryptid/water-level-analysis/internal/observability"
)

// JobTransformer implements Transformer by parsing a job and running it
// through an Analyzer. Jobs without their own config use defaults.
type JobTransformer struct {
	analyzer domain.Analyzer
	defaults domain.AnalysisConfig
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a JobTransformer.
func NewTransformer(analyzer domain.Analyzer, defaults domain.AnalysisConfig, logger *slog.Logger, metrics *observability.Metrics) *JobTransformer {
	return &JobTransformer{
		analyzer: analyzer,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

// Defaults returns the analysis config applied to jobs that carry none.
func (t *JobTransformer) Defaults() domain.AnalysisConfig {
	return t.defaults
}

// Transform parses the message value as a job and analyzes it.
func (t *JobTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.Report, error) {
	job, err := domain.ParseJob(raw.Value, t.defaults)
	if err != nil {
		t.metrics.AnalysisErrors.WithLabelValues("input").Inc()
		return domain.Report{}, err
	}
	if job.StationID == "" && len(raw.Key) > 0 {
		job.StationID = string(raw.Key)
	}
	return t.Analyze(ctx, job)
}

// Analyze runs one job and wraps the result in a report with a fresh run ID.
func (t *JobTransformer) Analyze(ctx context.Context, job domain.Job) (domain.Report, error) {
	cfg := t.defaults
	if job.Config != nil {
		cfg = *job.Config
	}
	runID := uuid.NewString()

	start := time.Now()
	result, err := t.analyzer.Analyze(ctx, job.Samples, cfg)
	elapsed := time.Since(start)
	if err != nil {
		reason := "internal"
		if domain.IsInputError(err) {
			reason = "input"
		}
		t.metrics.AnalysisErrors.WithLabelValues(reason).Inc()
		t.logger.Warn("analysis rejected",
			"run_id", runID,
			"station_id", job.StationID,
			"samples", len(job.Samples),
			"error", err,
		)
		return domain.Report{}, fmt.Errorf("analyze station %q: %w", job.StationID, err)
	}

	t.record(result, elapsed)
	t.logger.Info("analysis complete",
		"run_id", runID,
		"station_id", job.StationID,
		"samples", result.Stats.InputSamples,
		"gap_filled", result.Stats.InterpolatedSamples,
		"events", len(result.Events),
		"duration", elapsed,
	)
	return domain.NewReport(runID, job.StationID, cfg, result), nil
}

func (t *JobTransformer) record(result domain.AnalysisResult, elapsed time.Duration) {
	t.metrics.Analyses.Inc()
	t.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	t.metrics.SamplesAnalyzed.Observe(float64(result.Stats.AnalyzedSamples))
	t.metrics.GapFilledSamples.Add(float64(result.Stats.InterpolatedSamples))
	for _, e := range result.Events {
		t.metrics.EventsDetected.WithLabelValues(string(e.Type), string(e.Confidence)).Inc()
	}
}
