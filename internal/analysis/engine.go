package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// ProcessedData is the frozen snapshot every detector reads.
type ProcessedData struct {
	Decomposition    domain.Decomposition
	ResidualSpectrum domain.SpectralEstimate
	Config           domain.AnalysisConfig
}

// Detector is one independent event detector.
type Detector struct {
	Name   string
	Detect func(ProcessedData) []domain.Event
}

// Detectors lists the detectors in the order their events are reported.
var Detectors = []Detector{
	{Name: "tidal_phase", Detect: func(d ProcessedData) []domain.Event {
		return DetectTidalPhases(d.Decomposition.Tidal)
	}},
	{Name: "storm_surge", Detect: func(d ProcessedData) []domain.Event {
		return DetectStormSurges(d.Decomposition.Residual)
	}},
	{Name: "seiche", Detect: func(d ProcessedData) []domain.Event {
		return DetectSeiches(d.Decomposition.Residual, d.ResidualSpectrum)
	}},
	{Name: "infragravity", Detect: func(d ProcessedData) []domain.Event {
		return DetectInfragravity(d.Decomposition.Residual, d.ResidualSpectrum)
	}},
	{Name: "data_artifact", Detect: func(d ProcessedData) []domain.Event {
		return DetectArtifacts(d.Decomposition.Original)
	}},
	{Name: "extreme_level", Detect: func(d ProcessedData) []domain.Event {
		return DetectExtremes(d.Decomposition.Original, d.Config.ExtremeThreshold)
	}},
	{Name: "aliased_activity", Detect: func(d ProcessedData) []domain.Event {
		return DetectAliasing(d.Decomposition.Residual, d.ResidualSpectrum)
	}},
}

// FilterByConfidence keeps events graded at or above threshold, preserving order.
func FilterByConfidence(events []domain.Event, threshold domain.Confidence) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e.Confidence.Rank() >= threshold.Rank() {
			out = append(out, e)
		}
	}
	return out
}

// Preprocess validates the input and runs range filtering, smoothing, gap
// filling, tidal separation, and the residual spectrum.
func Preprocess(samples []domain.Sample, cfg domain.AnalysisConfig) (ProcessedData, domain.SeriesStats, error) {
	stats := domain.SeriesStats{InputSamples: len(samples)}
	if err := cfg.Validate(); err != nil {
		return ProcessedData{}, stats, err
	}
	if len(samples) == 0 {
		return ProcessedData{}, stats, domain.ErrEmptySeries
	}
	for i, s := range samples {
		if math.IsNaN(s.Level) || math.IsInf(s.Level, 0) {
			return ProcessedData{}, stats, fmt.Errorf("%w: sample %d level %v", domain.ErrNonFiniteLevel, i, s.Level)
		}
	}

	ranged := FilterRange(SortSamples(samples), cfg.StartTime, cfg.EndTime)
	stats.RangeSamples = len(ranged)
	if len(ranged) < domain.MinSamples {
		return ProcessedData{}, stats, fmt.Errorf("%w: %d samples in range, need at least %d",
			domain.ErrInsufficientSamples, len(ranged), domain.MinSamples)
	}

	if n := FilledLen(ranged, domain.MaxAnalyzedSamples); n > domain.MaxAnalyzedSamples {
		return ProcessedData{}, stats, fmt.Errorf("%w: gap filling would produce more than %d samples",
			domain.ErrSeriesTooLong, domain.MaxAnalyzedSamples)
	}

	original := FillGaps(Smooth(ranged))
	tidal := SeparateTide(original, cfg.TideRemovalMethod)
	detrended := Subtract(original, tidal)
	// The residual is the detrended series under a second name.
	residual := Subtract(original, tidal)
	spectrum := Spectrum(residual)

	stats.AnalyzedSamples = len(original)
	stats.InterpolatedSamples = len(original) - len(ranged)
	stats.DominantPeriod = spectrum.DominantPeriod

	return ProcessedData{
		Decomposition: domain.Decomposition{
			Original:  original,
			Detrended: detrended,
			Residual:  residual,
			Tidal:     tidal,
		},
		ResidualSpectrum: spectrum,
		Config:           cfg,
	}, stats, nil
}

// Run is the whole single-shot pipeline: preprocessing, every detector in
// sequence, then the confidence filter.
func Run(samples []domain.Sample, cfg domain.AnalysisConfig) (domain.AnalysisResult, error) {
	return run(context.Background(), samples, cfg)
}

func run(ctx context.Context, samples []domain.Sample, cfg domain.AnalysisConfig) (domain.AnalysisResult, error) {
	data, stats, err := Preprocess(samples, cfg)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.AnalysisResult{}, err
	}

	var events []domain.Event
	for _, d := range Detectors {
		events = append(events, d.Detect(data)...)
	}
	domain.UniquifyIDs(events)

	return domain.AnalysisResult{
		Decomposition: data.Decomposition,
		Events:        FilterByConfidence(events, cfg.ConfidenceThreshold),
		Stats:         stats,
	}, nil
}

// Engine implements domain.Analyzer on top of Run.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Analyze runs the pipeline unless ctx is already done. ctx is checked again
// between preprocessing and detection; the stages themselves do not poll it.
func (e *Engine) Analyze(ctx context.Context, samples []domain.Sample, cfg domain.AnalysisConfig) (domain.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnalysisResult{}, err
	}
	return run(ctx, samples, cfg)
}
