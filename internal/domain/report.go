package domain

import (
	"context"
	"time"
)

// Analyzer runs the analysis core over a series.
type Analyzer interface {
	Analyze(ctx context.Context, samples []Sample, cfg AnalysisConfig) (AnalysisResult, error)
}

// SeriesStats counts samples through the preprocessing stages.
type SeriesStats struct {
	InputSamples        int     `json:"input_samples"`
	RangeSamples        int     `json:"range_samples"`
	InterpolatedSamples int     `json:"interpolated_samples"`
	AnalyzedSamples     int     `json:"analyzed_samples"`
	DominantPeriod      float64 `json:"dominant_period"`
}

// AnalysisResult is the output of one engine run: the decomposition plus the
// confidence-filtered events in detection order.
type AnalysisResult struct {
	Decomposition Decomposition `json:"decomposition"`
	Events        []Event       `json:"events"`
	Stats         SeriesStats   `json:"stats"`
}

// Summary aggregates a result for quick inspection.
type Summary struct {
	SeriesStats
	EventCount   int                `json:"event_count"`
	ByType       map[EventType]int  `json:"by_type"`
	ByConfidence map[Confidence]int `json:"by_confidence"`
}

// Report is an analysis result annotated with provenance.
type Report struct {
	RunID         string         `json:"run_id"`
	StationID     string         `json:"station_id,omitempty"`
	AnalyzedAt    time.Time      `json:"analyzed_at"`
	Config        AnalysisConfig `json:"config"`
	Summary       Summary        `json:"summary"`
	Decomposition Decomposition  `json:"decomposition"`
	Events        []Event        `json:"events"`
}

// NewReport wraps a result, stamping it with the package clock.
func NewReport(runID, stationID string, cfg AnalysisConfig, result AnalysisResult) Report {
	return Report{
		RunID:         runID,
		StationID:     stationID,
		AnalyzedAt:    clock.Now().UTC(),
		Config:        cfg,
		Summary:       Summarize(result),
		Decomposition: result.Decomposition,
		Events:        result.Events,
	}
}

// Summarize counts a result's events by type and confidence.
func Summarize(result AnalysisResult) Summary {
	s := Summary{
		SeriesStats:  result.Stats,
		EventCount:   len(result.Events),
		ByType:       make(map[EventType]int),
		ByConfidence: make(map[Confidence]int),
	}
	for _, e := range result.Events {
		s.ByType[e.Type]++
		s.ByConfidence[e.Confidence]++
	}
	return s
}
