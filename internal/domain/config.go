package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TideRemovalMethod selects the tidal separation strategy.
type TideRemovalMethod string

const (
	TideRemovalHarmonic TideRemovalMethod = "harmonic"
	TideRemovalLowPass  TideRemovalMethod = "lowpass"
)

// ParseTideRemovalMethod accepts harmonic or lowpass in any letter case.
func ParseTideRemovalMethod(s string) (TideRemovalMethod, error) {
	m := TideRemovalMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case TideRemovalHarmonic, TideRemovalLowPass:
		return m, nil
	default:
		return "", fmt.Errorf("unknown tide removal method %q", s)
	}
}

// AnalysisConfig parameterizes a single analysis run. The engine never mutates it.
type AnalysisConfig struct {
	TideRemovalMethod   TideRemovalMethod `json:"tide_removal_method"`
	ExtremeThreshold    float64           `json:"extreme_threshold"`
	ConfidenceThreshold Confidence        `json:"confidence_threshold"`
	StartTime           *time.Time        `json:"start_time,omitempty"`
	EndTime             *time.Time        `json:"end_time,omitempty"`
}

// DefaultAnalysisConfig returns the settings used when a job carries none.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		TideRemovalMethod:   TideRemovalHarmonic,
		ExtremeThreshold:    1.0,
		ConfidenceThreshold: ConfidenceLow,
	}
}

// Validate checks the config and wraps every failure in ErrInvalidConfig.
func (c AnalysisConfig) Validate() error {
	if _, err := ParseTideRemovalMethod(string(c.TideRemovalMethod)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if math.IsNaN(c.ExtremeThreshold) || math.IsInf(c.ExtremeThreshold, 0) || c.ExtremeThreshold <= 0 {
		return fmt.Errorf("%w: extreme threshold must be a positive number, got %v", ErrInvalidConfig, c.ExtremeThreshold)
	}
	if !c.ConfidenceThreshold.Valid() {
		return fmt.Errorf("%w: unknown confidence threshold %q", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.StartTime != nil && c.EndTime != nil && c.EndTime.Before(*c.StartTime) {
		return fmt.Errorf("%w: end time %s is before start time %s", ErrInvalidConfig,
			c.EndTime.Format(time.RFC3339), c.StartTime.Format(time.RFC3339))
	}
	return nil
}
