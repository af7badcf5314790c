package domain

import "time"

// InterpolatedIndex is the OriginalIndex of samples produced by gap filling.
const InterpolatedIndex = -1

// Sample is a single water-level measurement in meters.
type Sample struct {
	Timestamp     time.Time `json:"timestamp"`
	Level         float64   `json:"level"`
	OriginalIndex int       `json:"original_index"`
}

// Interpolated reports whether the sample was inserted rather than measured.
func (s Sample) Interpolated() bool {
	return s.OriginalIndex == InterpolatedIndex
}

// Levels extracts the level of every sample in order.
func Levels(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Level
	}
	return out
}

// Decomposition splits a gap-filled series into its tidal and non-tidal parts.
// All four series share length and index alignment.
type Decomposition struct {
	Original  []Sample `json:"original"`
	Detrended []Sample `json:"detrended"`
	Residual  []Sample `json:"residual"`
	Tidal     []Sample `json:"tidal"`
}

// Len returns the common length of the aligned series.
func (d Decomposition) Len() int {
	return len(d.Original)
}

// SpectralEstimate is a coarse one-sided power spectrum. Frequencies are in
// cycles per minute and span [0, 0.5) in uniform steps.
type SpectralEstimate struct {
	Frequencies       []float64 `json:"frequencies"`
	Powers            []float64 `json:"powers"`
	DominantFrequency float64   `json:"dominant_frequency"`
	DominantPeriod    float64   `json:"dominant_period"`
}
