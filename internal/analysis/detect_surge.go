package analysis

import (
	"fmt"
	"math"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

const (
	// surgeThreshold is the residual magnitude (meters) a surge must exceed.
	surgeThreshold = 0.15
	// minSurgeSamples is the shortest run reported as a surge (one hour).
	minSurgeSamples = 60
)

// surgeRun accumulates consecutive residual samples above the threshold.
type surgeRun struct {
	start    int
	peakIdx  int
	peak     float64
	positive bool
}

// DetectStormSurges reports every run of at least minSurgeSamples residual
// samples whose magnitude stays above surgeThreshold. The sign at the start of
// the run decides whether the surge is positive or negative.
func DetectStormSurges(residual []domain.Sample) []domain.Event {
	var events []domain.Event
	var run *surgeRun

	for i, s := range residual {
		mag := math.Abs(s.Level)
		if mag > surgeThreshold {
			switch {
			case run == nil:
				run = &surgeRun{start: i, peakIdx: i, peak: mag, positive: s.Level > 0}
			case mag > run.peak:
				run.peak = mag
				run.peakIdx = i
			}
			continue
		}
		if run != nil {
			events = appendSurge(events, residual, *run, i-1)
			run = nil
		}
	}
	if run != nil {
		events = appendSurge(events, residual, *run, len(residual)-1)
	}
	return events
}

func appendSurge(events []domain.Event, residual []domain.Sample, run surgeRun, end int) []domain.Event {
	length := end - run.start + 1
	if length < minSurgeSamples {
		return events
	}

	duration := float64(length) * ExpectedInterval.Minutes()
	surgeType, kind := 1.0, "positive"
	if !run.positive {
		surgeType, kind = -1.0, "negative"
	}

	return append(events, newEvent(eventSpec{
		typ:        domain.EventStormSurge,
		confidence: gradeAbove(run.peak, surgeThreshold, 2, domain.ConfidenceMedium),
		start:      residual[run.start].Timestamp,
		end:        ptr(residual[end].Timestamp),
		peak:       ptr(residual[run.peakIdx].Timestamp),
		amplitude:  ptr(run.peak),
		explanation: fmt.Sprintf("Non-tidal residual stayed beyond %.2f m for %.0f minutes (%s surge), peaking at %.2f m.",
			surgeThreshold, duration, kind, run.peak),
		properties: []domain.Property{
			prop("peak_amplitude", run.peak),
			prop("duration_minutes", duration),
			prop("surge_type", surgeType),
			prop("threshold", surgeThreshold),
		},
	}))
}
