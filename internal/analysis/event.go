package analysis

import (
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// eventSpec carries the fields a detector decides; newEvent fills in the rest.
type eventSpec struct {
	typ         domain.EventType
	confidence  domain.Confidence
	start       time.Time
	end         *time.Time
	peak        *time.Time
	amplitude   *float64
	period      *float64
	explanation string
	properties  []domain.Property
}

func newEvent(s eventSpec) domain.Event {
	return domain.Event{
		ID:          domain.NewEventID(s.typ, s.start, s.end, s.period, s.amplitude),
		Type:        s.typ,
		Label:       s.typ.Label(),
		StartTime:   s.start,
		EndTime:     s.end,
		Peak:        s.peak,
		Confidence:  s.confidence,
		Amplitude:   s.amplitude,
		Period:      s.period,
		Explanation: s.explanation,
		Properties:  s.properties,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func prop(name string, value float64) domain.Property {
	return domain.Property{Name: name, Value: value}
}

// gradeAbove returns high when value exceeds factor times threshold, else fallback.
func gradeAbove(value, threshold, factor float64, fallback domain.Confidence) domain.Confidence {
	if value > factor*threshold {
		return domain.ConfidenceHigh
	}
	return fallback
}
