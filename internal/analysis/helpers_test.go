package analysis

import (
	"math"
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

var testStart = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

// minuteSeries builds a one-per-minute series starting at testStart.
func minuteSeries(levels []float64) []domain.Sample {
	out := make([]domain.Sample, len(levels))
	for i, l := range levels {
		out[i] = domain.Sample{
			Timestamp:     testStart.Add(time.Duration(i) * time.Minute),
			Level:         l,
			OriginalIndex: i,
		}
	}
	return out
}

// generate evaluates fn at every minute index.
func generate(n int, fn func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func at(i int) time.Time {
	return testStart.Add(time.Duration(i) * time.Minute)
}

func eventsOfType(events []domain.Event, typ domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func sine(amplitude, periodMinutes float64) func(int) float64 {
	return func(i int) float64 {
		return amplitude * math.Sin(2*math.Pi*float64(i)/periodMinutes)
	}
}
