// Package analysis is the water-level analysis core: preprocessing, tidal
// separation, spectral estimation, event detection, and confidence filtering.
//
// Every function here is a pure transformation over in-memory series. Nothing
// logs, blocks, or keeps state between calls, so detectors may run in any order
// or in parallel over the same ProcessedData.
package analysis

import (
	"cmp"
	"slices"
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// ExpectedInterval is the nominal sampling interval of a gauge series.
const ExpectedInterval = time.Minute

// smoothingWindow is the moving-median width in samples.
const smoothingWindow = 5

// SortSamples returns a copy of samples ordered by timestamp. Ties are broken by
// level and then original index so the result does not depend on input order.
func SortSamples(samples []domain.Sample) []domain.Sample {
	out := slices.Clone(samples)
	slices.SortStableFunc(out, func(a, b domain.Sample) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Level, b.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.OriginalIndex, b.OriginalIndex)
	})
	return out
}

// FilterRange keeps the samples whose timestamp lies in [start, end]. A nil
// bound leaves that side open.
func FilterRange(samples []domain.Sample, start, end *time.Time) []domain.Sample {
	out := make([]domain.Sample, 0, len(samples))
	for _, s := range samples {
		if start != nil && s.Timestamp.Before(*start) {
			continue
		}
		if end != nil && s.Timestamp.After(*end) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Smooth replaces each level with the median of a centered five-sample window.
// Near the ends the window clips to the available neighbours; for an even count
// the upper of the two middle values is used.
func Smooth(samples []domain.Sample) []domain.Sample {
	n := len(samples)
	out := make([]domain.Sample, n)
	half := smoothingWindow / 2
	window := make([]float64, 0, smoothingWindow)

	for i, s := range samples {
		lo := max(0, i-half)
		hi := min(n-1, i+half)

		window = window[:0]
		for j := lo; j <= hi; j++ {
			window = append(window, samples[j].Level)
		}
		slices.Sort(window)

		out[i] = domain.Sample{
			Timestamp:     s.Timestamp,
			Level:         window[len(window)/2],
			OriginalIndex: s.OriginalIndex,
		}
	}
	return out
}

// FillGaps inserts linearly interpolated samples into every gap longer than
// twice ExpectedInterval. A gap of length d receives floor(d/interval)-1 samples
// spaced one interval apart, each with OriginalIndex = -1.
func FillGaps(samples []domain.Sample) []domain.Sample {
	out := make([]domain.Sample, 0, len(samples))
	for i, s := range samples {
		if i > 0 {
			out = appendInterpolated(out, samples[i-1], s)
		}
		out = append(out, s)
	}
	return out
}

// FilledLen returns the length FillGaps would produce for a sorted series,
// without building it. Counting stops once the total passes limit.
func FilledLen(samples []domain.Sample, limit int) int {
	n := len(samples)
	for i := 1; i < len(samples) && n <= limit; i++ {
		delta := samples[i].Timestamp.Sub(samples[i-1].Timestamp)
		if delta > 2*ExpectedInterval {
			n += int(delta/ExpectedInterval) - 1
		}
	}
	return n
}

func appendInterpolated(out []domain.Sample, prev, next domain.Sample) []domain.Sample {
	delta := next.Timestamp.Sub(prev.Timestamp)
	if delta <= 2*ExpectedInterval {
		return out
	}

	missing := int(delta/ExpectedInterval) - 1
	for k := 1; k <= missing; k++ {
		offset := time.Duration(k) * ExpectedInterval
		frac := float64(offset) / float64(delta)
		out = append(out, domain.Sample{
			Timestamp:     prev.Timestamp.Add(offset),
			Level:         prev.Level + (next.Level-prev.Level)*frac,
			OriginalIndex: domain.InterpolatedIndex,
		})
	}
	return out
}
