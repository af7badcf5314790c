package analysis

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

const (
	// spikeThreshold is the largest plausible level change between samples (meters).
	spikeThreshold = 0.5
	// flatlineTolerance is the largest change still counted as "no change" (meters).
	flatlineTolerance = 0.001
	// minFlatlineSamples is the shortest constant run reported (half an hour).
	minFlatlineSamples = 30

	extremeLowPercentile  = 0.01
	extremeHighPercentile = 0.99

	// varianceWindow is the moving-variance width for aliasing detection.
	varianceWindow = 10
	// aliasPowerRatio is how far Nyquist-bin power must exceed the mean power.
	aliasPowerRatio = 3
)

// DetectArtifacts runs the spike and flatline checks over the gap-filled series.
func DetectArtifacts(series []domain.Sample) []domain.Event {
	return append(detectSpikes(series), detectFlatlines(series)...)
}

func detectSpikes(series []domain.Sample) []domain.Event {
	var events []domain.Event
	for i := 1; i < len(series); i++ {
		jump := series[i].Level - series[i-1].Level
		if math.Abs(jump) <= spikeThreshold {
			continue
		}
		events = append(events, newEvent(eventSpec{
			typ:        domain.EventSpike,
			confidence: domain.ConfidenceHigh,
			start:      series[i].Timestamp,
			amplitude:  ptr(math.Abs(jump)),
			explanation: fmt.Sprintf("Level jumped %+.3f m in one sample (from %.3f m to %.3f m); physical water levels do not change by more than %.1f m per minute.",
				jump, series[i-1].Level, series[i].Level, spikeThreshold),
			properties: []domain.Property{
				prop("jump", jump),
				prop("level", series[i].Level),
				prop("previous_level", series[i-1].Level),
			},
		}))
	}
	return events
}

func detectFlatlines(series []domain.Sample) []domain.Event {
	var events []domain.Event
	start := 0
	for i := 1; i <= len(series); i++ {
		if i < len(series) && math.Abs(series[i].Level-series[i-1].Level) <= flatlineTolerance {
			continue
		}
		if length := i - start; length >= minFlatlineSamples {
			value := series[start].Level
			events = append(events, newEvent(eventSpec{
				typ:        domain.EventFlatline,
				confidence: domain.ConfidenceHigh,
				start:      series[start].Timestamp,
				end:        ptr(series[i-1].Timestamp),
				explanation: fmt.Sprintf("Level held at %.3f m for %d consecutive samples; a stuck sensor or repeated fill value is likely.",
					value, length),
				properties: []domain.Property{
					prop("value", value),
					prop("samples", float64(length)),
				},
			}))
		}
		start = i
	}
	return events
}

// DetectExtremes flags every sample at or beyond the 1st/99th percentile of the
// series, or whose deviation from the mean exceeds threshold. The percentile test
// is skipped when the two percentiles coincide, since a flat series has no tails.
func DetectExtremes(series []domain.Sample, threshold float64) []domain.Event {
	if len(series) == 0 {
		return nil
	}
	levels := domain.Levels(series)
	mean := stat.Mean(levels, nil)
	sorted := slices.Clone(levels)
	slices.Sort(sorted)
	low := percentile(sorted, extremeLowPercentile)
	high := percentile(sorted, extremeHighPercentile)
	useTails := high > low

	var events []domain.Event
	for _, s := range series {
		dev := s.Level - mean
		inTail := useTails && (s.Level <= low || s.Level >= high)
		if !inTail && math.Abs(dev) <= threshold {
			continue
		}

		typ, side := domain.EventExtremeHigh, "above"
		if dev < 0 {
			typ, side = domain.EventExtremeLow, "below"
		}
		events = append(events, newEvent(eventSpec{
			typ:        typ,
			confidence: gradeAbove(math.Abs(dev), threshold, 1.5, domain.ConfidenceMedium),
			start:      s.Timestamp,
			amplitude:  ptr(math.Abs(dev)),
			explanation: fmt.Sprintf("Level %.3f m is %.3f m %s the series mean %.3f m (1st/99th percentiles %.3f/%.3f m, threshold %.2f m).",
				s.Level, math.Abs(dev), side, mean, low, high, threshold),
			properties: []domain.Property{
				prop("level", s.Level),
				prop("deviation", dev),
				prop("mean", mean),
				prop("p01", low),
				prop("p99", high),
			},
		}))
	}
	return events
}

// percentile picks sorted[floor(p*(n-1))].
func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	return sorted[max(0, min(idx, len(sorted)-1))]
}

// DetectAliasing looks for signs of an under-sampled signal. When power in the
// bin nearest Nyquist exceeds aliasPowerRatio times the mean spectral power, every
// varianceWindow-sample window whose variance exceeds mean + 2*stddev of all
// window variances is reported with low confidence.
func DetectAliasing(residual []domain.Sample, spectrum domain.SpectralEstimate) []domain.Event {
	if len(spectrum.Powers) == 0 || len(residual) < varianceWindow {
		return nil
	}
	nyquistPower := spectrum.Powers[len(spectrum.Powers)-1]
	meanPower := stat.Mean(spectrum.Powers, nil)
	if nyquistPower <= aliasPowerRatio*meanPower {
		return nil
	}

	variances := movingVariance(domain.Levels(residual), varianceWindow)
	vMean, vStd := stat.PopMeanStdDev(variances, nil)
	threshold := vMean + 2*vStd

	var events []domain.Event
	for i, v := range variances {
		if v <= threshold {
			continue
		}
		end := min(i+varianceWindow, len(residual)-1)
		events = append(events, newEvent(eventSpec{
			typ:        domain.EventAliasedActivity,
			confidence: domain.ConfidenceLow,
			start:      residual[i].Timestamp,
			end:        ptr(residual[end].Timestamp),
			explanation: fmt.Sprintf("Power near the Nyquist frequency is %.1fx the mean spectral power and local variance %.4f exceeds %.4f; activity faster than the sampling rate may be aliased here.",
				nyquistPower/meanPower, v, threshold),
			properties: []domain.Property{
				prop("variance", v),
				prop("variance_threshold", threshold),
				prop("nyquist_power", nyquistPower),
				prop("mean_power", meanPower),
			},
		}))
	}
	return events
}

// movingVariance returns the population variance of every full window.
func movingVariance(levels []float64, window int) []float64 {
	if len(levels) < window {
		return nil
	}
	out := make([]float64, 0, len(levels)-window+1)
	for i := 0; i+window <= len(levels); i++ {
		out = append(out, stat.PopVariance(levels[i:i+window], nil))
	}
	return out
}
