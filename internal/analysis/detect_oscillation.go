package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// Harbor-resonance band in cycles per minute (periods of 5 to 30 minutes).
const (
	seicheMinFrequency = 1.0 / 30
	seicheMaxFrequency = 1.0 / 5
	minSeicheWindow    = 10
)

// DetectSeiches finds spectral bins in the harbor-resonance band whose power
// exceeds twice (mean + stddev) of the whole spectrum, then localizes each one
// in time. Windows of max(10, 2*period) samples slide by half their length; a
// window qualifies when its energy at the bin frequency exceeds half the
// whole-series energy at that frequency. One event is emitted per qualifying
// window.
func DetectSeiches(residual []domain.Sample, spectrum domain.SpectralEstimate) []domain.Event {
	if len(spectrum.Powers) == 0 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(spectrum.Powers, nil)
	threshold := 2 * (mean + std)
	levels := domain.Levels(residual)

	var events []domain.Event
	for k, f := range spectrum.Frequencies {
		power := spectrum.Powers[k]
		if f < seicheMinFrequency || f > seicheMaxFrequency || power <= threshold {
			continue
		}
		events = append(events, localizeSeiche(residual, levels, f, power, threshold)...)
	}
	return events
}

func localizeSeiche(residual []domain.Sample, levels []float64, f, power, threshold float64) []domain.Event {
	period := 1 / f
	window := max(minSeicheWindow, int(math.Round(2*period)))
	stride := max(1, window/2)
	whole := frequencyEnergy(levels, f)
	confidence := gradeAbove(power, threshold, 1.5, domain.ConfidenceMedium)

	var events []domain.Event
	for start := 0; start+window <= len(levels); start += stride {
		energy := frequencyEnergy(levels[start:start+window], f)
		if energy <= whole/2 {
			continue
		}
		end := start + window - 1
		amplitude := 2 * math.Sqrt(energy)
		events = append(events, newEvent(eventSpec{
			typ:        domain.EventSeiche,
			confidence: confidence,
			start:      residual[start].Timestamp,
			end:        ptr(residual[end].Timestamp),
			amplitude:  ptr(amplitude),
			period:     ptr(period),
			explanation: fmt.Sprintf("Oscillation with a %.1f minute period (harbor resonance band 5-30 min) concentrated in this window; spectral power %.4f exceeds band threshold %.4f.",
				period, power, threshold),
			properties: []domain.Property{
				prop("frequency_cpm", f),
				prop("period_minutes", period),
				prop("power", power),
				prop("threshold", threshold),
				prop("window_energy", energy),
				prop("series_energy", whole),
			},
		}))
	}
	return events
}

// DetectInfragravity sums spectral power over (0, Nyquist] and reports one event
// spanning the whole series when that energy exceeds mean + stddev of the
// spectrum. The strongest bin in the band gives the dominant period.
func DetectInfragravity(residual []domain.Sample, spectrum domain.SpectralEstimate) []domain.Event {
	if len(residual) == 0 || len(spectrum.Powers) == 0 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(spectrum.Powers, nil)
	threshold := mean + std

	var energy float64
	dominant := -1
	for k, f := range spectrum.Frequencies {
		if f <= 0 || f > NyquistFrequency {
			continue
		}
		energy += spectrum.Powers[k]
		if dominant < 0 || spectrum.Powers[k] > spectrum.Powers[dominant] {
			dominant = k
		}
	}
	if dominant < 0 || energy <= threshold {
		return nil
	}

	freq := spectrum.Frequencies[dominant]
	period := 1 / freq
	return []domain.Event{newEvent(eventSpec{
		typ:        domain.EventInfragravity,
		confidence: gradeAbove(energy, threshold, 2, domain.ConfidenceMedium),
		start:      residual[0].Timestamp,
		end:        ptr(residual[len(residual)-1].Timestamp),
		period:     ptr(period),
		explanation: fmt.Sprintf("Long-wave band energy %.4f exceeds threshold %.4f; dominant period %.1f minutes.",
			energy, threshold, period),
		properties: []domain.Property{
			prop("band_energy", energy),
			prop("threshold", threshold),
			prop("dominant_frequency_cpm", freq),
			prop("dominant_power", spectrum.Powers[dominant]),
		},
	})}
}
