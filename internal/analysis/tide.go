package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// Constituent is a fixed-period astronomical tide component.
type Constituent struct {
	Name        string
	PeriodHours float64
}

// AngularFrequency returns the constituent's angular frequency in radians per hour.
func (c Constituent) AngularFrequency() float64 {
	return 2 * math.Pi / c.PeriodHours
}

// Constituents are the principal lunar and solar semidiurnal and diurnal terms.
var Constituents = []Constituent{
	{Name: "M2", PeriodHours: 12.42},
	{Name: "S2", PeriodHours: 12.0},
	{Name: "K1", PeriodHours: 23.93},
	{Name: "O1", PeriodHours: 25.82},
}

// lowPassHalfWindow is the moving-average half width in samples (four hours).
const lowPassHalfWindow = 240

// ConstituentFit is the amplitude estimated for one constituent.
type ConstituentFit struct {
	Constituent
	Amplitude float64
}

// HarmonicFit is the mean level plus one amplitude per constituent.
type HarmonicFit struct {
	Mean         float64
	Constituents []ConstituentFit
}

// Level evaluates the fitted tide hours after the series start.
func (f HarmonicFit) Level(hours float64) float64 {
	level := f.Mean
	for _, c := range f.Constituents {
		level += c.Amplitude * math.Cos(c.AngularFrequency()*hours)
	}
	return level
}

// FitHarmonics estimates each constituent by quadrature projection of the
// demeaned series: amplitude = sqrt(C^2 + S^2) / (N/2), where C and S are the
// correlations with cos(wt) and sin(wt). Constituents are fit independently, so
// close periods (M2 and S2) leak into each other.
func FitHarmonics(samples []domain.Sample) HarmonicFit {
	fit := HarmonicFit{Constituents: make([]ConstituentFit, 0, len(Constituents))}
	if len(samples) == 0 {
		return fit
	}

	levels := domain.Levels(samples)
	fit.Mean = stat.Mean(levels, nil)
	hours := elapsedHours(samples)
	half := float64(len(samples)) / 2

	for _, c := range Constituents {
		w := c.AngularFrequency()
		var sumCos, sumSin float64
		for j, level := range levels {
			sin, cos := math.Sincos(w * hours[j])
			sumCos += (level - fit.Mean) * cos
			sumSin += (level - fit.Mean) * sin
		}
		fit.Constituents = append(fit.Constituents, ConstituentFit{
			Constituent: c,
			Amplitude:   math.Hypot(sumCos, sumSin) / half,
		})
	}
	return fit
}

// HarmonicTide reconstructs the tide at every sample from FitHarmonics.
func HarmonicTide(samples []domain.Sample) []domain.Sample {
	fit := FitHarmonics(samples)
	hours := elapsedHours(samples)
	out := make([]domain.Sample, len(samples))
	for i, s := range samples {
		out[i] = domain.Sample{
			Timestamp:     s.Timestamp,
			Level:         fit.Level(hours[i]),
			OriginalIndex: s.OriginalIndex,
		}
	}
	return out
}

// LowPassTide approximates the tide with a centered moving average of
// lowPassHalfWindow samples on each side, clipped at the series ends.
func LowPassTide(samples []domain.Sample) []domain.Sample {
	n := len(samples)
	prefix := make([]float64, n+1)
	for i, s := range samples {
		prefix[i+1] = prefix[i] + s.Level
	}

	out := make([]domain.Sample, n)
	for i, s := range samples {
		lo := max(0, i-lowPassHalfWindow)
		hi := min(n-1, i+lowPassHalfWindow)
		out[i] = domain.Sample{
			Timestamp:     s.Timestamp,
			Level:         (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1),
			OriginalIndex: s.OriginalIndex,
		}
	}
	return out
}

// SeparateTide estimates the tidal signal with the configured strategy.
func SeparateTide(samples []domain.Sample, method domain.TideRemovalMethod) []domain.Sample {
	if method == domain.TideRemovalLowPass {
		return LowPassTide(samples)
	}
	return HarmonicTide(samples)
}

// Subtract returns original minus tidal, sample by sample. A tidal series
// shorter than the original counts as zero past its end.
func Subtract(original, tidal []domain.Sample) []domain.Sample {
	out := make([]domain.Sample, len(original))
	for i, s := range original {
		var t float64
		if i < len(tidal) {
			t = tidal[i].Level
		}
		out[i] = domain.Sample{
			Timestamp:     s.Timestamp,
			Level:         s.Level - t,
			OriginalIndex: s.OriginalIndex,
		}
	}
	return out
}

func elapsedHours(samples []domain.Sample) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	origin := samples[0].Timestamp
	for i, s := range samples {
		out[i] = s.Timestamp.Sub(origin).Hours()
	}
	return out
}
