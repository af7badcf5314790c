package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// NyquistFrequency is half the nominal one-per-minute sampling rate, in cycles per minute.
const NyquistFrequency = 0.5

// Spectrum computes a direct (non-FFT) power estimate over N/2 uniform bins in
// [0, Nyquist): power(f) = |sum_j x_j (cos 2pi f j + sin 2pi f j)| / N.
// The dominant bin excludes f = 0. Cost is O(N^2).
func Spectrum(samples []domain.Sample) domain.SpectralEstimate {
	n := len(samples)
	bins := n / 2
	est := domain.SpectralEstimate{
		Frequencies: make([]float64, bins),
		Powers:      make([]float64, bins),
	}
	if bins == 0 {
		return est
	}

	levels := domain.Levels(samples)
	step := NyquistFrequency / float64(bins)
	for k := range bins {
		f := float64(k) * step
		var sum float64
		for j, x := range levels {
			sin, cos := math.Sincos(2 * math.Pi * f * float64(j))
			sum += x * (cos + sin)
		}
		est.Frequencies[k] = f
		est.Powers[k] = math.Abs(sum) / float64(n)
	}

	if bins > 1 {
		k := floats.MaxIdx(est.Powers[1:]) + 1
		est.DominantFrequency = est.Frequencies[k]
		est.DominantPeriod = 1 / est.DominantFrequency
	}
	return est
}

// frequencyEnergy is the squared quadrature correlation of levels with a
// sinusoid at f cycles per sample, normalized by the squared window length.
// A steady sinusoid of amplitude A yields about A^2/4 for any window size.
func frequencyEnergy(levels []float64, f float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	var c, s float64
	for j, x := range levels {
		sin, cos := math.Sincos(2 * math.Pi * f * float64(j))
		c += x * cos
		s += x * sin
	}
	n := float64(len(levels))
	return (c*c + s*s) / (n * n)
}
