package main

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

const (
	m2Period = 745.2  // minutes
	k1Period = 1436.1 // minutes

	meanLevel   = 1.2
	noiseStdDev = 0.005
)

type synthParams struct {
	Start time.Time
	Days  int
	Seed  uint64
}

// feature windows, as fractions of the series length.
type window struct{ from, to float64 }

var (
	surgeWindow    = window{0.30, 0.38}
	seicheWindow   = window{0.55, 0.60}
	flatlineWindow = window{0.75, 0.77}
	gapWindow      = window{0.85, 0.86}
	spikeAt        = 0.45
)

// generate builds one-minute samples. Samples in the gap window are omitted and
// OriginalIndex counts only emitted rows.
func generate(p synthParams) []domain.Sample {
	n := p.Days * 24 * 60
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	in := func(w window, i int) bool {
		return i >= int(w.from*float64(n)) && i < int(w.to*float64(n))
	}
	spike := int(spikeAt * float64(n))
	flatFrom := int(flatlineWindow.from * float64(n))

	samples := make([]domain.Sample, 0, n)
	var flatLevel float64
	for i := range n {
		if in(gapWindow, i) {
			continue
		}
		t := float64(i)
		level := meanLevel +
			0.5*math.Cos(2*math.Pi*t/m2Period) +
			0.15*math.Cos(2*math.Pi*t/k1Period) +
			rng.NormFloat64()*noiseStdDev

		if in(surgeWindow, i) {
			level += 0.4
		}
		if in(seicheWindow, i) {
			level += 0.08 * math.Sin(2*math.Pi*t/12)
		}
		if i == spike {
			level += 1.0
		}
		if i == flatFrom {
			flatLevel = level
		}
		if in(flatlineWindow, i) {
			level = flatLevel
		}

		samples = append(samples, domain.Sample{
			Timestamp:     p.Start.Add(time.Duration(i) * time.Minute),
			Level:         level,
			OriginalIndex: len(samples),
		})
	}
	return samples
}
