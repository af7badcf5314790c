package analysis

import (
	"fmt"
	"math"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// tidalSlopeThreshold is the level change per sample (meters) that counts as
// the tide moving.
const tidalSlopeThreshold = 0.02

// DetectTidalPhases walks the tidal series with a three-point window. A slope
// reversal above the threshold is a high or low tide at the middle sample; any
// other steep incoming slope is a rising or falling tide across the pair. A
// turning point emits no phase event for its incoming slope.
func DetectTidalPhases(tidal []domain.Sample) []domain.Event {
	var events []domain.Event
	for i := 1; i < len(tidal)-1; i++ {
		prevSlope := tidal[i].Level - tidal[i-1].Level
		nextSlope := tidal[i+1].Level - tidal[i].Level

		peak := prevSlope > tidalSlopeThreshold && nextSlope < -tidalSlopeThreshold
		trough := prevSlope < -tidalSlopeThreshold && nextSlope > tidalSlopeThreshold

		if peak {
			events = append(events, turningEvent(domain.EventHighTide, tidal[i], prevSlope, nextSlope))
		}
		if trough {
			events = append(events, turningEvent(domain.EventLowTide, tidal[i], prevSlope, nextSlope))
		}
		if !peak && !trough && math.Abs(prevSlope) > tidalSlopeThreshold {
			events = append(events, phaseEvent(tidal[i-1], tidal[i], prevSlope))
		}
	}
	return events
}

func turningEvent(typ domain.EventType, at domain.Sample, prevSlope, nextSlope float64) domain.Event {
	verb := "peaked"
	if typ == domain.EventLowTide {
		verb = "bottomed out"
	}
	return newEvent(eventSpec{
		typ:        typ,
		confidence: domain.ConfidenceHigh,
		start:      at.Timestamp,
		peak:       ptr(at.Timestamp),
		explanation: fmt.Sprintf("Tidal level %s at %.3f m: slope changed from %+.3f to %+.3f m per sample (threshold %.2f).",
			verb, at.Level, prevSlope, nextSlope, tidalSlopeThreshold),
		properties: []domain.Property{
			prop("level", at.Level),
			prop("incoming_slope", prevSlope),
			prop("outgoing_slope", nextSlope),
		},
	})
}

func phaseEvent(from, to domain.Sample, slope float64) domain.Event {
	typ, direction := domain.EventRisingTide, "rising"
	if slope < 0 {
		typ, direction = domain.EventFallingTide, "falling"
	}
	return newEvent(eventSpec{
		typ:        typ,
		confidence: gradeAbove(math.Abs(slope), tidalSlopeThreshold, 2, domain.ConfidenceMedium),
		start:      from.Timestamp,
		end:        ptr(to.Timestamp),
		explanation: fmt.Sprintf("Tide %s at %.3f m per sample between %.3f m and %.3f m.",
			direction, math.Abs(slope), from.Level, to.Level),
		properties: []domain.Property{
			prop("slope", slope),
			prop("level", to.Level),
		},
	})
}
