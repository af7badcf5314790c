package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EventType enumerates the kinds of event the detectors emit.
type EventType string

const (
	EventHighTide        EventType = "high_tide"
	EventLowTide         EventType = "low_tide"
	EventRisingTide      EventType = "rising_tide"
	EventFallingTide     EventType = "falling_tide"
	EventStormSurge      EventType = "storm_surge"
	EventSeiche          EventType = "seiche"
	EventInfragravity    EventType = "infragravity"
	EventSpike           EventType = "spike"
	EventFlatline        EventType = "flatline"
	EventExtremeHigh     EventType = "extreme_high"
	EventExtremeLow      EventType = "extreme_low"
	EventAliasedActivity EventType = "aliased_activity"
)

// EventTypes lists every event type in catalogue order.
var EventTypes = []EventType{
	EventHighTide, EventLowTide, EventRisingTide, EventFallingTide,
	EventStormSurge, EventSeiche, EventInfragravity,
	EventSpike, EventFlatline,
	EventExtremeHigh, EventExtremeLow,
	EventAliasedActivity,
}

// Label returns the human-readable name of the event type.
func (t EventType) Label() string {
	switch t {
	case EventHighTide:
		return "High Tide"
	case EventLowTide:
		return "Low Tide"
	case EventRisingTide:
		return "Rising Tide"
	case EventFallingTide:
		return "Falling Tide"
	case EventStormSurge:
		return "Storm Surge"
	case EventSeiche:
		return "Seiche"
	case EventInfragravity:
		return "Infragravity"
	case EventSpike:
		return "Spike"
	case EventFlatline:
		return "Flatline"
	case EventExtremeHigh:
		return "Extreme High"
	case EventExtremeLow:
		return "Extreme Low"
	case EventAliasedActivity:
		return "Aliased Activity"
	default:
		return string(t)
	}
}

// Confidence is the categorical certainty attached to an event.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank maps a confidence to its ordinal: low=0, medium=1, high=2.
// Unknown values rank below low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceHigh:
		return 2
	default:
		return -1
	}
}

// Valid reports whether c is one of the three grades.
func (c Confidence) Valid() bool {
	return c.Rank() >= 0
}

// ParseConfidence accepts low, medium, or high in any letter case.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown confidence %q", s)
	}
	return c, nil
}

// Property is a named numeric attribute of an event.
type Property struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Event is a labeled interval or instant of interest in the series.
// Period is in minutes; Amplitude in meters.
type Event struct {
	ID          string     `json:"id"`
	Type        EventType  `json:"type"`
	Label       string     `json:"label"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Peak        *time.Time `json:"peak,omitempty"`
	Confidence  Confidence `json:"confidence"`
	Amplitude   *float64   `json:"amplitude,omitempty"`
	Period      *float64   `json:"period,omitempty"`
	Explanation string     `json:"explanation"`
	Properties  []Property `json:"properties,omitempty"`
}

// Property returns the value of the named property.
func (e Event) Property(name string) (float64, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

// NewEventID produces a deterministic ID from the event's identifying fields.
// Period and amplitude disambiguate events of the same type that share a window,
// such as seiches found at two frequencies.
func NewEventID(t EventType, start time.Time, end *time.Time, period, amplitude *float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d", t, start.UnixNano())
	if end != nil {
		fmt.Fprintf(&b, "|%d", end.UnixNano())
	}
	if period != nil {
		fmt.Fprintf(&b, "|p%.6f", *period)
	}
	if amplitude != nil {
		fmt.Fprintf(&b, "|a%.6f", *amplitude)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return string(t) + "-" + hex.EncodeToString(hash[:8])
}

// UniquifyIDs rewrites the second and later events that share an ID, hashing
// the shared ID with the occurrence number. The first occurrence keeps its ID.
// Identical samples at one timestamp otherwise yield identical events.
func UniquifyIDs(events []Event) {
	seen := make(map[string]int, len(events))
	for i := range events {
		id := events[i].ID
		n := seen[id]
		seen[id] = n + 1
		if n == 0 {
			continue
		}
		hash := sha256.Sum256(fmt.Appendf(nil, "%s#%d", id, n))
		events[i].ID = string(events[i].Type) + "-" + hex.EncodeToString(hash[:8])
	}
}
