package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawMessage is an unprocessed analysis job read from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Job is a single series submitted for analysis. A nil Config means the
// service defaults apply.
type Job struct {
	StationID string          `json:"station_id"`
	Samples   []Sample        `json:"samples"`
	Config    *AnalysisConfig `json:"config,omitempty"`
}

// jobPayload mirrors Job on the wire, where original_index is optional.
type jobPayload struct {
	StationID string `json:"station_id"`
	Samples   []struct {
		Timestamp     time.Time `json:"timestamp"`
		Level         *float64  `json:"level"`
		OriginalIndex *int      `json:"original_index"`
	} `json:"samples"`
	Config *struct {
		TideRemovalMethod   string     `json:"tide_removal_method"`
		ExtremeThreshold    *float64   `json:"extreme_threshold"`
		ConfidenceThreshold string     `json:"confidence_threshold"`
		StartTime           *time.Time `json:"start_time"`
		EndTime             *time.Time `json:"end_time"`
	} `json:"config"`
}

// ParseJob decodes a JSON analysis job. Samples without original_index get their
// position in the payload. Config fields left empty fall back to defaults.
func ParseJob(data []byte, defaults AnalysisConfig) (Job, error) {
	var p jobPayload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Job{}, fmt.Errorf("%w: parse job: %v", ErrInvalidJob, err)
	}

	samples := make([]Sample, 0, len(p.Samples))
	for i, s := range p.Samples {
		if s.Timestamp.IsZero() {
			return Job{}, fmt.Errorf("%w: sample %d has no timestamp", ErrInvalidJob, i)
		}
		if s.Level == nil {
			return Job{}, fmt.Errorf("%w: sample %d has no level", ErrInvalidJob, i)
		}
		idx := i
		if s.OriginalIndex != nil {
			idx = *s.OriginalIndex
		}
		samples = append(samples, Sample{Timestamp: s.Timestamp.UTC(), Level: *s.Level, OriginalIndex: idx})
	}

	job := Job{StationID: p.StationID, Samples: samples}
	if p.Config == nil {
		return job, nil
	}

	cfg := defaults
	if p.Config.TideRemovalMethod != "" {
		m, err := ParseTideRemovalMethod(p.Config.TideRemovalMethod)
		if err != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
		cfg.TideRemovalMethod = m
	}
	if p.Config.ExtremeThreshold != nil {
		cfg.ExtremeThreshold = *p.Config.ExtremeThreshold
	}
	if p.Config.ConfidenceThreshold != "" {
		c, err := ParseConfidence(p.Config.ConfidenceThreshold)
		if err != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
		cfg.ConfidenceThreshold = c
	}
	if p.Config.StartTime != nil {
		cfg.StartTime = p.Config.StartTime
	}
	if p.Config.EndTime != nil {
		cfg.EndTime = p.Config.EndTime
	}
	job.Config = &cfg
	return job, nil
}
