package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
	"github.com/couchcryptid/water-level-analysis/internal/observability"
	"github.com/couchcryptid/water-level-analysis/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	mu       sync.Mutex
	messages []domain.RawMessage
	failures int
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error) {
	m.mu.Lock()
	if m.failures > 0 {
		m.failures--
		m.mu.Unlock()
		return nil, errors.New("broker unavailable")
	}
	if len(m.messages) > 0 {
		n := min(batchSize, len(m.messages))
		batch := m.messages[:n]
		m.messages = m.messages[n:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()

	// block until context cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.Report, error) {
	if m.err != nil {
		return domain.Report{}, m.err
	}
	return domain.Report{
		RunID:     "run-" + string(raw.Key),
		StationID: string(raw.Key),
		Events:    []domain.Event{{ID: "spike-1", Type: domain.EventSpike}},
	}, nil
}

type mockLoader struct {
	mu      sync.Mutex
	loaded  []domain.Report
	batches int
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.loaded = append(m.loaded, reports...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func rawJob(station string) domain.RawMessage {
	return domain.RawMessage{Key: []byte(station), Value: []byte(`{}`), Topic: "water-level-jobs"}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{messages: []domain.RawMessage{rawJob("8518750"), rawJob("9414290"), rawJob("8443970")}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.Len(t, ldr.loaded, 3)
	assert.Equal(t, "8518750", ldr.loaded[0].StationID)
	assert.Equal(t, 2, ldr.batches)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 3.0, testutil.ToFloat64(metrics.MessagesConsumed), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(metrics.MessagesProduced), 1e-9)
	assert.Zero(t, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no messages, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int32
	raw := rawJob("8518750")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{messages: []domain.RawMessage{raw}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: domain.ErrInsufficientSamples}, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Equal(t, int32(1), commits.Load(), "poison job is committed")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.TransformErrors), 1e-9)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commitCalled atomic.Bool
	raw := rawJob("8518750")
	raw.Commit = func(_ context.Context) error {
		commitCalled.Store(true)
		return nil
	}

	ext := &mockExtractor{messages: []domain.RawMessage{raw}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, commitCalled.Load())
}

func TestPipeline_Run_RetriesAfterExtractError(t *testing.T) {
	ext := &mockExtractor{messages: []domain.RawMessage{rawJob("8518750")}, failures: 1}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.loaded, 1)
}
