package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	httpadapter "github.com/couchcryptid/water-level-analysis/internal/adapter/http"
	"github.com/couchcryptid/water-level-analysis/internal/analysis"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
	"github.com/couchcryptid/water-level-analysis/internal/observability"
	"github.com/couchcryptid/water-level-analysis/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	transformer := pipeline.NewTransformer(analysis.NewEngine(), domain.DefaultAnalysisConfig(),
		slog.Default(), observability.NewMetricsForTesting())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, transformer, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// jobBody is twelve hours of semidiurnal tide.
func jobBody(t *testing.T) []byte {
	t.Helper()
	start := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	type sample struct {
		Timestamp time.Time `json:"timestamp"`
		Level     float64   `json:"level"`
	}
	samples := make([]sample, 720)
	for i := range samples {
		samples[i] = sample{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Level:     1 + 0.5*math.Sin(2*math.Pi*float64(i)/745.2),
		}
	}
	data, err := json.Marshal(map[string]any{"station_id": "8518750", "samples": samples})
	require.NoError(t, err)
	return data
}

func TestAnalyzeReturnsReport(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(jobBody(t)))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "8518750", report.StationID)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 720, report.Summary.InputSamples)
	assert.Len(t, report.Decomposition.Residual, 720)
}

func TestAnalyzeMsgPack(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze?format=msgpack", bytes.NewReader(jobBody(t)))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "8518750", decoded["station_id"])
	assert.Contains(t, decoded, "decomposition")
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"empty series", `{"station_id":"x","samples":[]}`},
		{"too few samples", `{"samples":[{"timestamp":"2024-03-10T00:00:00Z","level":1}]}`},
		{"bad threshold", `{"samples":[],"config":{"extreme_threshold":-1}}`},
	}

	srv := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(tt.body))

			srv.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAnalyzeRejectsLongGap(t *testing.T) {
	start := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	samples := make([]map[string]any, 12)
	for i := range samples {
		ts := start.Add(time.Duration(i) * time.Minute)
		if i >= 6 {
			ts = ts.AddDate(1, 0, 0)
		}
		samples[i] = map[string]any{"timestamp": ts, "level": 1.0}
	}
	body, err := json.Marshal(map[string]any{"station_id": "8518750", "samples": samples})
	require.NoError(t, err)

	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))

	started := time.Now()
	srv.ServeHTTP(rec, req)

	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many samples")
}

func TestAnalyzeRequiresPost(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/analyze", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
