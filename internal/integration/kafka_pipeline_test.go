//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/water-level-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/water-level-analysis/internal/analysis"
	"github.com/couchcryptid/water-level-analysis/internal/config"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
	"github.com/couchcryptid/water-level-analysis/internal/observability"
	"github.com/couchcryptid/water-level-analysis/internal/pipeline"
)

const (
	testSourceTopic = "test-jobs"
	testSinkTopic   = "test-events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("water-level-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

// jobPayload encodes a day of tide with a four-minute level shift, which the
// spike detector reports at both edges.
func jobPayload(t *testing.T, station string, shiftAt int) []byte {
	t.Helper()
	type sample struct {
		Timestamp time.Time `json:"timestamp"`
		Level     float64   `json:"level"`
	}
	start := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	samples := make([]sample, 1440)
	for i := range samples {
		level := 1.2 + 0.5*math.Cos(2*math.Pi*float64(i)/745.2)
		if i >= shiftAt && i < shiftAt+4 {
			level += 1.0
		}
		samples[i] = sample{Timestamp: start.Add(time.Duration(i) * time.Minute), Level: level}
	}
	data, err := json.Marshal(map[string]any{"station_id": station, "samples": samples})
	require.NoError(t, err)
	return data
}

// expectedEventIDs runs the payload through the transformer in-process.
func expectedEventIDs(t *testing.T, payload []byte) []string {
	t.Helper()
	tfm := pipeline.NewTransformer(analysis.NewEngine(), domain.DefaultAnalysisConfig(),
		discardLogger(), observability.NewMetricsForTesting())
	report, err := tfm.Transform(context.Background(), domain.RawMessage{Value: payload})
	require.NoError(t, err)
	ids := make([]string, len(report.Events))
	for i, e := range report.Events {
		ids[i] = e.ID
	}
	return ids
}

// sinkMessage holds a deserialized event read from the sink topic.
type sinkMessage struct {
	Event   domain.Event
	Key     string
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal sink message")
	return sinkMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func newProducer(t *testing.T, broker string) *kafkago.Writer {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	return producer
}

// TestKafkaReaderWriter verifies the adapter layer: a job round-trips through
// kafka.Reader and its events come out of kafka.Writer with provenance headers.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload := jobPayload(t, "8518750", 600)
	require.NoError(t, newProducer(t, broker).WriteMessages(ctx, kafkago.Message{
		Key:   []byte("8518750"),
		Value: payload,
	}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawMessage
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for job on source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("8518750"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	tfm := pipeline.NewTransformer(analysis.NewEngine(), domain.DefaultAnalysisConfig(),
		discardLogger(), observability.NewMetricsForTesting())
	report, err := tfm.Transform(ctx, raw)
	require.NoError(t, err)
	require.NotEmpty(t, report.Events)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.Report{report}))

	consumer := newSinkConsumer(t, broker)
	for range report.Events {
		msg := readSink(ctx, t, consumer)
		assert.Equal(t, msg.Event.ID, msg.Key)
		assert.Equal(t, string(msg.Event.Type), msg.Headers["event_type"])
		assert.Equal(t, string(msg.Event.Confidence), msg.Headers["confidence"])
		assert.Equal(t, report.RunID, msg.Headers["run_id"])
		assert.Equal(t, "8518750", msg.Headers["station_id"])
		_, err := time.Parse(time.RFC3339, msg.Headers["analyzed_at"])
		assert.NoError(t, err, "analyzed_at should be valid RFC3339")
	}
}

// TestPipelineEndToEnd wires Reader, JobTransformer, and Writer against a real
// broker and checks every event of every job reaches the sink.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	stations := []string{"8518750", "8443970", "9414290"}
	want := map[string]bool{}
	msgs := make([]kafkago.Message, 0, len(stations))
	for i, station := range stations {
		payload := jobPayload(t, station, 400+200*i)
		for _, id := range expectedEventIDs(t, payload) {
			want[id] = true
		}
		msgs = append(msgs, kafkago.Message{Key: []byte(station), Value: payload})
	}
	require.NoError(t, newProducer(t, broker).WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(analysis.NewEngine(), domain.DefaultAnalysisConfig(), discardLogger(), metrics)
	p := pipeline.New(reader, tfm, writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	got := map[string]bool{}
	runsByStation := map[string]map[string]bool{}
	for len(got) < len(want) {
		msg := readSink(ctx, t, consumer)
		got[msg.Key] = true

		station := msg.Headers["station_id"]
		if runsByStation[station] == nil {
			runsByStation[station] = map[string]bool{}
		}
		runsByStation[station][msg.Headers["run_id"]] = true
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, want, got)
	require.Len(t, runsByStation, len(stations))
	for station, runs := range runsByStation {
		assert.Len(t, runs, 1, "station %s should be analyzed once", station)
	}
	require.NoError(t, p.CheckReadiness(ctx))
}

// TestPipelineTransformError verifies that an unparseable job (poison pill) is
// skipped and the pipeline continues with the next one.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	valid := jobPayload(t, "8518750", 600)
	wantIDs := expectedEventIDs(t, valid)

	require.NoError(t, newProducer(t, broker).WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("short"), Value: []byte(`{"station_id":"short","samples":[]}`)},
		kafkago.Message{Key: []byte("8518750"), Value: valid},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(analysis.NewEngine(), domain.DefaultAnalysisConfig(), discardLogger(), metrics)
	p := pipeline.New(reader, tfm, writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	got := make([]string, 0, len(wantIDs))
	for range wantIDs {
		msg := readSink(ctx, t, consumer)
		assert.Equal(t, "8518750", msg.Headers["station_id"])
		got = append(got, msg.Key)
	}
	assert.ElementsMatch(t, wantIDs, got)

	// Nothing else arrives: both rejected jobs were skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
