//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/climate-map/internal/adapter/kafka"
	"github.com/couchcryptid/climate-map/internal/config"
	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/mapview"
	"github.com/couchcryptid/climate-map/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSnapshotTopic = "test-map-snapshots"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("climate-map-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func frame(trigger string, year int) mapview.Frame {
	metric, _ := domain.LookupMetric("co2")
	return mapview.Frame{
		Seq:        uint64(year),
		Trigger:    trigger,
		RenderedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Metric:     metric,
		Year:       year,
		Range:      domain.ValueRange{Min: 5, Max: 500},
		Markers: []mapview.Marker{
			{Country: "France", Value: 300, Fill: "#aabbcc"},
		},
	}
}

// TestSnapshotPublisher publishes data frames through a real broker and
// verifies that view-only frames never reach the topic.
func TestSnapshotPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
	}
	metrics := observability.NewMetricsForTesting()
	pub := kafka.NewPublisher(cfg, metrics, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	require.NoError(t, pub.Draw(ctx, frame(mapview.TriggerLoad, 2020)))
	require.NoError(t, pub.Draw(ctx, frame(mapview.TriggerZoom, 2020)))
	require.NoError(t, pub.Draw(ctx, frame(mapview.TriggerYear, 2019)))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSnapshotTopic,
		GroupID:     fmt.Sprintf("test-snapshots-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	var got []mapview.Snapshot
	var keys []string
	for len(got) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read snapshot")

		var snap mapview.Snapshot
		require.NoError(t, json.Unmarshal(msg.Value, &snap))
		got = append(got, snap)
		keys = append(keys, string(msg.Key))
	}

	assert.Equal(t, []string{"co2-2020", "co2-2019"}, keys)
	assert.Equal(t, mapview.TriggerLoad, got[0].Trigger)
	assert.Equal(t, mapview.TriggerYear, got[1].Trigger)
	require.Len(t, got[0].Countries, 1)
	assert.Equal(t, "France", got[0].Countries[0].Country)

	// The zoom frame was skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third snapshot")
}
