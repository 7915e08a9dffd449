package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

func testRecord(id, profile string, pct int) models.Record {
	snap := models.Snapshot{
		Sample: models.Sample{
			ID:        id,
			Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Profile:   profile,
			HeartRate: 80,
			HRV:       models.Unavailable,
		},
		Stress: models.StressResult{
			Scorer:     "minmax",
			RawScore:   models.Available(float64(pct) / 100),
			Percentage: pct,
			Level:      models.LevelMedium,
		},
	}
	return models.NewRecord(id, models.Source{Type: "simulator", ID: "test"},
		models.Session{RunID: "run", Profile: profile}, snap, 0)
}

type received struct {
	mu      sync.Mutex
	topics  []string
	records []models.Record
}

func (r *received) add(topic string, rec models.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.records = append(r.records, rec)
}

func (r *received) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func startBroker(t *testing.T, addr string) *Broker {
	t.Helper()
	broker, err := StartBroker(addr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker
}

func TestTopic(t *testing.T) {
	require.Equal(t, "synheart/stress/default", Topic("synheart/stress", "default"))
	require.Equal(t, "synheart/stress/default", Topic("synheart/stress/", "default"))
	require.Equal(t, "synheart/stress", Topic("synheart/stress", ""))
}

func TestDialValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Dial(ctx, Config{Topic: "t"})
	require.Error(t, err)

	_, err = Dial(ctx, Config{Broker: "127.0.0.1:1"})
	require.Error(t, err)

	_, err = Dial(ctx, Config{Broker: "127.0.0.1:1", Topic: "t", QoS: 3})
	require.Error(t, err)
}

func TestPublishToProfileTopics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	broker := startBroker(t, "127.0.0.1:18831")

	var got received
	sub, err := Subscribe(ctx, broker.Addr(), "watcher", "synheart/stress", got.add)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })

	pub, err := Dial(ctx, Config{
		Broker:   broker.Addr(),
		Topic:    "synheart/stress",
		ClientID: "publisher",
		QoS:      1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pub.Close() })

	require.NoError(t, pub.Publish(ctx, testRecord("r1", "default", 40)))
	require.NoError(t, pub.Publish(ctx, testRecord("r2", "exam_stress", 82)))

	require.Eventually(t, func() bool { return got.len() == 2 }, 5*time.Second, 20*time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	require.ElementsMatch(t, []string{"synheart/stress/default", "synheart/stress/exam_stress"}, got.topics)
	for _, rec := range got.records {
		switch rec.RecordID {
		case "r1":
			require.Equal(t, 40, rec.Snapshot.Stress.Percentage)
		case "r2":
			require.Equal(t, 82, rec.Snapshot.Stress.Percentage)
			require.Equal(t, "exam_stress", rec.Snapshot.Profile)
		default:
			t.Fatalf("unexpected record %q", rec.RecordID)
		}
	}
	require.Equal(t, int64(2), pub.Published())
	require.Zero(t, pub.Failed())
}

func TestPublishFromChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	broker := startBroker(t, "127.0.0.1:18832")

	var got received
	sub, err := Subscribe(ctx, broker.Addr(), "watcher-ch", "synheart/stress", got.add)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })

	pub, err := Dial(ctx, Config{Broker: broker.Addr(), Topic: "synheart/stress", ClientID: "publisher-ch"})
	require.NoError(t, err)
	t.Cleanup(func() { pub.Close() })

	records := make(chan models.Record, 5)
	for i := 0; i < 5; i++ {
		records <- testRecord("r", "default", i*10)
	}
	close(records)
	require.NoError(t, pub.PublishFromChannel(ctx, records))

	require.Eventually(t, func() bool { return got.len() == 5 }, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, int64(5), pub.Published())
}

func TestSubscriberSkipsNonJSON(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	broker := startBroker(t, "127.0.0.1:18833")

	var got received
	sub, err := Subscribe(ctx, broker.Addr(), "watcher-pb", "synheart/stress", got.add)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })

	pb, err := Dial(ctx, Config{
		Broker:   broker.Addr(),
		Topic:    "synheart/stress",
		ClientID: "publisher-pb",
		Encoder:  encoding.NewProtobufEncoder(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { pb.Close() })

	js, err := Dial(ctx, Config{Broker: broker.Addr(), Topic: "synheart/stress", ClientID: "publisher-js"})
	require.NoError(t, err)
	t.Cleanup(func() { js.Close() })

	require.NoError(t, pb.Publish(ctx, testRecord("binary", "default", 10)))
	require.NoError(t, js.Publish(ctx, testRecord("json", "default", 20)))

	require.Eventually(t, func() bool { return got.len() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	require.Len(t, got.records, 1)
	require.Equal(t, "json", got.records[0].RecordID)
}
