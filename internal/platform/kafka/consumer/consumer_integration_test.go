//go:build integration

package consumer_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"leasehold/internal/platform/kafka/admin"
	"leasehold/internal/platform/kafka/consumer"
	"leasehold/pkg/testutil/containers"
)

func TestConsumerDeliversRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)
	topic := "world.area-entered." + uuid.NewString()[:8]
	require.NoError(t, admin.EnsureTopics(ctx, rp.Brokers, 1, topic))

	var mu sync.Mutex
	var got []*consumer.Message
	router := consumer.NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	router.Register(topic, consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
		return nil
	}))

	c, err := consumer.New(consumer.Config{
		Brokers: rp.Brokers,
		Group:   "leasehold-test-" + uuid.NewString()[:8],
		Topics:  router.Topics(),
	}, router, consumer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(runCtx)
	}()

	producer, err := admin.NewProducer(rp.Brokers)
	require.NoError(t, err)
	defer producer.Close()

	// The group starts at the log end, so keep producing until the consumer has joined.
	require.Eventually(t, func() bool {
		rec := &kgo.Record{Topic: topic, Key: []byte("entity-1"), Value: []byte(`{"entity_id":"entity-1","area_tag":"riverford.mill"}`)}
		if err := producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 30*time.Second, 500*time.Millisecond)

	cancel()
	c.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, topic, got[0].Topic)
	require.Equal(t, "entity-1", string(got[0].Key))
}
