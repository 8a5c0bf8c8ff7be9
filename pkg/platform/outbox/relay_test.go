package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"leasehold/pkg/platform/circuit"
)

type fakeStore struct {
	mu        sync.Mutex
	entries   []Entry
	published map[uuid.UUID]time.Time
	limits    []int
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{published: map[uuid.UUID]time.Time{}}
	for i := range n {
		s.entries = append(s.entries, Entry{
			ID:            uuid.New(),
			AggregateType: "property",
			AggregateID:   uuid.NewString(),
			EventType:     "rent_paid",
			Payload:       []byte(`{"n":` + string(rune('0'+i)) + `}`),
		})
	}
	return s
}

func (s *fakeStore) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = append(s.limits, limit)
	var out []Entry
	for _, e := range s.entries {
		if _, done := s.published[e.ID]; done {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = at
	}
	return nil
}

type fakeProducer struct {
	err      error
	produced []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	// Reverse order mimics out-of-order completion.
	for i := len(rs) - 1; i >= 0; i-- {
		if p.err == nil {
			p.produced = append(p.produced, rs[i])
		}
		results = append(results, kgo.ProduceResult{Record: rs[i], Err: p.err})
	}
	return results
}

func TestNewRelay_RequiresDependencies(t *testing.T) {
	_, err := NewRelay(nil, &fakeProducer{}, "audit")
	assert.Error(t, err)
	_, err = NewRelay(newFakeStore(0), nil, "audit")
	assert.Error(t, err)
	_, err = NewRelay(newFakeStore(0), &fakeProducer{}, "")
	assert.Error(t, err)
}

func TestRelayOnce_PublishesAndMarks(t *testing.T) {
	at := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(3)
	producer := &fakeProducer{}
	relay, err := NewRelay(store, producer, "leasehold.audit", WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, producer.produced, 3)

	for _, e := range store.entries {
		assert.Equal(t, at, store.published[e.ID])
	}
	rec := producer.produced[0]
	assert.Equal(t, "leasehold.audit", rec.Topic)
	assert.Equal(t, "event_type", rec.Headers[0].Key)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing left to relay")
}

func TestRelayOnce_ProducerFailureOpensBreaker(t *testing.T) {
	store := newFakeStore(5)
	producer := &fakeProducer{err: errors.New("broker down")}
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	relay, err := NewRelay(store, producer, "audit", WithBatchSize(10), WithBreaker(breaker))
	require.NoError(t, err)

	for range 2 {
		n, err := relay.RelayOnce(context.Background())
		assert.Error(t, err)
		assert.Zero(t, n)
	}
	assert.True(t, breaker.IsOpen())
	assert.Empty(t, store.published)

	producer.err = nil
	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "open breaker retries with a single entry")
	assert.False(t, breaker.IsOpen())

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{10, 10, 1, 10}, store.limits)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := newFakeStore(1)
	relay, err := NewRelay(store, &fakeProducer{}, "audit", WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.published) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
