package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "leasehold/pkg/domain"
	audit "leasehold/pkg/platform/audit"
	"leasehold/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	propertyID := id.PropertyID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		PropertyID: propertyID,
		Action:     string(audit.EventRentPaid),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRentPaid), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	propertyID := id.PropertyID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		PropertyID: propertyID,
		Action:     string(audit.EventAdmissionEvaluated),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := pub.List(context.Background(), propertyID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	propertyID := id.PropertyID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			PropertyID: propertyID,
			Action:     string(audit.EventLeaseEvicted),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByProperty(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	assert.NotPanics(t, pub.Close)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	propertyID := id.PropertyID(uuid.New())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				PropertyID: propertyID,
				Action:     string(audit.EventRentPaid),
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()

	propertyID := id.PropertyID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		PropertyID: propertyID,
		Action:     string(audit.EventRentPaid),
	}))

	events, err := pub.List(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	propertyID := id.PropertyID(uuid.New())
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		PropertyID: propertyID,
		Action:     string(audit.EventRentPaid),
		Timestamp:  customTime,
	}))

	events, err := pub.List(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_CancelledContextInAsyncMode(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{
		PropertyID: id.PropertyID(uuid.New()),
		Action:     string(audit.EventRentPaid),
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPublisher_SeparatesProperties(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	first := id.PropertyID(uuid.New())
	second := id.PropertyID(uuid.New())

	require.NoError(t, pub.Emit(context.Background(), audit.Event{PropertyID: first, Action: string(audit.EventRentPaid)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{PropertyID: second, Action: string(audit.EventLeaseEvicted)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{PropertyID: first, Action: string(audit.EventAdmissionEvaluated)}))

	events, err := pub.List(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventRentPaid), events[0].Action)
	assert.Equal(t, string(audit.EventAdmissionEvaluated), events[1].Action)
	assert.Equal(t, audit.CategoryOperations, events[1].Category)

	events, err = pub.List(context.Background(), second)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
