package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "leasehold/pkg/domain"
)

const seenKeyPrefix = "leasehold:seen:"

// SeenThrottle allows one presence write per property per window across all
// tracker instances.
type SeenThrottle struct {
	client *redis.Client
}

func NewSeenThrottle(client *redis.Client) *SeenThrottle {
	return &SeenThrottle{client: client}
}

func (t *SeenThrottle) ShouldRecord(ctx context.Context, propertyID id.PropertyID, window time.Duration) (bool, error) {
	ok, err := t.client.SetNX(ctx, seenKeyPrefix+propertyID.String(), "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("reserve presence window for %s: %w", propertyID, err)
	}
	return ok, nil
}

func (t *SeenThrottle) Forget(ctx context.Context, propertyID id.PropertyID) error {
	if err := t.client.Del(ctx, seenKeyPrefix+propertyID.String()).Err(); err != nil {
		return fmt.Errorf("release presence window for %s: %w", propertyID, err)
	}
	return nil
}
