package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "leasehold/pkg/domain"
)

// personaKeyPrefix is shared with the world server, which writes the mapping
// when a player's entity spawns.
const personaKeyPrefix = "leasehold:persona:entity:"

// PersonaResolver looks up the persona controlling a world entity.
type PersonaResolver struct {
	client *redis.Client
}

func NewPersonaResolver(client *redis.Client) *PersonaResolver {
	return &PersonaResolver{client: client}
}

// Resolve returns ok=false for entities without a mapping.
func (r *PersonaResolver) Resolve(ctx context.Context, entityID string) (id.PersonaID, bool, error) {
	raw, err := r.client.Get(ctx, personaKeyPrefix+entityID).Result()
	if errors.Is(err, redis.Nil) {
		return id.PersonaID{}, false, nil
	}
	if err != nil {
		return id.PersonaID{}, false, fmt.Errorf("lookup persona for entity %s: %w", entityID, err)
	}
	persona, err := id.ParsePersonaID(raw)
	if err != nil {
		return id.PersonaID{}, false, fmt.Errorf("entity %s maps to invalid persona %q: %w", entityID, raw, err)
	}
	return persona, true, nil
}

// Link maps entityID to persona for ttl. Zero ttl keeps the mapping until it
// is overwritten.
func (r *PersonaResolver) Link(ctx context.Context, entityID string, persona id.PersonaID, ttl time.Duration) error {
	return r.client.Set(ctx, personaKeyPrefix+entityID, persona.String(), ttl).Err()
}
