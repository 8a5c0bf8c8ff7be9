package activity

import (
	"context"
	"encoding/json"
	"time"

	"leasehold/internal/platform/kafka/consumer"
	id "leasehold/pkg/domain"
)

// AreaEntered is published by the world server whenever an entity enters a
// tagged area.
type AreaEntered struct {
	EntityID   string    `json:"entity_id"`
	AreaTag    string    `json:"area_tag"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handle decodes an area-entry record and dispatches it. Malformed records are
// logged and dropped so they are committed and never redelivered.
func (t *Tracker) Handle(ctx context.Context, msg *consumer.Message) error {
	var evt AreaEntered
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		t.logger.WarnContext(ctx, "malformed area entry event",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		t.metrics.IncActivity(outcomeMalformed)
		return nil
	}
	if evt.EntityID == "" || evt.AreaTag == "" {
		t.logger.WarnContext(ctx, "area entry event missing entity or area",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		t.metrics.IncActivity(outcomeMalformed)
		return nil
	}
	t.Dispatch(ctx, evt)
	return nil
}

// DirectResolver treats entity IDs as persona IDs. Entities that are not valid
// persona UUIDs (NPCs, creatures) resolve to nothing.
type DirectResolver struct{}

func (DirectResolver) Resolve(_ context.Context, entityID string) (id.PersonaID, bool, error) {
	persona, err := id.ParsePersonaID(entityID)
	if err != nil {
		return id.PersonaID{}, false, nil
	}
	return persona, true, nil
}
