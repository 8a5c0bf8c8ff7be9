//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"leasehold/internal/platform/kafka/admin"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/audit"
	auditpg "leasehold/pkg/platform/audit/store/postgres"
	"leasehold/pkg/platform/outbox"
	outboxpg "leasehold/pkg/platform/outbox/postgres"
	"leasehold/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	audit    *auditpg.Store
	outbox   *outboxpg.Store
	topic    string
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.audit = auditpg.New(s.postgres.DB)
	s.outbox = outboxpg.New(s.postgres.DB)
}

func (s *RelaySuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "outbox", "audit_events"))
	s.topic = "leasehold.audit." + uuid.NewString()[:8]
	s.Require().NoError(admin.EnsureTopics(ctx, s.redpanda.Brokers, 1, s.topic))
}

func (s *RelaySuite) TestAppendWritesAuditAndOutbox() {
	ctx := context.Background()
	propertyID := id.PropertyID(uuid.New())
	tenant := id.PersonaID(uuid.New())

	s.Require().NoError(s.audit.Append(ctx, audit.Event{
		Timestamp:  time.Now().UTC(),
		Action:     string(audit.EventRentPaid),
		PropertyID: propertyID,
		PersonaID:  tenant,
		Decision:   "2025-03-01",
	}))
	s.Require().NoError(s.audit.Append(ctx, audit.Event{
		Timestamp:  time.Now().UTC(),
		Action:     string(audit.EventLeaseEvicted),
		PropertyID: propertyID,
		Reason:     "rent_overdue",
		ActorID:    "scheduler",
	}))

	events, err := s.audit.ListByProperty(ctx, propertyID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal(tenant, events[0].PersonaID)
	s.True(events[1].PersonaID.IsNil())

	entries, err := s.outbox.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(propertyID.String(), entries[0].AggregateID)
	s.Equal(string(audit.EventRentPaid), entries[0].EventType)
}

func (s *RelaySuite) TestRelayPublishesAndMarks() {
	ctx := context.Background()
	propertyID := id.PropertyID(uuid.New())
	for range 3 {
		s.Require().NoError(s.audit.Append(ctx, audit.Event{
			Timestamp:  time.Now().UTC(),
			Action:     string(audit.EventAdmissionEvaluated),
			PropertyID: propertyID,
			Decision:   "denied",
		}))
	}

	producer, err := admin.NewProducer(s.redpanda.Brokers)
	s.Require().NoError(err)
	defer producer.Close()

	relay, err := outbox.NewRelay(s.outbox, producer, s.topic,
		outbox.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	published, err := relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(3, published)

	remaining, err := s.outbox.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Empty(remaining)

	reader, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer reader.Close()

	readCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	var records []*kgo.Record
	for len(records) < 3 && readCtx.Err() == nil {
		fetches := reader.PollFetches(readCtx)
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	s.Require().Len(records, 3)
	s.Equal(propertyID.String(), string(records[0].Key))

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &payload))
	s.Equal(string(audit.EventAdmissionEvaluated), payload["action"])
}
