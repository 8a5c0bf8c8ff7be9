package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"leasehold/internal/lease/activity"
	"leasehold/internal/lease/content"
	"leasehold/internal/lease/ports"
	"leasehold/internal/lease/store/memory"
	leasepg "leasehold/internal/lease/store/postgres"
	leaseredis "leasehold/internal/lease/store/redis"
	"leasehold/internal/platform/config"
	"leasehold/internal/platform/kafka/admin"
	"leasehold/internal/platform/postgres"
	"leasehold/internal/platform/redis"
	auditmemory "leasehold/pkg/platform/audit/store/memory"
	auditpg "leasehold/pkg/platform/audit/store/postgres"
	"leasehold/pkg/platform/audit/publisher"
	"leasehold/pkg/platform/circuit"
	"leasehold/pkg/platform/outbox"
	outboxpg "leasehold/pkg/platform/outbox/postgres"
)

const auditBufferSize = 1024

// infra holds the backing services chosen by configuration. Postgres, Redis and
// Kafka are each optional; without them the server runs on in-memory stores.
type infra struct {
	repo     ports.Repository
	tx       content.TxRunner
	audit    *publisher.Publisher
	resolver ports.PersonaResolver
	locker   ports.Locker
	throttle ports.SeenThrottle
	relay    *outbox.Relay

	db       *sql.DB
	redis    *redis.Client
	producer *kgo.Client
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *infra, err error) {
	in := &infra{resolver: activity.DirectResolver{}}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	if cfg.Postgres.URL != "" {
		in.db, err = postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err = postgres.Migrate(ctx, in.db); err != nil {
			return nil, err
		}
		in.repo = leasepg.New(in.db)
		in.tx = postgres.NewTxRunner(in.db)
		in.audit = publisher.NewPublisher(auditpg.New(in.db),
			publisher.WithAsyncBuffer(auditBufferSize),
			publisher.WithLogger(log),
		)
		log.InfoContext(ctx, "using postgres property store")
	} else {
		in.repo = memory.New()
		in.audit = publisher.NewPublisher(auditmemory.NewInMemoryStore(),
			publisher.WithAsyncBuffer(auditBufferSize),
			publisher.WithLogger(log),
		)
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory property store")
	}

	in.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if in.redis != nil {
		in.locker = leaseredis.NewLocker(in.redis.Client)
		in.resolver = leaseredis.NewPersonaResolver(in.redis.Client)
		in.throttle = leaseredis.NewSeenThrottle(in.redis.Client)
		log.InfoContext(ctx, "redis enabled for sweep lock, persona lookup and seen throttle")
	}

	if cfg.Kafka.Enabled() {
		if cfg.Kafka.CreateTopics {
			if err = admin.EnsureTopics(ctx, cfg.Kafka.Brokers, cfg.Kafka.TopicPartitions,
				cfg.Kafka.AreaEntryTopic, cfg.Kafka.AuditTopic); err != nil {
				return nil, err
			}
		}
		if in.db != nil {
			in.producer, err = admin.NewProducer(cfg.Kafka.Brokers)
			if err != nil {
				return nil, err
			}
			in.relay, err = outbox.NewRelay(outboxpg.New(in.db), in.producer, cfg.Kafka.AuditTopic,
				outbox.WithInterval(cfg.Kafka.RelayInterval),
				outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
				outbox.WithLogger(log),
				outbox.WithBreaker(circuit.New("audit-outbox",
					circuit.WithFailureThreshold(3),
					circuit.WithSuccessThreshold(2),
				)),
			)
			if err != nil {
				return nil, fmt.Errorf("build outbox relay: %w", err)
			}
		}
	}

	return in, nil
}

// Health pings every configured backing service.
func (in *infra) Health(ctx context.Context) error {
	var errs []error
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending audit events before releasing connections.
func (in *infra) Close() {
	if in.audit != nil {
		in.audit.Close()
	}
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func seedContent(ctx context.Context, cfg config.Config, in *infra, log *slog.Logger) error {
	if cfg.Content.Path == "" {
		log.WarnContext(ctx, "WORLD_CONTENT_PATH not set, no properties seeded")
		return nil
	}
	defs, err := content.LoadFile(cfg.Content.Path, cfg.Content.DefaultGraceDays)
	if err != nil {
		return err
	}
	opts := []content.Option{content.WithLogger(log)}
	if in.tx != nil {
		opts = append(opts, content.WithTxRunner(in.tx))
	}
	seeder, err := content.NewSeeder(in.repo, opts...)
	if err != nil {
		return err
	}
	_, err = seeder.Seed(ctx, defs)
	return err
}
