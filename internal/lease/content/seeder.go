package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"leasehold/internal/lease/models"
)

// SnapshotCreator stores a snapshot unless the property already exists.
type SnapshotCreator interface {
	CreateIfAbsent(ctx context.Context, snapshot models.PropertySnapshot) (bool, error)
}

// TxRunner runs fn in one transaction. Stores pick the transaction up from ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SeedReport counts what a seeding pass did.
type SeedReport struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// Seeder creates the initial vacant snapshot of every property. Existing
// snapshots are never touched, so reloading content keeps live leases.
type Seeder struct {
	repo   SnapshotCreator
	tx     TxRunner
	logger *slog.Logger
}

type Option func(*Seeder)

// WithTxRunner seeds every property in a single transaction.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Seeder) {
		s.tx = tx
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Seeder) {
		s.logger = logger
	}
}

func NewSeeder(repo SnapshotCreator, opts ...Option) (*Seeder, error) {
	if repo == nil {
		return nil, errors.New("snapshot repository is required")
	}
	s := &Seeder{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Seed creates a vacant snapshot for each definition not yet stored.
func (s *Seeder) Seed(ctx context.Context, defs []models.PropertyDefinition) (SeedReport, error) {
	var report SeedReport
	seed := func(ctx context.Context) error {
		report = SeedReport{}
		for _, def := range defs {
			created, err := s.repo.CreateIfAbsent(ctx, models.NewVacantSnapshot(def))
			if err != nil {
				return fmt.Errorf("seed property %s (%s): %w", def.InternalName, def.ID, err)
			}
			if created {
				report.Created++
			} else {
				report.Existing++
			}
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, seed)
	} else {
		err = seed(ctx)
	}
	if err != nil {
		return SeedReport{}, err
	}

	s.logger.InfoContext(ctx, "world content seeded",
		"created", report.Created,
		"existing", report.Existing,
	)
	return report, nil
}
