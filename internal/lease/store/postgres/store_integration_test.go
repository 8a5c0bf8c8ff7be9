//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"leasehold/internal/lease/models"
	"leasehold/internal/lease/store/postgres"
	platformpg "leasehold/internal/platform/postgres"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/sentinel"
	"leasehold/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "properties"))
}

func (s *PostgresStoreSuite) definition(name string) models.PropertyDefinition {
	account := "riverford_coinhouse"
	price := int64(4000)
	return models.PropertyDefinition{
		ID:                  id.PropertyID(uuid.New()),
		InternalName:        name,
		Settlement:          "riverford",
		Category:            "cottage",
		AreaTag:             "riverford." + name,
		MonthlyRent:         100,
		AllowsLinkedAccount: true,
		AllowsDirect:        true,
		LinkedAccountID:     &account,
		PurchasePrice:       &price,
		EvictionGraceDays:   2,
	}
}

func (s *PostgresStoreSuite) rented(def models.PropertyDefinition) models.PropertySnapshot {
	snap := models.NewRentedSnapshot(def, models.LeaseAgreement{
		Tenant:             id.PersonaID(uuid.New()),
		StartDate:          models.NewDate(2025, time.January, 31),
		NextPaymentDueDate: models.NewDate(2025, time.February, 28),
		MonthlyRent:        100,
		PaymentMethod:      id.PaymentLinkedAccount,
	})
	snap.Residents = []id.PersonaID{id.PersonaID(uuid.New()), id.PersonaID(uuid.New())}
	return snap
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	snap := s.rented(s.definition("baker_lane_4"))
	seen := time.Date(2025, time.February, 27, 22, 15, 0, 0, time.UTC)
	snap.ActiveRental.LastOccupantSeenUtc = &seen

	created, err := s.store.CreateIfAbsent(ctx, snap)
	s.Require().NoError(err)
	s.True(created)

	got, err := s.store.GetSnapshot(ctx, snap.ID())
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(snap.Definition, got.Definition)
	s.Equal(models.StatusRented, got.Status)
	s.Equal(snap.Residents, got.Residents)
	s.Equal(snap.ActiveRental.NextPaymentDueDate, got.ActiveRental.NextPaymentDueDate)
	s.Equal(snap.ActiveRental.StartDate, got.ActiveRental.StartDate)
	s.True(seen.Equal(*got.ActiveRental.LastOccupantSeenUtc))
	s.Equal(id.PaymentLinkedAccount, got.ActiveRental.PaymentMethod)

	s.Run("create again is a no-op", func() {
		created, err := s.store.CreateIfAbsent(ctx, models.NewVacantSnapshot(snap.Definition))
		s.Require().NoError(err)
		s.False(created)
	})

	s.Run("missing property is nil", func() {
		got, err := s.store.GetSnapshot(ctx, id.PropertyID(uuid.New()))
		s.Require().NoError(err)
		s.Nil(got)
	})
}

func (s *PostgresStoreSuite) TestPersistRental() {
	ctx := context.Background()
	snap := s.rented(s.definition("mill_row_1"))
	_, err := s.store.CreateIfAbsent(ctx, snap)
	s.Require().NoError(err)

	s.Run("bumps version", func() {
		current, err := s.store.GetSnapshot(ctx, snap.ID())
		s.Require().NoError(err)
		next, err := current.ApplyRentPayment(models.NewDate(2025, time.March, 28))
		s.Require().NoError(err)

		stored, err := s.store.PersistRental(ctx, next)
		s.Require().NoError(err)
		s.Equal(current.Version+1, stored.Version)
	})

	s.Run("stale version conflicts", func() {
		_, err := s.store.PersistRental(ctx, snap)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown property is not found", func() {
		_, err := s.store.PersistRental(ctx, s.rented(s.definition("ghost_house")))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("eviction clears lease columns", func() {
		current, err := s.store.GetSnapshot(ctx, snap.ID())
		s.Require().NoError(err)
		vacated, err := current.ApplyEviction()
		s.Require().NoError(err)
		_, err = s.store.PersistRental(ctx, vacated)
		s.Require().NoError(err)

		got, err := s.store.GetSnapshot(ctx, snap.ID())
		s.Require().NoError(err)
		s.Equal(models.StatusVacant, got.Status)
		s.Nil(got.ActiveRental)
		s.Nil(got.CurrentTenant)
		s.Empty(got.Residents)
	})

	s.Run("invalid snapshot is rejected", func() {
		current, err := s.store.GetSnapshot(ctx, snap.ID())
		s.Require().NoError(err)
		current.Status = models.StatusRented
		_, err = s.store.PersistRental(ctx, *current)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PostgresStoreSuite) TestListing() {
	ctx := context.Background()
	north := s.definition("b_house")
	north.AreaTag = "riverford.north"
	south := s.definition("a_house")
	south.AreaTag = "riverford.south"
	also := s.definition("c_house")
	also.AreaTag = "riverford.north"
	for _, def := range []models.PropertyDefinition{north, south, also} {
		_, err := s.store.CreateIfAbsent(ctx, models.NewVacantSnapshot(def))
		s.Require().NoError(err)
	}

	all, err := s.store.GetAllProperties(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"a_house", "b_house", "c_house"},
		[]string{all[0].Definition.InternalName, all[1].Definition.InternalName, all[2].Definition.InternalName})

	inNorth, err := s.store.ListByArea(ctx, "riverford.north")
	s.Require().NoError(err)
	s.Len(inNorth, 2)
}

func (s *PostgresStoreSuite) TestConcurrentWritersOnlyOneWins() {
	ctx := context.Background()
	snap := s.rented(s.definition("contested_loft"))
	_, err := s.store.CreateIfAbsent(ctx, snap)
	s.Require().NoError(err)

	const writers = 8
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := snap.ApplyRentPayment(models.NewDate(2025, time.March, 1+i))
			if err != nil {
				return
			}
			_, err = s.store.PersistRental(ctx, next)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestTransactionRollback() {
	ctx := context.Background()
	runner := platformpg.NewTxRunner(s.postgres.DB)
	def := s.definition("rolled_back")

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.CreateIfAbsent(ctx, models.NewVacantSnapshot(def)); err != nil {
			return err
		}
		return errors.New("abort seeding")
	})
	s.Require().Error(err)

	got, err := s.store.GetSnapshot(ctx, def.ID)
	s.Require().NoError(err)
	s.Nil(got)
}
