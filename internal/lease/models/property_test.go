package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/sentinel"
)

type PropertySnapshotSuite struct {
	suite.Suite
	def    PropertyDefinition
	tenant id.PersonaID
	lease  LeaseAgreement
}

func TestPropertySnapshotSuite(t *testing.T) {
	suite.Run(t, new(PropertySnapshotSuite))
}

func (s *PropertySnapshotSuite) SetupTest() {
	s.def = PropertyDefinition{
		ID:                id.PropertyID(uuid.New()),
		InternalName:      "pier_cottage",
		Settlement:        "saltmere",
		AreaTag:           "saltmere.pier_cottage",
		MonthlyRent:       100,
		AllowsDirect:      true,
		EvictionGraceDays: 2,
	}
	s.tenant = id.PersonaID(uuid.New())
	s.lease = LeaseAgreement{
		Tenant:             s.tenant,
		StartDate:          NewDate(2025, time.January, 1),
		NextPaymentDueDate: NewDate(2025, time.February, 1),
		MonthlyRent:        100,
		PaymentMethod:      id.PaymentDirect,
	}
}

func (s *PropertySnapshotSuite) TestValidate() {
	s.Run("vacant snapshot is valid", func() {
		s.NoError(NewVacantSnapshot(s.def).Validate())
	})

	s.Run("rented snapshot is valid", func() {
		s.NoError(NewRentedSnapshot(s.def, s.lease).Validate())
	})

	s.Run("rented without a lease is invalid", func() {
		snap := NewRentedSnapshot(s.def, s.lease)
		snap.ActiveRental = nil
		s.ErrorIs(snap.Validate(), sentinel.ErrInvalidState)
	})

	s.Run("vacant with an owner is invalid", func() {
		snap := NewVacantSnapshot(s.def)
		owner := id.PersonaID(uuid.New())
		snap.CurrentOwner = &owner
		s.ErrorIs(snap.Validate(), sentinel.ErrInvalidState)
	})

	s.Run("lease tenant must match current tenant", func() {
		snap := NewRentedSnapshot(s.def, s.lease)
		other := id.PersonaID(uuid.New())
		snap.CurrentTenant = &other
		s.ErrorIs(snap.Validate(), sentinel.ErrInvalidState)
	})

	s.Run("unknown status is invalid", func() {
		snap := NewVacantSnapshot(s.def)
		snap.Status = "condemned"
		s.ErrorIs(snap.Validate(), sentinel.ErrInvalidState)
	})
}

func (s *PropertySnapshotSuite) TestCanPayRent() {
	rented := NewRentedSnapshot(s.def, s.lease)

	s.Equal(MsgNoActiveRental, NewVacantSnapshot(s.def).CanPayRent(s.tenant, ""))
	s.Equal(MsgTenantMismatch, rented.CanPayRent(id.PersonaID(uuid.New()), ""))
	s.Equal(MsgPaymentMismatch, rented.CanPayRent(s.tenant, id.PaymentLinkedAccount))
	s.Empty(rented.CanPayRent(s.tenant, ""))
	s.Empty(rented.CanPayRent(s.tenant, id.PaymentDirect))
}

func (s *PropertySnapshotSuite) TestApplyRentPayment() {
	seen := time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC)
	rented := NewRentedSnapshot(s.def, s.lease)
	rented.ActiveRental.LastOccupantSeenUtc = &seen

	s.Run("advances the due date and preserves the rest", func() {
		next, err := rented.ApplyRentPayment(NewDate(2025, time.March, 1))
		s.Require().NoError(err)
		s.Equal(NewDate(2025, time.March, 1), next.ActiveRental.NextPaymentDueDate)
		s.Equal(s.tenant, next.ActiveRental.Tenant)
		s.Equal(id.PaymentDirect, next.ActiveRental.PaymentMethod)
		s.Equal(seen, *next.ActiveRental.LastOccupantSeenUtc)
		s.Equal(NewDate(2025, time.February, 1), rented.ActiveRental.NextPaymentDueDate, "receiver untouched")
	})

	s.Run("rejects a due date that does not advance", func() {
		_, err := rented.ApplyRentPayment(NewDate(2025, time.February, 1))
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("rejects payment without a lease", func() {
		_, err := NewVacantSnapshot(s.def).ApplyRentPayment(NewDate(2025, time.March, 1))
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PropertySnapshotSuite) TestApplyEviction() {
	s.Run("clears tenancy and residents", func() {
		rented := NewRentedSnapshot(s.def, s.lease)
		rented.Residents = []id.PersonaID{id.PersonaID(uuid.New()), id.PersonaID(uuid.New())}

		vacated, err := rented.ApplyEviction()
		s.Require().NoError(err)
		s.Equal(StatusVacant, vacated.Status)
		s.Nil(vacated.CurrentTenant)
		s.Nil(vacated.ActiveRental)
		s.Empty(vacated.Residents)
		s.NoError(vacated.Validate())
		s.Len(rented.Residents, 2, "receiver untouched")
	})

	s.Run("vacant stays vacant", func() {
		vacated, err := NewVacantSnapshot(s.def).ApplyEviction()
		s.Require().NoError(err)
		s.Equal(NewVacantSnapshot(s.def), vacated)
	})

	s.Run("owned cannot be evicted", func() {
		owned := NewVacantSnapshot(s.def)
		owner := id.PersonaID(uuid.New())
		owned.Status = StatusOwned
		owned.CurrentOwner = &owner
		_, err := owned.ApplyEviction()
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PropertySnapshotSuite) TestApplyOccupantSeen() {
	zone := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2025, time.February, 3, 12, 0, 0, 0, zone)

	next, err := NewRentedSnapshot(s.def, s.lease).ApplyOccupantSeen(at)
	s.Require().NoError(err)
	s.Require().NotNil(next.ActiveRental.LastOccupantSeenUtc)
	s.Equal(time.UTC, next.ActiveRental.LastOccupantSeenUtc.Location())
	s.True(at.Equal(*next.ActiveRental.LastOccupantSeenUtc))

	_, err = NewVacantSnapshot(s.def).ApplyOccupantSeen(at)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PropertySnapshotSuite) TestIsOccupant() {
	rented := NewRentedSnapshot(s.def, s.lease)
	resident := id.PersonaID(uuid.New())
	rented.Residents = []id.PersonaID{resident}

	s.True(rented.IsOccupant(s.tenant))
	s.True(rented.IsOccupant(resident))
	s.False(rented.IsOccupant(id.PersonaID(uuid.New())))
}

func TestPropertySnapshot_CloneIsDeep(t *testing.T) {
	acct := "coinhouse-1"
	seen := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	tenant := id.PersonaID(uuid.New())
	snap := NewRentedSnapshot(PropertyDefinition{ID: id.PropertyID(uuid.New()), LinkedAccountID: &acct}, LeaseAgreement{
		Tenant:              tenant,
		LastOccupantSeenUtc: &seen,
	})
	snap.Residents = []id.PersonaID{tenant}

	clone := snap.Clone()
	clone.Residents[0] = id.PersonaID(uuid.New())
	*clone.ActiveRental.LastOccupantSeenUtc = seen.Add(time.Hour)
	*clone.Definition.LinkedAccountID = "changed"
	*clone.CurrentTenant = id.PersonaID(uuid.New())

	require.Equal(t, tenant, snap.Residents[0])
	assert.Equal(t, seen, *snap.ActiveRental.LastOccupantSeenUtc)
	assert.Equal(t, "coinhouse-1", *snap.Definition.LinkedAccountID)
	assert.Equal(t, tenant, *snap.CurrentTenant)
}
