// Package postgres is the durable property repository on database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"leasehold/internal/lease/models"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/sentinel"
	txcontext "leasehold/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store persists property snapshots in the properties table, one row per
// property with the active lease flattened into lease_* columns.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectColumns = `
	id, internal_name, settlement, category, area_tag, monthly_rent,
	allows_linked_account, allows_direct, linked_account_id, purchase_price,
	property_tax, eviction_grace_days, status, current_tenant, current_owner,
	residents, lease_tenant, lease_start_date, lease_next_due_date,
	lease_monthly_rent, lease_payment_method, lease_last_seen_at, version`

func (s *Store) GetSnapshot(ctx context.Context, propertyID id.PropertyID) (*models.PropertySnapshot, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM properties WHERE id = $1`, uuid.UUID(propertyID))
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property %s: %w", propertyID, err)
	}
	return &snap, nil
}

func (s *Store) GetAllProperties(ctx context.Context) ([]models.PropertySnapshot, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM properties ORDER BY internal_name, id`)
}

func (s *Store) ListByArea(ctx context.Context, areaTag string) ([]models.PropertySnapshot, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM properties WHERE area_tag = $1 ORDER BY internal_name, id`, areaTag)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]models.PropertySnapshot, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var out []models.PropertySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return out, nil
}

// PersistRental writes the occupancy and lease columns. Definition columns are
// owned by content loading and are not touched here.
func (s *Store) PersistRental(ctx context.Context, snapshot models.PropertySnapshot) (models.PropertySnapshot, error) {
	if err := snapshot.Validate(); err != nil {
		return snapshot, err
	}
	l := leaseColumnsOf(snapshot)

	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE properties SET
			status = $2,
			current_tenant = $3,
			current_owner = $4,
			residents = $5,
			lease_tenant = $6,
			lease_start_date = $7,
			lease_next_due_date = $8,
			lease_monthly_rent = $9,
			lease_payment_method = $10,
			lease_last_seen_at = $11,
			version = version + 1,
			updated_at = $12
		WHERE id = $1 AND version = $13
	`,
		uuid.UUID(snapshot.ID()),
		string(snapshot.Status),
		nullablePersona(snapshot.CurrentTenant),
		nullablePersona(snapshot.CurrentOwner),
		pq.Array(personaStrings(snapshot.Residents)),
		l.tenant,
		l.startDate,
		l.nextDue,
		l.monthlyRent,
		l.paymentMethod,
		l.lastSeen,
		s.now(),
		snapshot.Version,
	)
	if err != nil {
		return snapshot, fmt.Errorf("update property %s: %w", snapshot.ID(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return snapshot, fmt.Errorf("update property %s: %w", snapshot.ID(), err)
	}
	if affected == 0 {
		return snapshot, s.missOrConflict(ctx, snapshot.ID())
	}

	stored := snapshot.Clone()
	stored.Version++
	return stored, nil
}

func (s *Store) missOrConflict(ctx context.Context, propertyID id.PropertyID) error {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM properties WHERE id = $1)`, uuid.UUID(propertyID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check property %s: %w", propertyID, err)
	}
	if !exists {
		return fmt.Errorf("property %s: %w", propertyID, sentinel.ErrNotFound)
	}
	return fmt.Errorf("property %s changed since read: %w", propertyID, sentinel.ErrConflict)
}

func (s *Store) CreateIfAbsent(ctx context.Context, snapshot models.PropertySnapshot) (bool, error) {
	if err := snapshot.Validate(); err != nil {
		return false, err
	}
	def := snapshot.Definition
	l := leaseColumnsOf(snapshot)

	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO properties (
			id, internal_name, settlement, category, area_tag, monthly_rent,
			allows_linked_account, allows_direct, linked_account_id, purchase_price,
			property_tax, eviction_grace_days, status, current_tenant, current_owner,
			residents, lease_tenant, lease_start_date, lease_next_due_date,
			lease_monthly_rent, lease_payment_method, lease_last_seen_at, version, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO NOTHING
	`,
		uuid.UUID(def.ID),
		def.InternalName,
		def.Settlement,
		def.Category,
		def.AreaTag,
		def.MonthlyRent,
		def.AllowsLinkedAccount,
		def.AllowsDirect,
		def.LinkedAccountID,
		def.PurchasePrice,
		def.PropertyTax,
		def.EvictionGraceDays,
		string(snapshot.Status),
		nullablePersona(snapshot.CurrentTenant),
		nullablePersona(snapshot.CurrentOwner),
		pq.Array(personaStrings(snapshot.Residents)),
		l.tenant,
		l.startDate,
		l.nextDue,
		l.monthlyRent,
		l.paymentMethod,
		l.lastSeen,
		snapshot.Version,
		s.now(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, fmt.Errorf("property %s collides with an existing row: %w", def.ID, sentinel.ErrConflict)
		}
		return false, fmt.Errorf("insert property %s: %w", def.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert property %s: %w", def.ID, err)
	}
	return affected == 1, nil
}

type leaseColumns struct {
	tenant        *uuid.UUID
	startDate     *models.Date
	nextDue       *models.Date
	monthlyRent   *int64
	paymentMethod *string
	lastSeen      *time.Time
}

func leaseColumnsOf(snapshot models.PropertySnapshot) leaseColumns {
	l := snapshot.ActiveRental
	if l == nil {
		return leaseColumns{}
	}
	tenant := uuid.UUID(l.Tenant)
	start := l.StartDate
	due := l.NextPaymentDueDate
	rent := l.MonthlyRent
	method := string(l.PaymentMethod)
	return leaseColumns{
		tenant:        &tenant,
		startDate:     &start,
		nextDue:       &due,
		monthlyRent:   &rent,
		paymentMethod: &method,
		lastSeen:      l.LastOccupantSeenUtc,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (models.PropertySnapshot, error) {
	var (
		snap          models.PropertySnapshot
		propertyID    uuid.UUID
		linkedAccount sql.NullString
		purchasePrice sql.NullInt64
		propertyTax   sql.NullInt64
		status        string
		currentTenant uuid.NullUUID
		currentOwner  uuid.NullUUID
		residents     pq.StringArray
		leaseTenant   uuid.NullUUID
		leaseStart    models.Date
		leaseDue      models.Date
		leaseRent     sql.NullInt64
		leaseMethod   sql.NullString
		leaseSeen     sql.NullTime
	)
	def := &snap.Definition
	err := row.Scan(
		&propertyID,
		&def.InternalName,
		&def.Settlement,
		&def.Category,
		&def.AreaTag,
		&def.MonthlyRent,
		&def.AllowsLinkedAccount,
		&def.AllowsDirect,
		&linkedAccount,
		&purchasePrice,
		&propertyTax,
		&def.EvictionGraceDays,
		&status,
		&currentTenant,
		&currentOwner,
		&residents,
		&leaseTenant,
		&leaseStart,
		&leaseDue,
		&leaseRent,
		&leaseMethod,
		&leaseSeen,
		&snap.Version,
	)
	if err != nil {
		return models.PropertySnapshot{}, err
	}

	def.ID = id.PropertyID(propertyID)
	if linkedAccount.Valid {
		def.LinkedAccountID = &linkedAccount.String
	}
	if purchasePrice.Valid {
		def.PurchasePrice = &purchasePrice.Int64
	}
	if propertyTax.Valid {
		def.PropertyTax = &propertyTax.Int64
	}

	snap.Status = models.OccupancyStatus(status)
	snap.CurrentTenant = personaOf(currentTenant)
	snap.CurrentOwner = personaOf(currentOwner)
	snap.Residents = make([]id.PersonaID, 0, len(residents))
	for _, r := range residents {
		persona, err := id.ParsePersonaID(r)
		if err != nil {
			return models.PropertySnapshot{}, fmt.Errorf("resident of %s: %w", def.ID, err)
		}
		snap.Residents = append(snap.Residents, persona)
	}

	if leaseTenant.Valid {
		lease := &models.LeaseAgreement{
			Tenant:             id.PersonaID(leaseTenant.UUID),
			StartDate:          leaseStart,
			NextPaymentDueDate: leaseDue,
			MonthlyRent:        leaseRent.Int64,
			PaymentMethod:      id.PaymentMethod(leaseMethod.String),
		}
		if leaseSeen.Valid {
			seen := leaseSeen.Time.UTC()
			lease.LastOccupantSeenUtc = &seen
		}
		snap.ActiveRental = lease
	}
	return snap, nil
}

func personaOf(v uuid.NullUUID) *id.PersonaID {
	if !v.Valid {
		return nil
	}
	p := id.PersonaID(v.UUID)
	return &p
}

func nullablePersona(p *id.PersonaID) *uuid.UUID {
	if p == nil {
		return nil
	}
	u := uuid.UUID(*p)
	return &u
}

func personaStrings(ps []id.PersonaID) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
