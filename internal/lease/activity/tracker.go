// Package activity keeps each lease's last-seen time current from the world's
// area-entry feed. It is the only writer of LastOccupantSeenUtc.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"leasehold/internal/lease/metrics"
	"leasehold/internal/lease/policy"
	"leasehold/internal/lease/ports"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/clock"
	"leasehold/pkg/platform/sentinel"
)

const (
	defaultMaxInFlight    = 64
	defaultThrottleWindow = 5 * time.Minute
	maxAttempts           = 3

	outcomeRecorded   = "recorded"
	outcomeIgnored    = "ignored"
	outcomeUnresolved = "unresolved"
	outcomeThrottled  = "throttled"
	outcomeMalformed  = "malformed"
	outcomeDropped    = "dropped"
	outcomeError      = "error"
)

// Tracker records occupant presence on rented properties.
type Tracker struct {
	repo     ports.Repository
	resolver ports.PersonaResolver
	throttle ports.SeenThrottle
	window   time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithThrottle skips presence writes for a property that was written less than
// window ago.
func WithThrottle(throttle ports.SeenThrottle, window time.Duration) Option {
	return func(t *Tracker) {
		t.throttle = throttle
		if window > 0 {
			t.window = window
		}
	}
}

// WithMaxInFlight bounds concurrently handled events.
func WithMaxInFlight(n int64) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.sem = semaphore.NewWeighted(n)
		}
	}
}

func New(repo ports.Repository, resolver ports.PersonaResolver, opts ...Option) (*Tracker, error) {
	if repo == nil {
		return nil, errors.New("property repository is required")
	}
	if resolver == nil {
		return nil, errors.New("persona resolver is required")
	}
	t := &Tracker{
		repo:     repo,
		resolver: resolver,
		window:   defaultThrottleWindow,
		clock:    clock.System(),
		logger:   slog.Default(),
		sem:      semaphore.NewWeighted(defaultMaxInFlight),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Dispatch handles evt on its own goroutine. It blocks only while the
// in-flight bound is reached; errors are logged.
func (t *Tracker) Dispatch(ctx context.Context, evt AreaEntered) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		t.logger.WarnContext(ctx, "dropping area entry event", "area_tag", evt.AreaTag, "error", err)
		t.metrics.IncActivity(outcomeDropped)
		return
	}
	t.wg.Add(1)
	t.metrics.AddInFlight(1)

	hctx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			t.metrics.AddInFlight(-1)
			t.sem.Release(1)
			t.wg.Done()
		}()
		if err := t.HandleAreaEntered(hctx, evt); err != nil {
			t.metrics.IncActivity(outcomeError)
			t.logger.ErrorContext(hctx, "failed to record occupant presence",
				"entity_id", evt.EntityID,
				"area_tag", evt.AreaTag,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every dispatched event has been handled.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// HandleAreaEntered records presence on every rented property tagged
// evt.AreaTag where the entrant is tenant, owner or resident.
func (t *Tracker) HandleAreaEntered(ctx context.Context, evt AreaEntered) error {
	persona, ok, err := t.resolver.Resolve(ctx, evt.EntityID)
	if err != nil {
		return fmt.Errorf("resolve entity %q: %w", evt.EntityID, err)
	}
	if !ok {
		t.logger.DebugContext(ctx, "area entrant is not a persona", "entity_id", evt.EntityID)
		t.metrics.IncActivity(outcomeUnresolved)
		return nil
	}

	snapshots, err := t.repo.ListByArea(ctx, evt.AreaTag)
	if err != nil {
		return fmt.Errorf("list properties in area %q: %w", evt.AreaTag, err)
	}

	var errs []error
	matched := false
	for _, snap := range snapshots {
		if !snap.IsRented() || !snap.IsOccupant(persona) {
			continue
		}
		matched = true
		if err := t.recordSeen(ctx, snap.ID(), persona); err != nil {
			errs = append(errs, err)
		}
	}
	if !matched {
		t.metrics.IncActivity(outcomeIgnored)
	}
	return errors.Join(errs...)
}

// reserve reports whether a write should happen now, and whether a throttle
// window was taken for it. Throttle errors fail open.
func (t *Tracker) reserve(ctx context.Context, propertyID id.PropertyID) (write, held bool) {
	if t.throttle == nil {
		return true, false
	}
	ok, err := t.throttle.ShouldRecord(ctx, propertyID, t.window)
	if err != nil {
		t.logger.WarnContext(ctx, "presence throttle unavailable, writing anyway",
			"property_id", propertyID,
			"error", err,
		)
		return true, false
	}
	return ok, ok
}

// forget releases a window taken for a write that did not land.
func (t *Tracker) forget(ctx context.Context, propertyID id.PropertyID) {
	if err := t.throttle.Forget(ctx, propertyID); err != nil {
		t.logger.WarnContext(ctx, "failed to release presence throttle",
			"property_id", propertyID,
			"error", err,
		)
	}
}

// recordSeen re-reads the property and stamps it, retrying version conflicts.
// A property that stopped being rented, or no longer lists persona, is left alone.
//
// The throttle only applies when the sighting would not change eviction
// eligibility; the first sighting after the due instant is always written.
func (t *Tracker) recordSeen(ctx context.Context, propertyID id.PropertyID, persona id.PersonaID) error {
	held := false
	for attempt := 1; ; attempt++ {
		snap, err := t.repo.GetSnapshot(ctx, propertyID)
		if err != nil {
			if held {
				t.forget(ctx, propertyID)
			}
			return fmt.Errorf("load property %s: %w", propertyID, err)
		}
		if snap == nil || !snap.IsRented() || !snap.IsOccupant(persona) {
			return nil
		}

		seenAt := t.clock()
		if !held && !policy.PresenceProtects(*snap.ActiveRental, seenAt) {
			var write bool
			write, held = t.reserve(ctx, propertyID)
			if !write {
				t.metrics.IncActivity(outcomeThrottled)
				return nil
			}
		}

		updated, err := snap.ApplyOccupantSeen(seenAt)
		if err != nil {
			return err
		}
		_, err = t.repo.PersistRental(ctx, updated)
		switch {
		case err == nil:
			t.metrics.IncActivity(outcomeRecorded)
			t.metrics.IncOccupantSeenWrite()
			t.logger.DebugContext(ctx, "occupant seen",
				"property_id", propertyID,
				"persona_id", persona,
				"seen_at", seenAt,
			)
			return nil
		case errors.Is(err, sentinel.ErrConflict) && attempt < maxAttempts:
			continue
		default:
			if held {
				t.forget(ctx, propertyID)
			}
			return fmt.Errorf("persist presence for %s: %w", propertyID, err)
		}
	}
}
