// Package scheduler runs the periodic eviction sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leasehold/internal/lease/metrics"
	"leasehold/internal/lease/models"
	"leasehold/internal/lease/ports"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/clock"
	"leasehold/pkg/requestcontext"
)

var (
	// ErrAlreadyStarted is returned by Start on a scheduler that is not idle.
	ErrAlreadyStarted = errors.New("eviction scheduler already started")
	// ErrStillStopping is returned by Start while a loop abandoned by Stop is
	// still finishing its in-flight property.
	ErrStillStopping = errors.New("previous eviction sweep still finishing")
)

const (
	// LockKey guards the sweep across processes when a Locker is configured.
	LockKey = "leasehold:lock:eviction-sweep"
	// Actor is recorded on audit events for scheduler evictions.
	Actor = "scheduler"

	defaultInitialDelay    = 30 * time.Second
	defaultInterval        = time.Hour
	defaultShutdownTimeout = 10 * time.Second
	defaultLockTTL         = 5 * time.Minute

	resultOK      = "ok"
	resultError   = "error"
	resultSkipped = "skipped"
)

// State is the scheduler lifecycle state.
type State int

const (
	StateIdle State = iota
	StateWaitingInitialDelay
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingInitialDelay:
		return "waiting_initial_delay"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Evictor decides eviction eligibility and evicts a property after re-checking
// it against fresh state. The sweep's candidate list uses the same decision.
type Evictor interface {
	EvictionEligible(snap models.PropertySnapshot, evaluationTime time.Time) bool
	EvictIfEligible(ctx context.Context, propertyID id.PropertyID, evaluationTime time.Time) (bool, error)
}

// PropertyLister loads every property for a sweep.
type PropertyLister interface {
	GetAllProperties(ctx context.Context) ([]models.PropertySnapshot, error)
}

// Config controls sweep timing. Zero durations take the defaults; a negative
// InitialDelay runs the first sweep immediately.
type Config struct {
	InitialDelay    time.Duration
	Interval        time.Duration
	ShutdownTimeout time.Duration
	LockTTL         time.Duration
}

func (c Config) withDefaults() Config {
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	} else if c.InitialDelay == 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaultLockTTL
	}
	return c
}

// SweepReport summarises one sweep cycle.
type SweepReport struct {
	EvaluatedAt time.Time       `json:"evaluated_at"`
	Evaluated   int             `json:"evaluated"`
	Eligible    int             `json:"eligible"`
	Evicted     int             `json:"evicted"`
	Failed      int             `json:"failed"`
	Skipped     bool            `json:"skipped,omitempty"`
	Candidates  []id.PropertyID `json:"candidates,omitempty"`
}

// Scheduler sweeps rented properties on a fixed interval and evicts the ones
// whose rent is overdue past their grace window with no recent occupant.
//
// Lifecycle: Idle -> WaitingInitialDelay -> Running -> Idle. Only Start and
// Stop change state.
type Scheduler struct {
	lister  PropertyLister
	evictor Evictor
	cfg     Config

	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	locker  ports.Locker
	dryRun  bool

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	// draining is the done channel of a loop Stop gave up waiting for.
	draining chan struct{}
}

type Option func(*Scheduler)

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithLocker makes each cycle take a cross-process lock first; cycles that
// cannot get it are skipped.
func WithLocker(locker ports.Locker) Option {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

// WithDryRun reports eligible properties without evicting them.
func WithDryRun(dryRun bool) Option {
	return func(s *Scheduler) {
		s.dryRun = dryRun
	}
}

func New(lister PropertyLister, evictor Evictor, cfg Config, opts ...Option) (*Scheduler, error) {
	if lister == nil {
		return nil, errors.New("property lister is required")
	}
	if evictor == nil {
		return nil, errors.New("evictor is required")
	}
	s := &Scheduler{
		lister:  lister,
		evictor: evictor,
		cfg:     cfg.withDefaults(),
		clock:   clock.System(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("leasehold/internal/lease/scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the sweep loop. The loop ends when Stop is called or ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrAlreadyStarted
	}
	if s.draining != nil {
		select {
		case <-s.draining:
			s.draining = nil
		default:
			return ErrStillStopping
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.state = StateWaitingInitialDelay
	s.cancel = cancel
	s.done = done

	s.logger.InfoContext(ctx, "eviction scheduler started",
		"initial_delay", s.cfg.InitialDelay,
		"interval", s.cfg.Interval,
	)
	go s.loop(runCtx, done)
	return nil
}

// Stop signals the loop and waits up to ShutdownTimeout for an in-flight
// cycle. The scheduler is Idle when Stop returns, even if the cycle is still
// finishing its current property; Start returns ErrStillStopping until it has.
// Stop on an idle scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		s.logger.WarnContext(ctx, "eviction sweep did not finish before shutdown timeout",
			"timeout", s.cfg.ShutdownTimeout)
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "stop abandoned waiting for eviction sweep", "error", ctx.Err())
	}

	s.mu.Lock()
	if s.done == done {
		s.reset()
		select {
		case <-done:
		default:
			s.draining = done
		}
	}
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "eviction scheduler stopped")
}

// reset returns to Idle. Caller holds mu.
func (s *Scheduler) reset() {
	s.state = StateIdle
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.reset()
		}
		s.mu.Unlock()
		close(done)
	}()

	delay := time.NewTimer(s.cfg.InitialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	s.mu.Lock()
	if s.done == done {
		s.state = StateRunning
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		s.cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		// Already logged; the next tick retries.
		return
	}
	if report.Evicted > 0 || report.Failed > 0 {
		s.logger.InfoContext(ctx, "eviction sweep completed",
			"evaluated", report.Evaluated,
			"eligible", report.Eligible,
			"evicted", report.Evicted,
			"failed", report.Failed,
		)
	}
}

// RunOnce performs one sweep at the scheduler clock's current time.
//
// Cancelling ctx stops the sweep between properties. Repository calls run on a
// context detached from ctx so the property in flight is finished.
func (s *Scheduler) RunOnce(ctx context.Context) (SweepReport, error) {
	started := s.clock()
	report := SweepReport{EvaluatedAt: started}

	work := context.WithoutCancel(ctx)
	work = requestcontext.WithTime(work, started)
	work = requestcontext.WithActor(work, Actor)
	work = requestcontext.WithRequestID(work, "sweep-"+uuid.NewString())

	work, span := s.tracer.Start(work, "lease.eviction_sweep",
		trace.WithAttributes(attribute.Bool("sweep.dry_run", s.dryRun)))
	defer span.End()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(work, LockKey, s.cfg.LockTTL)
		if err != nil {
			s.logger.ErrorContext(work, "failed to acquire eviction sweep lock", "error", err)
			s.finish(span, resultError, report, started)
			return report, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			s.logger.DebugContext(work, "eviction sweep lock held elsewhere, skipping cycle")
			report.Skipped = true
			s.finish(span, resultSkipped, report, started)
			return report, nil
		}
		defer func() {
			if err := release(work); err != nil {
				s.logger.WarnContext(work, "failed to release eviction sweep lock", "error", err)
			}
		}()
	}

	snapshots, err := s.lister.GetAllProperties(work)
	if err != nil {
		s.logger.ErrorContext(work, "failed to load properties for eviction sweep", "error", err)
		span.RecordError(err)
		s.finish(span, resultError, report, started)
		return report, fmt.Errorf("load properties: %w", err)
	}

	for _, snap := range snapshots {
		if ctx.Err() != nil {
			s.logger.InfoContext(work, "eviction sweep interrupted by shutdown",
				"evaluated", report.Evaluated)
			break
		}
		if !snap.IsRented() {
			continue
		}
		report.Evaluated++
		if !s.evictor.EvictionEligible(snap, started) {
			continue
		}
		report.Eligible++
		report.Candidates = append(report.Candidates, snap.ID())
		if s.dryRun {
			continue
		}

		evicted, err := s.evictor.EvictIfEligible(work, snap.ID(), started)
		if err != nil {
			report.Failed++
			s.logger.ErrorContext(work, "failed to evict property",
				"property_id", snap.ID(),
				"error", err,
			)
			continue
		}
		if evicted {
			report.Evicted++
		}
	}

	s.finish(span, resultOK, report, started)
	return report, nil
}

func (s *Scheduler) finish(span trace.Span, result string, report SweepReport, started time.Time) {
	finished := s.clock()
	span.SetAttributes(
		attribute.String("sweep.result", result),
		attribute.Int("sweep.evaluated", report.Evaluated),
		attribute.Int("sweep.evicted", report.Evicted),
		attribute.Int("sweep.failed", report.Failed),
	)
	if result == resultError {
		span.SetStatus(codes.Error, "eviction sweep failed")
	}
	s.metrics.ObserveSweep(result, report.Evicted, report.Failed, finished.Sub(started), finished)
}
