// Package service executes lease commands against the property repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leasehold/internal/lease/metrics"
	"leasehold/internal/lease/models"
	"leasehold/internal/lease/policy"
	"leasehold/internal/lease/ports"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/audit"
	"leasehold/pkg/platform/clock"
	"leasehold/pkg/platform/sentinel"
	"leasehold/pkg/requestcontext"
)

const (
	defaultMaxAttempts = 3
	tracerName         = "leasehold/internal/lease/service"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

// EvictionReasonOverdue is recorded for evictions made by the sweep.
const EvictionReasonOverdue = "rent_overdue"

// Service runs lease commands. Each command reads the current snapshot,
// validates it, applies one transition and persists it. Version conflicts are
// retried from a fresh read.
type Service struct {
	repo              ports.Repository
	auditPublisher    ports.AuditPublisher
	logger            *slog.Logger
	metrics           *metrics.Metrics
	tracer            trace.Tracer
	clock             clock.Clock
	graceDaysOverride *int
	maxAttempts       int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithGraceDaysOverride replaces every property's grace window in eligibility checks.
func WithGraceDaysOverride(days *int) Option {
	return func(s *Service) {
		s.graceDaysOverride = days
	}
}

// WithMaxAttempts bounds how many times a command is tried on version conflicts.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func New(repo ports.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("property repository is required")
	}
	s := &Service{
		repo:        repo,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		clock:       clock.System(),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Execute dispatches cmd to its typed handler.
func (s *Service) Execute(ctx context.Context, cmd Command) models.CommandResult {
	switch c := cmd.(type) {
	case PayRent:
		return s.PayRent(ctx, c)
	case *PayRent:
		return s.PayRent(ctx, *c)
	case Evict:
		return s.Evict(ctx, c)
	case *Evict:
		return s.Evict(ctx, *c)
	case EvaluateAdmission:
		return s.EvaluateAdmission(ctx, c)
	case *EvaluateAdmission:
		return s.EvaluateAdmission(ctx, *c)
	default:
		s.logger.WarnContext(ctx, "unknown lease command", "command", fmt.Sprintf("%T", cmd))
		return models.Failed(models.MsgUnknownCommand)
	}
}

// GetProperty returns the current snapshot, or sentinel.ErrNotFound.
func (s *Service) GetProperty(ctx context.Context, propertyID id.PropertyID) (*models.PropertySnapshot, error) {
	snap, err := s.repo.GetSnapshot(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("property %s: %w", propertyID, sentinel.ErrNotFound)
	}
	return snap, nil
}

// PayRent records a rent payment. The next due date is computed from the
// current due date, so late payments never shorten the following period.
func (s *Service) PayRent(ctx context.Context, cmd PayRent) models.CommandResult {
	ctx, span := s.startSpan(ctx, cmd, cmd.PropertyID)
	defer span.End()

	result := s.retrying(ctx, cmd.CommandName(), func(ctx context.Context) (models.CommandResult, error) {
		snap, err := s.repo.GetSnapshot(ctx, cmd.PropertyID)
		if err != nil {
			return models.CommandResult{}, err
		}
		if snap == nil {
			return models.Failed(models.MsgPropertyNotFound), nil
		}
		if msg := snap.CanPayRent(cmd.Payer, cmd.Method); msg != "" {
			return models.Failed(msg), nil
		}

		nextDue := policy.CalculateNextDueDate(snap.ActiveRental.NextPaymentDueDate)
		updated, err := snap.ApplyRentPayment(nextDue)
		if err != nil {
			return models.CommandResult{}, err
		}
		stored, err := s.repo.PersistRental(ctx, updated)
		if err != nil {
			return models.CommandResult{}, err
		}

		s.logger.InfoContext(ctx, "rent paid",
			"property_id", cmd.PropertyID,
			"tenant", cmd.Payer,
			"next_payment_due_date", nextDue,
		)
		s.emitAudit(ctx, audit.Event{
			Action:     string(audit.EventRentPaid),
			PropertyID: cmd.PropertyID,
			PersonaID:  cmd.Payer,
			Decision:   nextDue.String(),
		})
		return models.Succeeded(stored.ActiveRental), nil
	})
	s.finish(span, cmd.CommandName(), result)
	return result
}

// Evict vacates a property regardless of payment state. Vacant properties are
// a successful no-op; owned properties are refused.
func (s *Service) Evict(ctx context.Context, cmd Evict) models.CommandResult {
	ctx, span := s.startSpan(ctx, cmd, cmd.PropertyID)
	defer span.End()

	result := s.retrying(ctx, cmd.CommandName(), func(ctx context.Context) (models.CommandResult, error) {
		snap, err := s.repo.GetSnapshot(ctx, cmd.PropertyID)
		if err != nil {
			return models.CommandResult{}, err
		}
		if snap == nil {
			return models.Failed(models.MsgPropertyNotFound), nil
		}
		switch snap.Status {
		case models.StatusVacant:
			return models.Succeeded(*snap), nil
		case models.StatusOwned:
			return models.Failed(models.MsgOwnedNotEvictable), nil
		}

		stored, err := s.evict(ctx, *snap, cmd.Reason)
		if err != nil {
			return models.CommandResult{}, err
		}
		return models.Succeeded(stored), nil
	})
	s.finish(span, cmd.CommandName(), result)
	return result
}

// EvictIfEligible re-reads the property and evicts it only if it is still
// rented and eligible at evaluationTime. A rent payment or presence update that
// lands between the sweep's read and this call therefore wins.
func (s *Service) EvictIfEligible(ctx context.Context, propertyID id.PropertyID, evaluationTime time.Time) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "lease.evict_if_eligible",
		trace.WithAttributes(attribute.String("property_id", propertyID.String())))
	defer span.End()

	for attempt := 1; ; attempt++ {
		snap, err := s.repo.GetSnapshot(ctx, propertyID)
		if err != nil {
			return false, s.spanError(span, fmt.Errorf("load property: %w", err))
		}
		if snap == nil || !snap.IsRented() {
			return false, nil
		}
		if !s.EvictionEligible(*snap, evaluationTime) {
			return false, nil
		}

		_, err = s.evict(ctx, *snap, EvictionReasonOverdue)
		if err == nil {
			s.metrics.IncCommand(Evict{}.CommandName(), outcomeSuccess)
			return true, nil
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < s.maxAttempts {
			s.metrics.IncRetry(Evict{}.CommandName())
			continue
		}
		s.metrics.IncCommand(Evict{}.CommandName(), outcomeError)
		return false, s.spanError(span, err)
	}
}

// EvictionEligible applies the eviction policy to snap with this service's
// grace settings. Properties without a live tenancy are never eligible.
func (s *Service) EvictionEligible(snap models.PropertySnapshot, evaluationTime time.Time) bool {
	if !snap.IsRented() {
		return false
	}
	return policy.IsEvictionEligible(*snap.ActiveRental, snap.Definition, evaluationTime, s.graceDaysOverride)
}

func (s *Service) evict(ctx context.Context, snap models.PropertySnapshot, reason string) (models.PropertySnapshot, error) {
	var tenant id.PersonaID
	if snap.ActiveRental != nil {
		tenant = snap.ActiveRental.Tenant
	}
	vacated, err := snap.ApplyEviction()
	if err != nil {
		return snap, err
	}
	stored, err := s.repo.PersistRental(ctx, vacated)
	if err != nil {
		return snap, err
	}

	s.logger.InfoContext(ctx, "lease evicted",
		"property_id", snap.ID(),
		"tenant", tenant,
		"reason", reason,
	)
	s.emitAudit(ctx, audit.Event{
		Action:     string(audit.EventLeaseEvicted),
		PropertyID: snap.ID(),
		PersonaID:  tenant,
		Reason:     reason,
	})
	return stored, nil
}

// EvaluateAdmission runs the admission rules against the current snapshot. A
// denial is a successful evaluation; the decision is the result data.
func (s *Service) EvaluateAdmission(ctx context.Context, cmd EvaluateAdmission) models.CommandResult {
	ctx, span := s.startSpan(ctx, cmd, cmd.PropertyID)
	defer span.End()

	snap, err := s.repo.GetSnapshot(ctx, cmd.PropertyID)
	var result models.CommandResult
	switch {
	case err != nil:
		result = s.internalError(ctx, cmd.CommandName(), err)
	case snap == nil:
		result = models.Failed(models.MsgPropertyNotFound)
	default:
		decision := policy.EvaluateAdmission(cmd.Request, *snap, cmd.Capability)
		span.SetAttributes(attribute.Bool("admission.allowed", decision.Allowed))
		s.emitAudit(ctx, audit.Event{
			Action:     string(audit.EventAdmissionEvaluated),
			PropertyID: cmd.PropertyID,
			PersonaID:  cmd.Requester,
			Decision:   admissionOutcome(decision),
			Reason:     string(decision.Reason),
		})
		result = models.Succeeded(decision)
	}
	s.finish(span, cmd.CommandName(), result)
	return result
}

func admissionOutcome(d policy.Decision) string {
	if d.Allowed {
		return "allowed"
	}
	return "denied"
}

// retrying runs attempt until it returns a result, retrying version conflicts
// from a fresh read. Any other error becomes a generic failure.
func (s *Service) retrying(ctx context.Context, command string, attempt func(context.Context) (models.CommandResult, error)) models.CommandResult {
	for n := 1; ; n++ {
		result, err := attempt(ctx)
		if err == nil {
			return result
		}
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			if n < s.maxAttempts {
				s.metrics.IncRetry(command)
				s.logger.DebugContext(ctx, "version conflict, retrying", "command", command, "attempt", n)
				continue
			}
			s.logger.WarnContext(ctx, "giving up after version conflicts", "command", command, "attempts", n)
			return models.Failed(models.MsgConcurrentUpdate)
		case errors.Is(err, sentinel.ErrNotFound):
			return models.Failed(models.MsgPropertyNotFound)
		default:
			return s.internalError(ctx, command, err)
		}
	}
}

func (s *Service) internalError(ctx context.Context, command string, err error) models.CommandResult {
	s.logger.ErrorContext(ctx, "lease command failed",
		"command", command,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	s.metrics.IncCommand(command, outcomeError)
	return models.Failed(models.MsgInternalError)
}

// emitAudit never fails the command; audit problems are logged.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now(ctx)
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ActorID = requestcontext.Actor(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"property_id", event.PropertyID,
			"error", err,
		)
	}
}

func (s *Service) now(ctx context.Context) time.Time {
	if requestcontext.HasTime(ctx) {
		return requestcontext.Now(ctx)
	}
	return s.clock()
}

func (s *Service) startSpan(ctx context.Context, cmd Command, propertyID id.PropertyID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "lease."+cmd.CommandName(),
		trace.WithAttributes(
			attribute.String("lease.command", cmd.CommandName()),
			attribute.String("property_id", propertyID.String()),
		))
}

func (s *Service) finish(span trace.Span, command string, result models.CommandResult) {
	if result.Success {
		s.metrics.IncCommand(command, outcomeSuccess)
		return
	}
	span.SetStatus(codes.Error, result.ErrorMessage)
	if result.ErrorMessage != models.MsgInternalError {
		s.metrics.IncCommand(command, outcomeFailure)
	}
}

func (s *Service) spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
