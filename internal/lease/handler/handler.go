// Package handler exposes lease commands over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leasehold/internal/lease/models"
	"leasehold/internal/lease/policy"
	"leasehold/internal/lease/service"
	"leasehold/internal/platform/metrics"
	"leasehold/internal/platform/middleware"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/clock"
	"leasehold/pkg/platform/httputil"
	"leasehold/pkg/platform/middleware/requesttime"
	"leasehold/pkg/platform/sentinel"
)

const (
	codeInvalidRequest = "invalid_request"
	codeNotFound       = "not_found"

	defaultTimeout = 30 * time.Second
)

// Service is the lease service as seen by HTTP callers.
type Service interface {
	GetProperty(ctx context.Context, propertyID id.PropertyID) (*models.PropertySnapshot, error)
	Execute(ctx context.Context, cmd service.Command) models.CommandResult
}

// Handler serves the lease command API.
type Handler struct {
	logger  *slog.Logger
	leases  Service
	metrics *metrics.Metrics
	timeout time.Duration
	clock   clock.Clock
}

type Option func(*Handler)

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(h *Handler) {
		h.clock = c
	}
}

func New(leases Service, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		logger:  logger,
		leases:  leases,
		metrics: m,
		timeout: defaultTimeout,
		clock:   clock.System(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the property routes on r.
func (h *Handler) Register(r chi.Router) {
	leaseRouter := chi.NewRouter()
	leaseRouter.Use(middleware.Recovery(h.logger))
	leaseRouter.Use(middleware.RequestID)
	leaseRouter.Use(requesttime.WithClock(h.clock))
	leaseRouter.Use(middleware.Logger(h.logger))
	leaseRouter.Use(middleware.Timeout(h.timeout))
	leaseRouter.Use(middleware.ContentTypeJSON)
	leaseRouter.Use(middleware.LatencyMiddleware(h.metrics))

	leaseRouter.Get("/properties/{propertyID}", h.handleGetProperty)
	leaseRouter.Post("/properties/{propertyID}/rent", h.handlePayRent)
	leaseRouter.Post("/properties/{propertyID}/evict", h.handleEvict)
	leaseRouter.Post("/properties/{propertyID}/admission", h.handleAdmission)

	r.Mount("/", leaseRouter)
}

type payRentRequest struct {
	PersonaID     string `json:"persona_id"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type evictRequest struct {
	Reason string `json:"reason,omitempty"`
}

type admissionRequest struct {
	PersonaID           string `json:"persona_id,omitempty"`
	PaymentMethod       string `json:"payment_method"`
	HasCoinhouseAccount bool   `json:"has_coinhouse_account"`
	HasSufficientFunds  bool   `json:"has_sufficient_funds"`
}

func (h *Handler) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	propertyID, ok := h.propertyID(w, r)
	if !ok {
		return
	}

	snap, err := h.leases.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, codeNotFound, models.MsgPropertyNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load property",
			"request_id", middleware.GetRequestID(ctx),
			"property_id", propertyID,
			"error", err,
		)
		httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, "")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handlePayRent(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.propertyID(w, r)
	if !ok {
		return
	}
	var req payRentRequest
	if !h.decode(w, r, &req) {
		return
	}
	payer, err := id.ParsePersonaID(req.PersonaID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "persona_id must be a UUID")
		return
	}
	var method id.PaymentMethod
	if req.PaymentMethod != "" {
		if method, err = id.ParsePaymentMethod(req.PaymentMethod); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}
	}

	h.execute(w, r, service.PayRent{PropertyID: propertyID, Payer: payer, Method: method})
}

func (h *Handler) handleEvict(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.propertyID(w, r)
	if !ok {
		return
	}
	var req evictRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	h.execute(w, r, service.Evict{PropertyID: propertyID, Reason: req.Reason})
}

func (h *Handler) handleAdmission(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.propertyID(w, r)
	if !ok {
		return
	}
	var req admissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	method, err := id.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	var requester id.PersonaID
	if req.PersonaID != "" {
		if requester, err = id.ParsePersonaID(req.PersonaID); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "persona_id must be a UUID")
			return
		}
	}

	h.execute(w, r, service.EvaluateAdmission{
		PropertyID: propertyID,
		Requester:  requester,
		Request:    policy.AdmissionRequest{PaymentMethod: method},
		Capability: policy.PaymentCapability{
			HasQualifyingAccount: req.HasCoinhouseAccount,
			HasSufficientFunds:   req.HasSufficientFunds,
		},
	})
}

// execute runs cmd and writes its CommandResult with a matching status.
func (h *Handler) execute(w http.ResponseWriter, r *http.Request, cmd service.Command) {
	result := h.leases.Execute(r.Context(), cmd)
	httputil.WriteJSON(w, statusFor(result), result)
}

func statusFor(result models.CommandResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorMessage {
	case models.MsgPropertyNotFound:
		return http.StatusNotFound
	case models.MsgInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) propertyID(w http.ResponseWriter, r *http.Request) (id.PropertyID, bool) {
	propertyID, err := id.ParsePropertyID(chi.URLParam(r, "propertyID"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "property id must be a UUID")
		return id.PropertyID{}, false
	}
	return propertyID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid lease request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		httputil.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return false
	}
	return true
}
