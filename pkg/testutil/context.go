package testutil

import (
	"net/http"
	"time"

	"leasehold/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped "now", as the requesttime middleware would.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithActor sets who the request acts for.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}
