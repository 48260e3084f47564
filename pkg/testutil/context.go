package testutil

import (
	"net/http"

	"lingkod/internal/platform/middleware"
	"lingkod/internal/request/models"
)

// WithActor injects the acting user into the request context, matching what
// the RequireActor middleware does for a forwarded identity. Handler tests
// use this to skip the header-parsing chain.
func WithActor(req *http.Request, actor models.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}
