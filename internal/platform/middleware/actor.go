package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
)

// The identity provider at the edge validates the resident or staff token
// and forwards its claims as headers. This middleware turns them into an
// explicit Actor value; services never read headers themselves.
const (
	headerUserID       = "X-User-ID"
	headerUserRole     = "X-User-Role"
	headerMunicipality = "X-Municipality-ID"
	headerBarangay     = "X-Barangay-ID"
)

type contextKeyActor struct{}

// GetActor retrieves the acting user from the context.
func GetActor(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor{}).(models.Actor)
	return actor, ok
}

// WithActor injects an actor into a context, for tests that skip the chain.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

// RequireActor rejects requests without a forwarded identity and stores the
// parsed Actor in context for handlers.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := actorFromHeaders(r)
			if err != nil {
				logger.WarnContext(r.Context(), "request without valid identity",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromHeaders(r *http.Request) (models.Actor, error) {
	userID := r.Header.Get(headerUserID)
	role := models.Role(r.Header.Get(headerUserRole))
	if userID == "" {
		return models.Actor{}, errMissingIdentity
	}
	switch role {
	case models.RoleResident, models.RoleBarangayStaff, models.RoleMunicipalStaff:
	default:
		return models.Actor{}, errUnknownRole
	}

	actor := models.Actor{UserID: userID, Role: role}
	if raw := r.Header.Get(headerMunicipality); raw != "" {
		municipalityID, err := id.ParseMunicipalityID(raw)
		if err != nil {
			return models.Actor{}, err
		}
		actor.MunicipalityID = municipalityID
	}
	if raw := r.Header.Get(headerBarangay); raw != "" {
		barangayID, err := id.ParseBarangayID(raw)
		if err != nil {
			return models.Actor{}, err
		}
		actor.BarangayID = barangayID
	}
	return actor, nil
}

var (
	errMissingIdentity = &identityError{"no forwarded identity"}
	errUnknownRole     = &identityError{"unknown role"}
)

type identityError struct{ msg string }

func (e *identityError) Error() string { return e.msg }
