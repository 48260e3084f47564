// Package store persists DocumentRequest aggregates.
//
// Writes use optimistic concurrency: Update only succeeds when the stored
// version matches the version the caller read, and returns
// sentinel.ErrConflict otherwise. The caller re-reads and retries or
// surfaces the conflict; it never overwrites a concurrent transition.
package store

import (
	"context"

	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
)

type Store interface {
	// Create persists a new request. Returns sentinel.ErrAlreadyUsed when
	// the request number is already taken.
	Create(ctx context.Context, req *models.DocumentRequest) error
	// FindByID returns sentinel.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, requestID id.RequestID) (*models.DocumentRequest, error)
	// Update writes the aggregate conditioned on req.Version being the
	// persisted version; on success the stored version is bumped and
	// req.Version reflects it.
	Update(ctx context.Context, req *models.DocumentRequest) error
}
