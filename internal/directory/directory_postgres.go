package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lingkod/internal/catalog"
	"lingkod/internal/outbox"
	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/platform/tx"
)

// PostgresDirectory reads the residents and resident_special_statuses tables
// maintained by the registry service.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Contact returns delivery endpoints with preference flags materialized.
// Email notifications default on, SMS defaults off.
func (d *PostgresDirectory) Contact(ctx context.Context, residentID id.ResidentID) (*outbox.Contact, error) {
	query := `
		SELECT COALESCE(email, ''), COALESCE(phone, ''),
			COALESCE(email_notifications, TRUE),
			COALESCE(sms_notifications, FALSE)
		FROM residents WHERE id = $1`

	var contact outbox.Contact
	err := tx.Resolve(ctx, d.db).QueryRowContext(ctx, query, residentID.String()).Scan(
		&contact.Email, &contact.Phone, &contact.EmailEnabled, &contact.SMSEnabled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find resident contact: %w", err)
	}
	return &contact, nil
}

// SpecialStatuses returns every approved status on record; activity windows
// are evaluated by the caller at computation time.
func (d *PostgresDirectory) SpecialStatuses(ctx context.Context, residentID id.ResidentID) ([]catalog.SpecialStatus, error) {
	query := `
		SELECT status_type, approved_at, expires_at
		FROM resident_special_statuses
		WHERE resident_id = $1 AND approved_at IS NOT NULL`

	rows, err := tx.Resolve(ctx, d.db).QueryContext(ctx, query, residentID.String())
	if err != nil {
		return nil, fmt.Errorf("list special statuses: %w", err)
	}
	defer rows.Close()

	var statuses []catalog.SpecialStatus
	for rows.Next() {
		status := catalog.SpecialStatus{ResidentID: residentID}
		var statusType string
		if err := rows.Scan(&statusType, &status.ApprovedAt, &status.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan special status: %w", err)
		}
		status.Type = catalog.SpecialStatusType(statusType)
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate special statuses: %w", err)
	}
	return statuses, nil
}
