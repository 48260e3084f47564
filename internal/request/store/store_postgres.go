package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"lingkod/internal/catalog"
	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists requests in the document_requests table.
// Requirements are a jsonb column; claim fields are flattened alongside the
// aggregate so a verify reads one row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `
	id, request_number, resident_id, document_type_id, municipality_id,
	barangay_id, delivery_method, status, rejection_reason, approved_at,
	ready_at, completed_at, purpose_type, business_type, original_fee,
	applied_exemption, final_fee, payment_status, payment_method,
	manual_payment_state, manual_payment_updated_at, requirements,
	claim_code_hash, claim_code_encrypted, claim_code_masked, claim_token_jti,
	claim_token_expiry, pickup_window_start, pickup_window_end, version,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.DocumentRequest) error {
	requirements, err := json.Marshal(req.Requirements)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}

	req.Version = 1
	query := `
		INSERT INTO document_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31, $32)`

	_, err = tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		req.ID.String(), req.RequestNumber, req.ResidentID.String(),
		req.DocumentTypeID.String(), req.MunicipalityID.String(),
		req.BarangayID.String(), string(req.DeliveryMethod),
		string(req.Status), req.RejectionReason, req.ApprovedAt, req.ReadyAt,
		req.CompletedAt, req.PurposeType, req.BusinessType,
		req.OriginalFee.String(), exemptionValue(req.AppliedExemption),
		req.FinalFee.String(), string(req.PaymentStatus),
		string(req.PaymentMethod), string(req.ManualPayment),
		req.ManualPaymentUpdatedAt, requirements, req.Claim.CodeHash,
		req.Claim.CodeEncrypted, req.Claim.CodeMasked, req.Claim.TokenJTI,
		req.Claim.TokenExpiry, req.Claim.PickupWindowStart,
		req.Claim.PickupWindowEnd, req.Version, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.DocumentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE id = $1`
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, requestID.String())
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	return req, nil
}

// Update writes the full aggregate guarded by the version the caller read.
// Zero rows affected means another writer got there first.
func (s *PostgresStore) Update(ctx context.Context, req *models.DocumentRequest) error {
	requirements, err := json.Marshal(req.Requirements)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}

	query := `
		UPDATE document_requests SET
			status = $3, rejection_reason = $4, approved_at = $5,
			ready_at = $6, completed_at = $7, original_fee = $8,
			applied_exemption = $9, final_fee = $10, payment_status = $11,
			payment_method = $12, manual_payment_state = $13,
			manual_payment_updated_at = $14, requirements = $15,
			claim_code_hash = $16, claim_code_encrypted = $17,
			claim_code_masked = $18, claim_token_jti = $19,
			claim_token_expiry = $20, pickup_window_start = $21,
			pickup_window_end = $22, version = version + 1, updated_at = $23
		WHERE id = $1 AND version = $2`

	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		req.ID.String(), req.Version, string(req.Status), req.RejectionReason,
		req.ApprovedAt, req.ReadyAt, req.CompletedAt,
		req.OriginalFee.String(), exemptionValue(req.AppliedExemption),
		req.FinalFee.String(), string(req.PaymentStatus),
		string(req.PaymentMethod), string(req.ManualPayment),
		req.ManualPaymentUpdatedAt, requirements, req.Claim.CodeHash,
		req.Claim.CodeEncrypted, req.Claim.CodeMasked, req.Claim.TokenJTI,
		req.Claim.TokenExpiry, req.Claim.PickupWindowStart,
		req.Claim.PickupWindowEnd, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	req.Version++
	return nil
}

func exemptionValue(ex *catalog.SpecialStatusType) any {
	if ex == nil {
		return nil
	}
	return string(*ex)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.DocumentRequest, error) {
	var (
		req              models.DocumentRequest
		reqID            string
		residentID       string
		docTypeID        string
		municipalityID   string
		barangayID       string
		deliveryMethod   string
		status           string
		originalFee      string
		appliedExemption sql.NullString
		finalFee         string
		paymentStatus    string
		paymentMethod    string
		manualState      string
		requirements     []byte
	)

	err := row.Scan(
		&reqID, &req.RequestNumber, &residentID, &docTypeID, &municipalityID,
		&barangayID, &deliveryMethod, &status, &req.RejectionReason,
		&req.ApprovedAt, &req.ReadyAt, &req.CompletedAt, &req.PurposeType,
		&req.BusinessType, &originalFee, &appliedExemption, &finalFee,
		&paymentStatus, &paymentMethod, &manualState,
		&req.ManualPaymentUpdatedAt, &requirements, &req.Claim.CodeHash,
		&req.Claim.CodeEncrypted, &req.Claim.CodeMasked, &req.Claim.TokenJTI,
		&req.Claim.TokenExpiry, &req.Claim.PickupWindowStart,
		&req.Claim.PickupWindowEnd, &req.Version, &req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.ID, err = id.ParseRequestID(reqID); err != nil {
		return nil, err
	}
	if req.ResidentID, err = id.ParseResidentID(residentID); err != nil {
		return nil, err
	}
	if req.DocumentTypeID, err = id.ParseDocumentTypeID(docTypeID); err != nil {
		return nil, err
	}
	if req.MunicipalityID, err = id.ParseMunicipalityID(municipalityID); err != nil {
		return nil, err
	}
	if req.BarangayID, err = id.ParseBarangayID(barangayID); err != nil {
		return nil, err
	}
	req.DeliveryMethod = models.DeliveryMethod(deliveryMethod)
	req.Status = models.Status(status)
	req.PaymentStatus = models.PaymentStatus(paymentStatus)
	req.PaymentMethod = models.PaymentMethod(paymentMethod)
	req.ManualPayment = models.ManualPaymentState(manualState)

	if req.OriginalFee, err = decimal.NewFromString(originalFee); err != nil {
		return nil, fmt.Errorf("parse original fee: %w", err)
	}
	if req.FinalFee, err = decimal.NewFromString(finalFee); err != nil {
		return nil, fmt.Errorf("parse final fee: %w", err)
	}
	if appliedExemption.Valid {
		ex := catalog.SpecialStatusType(appliedExemption.String)
		req.AppliedExemption = &ex
	}
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &req.Requirements); err != nil {
			return nil, fmt.Errorf("unmarshal requirements: %w", err)
		}
	}
	normalizeTimes(&req)
	return &req, nil
}

// normalizeTimes forces UTC so comparisons in callers do not depend on the
// session time zone.
func normalizeTimes(req *models.DocumentRequest) {
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	for _, t := range []**time.Time{
		&req.ApprovedAt, &req.ReadyAt, &req.CompletedAt,
		&req.ManualPaymentUpdatedAt, &req.Claim.TokenExpiry,
		&req.Claim.PickupWindowStart, &req.Claim.PickupWindowEnd,
	} {
		if *t != nil {
			utc := (**t).UTC()
			*t = &utc
		}
	}
}
