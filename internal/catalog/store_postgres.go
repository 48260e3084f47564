package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/platform/tx"
)

// PostgresStore reads document types from the document_types table. The fee
// tiers and exemption rules are jsonb; the reference data is maintained by
// the catalog admin tooling, this store only reads it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DocumentType(ctx context.Context, docTypeID id.DocumentTypeID) (*DocumentType, error) {
	query := `
		SELECT id, name, base_fee, fee_tiers, exemption_rules, requirements,
			authority_level, supports_digital
		FROM document_types WHERE id = $1`

	var (
		docType        DocumentType
		rawID          string
		baseFee        string
		feeTiers       []byte
		exemptionRules []byte
		requirements   []byte
		authority      string
	)
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, docTypeID.String()).Scan(
		&rawID, &docType.Name, &baseFee, &feeTiers, &exemptionRules,
		&requirements, &authority, &docType.SupportsDigital,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document type: %w", err)
	}

	if docType.ID, err = id.ParseDocumentTypeID(rawID); err != nil {
		return nil, err
	}
	if docType.BaseFee, err = decimal.NewFromString(baseFee); err != nil {
		return nil, fmt.Errorf("parse base fee: %w", err)
	}
	docType.AuthorityLevel = AuthorityLevel(authority)
	if len(feeTiers) > 0 {
		if err := json.Unmarshal(feeTiers, &docType.FeeTiers); err != nil {
			return nil, fmt.Errorf("unmarshal fee tiers: %w", err)
		}
	}
	if len(exemptionRules) > 0 {
		if err := json.Unmarshal(exemptionRules, &docType.ExemptionRules); err != nil {
			return nil, fmt.Errorf("unmarshal exemption rules: %w", err)
		}
	}
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &docType.Requirements); err != nil {
			return nil, fmt.Errorf("unmarshal requirements: %w", err)
		}
	}
	return &docType, nil
}
