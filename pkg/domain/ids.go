// Package domain holds shared identifier types used across features.
//
// IDs are distinct types over uuid.UUID so a ResidentID cannot be passed
// where a RequestID is expected. Construct from external input via the
// Parse helpers; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "lingkod/pkg/domain-errors"
)

type (
	// RequestID identifies a document request aggregate.
	RequestID uuid.UUID
	// ResidentID identifies the requesting resident.
	ResidentID uuid.UUID
	// DocumentTypeID identifies a document type reference record.
	DocumentTypeID uuid.UUID
	// MunicipalityID identifies the municipality a request belongs to.
	MunicipalityID uuid.UUID
	// BarangayID identifies the barangay a request belongs to.
	BarangayID uuid.UUID
)

func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id ResidentID) String() string     { return uuid.UUID(id).String() }
func (id DocumentTypeID) String() string { return uuid.UUID(id).String() }
func (id MunicipalityID) String() string { return uuid.UUID(id).String() }
func (id BarangayID) String() string     { return uuid.UUID(id).String() }

func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ResidentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MunicipalityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BarangayID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewRequestID allocates a fresh request identifier.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// ParseRequestID validates external input into a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

// ParseResidentID validates external input into a ResidentID.
func ParseResidentID(s string) (ResidentID, error) {
	u, err := parseUUID(s, "resident id")
	return ResidentID(u), err
}

// ParseDocumentTypeID validates external input into a DocumentTypeID.
func ParseDocumentTypeID(s string) (DocumentTypeID, error) {
	u, err := parseUUID(s, "document type id")
	return DocumentTypeID(u), err
}

// ParseBarangayID validates external input into a BarangayID.
func ParseBarangayID(s string) (BarangayID, error) {
	u, err := parseUUID(s, "barangay id")
	return BarangayID(u), err
}

// ParseMunicipalityID validates external input into a MunicipalityID.
func ParseMunicipalityID(s string) (MunicipalityID, error) {
	u, err := parseUUID(s, "municipality id")
	return MunicipalityID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be the nil UUID")
	}
	return u, nil
}
