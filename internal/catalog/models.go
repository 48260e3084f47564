// Package catalog holds read-only reference data consumed by the pipeline:
// document types with their fee and exemption policies, and resident special
// statuses. The pipeline never mutates these; they are maintained elsewhere.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	id "lingkod/pkg/domain"
)

// AuthorityLevel says which office can fulfill a document type.
type AuthorityLevel string

const (
	AuthorityMunicipal AuthorityLevel = "municipal"
	AuthorityBarangay  AuthorityLevel = "barangay"
)

// SpecialStatusType labels a resident attribute that can zero a fee.
type SpecialStatusType string

const (
	StatusStudent SpecialStatusType = "student"
	StatusPWD     SpecialStatusType = "pwd"
	StatusSenior  SpecialStatusType = "senior"
)

// ExemptionPriority is the fixed evaluation order for exemption rules.
// First match wins; rules are never combined.
var ExemptionPriority = []SpecialStatusType{StatusStudent, StatusPWD, StatusSenior}

// ExemptionRule is a per-document-type policy for one special status.
// Either unconditional, or conditioned on the request's purpose type.
type ExemptionRule struct {
	Unconditional   bool
	RequiresPurpose string
}

// Applies reports whether the rule zeroes the fee for the given purpose.
func (r ExemptionRule) Applies(purposeType string) bool {
	if r.Unconditional {
		return true
	}
	return r.RequiresPurpose != "" && r.RequiresPurpose == purposeType
}

// DocumentType describes an issuable document and its fee policy.
type DocumentType struct {
	ID              id.DocumentTypeID
	Name            string
	BaseFee         decimal.Decimal
	FeeTiers        map[string]decimal.Decimal
	ExemptionRules  map[SpecialStatusType]ExemptionRule
	Requirements    []string
	AuthorityLevel  AuthorityLevel
	SupportsDigital bool
}

// studentFallbackValidity bounds a student status that carries no explicit
// term-boundary expiry.
const studentFallbackValidity = 6 * 30 * 24 * time.Hour

// SpecialStatus is a resident's approved special status.
type SpecialStatus struct {
	ResidentID id.ResidentID
	Type       SpecialStatusType
	ApprovedAt *time.Time
	ExpiresAt  *time.Time
}

// IsActive derives validity from approval and expiry. PWD and senior
// statuses are permanent once approved; student statuses expire at the
// recorded term boundary, or the fallback window when none was set.
func (s SpecialStatus) IsActive(now time.Time) bool {
	if s.ApprovedAt == nil {
		return false
	}
	if s.Type != StatusStudent {
		return true
	}
	expiry := s.ApprovedAt.Add(studentFallbackValidity)
	if s.ExpiresAt != nil {
		expiry = *s.ExpiresAt
	}
	return now.Before(expiry)
}
