// Package fees computes the fee owed for a document request.
//
// Compute is side-effect-free and safe to re-run on every evidence upload.
// Callers decide whether a changed result invalidates in-flight payment
// state; that policy lives in the request service.
package fees

import (
	"time"

	"github.com/shopspring/decimal"

	"lingkod/internal/catalog"
)

// Result is the outcome of a fee computation.
type Result struct {
	OriginalFee   decimal.Decimal
	ExemptionType *catalog.SpecialStatusType
	FinalFee      decimal.Decimal
}

// Exempted reports whether an exemption zeroed the fee.
func (r Result) Exempted() bool { return r.ExemptionType != nil }

// Compute determines the fee owed.
//
// The base fee comes from the document type, overridden by a business-type
// tier when one matches. A zero base fee short-circuits before any status
// evaluation. Exemptions are only evaluated once all declared evidence is in;
// until then the base fee stands unexempted. Statuses are checked in the
// fixed order student, pwd, senior; the first active status whose rule
// applies wins and rules are never combined.
func Compute(
	docType *catalog.DocumentType,
	purposeType string,
	businessType string,
	requirementsSubmitted bool,
	statuses []catalog.SpecialStatus,
	now time.Time,
) Result {
	base := docType.BaseFee
	if businessType != "" {
		if tier, ok := docType.FeeTiers[businessType]; ok {
			base = tier
		}
	}

	if base.IsZero() {
		return Result{OriginalFee: base, FinalFee: decimal.Zero}
	}

	if !requirementsSubmitted {
		return Result{OriginalFee: base, FinalFee: base}
	}

	active := make(map[catalog.SpecialStatusType]bool, len(statuses))
	for _, s := range statuses {
		if s.IsActive(now) {
			active[s.Type] = true
		}
	}

	for _, statusType := range catalog.ExemptionPriority {
		if !active[statusType] {
			continue
		}
		rule, ok := docType.ExemptionRules[statusType]
		if !ok || !rule.Applies(purposeType) {
			continue
		}
		st := statusType
		return Result{OriginalFee: base, ExemptionType: &st, FinalFee: decimal.Zero}
	}

	return Result{OriginalFee: base, FinalFee: base}
}
