package models

import (
	"time"

	"github.com/shopspring/decimal"

	"lingkod/internal/catalog"
	id "lingkod/pkg/domain"
)

// DeliveryMethod says how the finished document reaches the resident.
type DeliveryMethod string

const (
	DeliveryDigital DeliveryMethod = "digital"
	DeliveryPickup  DeliveryMethod = "pickup"
)

// PaymentStatus tracks fee settlement on the aggregate.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentWaived  PaymentStatus = "waived"
)

// PaymentMethod records which settlement path the resident chose.
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodManual  PaymentMethod = "manual"
	PaymentMethodNone    PaymentMethod = "none"
)

// ManualPaymentState is the sub-state of the manual settlement flow.
// There is no automatic staleness timeout on these states; the updated-at
// timestamp is recorded so a policy can be added later.
type ManualPaymentState string

const (
	ManualNotStarted ManualPaymentState = "not_started"
	ManualIDSent     ManualPaymentState = "id_sent"
	ManualSubmitted  ManualPaymentState = "submitted"
	ManualApproved   ManualPaymentState = "approved"
	ManualRejected   ManualPaymentState = "rejected"
)

// RequirementSubmission is one piece of supporting evidence.
type RequirementSubmission struct {
	Path             string
	RequirementLabel string
	SubmittedAt      time.Time
}

// ClaimData holds the pickup credential fields on the aggregate. The code is
// stored three ways: hashed for verification, encrypted for owner reveal,
// masked for low-sensitivity display.
type ClaimData struct {
	CodeHash          string
	CodeEncrypted     string
	CodeMasked        string
	TokenJTI          string
	TokenExpiry       *time.Time
	PickupWindowStart *time.Time
	PickupWindowEnd   *time.Time
}

// Issued reports whether a claim ticket has been generated for this request.
func (c ClaimData) Issued() bool { return c.CodeHash != "" }

// DocumentRequest is the aggregate root of the fulfillment pipeline.
//
// Version implements optimistic concurrency: stores refuse a write unless
// the persisted version matches the one the caller read, so two racing
// transitions cannot both succeed against a stale status.
type DocumentRequest struct {
	ID             id.RequestID
	RequestNumber  string
	ResidentID     id.ResidentID
	DocumentTypeID id.DocumentTypeID
	MunicipalityID id.MunicipalityID
	BarangayID     id.BarangayID
	DeliveryMethod DeliveryMethod

	Status          Status
	RejectionReason string
	ApprovedAt      *time.Time
	ReadyAt         *time.Time
	CompletedAt     *time.Time

	PurposeType  string
	BusinessType string

	OriginalFee      decimal.Decimal
	AppliedExemption *catalog.SpecialStatusType
	FinalFee         decimal.Decimal

	PaymentStatus          PaymentStatus
	PaymentMethod          PaymentMethod
	ManualPayment          ManualPaymentState
	ManualPaymentUpdatedAt *time.Time

	Requirements []RequirementSubmission
	Claim        ClaimData

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentSettled reports whether the fee is settled. A zero final fee is
// always auto-waived by the fee recompute path, so pending + zero never
// persists; the explicit statuses remain the source of truth.
func (r *DocumentRequest) PaymentSettled() bool {
	return r.PaymentStatus == PaymentPaid || r.PaymentStatus == PaymentWaived
}

// RequirementsComplete checks the submitted evidence against the labels the
// document type declares. Extra submissions are ignored; every declared
// label must appear at least once.
func (r *DocumentRequest) RequirementsComplete(docType *catalog.DocumentType) bool {
	if len(docType.Requirements) == 0 {
		return true
	}
	submitted := make(map[string]bool, len(r.Requirements))
	for _, sub := range r.Requirements {
		submitted[sub.RequirementLabel] = true
	}
	for _, label := range docType.Requirements {
		if !submitted[label] {
			return false
		}
	}
	return true
}

// paymentGatedTargets lists the statuses an unsettled request may not enter,
// by delivery method. Digital requests are gated earlier because processing
// produces the deliverable itself.
var paymentGatedTargets = map[DeliveryMethod]map[Status]bool{
	DeliveryDigital: {
		StatusProcessing: true,
		StatusReady:      true,
		StatusCompleted:  true,
	},
	DeliveryPickup: {
		StatusReady:     true,
		StatusCompleted: true,
		StatusPickedUp:  true,
	},
}

// PaymentGateBlocks reports whether the payment gate rejects a move to
// target: a positive unsettled fee blocks the fulfillment statuses for the
// request's delivery method.
func (r *DocumentRequest) PaymentGateBlocks(target Status) bool {
	if r.FinalFee.LessThanOrEqual(decimal.Zero) || r.PaymentSettled() {
		return false
	}
	return paymentGatedTargets[r.DeliveryMethod][target]
}
