package httptransport

import (
	"time"

	"lingkod/internal/request/models"
)

// requestResponse is the wire shape of a document request. The claim block
// only ever carries derived forms; the plaintext code has its own
// owner-gated reveal endpoint.
type requestResponse struct {
	ID             string  `json:"id"`
	RequestNumber  string  `json:"request_number"`
	ResidentID     string  `json:"resident_id"`
	DocumentTypeID string  `json:"document_type_id"`
	MunicipalityID string  `json:"municipality_id"`
	BarangayID     string  `json:"barangay_id"`
	DeliveryMethod string  `json:"delivery_method"`
	Status         string  `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	PurposeType  string `json:"purpose_type,omitempty"`
	BusinessType string `json:"business_type,omitempty"`

	OriginalFee      string  `json:"original_fee"`
	AppliedExemption *string `json:"applied_exemption,omitempty"`
	FinalFee         string  `json:"final_fee"`

	PaymentStatus      string     `json:"payment_status"`
	PaymentMethod      string     `json:"payment_method"`
	ManualPaymentState string     `json:"manual_payment_state"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	ReadyAt            *time.Time `json:"ready_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	Requirements []requirementResponse `json:"requirements"`
	Claim        *claimResponse        `json:"claim,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type requirementResponse struct {
	Label       string    `json:"label"`
	Path        string    `json:"path"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type claimResponse struct {
	CodeMasked        string     `json:"code_masked"`
	PickupWindowStart *time.Time `json:"pickup_window_start,omitempty"`
	PickupWindowEnd   *time.Time `json:"pickup_window_end,omitempty"`
}

func toRequestResponse(req *models.DocumentRequest) requestResponse {
	resp := requestResponse{
		ID:                 req.ID.String(),
		RequestNumber:      req.RequestNumber,
		ResidentID:         req.ResidentID.String(),
		DocumentTypeID:     req.DocumentTypeID.String(),
		MunicipalityID:     req.MunicipalityID.String(),
		BarangayID:         req.BarangayID.String(),
		DeliveryMethod:     string(req.DeliveryMethod),
		Status:             string(req.Status),
		RejectionReason:    req.RejectionReason,
		PurposeType:        req.PurposeType,
		BusinessType:       req.BusinessType,
		OriginalFee:        req.OriginalFee.String(),
		FinalFee:           req.FinalFee.String(),
		PaymentStatus:      string(req.PaymentStatus),
		PaymentMethod:      string(req.PaymentMethod),
		ManualPaymentState: string(req.ManualPayment),
		ApprovedAt:         req.ApprovedAt,
		ReadyAt:            req.ReadyAt,
		CompletedAt:        req.CompletedAt,
		Requirements:       make([]requirementResponse, 0, len(req.Requirements)),
		Version:            req.Version,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
	}
	if req.AppliedExemption != nil {
		ex := string(*req.AppliedExemption)
		resp.AppliedExemption = &ex
	}
	for _, sub := range req.Requirements {
		resp.Requirements = append(resp.Requirements, requirementResponse{
			Label:       sub.RequirementLabel,
			Path:        sub.Path,
			SubmittedAt: sub.SubmittedAt,
		})
	}
	if req.Claim.Issued() {
		resp.Claim = &claimResponse{
			CodeMasked:        req.Claim.CodeMasked,
			PickupWindowStart: req.Claim.PickupWindowStart,
			PickupWindowEnd:   req.Claim.PickupWindowEnd,
		}
	}
	return resp
}
