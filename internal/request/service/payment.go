package service

import (
	"context"
	"log/slog"

	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/requestcontext"
)

// ManualPaymentAction advances the over-the-counter settlement flow.
type ManualPaymentAction string

const (
	// ActionSendPaymentID is staff issuing the payment reference the
	// resident settles against at the treasury counter.
	ActionSendPaymentID ManualPaymentAction = "send_payment_id"
	// ActionSubmitProof is the resident uploading the official receipt.
	ActionSubmitProof ManualPaymentAction = "submit_proof"
	// ActionApprove is staff confirming the receipt; it settles the fee.
	ActionApprove ManualPaymentAction = "approve"
	// ActionReject is staff declining the receipt; the resident may retry.
	ActionReject ManualPaymentAction = "reject"
)

// manualFlow lists the sub-states each action may fire from.
var manualFlow = map[ManualPaymentAction]map[models.ManualPaymentState]bool{
	ActionSendPaymentID: {models.ManualNotStarted: true, models.ManualRejected: true},
	ActionSubmitProof:   {models.ManualIDSent: true, models.ManualRejected: true},
	ActionApprove:       {models.ManualSubmitted: true},
	ActionReject:        {models.ManualSubmitted: true},
}

var manualResult = map[ManualPaymentAction]models.ManualPaymentState{
	ActionSendPaymentID: models.ManualIDSent,
	ActionSubmitProof:   models.ManualSubmitted,
	ActionApprove:       models.ManualApproved,
	ActionReject:        models.ManualRejected,
}

// AdvanceManualPayment moves the manual settlement sub-state machine.
// Staff drive send/approve/reject; the owning resident drives submit.
// Approval marks the fee paid; there is no timeout on any sub-state.
func (s *Service) AdvanceManualPayment(ctx context.Context, requestID id.RequestID, actor models.Actor, action ManualPaymentAction) (*models.DocumentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "request.AdvanceManualPayment")
	defer span.End()

	allowedFrom, ok := manualFlow[action]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown manual payment action")
	}

	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.guardManualPayment(req, actor, action); err != nil {
		return nil, err
	}
	if !allowedFrom[req.ManualPayment] {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			"manual payment is in state "+string(req.ManualPayment))
	}

	now := requestcontext.Now(ctx)
	req.ManualPayment = manualResult[action]
	req.ManualPaymentUpdatedAt = &now
	if action == ActionApprove {
		req.PaymentStatus = models.PaymentPaid
	}

	if err := s.update(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "manual payment advanced",
		slog.String("request_id", req.ID.String()),
		slog.String("action", string(action)),
		slog.String("state", string(req.ManualPayment)),
	)
	return req, nil
}

func (s *Service) guardManualPayment(req *models.DocumentRequest, actor models.Actor, action ManualPaymentAction) error {
	if req.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidTransition, "request is in a terminal status")
	}
	if req.PaymentMethod != models.PaymentMethodManual {
		return dErrors.New(dErrors.CodeInvalidTransition, "request is not on the manual payment path")
	}
	if req.PaymentSettled() {
		return dErrors.New(dErrors.CodeInvalidTransition, "the fee is already settled")
	}
	if req.FinalFee.IsZero() {
		return dErrors.New(dErrors.CodeInvalidTransition, "there is no fee to settle")
	}

	if action == ActionSubmitProof {
		if actor.Role != models.RoleResident || actor.UserID != req.ResidentID.String() {
			return dErrors.New(dErrors.CodeForbidden, "only the requesting resident may submit proof")
		}
		return nil
	}
	if !actor.Staff() {
		return dErrors.New(dErrors.CodeForbidden, "only staff may drive manual payment review")
	}
	if actor.BarangayScoped() && actor.BarangayID != req.BarangayID {
		return dErrors.New(dErrors.CodeForbidden, "request belongs to another barangay")
	}
	return nil
}
