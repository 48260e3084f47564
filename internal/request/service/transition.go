package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"lingkod/internal/catalog"
	"lingkod/internal/claim"
	"lingkod/internal/outbox"
	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/requestcontext"
)

// TransitionInput describes a requested status move.
type TransitionInput struct {
	Target          models.Status
	RejectionReason string
}

// SubmitTransition moves a request to a new status.
//
// Guard order is fixed: reachability, then actor authority, then evidence
// completeness, then the payment gate. The first failing guard determines
// the error; no partial state is written when any guard fails. A transition
// to the current status is an idempotent no-op with no side effects.
func (s *Service) SubmitTransition(ctx context.Context, requestID id.RequestID, actor models.Actor, in TransitionInput) (*models.DocumentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "request.SubmitTransition")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", requestID.String()),
		attribute.String("request.target_status", string(in.Target)),
	)

	if !in.Target.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown target status")
	}

	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status == in.Target {
		s.metrics.transition(string(in.Target), "noop")
		return req, nil
	}

	docType, err := s.documentType(ctx, req.DocumentTypeID)
	if err != nil {
		return nil, err
	}

	if err := guardTransition(req, docType, actor, in); err != nil {
		s.metrics.transition(string(in.Target), "rejected")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	s.applyTransition(req, in, now)

	var ticket *claim.Ticket
	if in.Target == models.StatusReady && req.DeliveryMethod == models.DeliveryPickup && !req.Claim.Issued() {
		issued, err := s.issueClaim(ctx, req, now)
		if err != nil {
			return nil, err
		}
		ticket = issued
	}

	if err := s.update(ctx, req); err != nil {
		s.metrics.transition(string(in.Target), "conflict")
		return nil, err
	}
	s.metrics.transition(string(in.Target), "applied")

	s.logger.InfoContext(ctx, "request transitioned",
		slog.String("request_id", req.ID.String()),
		slog.String("status", string(req.Status)),
		slog.String("actor_role", string(actor.Role)),
	)

	s.notify(ctx, req, outbox.EventStatusChanged, string(req.Status), statusChangePayload(req))
	if ticket != nil {
		// The resident receives the full code and QR token through their own
		// channel; the aggregate keeps only the derived forms.
		s.notify(ctx, req, outbox.EventClaimReady, "", map[string]any{
			"request_number":      req.RequestNumber,
			"code":                ticket.Code,
			"token":               ticket.Token,
			"pickup_window_start": req.Claim.PickupWindowStart,
			"pickup_window_end":   req.Claim.PickupWindowEnd,
		})
	}
	return req, nil
}

// guardTransition evaluates every precondition without touching the
// aggregate. Order matters: reachability, authority, evidence, payment.
func guardTransition(req *models.DocumentRequest, docType *catalog.DocumentType, actor models.Actor, in TransitionInput) error {
	if req.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidTransition, "request is in a terminal status")
	}
	if !req.Status.CanTransition(in.Target) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move from "+string(req.Status)+" to "+string(in.Target))
	}
	if isRejection(in.Target) && in.RejectionReason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "a rejection requires a reason")
	}

	if err := guardAuthority(req, docType, actor, in.Target); err != nil {
		return err
	}

	if models.RequiresCompleteEvidence(in.Target) && !req.RequirementsComplete(docType) {
		return dErrors.New(dErrors.CodeRequirementsIncomplete, "required evidence has not been submitted")
	}

	if req.PaymentGateBlocks(in.Target) {
		return dErrors.New(dErrors.CodePaymentRequired, "the request fee has not been settled")
	}
	return nil
}

func guardAuthority(req *models.DocumentRequest, docType *catalog.DocumentType, actor models.Actor, target models.Status) error {
	switch actor.Role {
	case models.RoleResident:
		if actor.UserID != req.ResidentID.String() {
			return dErrors.New(dErrors.CodeForbidden, "request belongs to another resident")
		}
		if target != models.StatusCancelled {
			return dErrors.New(dErrors.CodeForbidden, "residents may only cancel their own request")
		}
		return nil
	case models.RoleBarangayStaff:
		if actor.BarangayID != req.BarangayID {
			return dErrors.New(dErrors.CodeForbidden, "request belongs to another barangay")
		}
		// Municipal documents pass through the barangay only for
		// endorsement; the fulfillment statuses stay with the municipality.
		if docType.AuthorityLevel == catalog.AuthorityMunicipal && !models.BarangayReachable(target) {
			return dErrors.New(dErrors.CodeForbidden, "barangay staff cannot move a municipal document to this status")
		}
		return nil
	case models.RoleMunicipalStaff:
		if actor.MunicipalityID != req.MunicipalityID {
			return dErrors.New(dErrors.CodeForbidden, "request belongs to another municipality")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeForbidden, "unknown actor role")
	}
}

func isRejection(target models.Status) bool {
	return target == models.StatusRejected || target == models.StatusBarangayRejected
}

func (s *Service) applyTransition(req *models.DocumentRequest, in TransitionInput, now time.Time) {
	req.Status = in.Target
	switch in.Target {
	case models.StatusApproved, models.StatusBarangayApproved:
		req.ApprovedAt = &now
	case models.StatusReady:
		req.ReadyAt = &now
	case models.StatusCompleted, models.StatusPickedUp:
		req.CompletedAt = &now
	case models.StatusRejected, models.StatusBarangayRejected:
		req.RejectionReason = in.RejectionReason
	}
}

// issueClaim attaches a fresh pickup credential set to the aggregate. Only
// derived forms are stored; the plaintext code reaches the resident through
// the claim-ready notification path and the owner reveal endpoint.
func (s *Service) issueClaim(ctx context.Context, req *models.DocumentRequest, now time.Time) (*claim.Ticket, error) {
	ticket, err := s.claims.Issue(req.ID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue claim ticket")
	}
	windowEnd := ticket.TokenExpiry
	req.Claim = models.ClaimData{
		CodeHash:          ticket.CodeHash,
		CodeEncrypted:     ticket.CodeEncrypted,
		CodeMasked:        ticket.CodeMasked,
		TokenJTI:          ticket.TokenJTI,
		TokenExpiry:       &ticket.TokenExpiry,
		PickupWindowStart: &now,
		PickupWindowEnd:   &windowEnd,
	}
	return ticket, nil
}
