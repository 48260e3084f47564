package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"lingkod/internal/claim"
	"lingkod/internal/outbox"
	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/requestcontext"
)

// PickupInput carries whatever the counter received: a scanned QR token, a
// spoken code plus the request id, or both. When a token is present it is
// authoritative and an expired token fails even with a correct code.
type PickupInput struct {
	RequestID id.RequestID
	Token     string
	Code      string
}

// PickupVerification is what the counter sees after a successful check.
type PickupVerification struct {
	RequestID     id.RequestID
	RequestNumber string
	ResidentID    id.ResidentID
}

// VerifyPickup checks a presented claim credential without consuming it.
// Staff use it to look the resident up before handing anything over.
func (s *Service) VerifyPickup(ctx context.Context, actor models.Actor, in PickupInput) (*PickupVerification, error) {
	ctx, span := s.tracer.Start(ctx, "request.VerifyPickup")
	defer span.End()

	req, err := s.verifyPickup(ctx, actor, in)
	if err != nil {
		s.metrics.pickup("rejected")
		return nil, err
	}
	s.metrics.pickup("verified")
	return &PickupVerification{
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		ResidentID:    req.ResidentID,
	}, nil
}

// ConfirmPickup verifies the credential and hands the document over: the
// request moves to its terminal picked-up status and the token jti is
// consumed so a replayed credential cannot verify again.
func (s *Service) ConfirmPickup(ctx context.Context, actor models.Actor, in PickupInput) (*models.DocumentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "request.ConfirmPickup")
	defer span.End()

	req, err := s.verifyPickup(ctx, actor, in)
	if err != nil {
		s.metrics.pickup("rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("request.id", req.ID.String()))

	now := requestcontext.Now(ctx)
	req.Status = models.StatusPickedUp
	req.CompletedAt = &now
	if err := s.update(ctx, req); err != nil {
		s.metrics.pickup("conflict")
		return nil, err
	}
	s.metrics.pickup("confirmed")

	if err := s.claims.Consume(ctx, req.Claim.TokenJTI, req.Claim.TokenExpiry); err != nil {
		// The terminal status already blocks a second confirm; log and
		// continue rather than failing a completed handover.
		s.logger.ErrorContext(ctx, "failed to consume claim token",
			slog.String("request_id", req.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "document picked up",
		slog.String("request_id", req.ID.String()),
		slog.String("request_number", req.RequestNumber),
	)
	s.notify(ctx, req, outbox.EventStatusChanged, string(req.Status), statusChangePayload(req))
	return req, nil
}

func (s *Service) verifyPickup(ctx context.Context, actor models.Actor, in PickupInput) (*models.DocumentRequest, error) {
	if !actor.Staff() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only staff verify pickups")
	}

	requestID := in.RequestID
	if in.Token != "" {
		resolved, err := s.claims.ResolveRequestID(in.Token)
		if err != nil {
			return nil, err
		}
		if !requestID.IsNil() && requestID != resolved {
			return nil, dErrors.New(dErrors.CodeClaimMismatch, "claim token does not reference this request")
		}
		requestID = resolved
	}
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a request id or claim token is required")
	}

	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.BarangayScoped() && actor.BarangayID != req.BarangayID {
		return nil, dErrors.New(dErrors.CodeForbidden, "request belongs to another barangay")
	}
	if req.DeliveryMethod != models.DeliveryPickup {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "request is not a pickup delivery")
	}
	if req.Status != models.StatusReady {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "request is not ready for pickup")
	}
	if !req.Claim.Issued() {
		return nil, dErrors.New(dErrors.CodeClaimMismatch, "no claim ticket issued for this request")
	}
	if req.PaymentGateBlocks(models.StatusPickedUp) {
		return nil, dErrors.New(dErrors.CodePaymentRequired, "the request fee has not been settled")
	}

	cred := claim.Credential{
		CodeHash:    req.Claim.CodeHash,
		TokenJTI:    req.Claim.TokenJTI,
		TokenExpiry: req.Claim.TokenExpiry,
	}
	if err := s.claims.Verify(ctx, req.ID, cred, claim.VerifyInput{Token: in.Token, Code: in.Code}); err != nil {
		return nil, err
	}
	return req, nil
}

// RevealClaimCode decrypts the stored pickup code for the request owner.
// The plaintext is returned to the caller and never logged.
func (s *Service) RevealClaimCode(ctx context.Context, requestID id.RequestID, actor models.Actor) (string, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return "", err
	}
	if actor.Role != models.RoleResident || actor.UserID != req.ResidentID.String() {
		return "", dErrors.New(dErrors.CodeForbidden, "only the requesting resident may reveal the pickup code")
	}
	return s.claims.Reveal(req.Claim.CodeEncrypted)
}
