// Package service orchestrates the document request lifecycle: creation,
// guarded status transitions, evidence intake with fee recomputation, the
// manual payment flow, and pickup verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lingkod/internal/catalog"
	"lingkod/internal/claim"
	"lingkod/internal/fees"
	"lingkod/internal/outbox"
	"lingkod/internal/request/models"
	"lingkod/internal/request/store"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/requestcontext"
)

// DocumentTypes resolves reference data for issuable documents.
type DocumentTypes interface {
	DocumentType(ctx context.Context, docTypeID id.DocumentTypeID) (*catalog.DocumentType, error)
}

// SpecialStatuses resolves a resident's approved special statuses.
type SpecialStatuses interface {
	SpecialStatuses(ctx context.Context, residentID id.ResidentID) ([]catalog.SpecialStatus, error)
}

// Notifier is the outbox enqueue port.
type Notifier interface {
	Enqueue(ctx context.Context, in outbox.EnqueueInput) (outbox.EnqueueOutcome, error)
}

// Claims issues and verifies pickup credentials.
type Claims interface {
	Issue(requestID id.RequestID, now time.Time) (*claim.Ticket, error)
	ResolveRequestID(token string) (id.RequestID, error)
	Verify(ctx context.Context, requestID id.RequestID, cred claim.Credential, in claim.VerifyInput) error
	Consume(ctx context.Context, jti string, expiry *time.Time) error
	Reveal(encrypted string) (string, error)
}

// Service is the request orchestrator. All mutations load the aggregate,
// apply guards in a fixed order, and write back under the version check; a
// losing writer surfaces a conflict instead of clobbering the winner.
type Service struct {
	store    store.Store
	docTypes DocumentTypes
	statuses SpecialStatuses
	notifier Notifier
	claims   Claims
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

func NewService(
	st store.Store,
	docTypes DocumentTypes,
	statuses SpecialStatuses,
	notifier Notifier,
	claims Claims,
	logger *slog.Logger,
	metrics *Metrics,
) (*Service, error) {
	if st == nil {
		return nil, errors.New("request store is required")
	}
	if docTypes == nil {
		return nil, errors.New("document type source is required")
	}
	if statuses == nil {
		return nil, errors.New("special status source is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if claims == nil {
		return nil, errors.New("claim service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		docTypes: docTypes,
		statuses: statuses,
		notifier: notifier,
		claims:   claims,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("lingkod/request"),
	}, nil
}

// CreateInput describes a new document request.
type CreateInput struct {
	ResidentID     id.ResidentID
	DocumentTypeID id.DocumentTypeID
	MunicipalityID id.MunicipalityID
	BarangayID     id.BarangayID
	DeliveryMethod models.DeliveryMethod
	PurposeType    string
	BusinessType   string
	PaymentMethod  models.PaymentMethod
}

func (in CreateInput) validate() error {
	if in.ResidentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "resident id is required")
	}
	if in.DocumentTypeID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "document type id is required")
	}
	switch in.DeliveryMethod {
	case models.DeliveryDigital, models.DeliveryPickup:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "delivery method must be digital or pickup")
	}
	switch in.PaymentMethod {
	case models.PaymentMethodGateway, models.PaymentMethodManual, models.PaymentMethodNone, "":
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown payment method")
	}
	return nil
}

// Create opens a new request in pending with its initial fee computed.
// A zero fee is waived immediately; a positive fee starts pending under the
// chosen payment method.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.DocumentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "request.Create")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	docType, err := s.documentType(ctx, in.DocumentTypeID)
	if err != nil {
		return nil, err
	}
	if in.DeliveryMethod == models.DeliveryDigital && !docType.SupportsDigital {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document type does not support digital delivery")
	}

	now := requestcontext.Now(ctx)
	req := &models.DocumentRequest{
		ID:             id.NewRequestID(),
		ResidentID:     in.ResidentID,
		DocumentTypeID: in.DocumentTypeID,
		MunicipalityID: in.MunicipalityID,
		BarangayID:     in.BarangayID,
		DeliveryMethod: in.DeliveryMethod,
		Status:         models.StatusPending,
		PurposeType:    in.PurposeType,
		BusinessType:   in.BusinessType,
		PaymentMethod:  in.PaymentMethod,
		ManualPayment:  models.ManualNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodNone
	}

	if err := s.applyFee(ctx, req, docType, now); err != nil {
		return nil, err
	}

	if err := s.persistNew(ctx, req); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("request.id", req.ID.String()))
	s.logger.InfoContext(ctx, "request created",
		slog.String("request_id", req.ID.String()),
		slog.String("request_number", req.RequestNumber),
		slog.String("document_type", docType.Name),
		slog.String("final_fee", req.FinalFee.String()),
	)

	s.notify(ctx, req, outbox.EventRequestCreated, "", map[string]any{
		"request_number": req.RequestNumber,
		"document_type":  docType.Name,
		"status":         string(req.Status),
	})
	return req, nil
}

// persistNew retries the insert on request number collisions; the number is
// random, so a retry regenerates rather than reporting a conflict upward
// until the attempts are exhausted.
func (s *Service) persistNew(ctx context.Context, req *models.DocumentRequest) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := newRequestNumber(req.CreatedAt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "could not generate request number")
		}
		req.RequestNumber = number

		err = s.store.Create(ctx, req)
		if err == nil {
			return nil
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			continue
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not persist request")
	}
	return dErrors.New(dErrors.CodeConflict, "could not allocate a unique request number")
}

// Get loads a request, restricted to its owner and staff.
func (s *Service) Get(ctx context.Context, requestID id.RequestID, actor models.Actor) (*models.DocumentRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.guardVisibility(req, actor); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) load(ctx context.Context, requestID id.RequestID) (*models.DocumentRequest, error) {
	req, err := s.store.FindByID(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load request")
	}
	return req, nil
}

func (s *Service) documentType(ctx context.Context, docTypeID id.DocumentTypeID) (*catalog.DocumentType, error) {
	docType, err := s.docTypes.DocumentType(ctx, docTypeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "document type not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load document type")
	}
	return docType, nil
}

func (s *Service) guardVisibility(req *models.DocumentRequest, actor models.Actor) error {
	if actor.Staff() {
		if actor.BarangayScoped() && actor.BarangayID != req.BarangayID {
			return dErrors.New(dErrors.CodeForbidden, "request belongs to another barangay")
		}
		return nil
	}
	if actor.UserID != req.ResidentID.String() {
		return dErrors.New(dErrors.CodeForbidden, "request belongs to another resident")
	}
	return nil
}

// applyFee recomputes the fee on the aggregate and reconciles payment state
// with the result. Returns whether the final fee changed.
func (s *Service) applyFee(ctx context.Context, req *models.DocumentRequest, docType *catalog.DocumentType, now time.Time) error {
	statuses, err := s.statuses.SpecialStatuses(ctx, req.ResidentID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not load special statuses")
	}

	result := fees.Compute(
		docType,
		req.PurposeType,
		req.BusinessType,
		req.RequirementsComplete(docType),
		statuses,
		now,
	)

	feeChanged := !req.FinalFee.Equal(result.FinalFee)
	req.OriginalFee = result.OriginalFee
	req.AppliedExemption = result.ExemptionType
	req.FinalFee = result.FinalFee

	// A fee change invalidates an in-flight manual settlement: the amount
	// the resident was quoted no longer holds.
	if feeChanged && req.PaymentMethod == models.PaymentMethodManual &&
		req.ManualPayment != models.ManualNotStarted && !req.PaymentSettled() {
		req.ManualPayment = models.ManualNotStarted
		req.ManualPaymentUpdatedAt = &now
	}

	switch {
	case req.FinalFee.IsZero() && req.PaymentStatus != models.PaymentPaid:
		req.PaymentStatus = models.PaymentWaived
	case !req.FinalFee.IsZero() && req.PaymentStatus == models.PaymentWaived:
		req.PaymentStatus = models.PaymentPending
	case req.PaymentStatus == "":
		req.PaymentStatus = models.PaymentPending
	}

	if feeChanged {
		s.metrics.feeRecompute("changed")
	} else {
		s.metrics.feeRecompute("unchanged")
	}
	return nil
}

// notify enqueues a notification on every channel the resident can receive.
// Outbox failures are logged, not surfaced: the state change already
// committed and the dedupe key lets a later replay fill the gap.
func (s *Service) notify(ctx context.Context, req *models.DocumentRequest, event outbox.EventType, suffix string, payload map[string]any) {
	for _, channel := range []outbox.Channel{outbox.ChannelEmail, outbox.ChannelSMS} {
		_, err := s.notifier.Enqueue(ctx, outbox.EnqueueInput{
			ResidentID:   req.ResidentID,
			Channel:      channel,
			EventType:    event,
			EntityID:     req.ID.String(),
			Payload:      payload,
			DedupeSuffix: suffix,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to enqueue notification",
				slog.String("request_id", req.ID.String()),
				slog.String("event_type", string(event)),
				slog.String("channel", string(channel)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// update writes the aggregate back and maps a lost version race to a
// conflict the transport can translate.
func (s *Service) update(ctx context.Context, req *models.DocumentRequest) error {
	req.UpdatedAt = requestcontext.Now(ctx)
	err := s.store.Update(ctx, req)
	if errors.Is(err, sentinel.ErrConflict) {
		s.metrics.conflict()
		return dErrors.New(dErrors.CodeConflict, "request was modified concurrently, retry with fresh state")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not persist request")
	}
	return nil
}

func statusChangePayload(req *models.DocumentRequest) map[string]any {
	payload := map[string]any{
		"request_number": req.RequestNumber,
		"status":         string(req.Status),
	}
	if req.RejectionReason != "" {
		payload["rejection_reason"] = req.RejectionReason
	}
	return payload
}
