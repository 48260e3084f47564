package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/platform/middleware"
	"lingkod/internal/request/models"
	"lingkod/internal/request/service"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_requests.go -destination=mocks/requests-mocks.go -package=mocks RequestService

// RequestService defines the orchestrator operations the transport exposes.
type RequestService interface {
	Create(ctx context.Context, in service.CreateInput) (*models.DocumentRequest, error)
	Get(ctx context.Context, requestID id.RequestID, actor models.Actor) (*models.DocumentRequest, error)
	SubmitTransition(ctx context.Context, requestID id.RequestID, actor models.Actor, in service.TransitionInput) (*models.DocumentRequest, error)
	AttachRequirement(ctx context.Context, requestID id.RequestID, actor models.Actor, in service.AttachInput) (*models.DocumentRequest, error)
	RecomputeFee(ctx context.Context, requestID id.RequestID, actor models.Actor) (*models.DocumentRequest, error)
	AdvanceManualPayment(ctx context.Context, requestID id.RequestID, actor models.Actor, action service.ManualPaymentAction) (*models.DocumentRequest, error)
	RevealClaimCode(ctx context.Context, requestID id.RequestID, actor models.Actor) (string, error)
	VerifyPickup(ctx context.Context, actor models.Actor, in service.PickupInput) (*service.PickupVerification, error)
	ConfirmPickup(ctx context.Context, actor models.Actor, in service.PickupInput) (*models.DocumentRequest, error)
}

// RequestHandler serves the document request endpoints.
type RequestHandler struct {
	requests RequestService
	logger   *slog.Logger
}

func NewRequestHandler(requests RequestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, logger: logger}
}

// Register mounts the request routes. The actor middleware has already run;
// every handler resolves an explicit Actor before touching the service.
func (h *RequestHandler) Register(r chi.Router) {
	r.Post("/requests", h.handleCreate)
	r.Get("/requests/{id}", h.handleGet)
	r.Post("/requests/{id}/transition", h.handleTransition)
	r.Post("/requests/{id}/requirements", h.handleAttachRequirement)
	r.Post("/requests/{id}/fee:recompute", h.handleRecomputeFee)
	r.Post("/requests/{id}/payment/manual", h.handleManualPayment)
	r.Post("/requests/{id}/claim/reveal", h.handleRevealClaim)
}

type createRequestBody struct {
	ResidentID     string `json:"resident_id"`
	DocumentTypeID string `json:"document_type_id"`
	MunicipalityID string `json:"municipality_id"`
	BarangayID     string `json:"barangay_id"`
	DeliveryMethod string `json:"delivery_method"`
	PurposeType    string `json:"purpose_type"`
	BusinessType   string `json:"business_type"`
	PaymentMethod  string `json:"payment_method"`
}

func (h *RequestHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "no acting user"))
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	in := service.CreateInput{
		DeliveryMethod: models.DeliveryMethod(body.DeliveryMethod),
		PurposeType:    body.PurposeType,
		BusinessType:   body.BusinessType,
		PaymentMethod:  models.PaymentMethod(body.PaymentMethod),
	}
	var err error
	if in.ResidentID, err = id.ParseResidentID(body.ResidentID); err != nil {
		writeError(w, err)
		return
	}
	// Residents open requests for themselves; staff may open on behalf of a
	// resident at the counter.
	if actor.Role == models.RoleResident && actor.UserID != in.ResidentID.String() {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "cannot open a request for another resident"))
		return
	}
	if in.DocumentTypeID, err = id.ParseDocumentTypeID(body.DocumentTypeID); err != nil {
		writeError(w, err)
		return
	}
	if in.MunicipalityID, err = id.ParseMunicipalityID(body.MunicipalityID); err != nil {
		writeError(w, err)
		return
	}
	if in.BarangayID, err = id.ParseBarangayID(body.BarangayID); err != nil {
		writeError(w, err)
		return
	}

	req, err := h.requests.Create(ctx, in)
	if err != nil {
		h.logFailure(ctx, "create request", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(req))
}

func (h *RequestHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, requestID, err := h.actorAndID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.requests.Get(ctx, requestID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

type transitionBody struct {
	Target          string `json:"target"`
	RejectionReason string `json:"rejection_reason"`
}

func (h *RequestHandler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, requestID, err := h.actorAndID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body transitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req, err := h.requests.SubmitTransition(ctx, requestID, actor, service.TransitionInput{
		Target:          models.Status(body.Target),
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		h.logFailure(ctx, "submit transition", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

type attachRequirementBody struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

func (h *RequestHandler) handleAttachRequirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, requestID, err := h.actorAndID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body attachRequirementBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req, err := h.requests.AttachRequirement(ctx, requestID, actor, service.AttachInput{
		Label: body.Label,
		Path:  body.Path,
	})
	if err != nil {
		h.logFailure(ctx, "attach requirement", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) handleRecomputeFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, requestID, err := h.actorAndID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.requests.RecomputeFee(ctx, requestID, actor)
	if err != nil {
		h.logFailure(ctx, "recompute fee", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

type manualPaymentBody struct {
	Action string `json:"action"`
}

func (h *RequestHandler) handleManualPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, requestID, err := h.actorAndID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body manualPaymentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req, err := h.requests.AdvanceManualPayment(ctx, requestID, actor, service.ManualPaymentAction(body.Action))
	if err != nil {
		h.logFailure(ctx, "advance manual payment", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) handleRevealClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, requestID, err := h.actorAndID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	code, err := h.requests.RevealClaimCode(ctx, requestID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *RequestHandler) actorAndID(r *http.Request) (models.Actor, id.RequestID, error) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		return models.Actor{}, id.RequestID{}, dErrors.New(dErrors.CodeUnauthorized, "no acting user")
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		return models.Actor{}, id.RequestID{}, err
	}
	return actor, requestID, nil
}

func (h *RequestHandler) logFailure(ctx context.Context, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "operation failed",
			"request_id", middleware.GetRequestID(ctx),
			"operation", op,
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, "operation rejected",
		"request_id", middleware.GetRequestID(ctx),
		"operation", op,
		"reason", string(dErrors.CodeOf(err)),
	)
}
