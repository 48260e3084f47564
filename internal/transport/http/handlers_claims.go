package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/platform/middleware"
	"lingkod/internal/request/service"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/requestcontext"
)

// ClaimHandler serves the counter-side verification endpoints.
type ClaimHandler struct {
	requests RequestService
	logger   *slog.Logger
}

func NewClaimHandler(requests RequestService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{requests: requests, logger: logger}
}

func (h *ClaimHandler) Register(r chi.Router) {
	r.Post("/claims/verify", h.handleVerify)
	r.Post("/claims/confirm", h.handleConfirm)
}

type verifyClaimBody struct {
	RequestID string `json:"request_id"`
	Token     string `json:"token"`
	Code      string `json:"code"`
}

func (b verifyClaimBody) toInput() (service.PickupInput, error) {
	in := service.PickupInput{Token: b.Token, Code: b.Code}
	if b.RequestID != "" {
		requestID, err := id.ParseRequestID(b.RequestID)
		if err != nil {
			return service.PickupInput{}, err
		}
		in.RequestID = requestID
	}
	return in, nil
}

// handleVerify checks a presented credential without consuming it. Failed
// attempts are logged with the client address; the submitted code never is.
func (h *ClaimHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "no acting user"))
		return
	}
	var body verifyClaimBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	verification, err := h.requests.VerifyPickup(ctx, actor, in)
	if err != nil {
		h.logVerifyFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"request_id":     verification.RequestID.String(),
		"request_number": verification.RequestNumber,
		"resident_id":    verification.ResidentID.String(),
	})
}

// handleConfirm verifies and completes the handover in one call.
func (h *ClaimHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "no acting user"))
		return
	}
	var body verifyClaimBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := h.requests.ConfirmPickup(ctx, actor, in)
	if err != nil {
		h.logVerifyFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *ClaimHandler) logVerifyFailure(r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "pickup verification failed",
		"request_id", middleware.GetRequestID(ctx),
		"reason", string(dErrors.CodeOf(err)),
		"client_ip", requestcontext.ClientIP(ctx),
		"user_agent", requestcontext.UserAgent(ctx),
	)
}
