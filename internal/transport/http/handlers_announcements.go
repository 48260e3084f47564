package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/outbox"
	"lingkod/internal/platform/middleware"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
)

// Broadcaster is the outbox fan-out port.
type Broadcaster interface {
	EnqueueBroadcast(ctx context.Context, residentIDs []id.ResidentID, in outbox.EnqueueInput) (int, error)
}

// AnnouncementHandler fans a published announcement out to residents.
// Re-publishing the same announcement only fills gaps left by a prior
// partial send; residents already queued are not notified twice.
type AnnouncementHandler struct {
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewAnnouncementHandler(broadcaster Broadcaster, logger *slog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{broadcaster: broadcaster, logger: logger}
}

func (h *AnnouncementHandler) Register(r chi.Router) {
	r.Post("/announcements/broadcast", h.handleBroadcast)
}

type broadcastBody struct {
	AnnouncementID string   `json:"announcement_id"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Channel        string   `json:"channel"`
	ResidentIDs    []string `json:"resident_ids"`
}

func (h *AnnouncementHandler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "no acting user"))
		return
	}
	if !actor.Staff() {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "only staff publish announcements"))
		return
	}

	var body broadcastBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if body.AnnouncementID == "" || len(body.ResidentIDs) == 0 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "announcement id and resident ids are required"))
		return
	}
	channel := outbox.Channel(body.Channel)
	switch channel {
	case outbox.ChannelEmail, outbox.ChannelSMS:
	default:
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "channel must be email or sms"))
		return
	}

	residentIDs := make([]id.ResidentID, 0, len(body.ResidentIDs))
	for _, raw := range body.ResidentIDs {
		residentID, err := id.ParseResidentID(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		residentIDs = append(residentIDs, residentID)
	}

	queued, err := h.broadcaster.EnqueueBroadcast(ctx, residentIDs, outbox.EnqueueInput{
		Channel:   channel,
		EventType: outbox.EventAnnouncementPublished,
		EntityID:  body.AnnouncementID,
		Payload: map[string]string{
			"title": body.Title,
			"body":  body.Body,
		},
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "announcement broadcast failed",
			"request_id", middleware.GetRequestID(ctx),
			"announcement_id", body.AnnouncementID,
			"error", err.Error(),
		)
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not broadcast announcement"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}
