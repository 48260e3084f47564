// Package outbox implements the durable notification outbox.
//
// The request service enqueues one entry per logical notification event;
// delivery workers drain pending entries and hand them to the external
// sender. The dedupe key is the sole idempotency mechanism: enqueueing the
// same logical event twice stores exactly one row no matter how often the
// triggering operation is retried.
package outbox

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	id "lingkod/pkg/domain"
)

// Channel is a delivery channel for resident notifications.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// EventType labels the business event behind a notification.
type EventType string

const (
	EventRequestCreated        EventType = "request_created"
	EventStatusChanged         EventType = "request_status_changed"
	EventClaimReady            EventType = "claim_ready"
	EventAnnouncementPublished EventType = "announcement_published"
)

// EntryStatus is the delivery bookkeeping state of an outbox row.
// Entries are never deleted; failed rows remain for audit and manual retry.
type EntryStatus string

const (
	EntryPending EntryStatus = "pending"
	EntrySent    EntryStatus = "sent"
	EntryFailed  EntryStatus = "failed"
)

// Entry is one durable notification awaiting delivery.
type Entry struct {
	ID            uuid.UUID
	ResidentID    id.ResidentID
	Channel       Channel
	EventType     EventType
	EntityID      string
	Payload       json.RawMessage
	Status        EntryStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	DedupeKey     string
	CreatedAt     time.Time
}

// DedupeKey builds the deterministic key identifying a logical notification
// event. The optional suffix distinguishes repeated events against the same
// entity, e.g. the target status of a status-change notification.
func DedupeKey(eventType EventType, entityID string, residentID id.ResidentID, channel Channel, suffix string) string {
	parts := []string{string(eventType), entityID, residentID.String(), string(channel)}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, ":")
}

// EnqueueOutcome reports what an enqueue call did.
type EnqueueOutcome string

const (
	OutcomeQueued    EnqueueOutcome = "queued"
	OutcomeDuplicate EnqueueOutcome = "duplicate"
	OutcomeSkipped   EnqueueOutcome = "skipped"
)

// Contact is a resident's delivery endpoints and channel preferences as
// reported by the resident directory. Email defaults on, SMS defaults off;
// the directory materializes those defaults into the flags.
type Contact struct {
	Email        string
	Phone        string
	EmailEnabled bool
	SMSEnabled   bool
}

// Reachable reports whether the contact can receive on the channel.
func (c Contact) Reachable(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.EmailEnabled && c.Email != ""
	case ChannelSMS:
		return c.SMSEnabled && c.Phone != ""
	default:
		return false
	}
}
