package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/requestcontext"
)

var enqueueOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lingkod_outbox_enqueue_total",
	Help: "Outbox enqueue calls by outcome",
}, []string{"outcome", "channel"})

// Store persists outbox entries. InsertIfAbsent must enforce dedupe-key
// uniqueness and report sentinel.ErrAlreadyUsed on a duplicate.
type Store interface {
	InsertIfAbsent(ctx context.Context, entry *Entry) error
	InsertBatch(ctx context.Context, entries []*Entry) error
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
	ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]*Entry, error)
	MarkSent(ctx context.Context, entryID uuid.UUID, at time.Time) error
	Reschedule(ctx context.Context, entryID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, entryID uuid.UUID, attempts int, lastError string) error
}

// ResidentDirectory supplies contact data and channel preferences. It is an
// external collaborator; the outbox only reads from it.
type ResidentDirectory interface {
	Contact(ctx context.Context, residentID id.ResidentID) (*Contact, error)
}

// Service guards the at-most-once enqueue contract.
type Service struct {
	store     Store
	directory ResidentDirectory
}

func NewService(store Store, directory ResidentDirectory) (*Service, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if directory == nil {
		return nil, errors.New("resident directory is required")
	}
	return &Service{store: store, directory: directory}, nil
}

// EnqueueInput describes one notification to queue.
type EnqueueInput struct {
	ResidentID   id.ResidentID
	Channel      Channel
	EventType    EventType
	EntityID     string
	Payload      any
	DedupeSuffix string
	// PublishAt defers delivery; zero means deliver as soon as a worker
	// picks the entry up.
	PublishAt time.Time
}

// Enqueue stores a notification unless the resident opted out of the
// channel, lacks contact data for it, or the same logical event was already
// queued. Re-running the triggering business operation therefore yields at
// most one stored row.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (EnqueueOutcome, error) {
	contact, err := s.directory.Contact(ctx, in.ResidentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			enqueueOutcomes.WithLabelValues(string(OutcomeSkipped), string(in.Channel)).Inc()
			return OutcomeSkipped, nil
		}
		return "", fmt.Errorf("look up resident contact: %w", err)
	}
	if !contact.Reachable(in.Channel) {
		enqueueOutcomes.WithLabelValues(string(OutcomeSkipped), string(in.Channel)).Inc()
		return OutcomeSkipped, nil
	}

	entry, err := s.buildEntry(ctx, in)
	if err != nil {
		return "", err
	}

	if err := s.store.InsertIfAbsent(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			enqueueOutcomes.WithLabelValues(string(OutcomeDuplicate), string(in.Channel)).Inc()
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("insert outbox entry: %w", err)
	}
	enqueueOutcomes.WithLabelValues(string(OutcomeQueued), string(in.Channel)).Inc()
	return OutcomeQueued, nil
}

// EnqueueBroadcast queues one notification per resident, e.g. a published
// announcement fanned out to every eligible resident. All candidate dedupe
// keys are checked in one batched store call so a prior partial send is not
// repeated and the fan-out does not cost one round-trip per resident.
func (s *Service) EnqueueBroadcast(ctx context.Context, residentIDs []id.ResidentID, in EnqueueInput) (queued int, err error) {
	candidates := make([]*Entry, 0, len(residentIDs))
	keys := make([]string, 0, len(residentIDs))
	for _, residentID := range residentIDs {
		contact, err := s.directory.Contact(ctx, residentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("look up resident contact: %w", err)
		}
		if !contact.Reachable(in.Channel) {
			continue
		}
		per := in
		per.ResidentID = residentID
		entry, err := s.buildEntry(ctx, per)
		if err != nil {
			return 0, err
		}
		candidates = append(candidates, entry)
		keys = append(keys, entry.DedupeKey)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	existing, err := s.store.ExistingKeys(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("check existing dedupe keys: %w", err)
	}

	fresh := candidates[:0]
	for _, entry := range candidates {
		if existing[entry.DedupeKey] {
			enqueueOutcomes.WithLabelValues(string(OutcomeDuplicate), string(in.Channel)).Inc()
			continue
		}
		fresh = append(fresh, entry)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := s.store.InsertBatch(ctx, fresh); err != nil {
		return 0, fmt.Errorf("insert outbox batch: %w", err)
	}
	enqueueOutcomes.WithLabelValues(string(OutcomeQueued), string(in.Channel)).Add(float64(len(fresh)))
	return len(fresh), nil
}

func (s *Service) buildEntry(ctx context.Context, in EnqueueInput) (*Entry, error) {
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}
	now := requestcontext.Now(ctx)
	nextAttempt := now
	if !in.PublishAt.IsZero() {
		nextAttempt = in.PublishAt
	}
	return &Entry{
		ID:            uuid.New(),
		ResidentID:    in.ResidentID,
		Channel:       in.Channel,
		EventType:     in.EventType,
		EntityID:      in.EntityID,
		Payload:       payload,
		Status:        EntryPending,
		Attempts:      0,
		NextAttemptAt: nextAttempt,
		DedupeKey:     DedupeKey(in.EventType, in.EntityID, in.ResidentID, in.Channel, in.DedupeSuffix),
		CreatedAt:     now,
	}, nil
}
