// Package worker drains the notification outbox and hands entries to the
// external sender's Kafka topic. Multiple workers may run concurrently; the
// store's claim semantics guarantee no entry is delivered twice at once.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lingkod/internal/outbox"
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lingkod_outbox_deliveries_total",
	Help: "Outbox delivery attempts by result",
}, []string{"result"})

// Publisher hands a claimed entry to the downstream delivery channel.
type Publisher interface {
	Publish(ctx context.Context, entry *outbox.Entry) error
}

// Options tune the drain loop. Zero values fall back to defaults.
type Options struct {
	BatchSize    int
	PollInterval time.Duration
	ClaimLease   time.Duration
	BaseBackoff  time.Duration
	MaxAttempts  int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.ClaimLease <= 0 {
		o.ClaimLease = 30 * time.Second
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	return o
}

// Worker claims pending entries and publishes them.
type Worker struct {
	store     outbox.Store
	publisher Publisher
	logger    *slog.Logger
	opts      Options
}

func New(store outbox.Store, publisher Publisher, logger *slog.Logger, opts Options) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// Run drains the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce claims and delivers one batch. Delivery failures are recorded on
// the entry (attempts, backoff, eventually failed) and never abort the batch.
func (w *Worker) DrainOnce(ctx context.Context) error {
	now := time.Now()
	entries, err := w.store.ClaimPending(ctx, w.opts.BatchSize, now, w.opts.ClaimLease)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := w.publisher.Publish(ctx, entry); err != nil {
			w.recordFailure(ctx, entry, err, now)
			continue
		}
		if err := w.store.MarkSent(ctx, entry.ID, now); err != nil {
			w.logger.ErrorContext(ctx, "mark outbox entry sent failed",
				"entry_id", entry.ID, "error", err)
			continue
		}
		deliveries.WithLabelValues("sent").Inc()
	}
	return nil
}

func (w *Worker) recordFailure(ctx context.Context, entry *outbox.Entry, pubErr error, now time.Time) {
	attempts := entry.Attempts + 1
	if attempts >= w.opts.MaxAttempts {
		if err := w.store.MarkFailed(ctx, entry.ID, attempts, pubErr.Error()); err != nil {
			w.logger.ErrorContext(ctx, "mark outbox entry failed errored",
				"entry_id", entry.ID, "error", err)
			return
		}
		deliveries.WithLabelValues("failed").Inc()
		w.logger.WarnContext(ctx, "outbox entry exhausted attempts",
			"entry_id", entry.ID, "attempts", attempts, "error", pubErr)
		return
	}

	// Exponential backoff: base doubles per prior attempt.
	backoff := w.opts.BaseBackoff << (attempts - 1)
	if err := w.store.Reschedule(ctx, entry.ID, attempts, now.Add(backoff), pubErr.Error()); err != nil {
		w.logger.ErrorContext(ctx, "reschedule outbox entry errored",
			"entry_id", entry.ID, "error", err)
		return
	}
	deliveries.WithLabelValues("retried").Inc()
}
