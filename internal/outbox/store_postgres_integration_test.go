//go:build integration

package outbox_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lingkod/internal/outbox"
	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *outbox.PostgresStore
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = outbox.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresOutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "notification_outbox"))
}

func (s *PostgresOutboxSuite) newEntry() *outbox.Entry {
	entry := &outbox.Entry{
		ID:            uuid.New(),
		ResidentID:    id.ResidentID(uuid.New()),
		Channel:       outbox.ChannelEmail,
		EventType:     outbox.EventStatusChanged,
		EntityID:      uuid.NewString(),
		Payload:       []byte(`{"status":"approved"}`),
		Status:        outbox.EntryPending,
		NextAttemptAt: time.Now().UTC().Add(-time.Second),
		CreatedAt:     time.Now().UTC(),
	}
	entry.DedupeKey = outbox.DedupeKey(entry.EventType, entry.EntityID, entry.ResidentID, entry.Channel, "")
	return entry
}

func (s *PostgresOutboxSuite) TestDedupeKeyUnique() {
	ctx := context.Background()
	entry := s.newEntry()
	s.Require().NoError(s.store.InsertIfAbsent(ctx, entry))

	dupe := s.newEntry()
	dupe.ResidentID = entry.ResidentID
	dupe.EntityID = entry.EntityID
	dupe.DedupeKey = entry.DedupeKey
	err := s.store.InsertIfAbsent(ctx, dupe)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	existing, err := s.store.ExistingKeys(ctx, []string{entry.DedupeKey, "missing"})
	s.Require().NoError(err)
	s.True(existing[entry.DedupeKey])
	s.False(existing["missing"])
}

func (s *PostgresOutboxSuite) TestInsertBatchSkipsDuplicates() {
	ctx := context.Background()
	existing := s.newEntry()
	s.Require().NoError(s.store.InsertIfAbsent(ctx, existing))

	dupe := s.newEntry()
	dupe.DedupeKey = existing.DedupeKey
	fresh := s.newEntry()
	s.Require().NoError(s.store.InsertBatch(ctx, []*outbox.Entry{dupe, fresh}))

	keys, err := s.store.ExistingKeys(ctx, []string{existing.DedupeKey, fresh.DedupeKey})
	s.Require().NoError(err)
	s.True(keys[existing.DedupeKey])
	s.True(keys[fresh.DedupeKey])
}

func (s *PostgresOutboxSuite) TestClaimPendingIsExclusive() {
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		s.Require().NoError(s.store.InsertIfAbsent(ctx, s.newEntry()))
	}

	// Concurrent claimers must partition the batch with no overlap.
	const workers = 4
	now := time.Now().UTC()
	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.store.ClaimPending(ctx, 3, now, 30*time.Second)
			s.NoError(err)
			mu.Lock()
			defer mu.Unlock()
			for _, entry := range claimed {
				seen[entry.ID]++
			}
		}()
	}
	wg.Wait()

	s.Len(seen, 8, "every due entry claimed once")
	for entryID, count := range seen {
		s.Equal(1, count, "entry %s claimed more than once", entryID)
	}

	// Everything is leased out; a late claimer gets nothing.
	late, err := s.store.ClaimPending(ctx, 10, now, 30*time.Second)
	s.Require().NoError(err)
	s.Empty(late)
}

func (s *PostgresOutboxSuite) TestDeliveryBookkeeping() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Run("rescheduled entry comes due again with attempts recorded", func() {
		entry := s.newEntry()
		s.Require().NoError(s.store.InsertIfAbsent(ctx, entry))
		s.Require().NoError(s.store.Reschedule(ctx, entry.ID, 1, now.Add(-time.Second), "broker unavailable"))

		claimed, err := s.store.ClaimPending(ctx, 10, now, 30*time.Second)
		s.Require().NoError(err)
		s.Require().Len(claimed, 1)
		s.Equal(1, claimed[0].Attempts)
		s.Equal("broker unavailable", claimed[0].LastError)
		s.Require().NoError(s.store.MarkSent(ctx, entry.ID, now))
	})

	s.Run("sent and failed entries are never claimed", func() {
		sent := s.newEntry()
		s.Require().NoError(s.store.InsertIfAbsent(ctx, sent))
		s.Require().NoError(s.store.MarkSent(ctx, sent.ID, now))

		failed := s.newEntry()
		s.Require().NoError(s.store.InsertIfAbsent(ctx, failed))
		s.Require().NoError(s.store.MarkFailed(ctx, failed.ID, 5, "broker unavailable"))

		claimed, err := s.store.ClaimPending(ctx, 10, now.Add(time.Hour), 30*time.Second)
		s.Require().NoError(err)
		s.Empty(claimed)
	})

	s.Run("bookkeeping on a missing entry is not found", func() {
		s.Require().ErrorIs(s.store.MarkSent(ctx, uuid.New(), now), sentinel.ErrNotFound)
	})
}
