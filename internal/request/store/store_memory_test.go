package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"lingkod/internal/request/models"
	"lingkod/internal/request/store"
	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite

	store *store.InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
}

func (s *MemoryStoreSuite) newRequest(number string) *models.DocumentRequest {
	now := time.Now().UTC()
	return &models.DocumentRequest{
		ID:             id.NewRequestID(),
		RequestNumber:  number,
		ResidentID:     id.ResidentID(uuid.New()),
		DocumentTypeID: id.DocumentTypeID(uuid.New()),
		MunicipalityID: id.MunicipalityID(uuid.New()),
		BarangayID:     id.BarangayID(uuid.New()),
		DeliveryMethod: models.DeliveryPickup,
		Status:         models.StatusPending,
		OriginalFee:    decimal.NewFromInt(100),
		FinalFee:       decimal.NewFromInt(100),
		PaymentStatus:  models.PaymentPending,
		PaymentMethod:  models.PaymentMethodManual,
		ManualPayment:  models.ManualNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *MemoryStoreSuite) TestCreate() {
	ctx := context.Background()

	s.Run("create assigns version one", func() {
		req := s.newRequest("LGK-2026-AAAAAA")
		s.Require().NoError(s.store.Create(ctx, req))
		s.EqualValues(1, req.Version)

		found, err := s.store.FindByID(ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(req.RequestNumber, found.RequestNumber)
	})

	s.Run("request numbers are unique", func() {
		first := s.newRequest("LGK-2026-BBBBBB")
		s.Require().NoError(s.store.Create(ctx, first))

		dupe := s.newRequest("LGK-2026-BBBBBB")
		err := s.store.Create(ctx, dupe)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(ctx, id.NewRequestID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("matching version writes and bumps", func() {
		req := s.newRequest("LGK-2026-CCCCCC")
		s.Require().NoError(s.store.Create(ctx, req))

		req.Status = models.StatusApproved
		s.Require().NoError(s.store.Update(ctx, req))
		s.EqualValues(2, req.Version)

		found, err := s.store.FindByID(ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, found.Status)
		s.EqualValues(2, found.Version)
	})

	s.Run("stale version is a conflict and writes nothing", func() {
		req := s.newRequest("LGK-2026-DDDDDD")
		s.Require().NoError(s.store.Create(ctx, req))

		winner, err := s.store.FindByID(ctx, req.ID)
		s.Require().NoError(err)
		loser, err := s.store.FindByID(ctx, req.ID)
		s.Require().NoError(err)

		winner.Status = models.StatusApproved
		s.Require().NoError(s.store.Update(ctx, winner))

		loser.Status = models.StatusCancelled
		err = s.store.Update(ctx, loser)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		found, err := s.store.FindByID(ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, found.Status, "losing write must not land")
	})

	s.Run("unknown request is not found", func() {
		ghost := s.newRequest("LGK-2026-EEEEEE")
		ghost.Version = 1
		err := s.store.Update(ctx, ghost)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestFindReturnsIndependentCopies() {
	ctx := context.Background()
	req := s.newRequest("LGK-2026-FFFFFF")
	req.Requirements = []models.RequirementSubmission{{
		Path:             "uploads/id.pdf",
		RequirementLabel: "valid_id",
		SubmittedAt:      time.Now().UTC(),
	}}
	s.Require().NoError(s.store.Create(ctx, req))

	first, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	first.Requirements[0].Path = "uploads/tampered.pdf"
	first.Status = models.StatusCancelled

	second, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("uploads/id.pdf", second.Requirements[0].Path)
	s.Equal(models.StatusPending, second.Status)
}
