package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"lingkod/internal/catalog"
	"lingkod/internal/outbox"
	"lingkod/internal/request/models"
	"lingkod/internal/request/service"
	"lingkod/internal/request/store"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/platform/sentinel"
)

// ==================== Guard ordering ====================

func (s *ServiceSuite) TestTransitionGuards() {
	ctx := context.Background()

	s.Run("unreachable target is an invalid transition", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

		_, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusReady})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("terminal status refuses every move", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)
		s.transitionTo(req.ID, models.StatusCancelled)

		_, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusApproved})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("evidence guard fires before payment guard", func() {
		// Unpaid fee AND missing evidence: the caller must learn about the
		// evidence first.
		docTypeID := s.putDocType(100, []string{"valid_id"}, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryDigital, models.PaymentMethodGateway)
		s.transitionTo(req.ID, models.StatusApproved)

		_, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusProcessing})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRequirementsIncomplete))
		s.False(dErrors.HasCode(err, dErrors.CodePaymentRequired))
	})

	s.Run("failed guard leaves the aggregate untouched", func() {
		docTypeID := s.putDocType(100, []string{"valid_id"}, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryDigital, models.PaymentMethodGateway)

		_, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusApproved})
		s.Require().Error(err)

		reloaded, err := s.store.FindByID(ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reloaded.Status)
		s.Equal(req.Version, reloaded.Version)
		s.Nil(reloaded.ApprovedAt)
	})

	s.Run("rejection requires a reason", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

		_, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusRejected})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestTransitionAuthority() {
	ctx := context.Background()

	s.Run("resident may cancel but not approve", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

		_, err := s.service.SubmitTransition(ctx, req.ID, s.resident(), service.TransitionInput{Target: models.StatusApproved})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		cancelled, err := s.service.SubmitTransition(ctx, req.ID, s.resident(), service.TransitionInput{Target: models.StatusCancelled})
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
	})

	s.Run("barangay staff endorse municipal documents but cannot fulfill them", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

		endorsed, err := s.service.SubmitTransition(ctx, req.ID, s.barangayStaff(), service.TransitionInput{Target: models.StatusBarangayProcessing})
		s.Require().NoError(err)
		s.Equal(models.StatusBarangayProcessing, endorsed.Status)

		endorsed, err = s.service.SubmitTransition(ctx, req.ID, s.barangayStaff(), service.TransitionInput{Target: models.StatusBarangayApproved})
		s.Require().NoError(err)
		s.NotNil(endorsed.ApprovedAt)

		_, err = s.service.SubmitTransition(ctx, req.ID, s.barangayStaff(), service.TransitionInput{Target: models.StatusProcessing})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("barangay staff fulfill their own document types end to end", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityBarangay, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

		moved, err := s.service.SubmitTransition(ctx, req.ID, s.barangayStaff(), service.TransitionInput{Target: models.StatusApproved})
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, moved.Status)
	})

	s.Run("staff from another barangay are rejected", func() {
		docTypeID := s.putDocType(0, nil, catalog.AuthorityBarangay, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

		outsider := s.barangayStaff()
		outsider.BarangayID = id.BarangayID(uuid.New())
		_, err := s.service.SubmitTransition(ctx, req.ID, outsider, service.TransitionInput{Target: models.StatusApproved})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// ==================== Idempotency and notifications ====================

func (s *ServiceSuite) TestTransitionNoOpAndDedupe() {
	ctx := context.Background()
	docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
	req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

	approved := s.transitionTo(req.ID, models.StatusApproved)
	entriesAfterFirst := s.outboxStore.Len()

	s.Run("same-status transition is a no-op", func() {
		again, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusApproved})
		s.Require().NoError(err)
		s.Equal(approved.Version, again.Version, "no write on no-op")
		s.Equal(entriesAfterFirst, s.outboxStore.Len(), "no notification on no-op")
	})

	s.Run("status change notification is deduped per target", func() {
		key := outbox.DedupeKey(outbox.EventStatusChanged, req.ID.String(), s.residentID, outbox.ChannelEmail, string(models.StatusApproved))
		entry, ok := s.outboxStore.Find(key)
		s.Require().True(ok)
		s.Equal(outbox.EntryPending, entry.Status)
	})
}

// ==================== Payment gate and claim issuance ====================

func (s *ServiceSuite) TestPaymentGateThenClaimIssuance() {
	ctx := context.Background()
	docTypeID := s.putDocType(150, nil, catalog.AuthorityMunicipal, nil)
	req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodManual)
	s.transitionTo(req.ID, models.StatusApproved, models.StatusProcessing)

	s.Run("unpaid fee blocks ready", func() {
		_, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusReady})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentRequired))
	})

	s.Run("settled fee unlocks ready and issues the claim ticket", func() {
		_, err := s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionSendPaymentID)
		s.Require().NoError(err)
		_, err = s.service.AdvanceManualPayment(ctx, req.ID, s.resident(), service.ActionSubmitProof)
		s.Require().NoError(err)
		_, err = s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionApprove)
		s.Require().NoError(err)

		ready, err := s.service.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusReady})
		s.Require().NoError(err)
		s.Equal(models.StatusReady, ready.Status)
		s.NotNil(ready.ReadyAt)

		s.Require().True(ready.Claim.Issued())
		s.NotEmpty(ready.Claim.CodeHash)
		s.NotEmpty(ready.Claim.CodeEncrypted)
		s.Regexp(`^[A-Z2-9]{2}\*\*\*-\*\*\*[A-Z2-9]{2}$`, ready.Claim.CodeMasked)
		s.NotEmpty(ready.Claim.TokenJTI)

		key := outbox.DedupeKey(outbox.EventClaimReady, req.ID.String(), s.residentID, outbox.ChannelEmail, "")
		_, queued := s.outboxStore.Find(key)
		s.True(queued, "claim ready notification should be queued")
	})
}

// ==================== Optimistic concurrency ====================

// racingStore injects one version conflict, as if a competing transition
// committed between the service's read and its write.
type racingStore struct {
	store.Store
	conflictOnce bool
}

func (r *racingStore) Update(ctx context.Context, req *models.DocumentRequest) error {
	if r.conflictOnce {
		r.conflictOnce = false
		return sentinel.ErrConflict
	}
	return r.Store.Update(ctx, req)
}

func (s *ServiceSuite) TestConcurrentTransitionLoserGetsConflict() {
	ctx := context.Background()
	docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
	req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)

	racing := &racingStore{Store: s.store, conflictOnce: true}
	notifications, err := outbox.NewService(s.outboxStore, s.directory)
	s.Require().NoError(err)
	svc, err := service.NewService(
		racing, s.docTypes, s.directory, notifications, s.claims,
		nil, service.NewMetrics(prometheus.NewRegistry()),
	)
	s.Require().NoError(err)

	_, err = svc.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusApproved})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "loser sees a conflict, not a clobbered write")

	reloaded, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, reloaded.Status, "losing write must not land")

	// A retry with fresh state succeeds.
	retried, err := svc.SubmitTransition(ctx, req.ID, s.municipalStaff(), service.TransitionInput{Target: models.StatusApproved})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, retried.Status)
}
