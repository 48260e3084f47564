package service_test

import (
	"context"
	"encoding/json"
	"time"

	"lingkod/internal/catalog"
	"lingkod/internal/outbox"
	"lingkod/internal/request/models"
	"lingkod/internal/request/service"
	dErrors "lingkod/pkg/domain-errors"
)

// readyPickupRequest drives a free pickup request to ready with a claim
// ticket issued, and reveals the plaintext code for counter scenarios.
func (s *ServiceSuite) readyPickupRequest() (*models.DocumentRequest, string) {
	docTypeID := s.putDocType(0, nil, catalog.AuthorityMunicipal, nil)
	req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodNone)
	ready := s.transitionTo(req.ID, models.StatusApproved, models.StatusProcessing, models.StatusReady)
	s.Require().True(ready.Claim.Issued())

	code, err := s.service.RevealClaimCode(context.Background(), req.ID, s.resident())
	s.Require().NoError(err)
	s.Require().Regexp(`^[A-Z2-9]{5}-[A-Z2-9]{5}$`, code)
	return ready, code
}

func (s *ServiceSuite) TestPickupWithCode() {
	ctx := context.Background()
	ready, code := s.readyPickupRequest()

	s.Run("wrong code is a mismatch", func() {
		_, err := s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{
			RequestID: ready.ID, Code: "AAAAA-AAAAA",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeClaimMismatch))
	})

	s.Run("resident cannot verify at the counter", func() {
		_, err := s.service.VerifyPickup(ctx, s.resident(), service.PickupInput{
			RequestID: ready.ID, Code: code,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("correct code verifies without consuming", func() {
		verification, err := s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{
			RequestID: ready.ID, Code: code,
		})
		s.Require().NoError(err)
		s.Equal(ready.ID, verification.RequestID)
		s.Equal(ready.RequestNumber, verification.RequestNumber)

		reloaded, err := s.store.FindByID(ctx, ready.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusReady, reloaded.Status, "verify must not hand over")
	})

	s.Run("confirm completes the handover exactly once", func() {
		confirmed, err := s.service.ConfirmPickup(ctx, s.municipalStaff(), service.PickupInput{
			RequestID: ready.ID, Code: code,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusPickedUp, confirmed.Status)
		s.NotNil(confirmed.CompletedAt)

		_, err = s.service.ConfirmPickup(ctx, s.municipalStaff(), service.PickupInput{
			RequestID: ready.ID, Code: code,
		})
		s.Require().Error(err, "terminal status makes the credential single-use")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// claimTicketFromOutbox extracts the code and token the resident would have
// received in the claim-ready notification.
func (s *ServiceSuite) claimTicketFromOutbox(req *models.DocumentRequest) (code, token string) {
	key := outbox.DedupeKey(outbox.EventClaimReady, req.ID.String(), s.residentID, outbox.ChannelEmail, "")
	entry, ok := s.outboxStore.Find(key)
	s.Require().True(ok, "claim ready notification must be queued")

	var payload struct {
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(entry.Payload, &payload))
	s.Require().NotEmpty(payload.Code)
	s.Require().NotEmpty(payload.Token)
	return payload.Code, payload.Token
}

func (s *ServiceSuite) TestPickupWithToken() {
	ctx := context.Background()
	ready, _ := s.readyPickupRequest()
	_, token := s.claimTicketFromOutbox(ready)

	s.Run("scanned token alone resolves and verifies the request", func() {
		verification, err := s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{Token: token})
		s.Require().NoError(err)
		s.Equal(ready.ID, verification.RequestID)
	})

	s.Run("token bound to another request is a mismatch", func() {
		other, _ := s.readyPickupRequest()
		_, err := s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{
			RequestID: other.ID, Token: token,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeClaimMismatch))
	})

	s.Run("confirmed token cannot replay", func() {
		_, err := s.service.ConfirmPickup(ctx, s.municipalStaff(), service.PickupInput{Token: token})
		s.Require().NoError(err)

		_, err = s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{Token: token})
		s.Require().Error(err)
	})
}

func (s *ServiceSuite) TestExpiredTokenFailsEvenWithCorrectCode() {
	// Rebuild the stack with a negative token TTL so the issued claim token
	// is already past expiry at the counter.
	s.buildService(-time.Hour)
	ctx := context.Background()
	ready, code := s.readyPickupRequest()
	_, token := s.claimTicketFromOutbox(ready)

	// Expired token with the CORRECT code still fails closed: the token is
	// authoritative and never falls back to the code path.
	_, err := s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{
		Token: token, Code: code,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeClaimExpired))
	s.False(dErrors.HasCode(err, dErrors.CodeClaimMismatch))

	// The code alone, without the expired token, verifies.
	verification, err := s.service.VerifyPickup(ctx, s.municipalStaff(), service.PickupInput{
		RequestID: ready.ID, Code: code,
	})
	s.Require().NoError(err)
	s.Equal(ready.ID, verification.RequestID)
}
