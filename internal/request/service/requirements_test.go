package service_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"lingkod/internal/catalog"
	"lingkod/internal/request/models"
	"lingkod/internal/request/service"
	dErrors "lingkod/pkg/domain-errors"
)

func (s *ServiceSuite) pwdRules() map[catalog.SpecialStatusType]catalog.ExemptionRule {
	return map[catalog.SpecialStatusType]catalog.ExemptionRule{
		catalog.StatusPWD: {Unconditional: true},
	}
}

func (s *ServiceSuite) approvePWD() {
	approved := time.Now().Add(-24 * time.Hour)
	s.directory.PutSpecialStatuses(s.residentID, []catalog.SpecialStatus{{
		ResidentID: s.residentID,
		Type:       catalog.StatusPWD,
		ApprovedAt: &approved,
	}})
}

func (s *ServiceSuite) TestAttachRequirement() {
	ctx := context.Background()

	s.Run("completing evidence unlocks the exemption and auto-waives", func() {
		s.approvePWD()
		docTypeID := s.putDocType(100, []string{"pwd_id"}, catalog.AuthorityMunicipal, s.pwdRules())
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodGateway)

		s.Nil(req.AppliedExemption, "no exemption while evidence is pending")
		s.True(req.FinalFee.Equal(decimal.NewFromInt(100)))
		s.Equal(models.PaymentPending, req.PaymentStatus)

		updated, err := s.service.AttachRequirement(ctx, req.ID, s.resident(), service.AttachInput{
			Label: "pwd_id", Path: "uploads/pwd-id.pdf",
		})
		s.Require().NoError(err)
		s.Require().NotNil(updated.AppliedExemption)
		s.Equal(catalog.StatusPWD, *updated.AppliedExemption)
		s.True(updated.FinalFee.IsZero())
		s.Equal(models.PaymentWaived, updated.PaymentStatus)
	})

	s.Run("resubmitting the same file is a no-op", func() {
		docTypeID := s.putDocType(50, []string{"valid_id"}, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodGateway)

		first, err := s.service.AttachRequirement(ctx, req.ID, s.resident(), service.AttachInput{
			Label: "valid_id", Path: "uploads/id.pdf",
		})
		s.Require().NoError(err)

		again, err := s.service.AttachRequirement(ctx, req.ID, s.resident(), service.AttachInput{
			Label: "valid_id", Path: "uploads/id.pdf",
		})
		s.Require().NoError(err)
		s.Equal(first.Version, again.Version, "identical resubmission writes nothing")
		s.Len(again.Requirements, 1)
	})

	s.Run("replacing a file keeps one submission per label", func() {
		docTypeID := s.putDocType(50, []string{"valid_id"}, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodGateway)

		_, err := s.service.AttachRequirement(ctx, req.ID, s.resident(), service.AttachInput{
			Label: "valid_id", Path: "uploads/id-blurry.pdf",
		})
		s.Require().NoError(err)
		updated, err := s.service.AttachRequirement(ctx, req.ID, s.resident(), service.AttachInput{
			Label: "valid_id", Path: "uploads/id-retake.pdf",
		})
		s.Require().NoError(err)
		s.Len(updated.Requirements, 1)
		s.Equal("uploads/id-retake.pdf", updated.Requirements[0].Path)
	})

	s.Run("another resident cannot attach evidence", func() {
		docTypeID := s.putDocType(50, []string{"valid_id"}, catalog.AuthorityMunicipal, nil)
		req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodGateway)

		stranger := models.Actor{UserID: "someone-else", Role: models.RoleResident}
		_, err := s.service.AttachRequirement(ctx, req.ID, stranger, service.AttachInput{
			Label: "valid_id", Path: "uploads/x.pdf",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestFeeChangeInvalidatesManualPayment() {
	ctx := context.Background()
	s.approvePWD()
	docTypeID := s.putDocType(100, []string{"pwd_id"}, catalog.AuthorityMunicipal, s.pwdRules())
	req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodManual)

	// Manual flow starts against the unexempted quote.
	_, err := s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionSendPaymentID)
	s.Require().NoError(err)
	_, err = s.service.AdvanceManualPayment(ctx, req.ID, s.resident(), service.ActionSubmitProof)
	s.Require().NoError(err)

	// The evidence upload zeroes the fee; the quoted amount no longer holds.
	updated, err := s.service.AttachRequirement(ctx, req.ID, s.resident(), service.AttachInput{
		Label: "pwd_id", Path: "uploads/pwd-id.pdf",
	})
	s.Require().NoError(err)
	s.True(updated.FinalFee.IsZero())
	s.Equal(models.ManualNotStarted, updated.ManualPayment, "in-flight manual flow reset")
	s.Equal(models.PaymentWaived, updated.PaymentStatus)
	s.NotNil(updated.ManualPaymentUpdatedAt)
}

func (s *ServiceSuite) TestManualPaymentFlow() {
	ctx := context.Background()
	docTypeID := s.putDocType(100, nil, catalog.AuthorityMunicipal, nil)
	req := s.createRequest(docTypeID, models.DeliveryPickup, models.PaymentMethodManual)

	s.Run("resident cannot approve a payment", func() {
		_, err := s.service.AdvanceManualPayment(ctx, req.ID, s.resident(), service.ActionApprove)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("proof before payment id is out of order", func() {
		_, err := s.service.AdvanceManualPayment(ctx, req.ID, s.resident(), service.ActionSubmitProof)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("reject loops back to resubmission", func() {
		_, err := s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionSendPaymentID)
		s.Require().NoError(err)
		_, err = s.service.AdvanceManualPayment(ctx, req.ID, s.resident(), service.ActionSubmitProof)
		s.Require().NoError(err)
		rejected, err := s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionReject)
		s.Require().NoError(err)
		s.Equal(models.ManualRejected, rejected.ManualPayment)
		s.Equal(models.PaymentPending, rejected.PaymentStatus)

		_, err = s.service.AdvanceManualPayment(ctx, req.ID, s.resident(), service.ActionSubmitProof)
		s.Require().NoError(err)
		approvedReq, err := s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionApprove)
		s.Require().NoError(err)
		s.Equal(models.ManualApproved, approvedReq.ManualPayment)
		s.Equal(models.PaymentPaid, approvedReq.PaymentStatus)
	})

	s.Run("settled payment refuses further actions", func() {
		_, err := s.service.AdvanceManualPayment(ctx, req.ID, s.municipalStaff(), service.ActionSendPaymentID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}
