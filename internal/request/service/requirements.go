package service

import (
	"context"
	"log/slog"

	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/requestcontext"
)

// AttachInput is one uploaded piece of evidence.
type AttachInput struct {
	Path  string
	Label string
}

// AttachRequirement records an evidence upload and recomputes the fee, since
// newly complete evidence can unlock an exemption. A resubmission of the same
// label replaces the earlier file; if nothing about the fee or the evidence
// set changes, the aggregate is not rewritten.
func (s *Service) AttachRequirement(ctx context.Context, requestID id.RequestID, actor models.Actor, in AttachInput) (*models.DocumentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "request.AttachRequirement")
	defer span.End()

	if in.Path == "" || in.Label == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "evidence path and requirement label are required")
	}

	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.guardVisibility(req, actor); err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot attach evidence to a closed request")
	}

	docType, err := s.documentType(ctx, req.DocumentTypeID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if same := findSubmission(req, in.Label); same != nil {
		if same.Path == in.Path {
			return req, nil
		}
		same.Path = in.Path
		same.SubmittedAt = now
	} else {
		req.Requirements = append(req.Requirements, models.RequirementSubmission{
			Path:             in.Path,
			RequirementLabel: in.Label,
			SubmittedAt:      now,
		})
	}

	if err := s.applyFee(ctx, req, docType, now); err != nil {
		return nil, err
	}
	if err := s.update(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "evidence attached",
		slog.String("request_id", req.ID.String()),
		slog.String("requirement", in.Label),
		slog.String("final_fee", req.FinalFee.String()),
	)
	return req, nil
}

// RecomputeFee re-runs the fee calculation against current reference data,
// e.g. after a special status approval lands.
func (s *Service) RecomputeFee(ctx context.Context, requestID id.RequestID, actor models.Actor) (*models.DocumentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "request.RecomputeFee")
	defer span.End()

	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.guardVisibility(req, actor); err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return req, nil
	}
	docType, err := s.documentType(ctx, req.DocumentTypeID)
	if err != nil {
		return nil, err
	}

	before := req.FinalFee
	if err := s.applyFee(ctx, req, docType, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if req.FinalFee.Equal(before) {
		return req, nil
	}
	if err := s.update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func findSubmission(req *models.DocumentRequest, label string) *models.RequirementSubmission {
	for i := range req.Requirements {
		if req.Requirements[i].RequirementLabel == label {
			return &req.Requirements[i]
		}
	}
	return nil
}
