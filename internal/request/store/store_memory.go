package store

import (
	"context"
	"sync"
	"time"

	"lingkod/internal/request/models"
	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and single-node development. It enforces
// the same version discipline as the postgres store.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.DocumentRequest
	numbers  map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[id.RequestID]*models.DocumentRequest),
		numbers:  make(map[string]bool),
	}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.DocumentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.numbers[req.RequestNumber] {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrConflict
	}
	req.Version = 1
	cp := cloneRequest(req)
	s.requests[req.ID] = cp
	s.numbers[req.RequestNumber] = true
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.DocumentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (s *InMemoryStore) Update(_ context.Context, req *models.DocumentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[req.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != req.Version {
		return sentinel.ErrConflict
	}
	req.Version++
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func cloneRequest(req *models.DocumentRequest) *models.DocumentRequest {
	cp := *req
	cp.Requirements = append([]models.RequirementSubmission(nil), req.Requirements...)
	if req.AppliedExemption != nil {
		ex := *req.AppliedExemption
		cp.AppliedExemption = &ex
	}
	cp.ApprovedAt = cloneTime(req.ApprovedAt)
	cp.ReadyAt = cloneTime(req.ReadyAt)
	cp.CompletedAt = cloneTime(req.CompletedAt)
	cp.ManualPaymentUpdatedAt = cloneTime(req.ManualPaymentUpdatedAt)
	cp.Claim.TokenExpiry = cloneTime(req.Claim.TokenExpiry)
	cp.Claim.PickupWindowStart = cloneTime(req.Claim.PickupWindowStart)
	cp.Claim.PickupWindowEnd = cloneTime(req.Claim.PickupWindowEnd)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
