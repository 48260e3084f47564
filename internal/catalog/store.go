package catalog

import (
	"context"
	"sync"

	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
)

// InMemoryStore serves document types from memory, for tests and seeding a
// development server.
type InMemoryStore struct {
	mu    sync.RWMutex
	types map[id.DocumentTypeID]*DocumentType
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{types: make(map[id.DocumentTypeID]*DocumentType)}
}

// Put registers or replaces a document type.
func (s *InMemoryStore) Put(docType *DocumentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[docType.ID] = docType
}

func (s *InMemoryStore) DocumentType(_ context.Context, docTypeID id.DocumentTypeID) (*DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docType, ok := s.types[docTypeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *docType
	return &cp, nil
}
