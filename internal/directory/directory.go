// Package directory reads resident reference data owned by the resident
// registry: contact endpoints with channel preferences, and approved special
// statuses. The pipeline never writes here.
package directory

import (
	"context"
	"sync"

	"lingkod/internal/catalog"
	"lingkod/internal/outbox"
	id "lingkod/pkg/domain"
	"lingkod/pkg/platform/sentinel"
)

// InMemoryDirectory backs unit tests and single-node development.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	contacts map[id.ResidentID]outbox.Contact
	statuses map[id.ResidentID][]catalog.SpecialStatus
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		contacts: make(map[id.ResidentID]outbox.Contact),
		statuses: make(map[id.ResidentID][]catalog.SpecialStatus),
	}
}

// PutContact registers or replaces a resident's contact record.
func (d *InMemoryDirectory) PutContact(residentID id.ResidentID, contact outbox.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[residentID] = contact
}

// PutSpecialStatuses replaces a resident's special status set.
func (d *InMemoryDirectory) PutSpecialStatuses(residentID id.ResidentID, statuses []catalog.SpecialStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[residentID] = append([]catalog.SpecialStatus(nil), statuses...)
}

func (d *InMemoryDirectory) Contact(_ context.Context, residentID id.ResidentID) (*outbox.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contact, ok := d.contacts[residentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &contact, nil
}

func (d *InMemoryDirectory) SpecialStatuses(_ context.Context, residentID id.ResidentID) ([]catalog.SpecialStatus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]catalog.SpecialStatus(nil), d.statuses[residentID]...), nil
}
