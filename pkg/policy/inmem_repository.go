package policy

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
)

// InMemoryDelegationRepository implements DelegationRepository with an
// in-memory map. Used in tests and the quick-start path; the mutex
// makes the check-then-insert atomic, mirroring the unique constraint
// of the postgres implementation.
type InMemoryDelegationRepository struct {
	mutex       sync.RWMutex
	delegations map[uuid.UUID]Delegation
}

// NewInMemoryDelegationRepository creates an empty in-memory repository
func NewInMemoryDelegationRepository() *InMemoryDelegationRepository {
	return &InMemoryDelegationRepository{
		delegations: make(map[uuid.UUID]Delegation),
	}
}

// Insert persists a new active delegation
func (r *InMemoryDelegationRepository) Insert(ctx context.Context, d Delegation) (uuid.UUID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.delegations {
		if existing.Status == StatusActive &&
			existing.OwnerID == d.OwnerID &&
			existing.DelegateID == d.DelegateID &&
			existing.Role == d.Role &&
			existing.ResourceServerURL == d.ResourceServerURL {
			return uuid.Nil, errors.Conflict("delegation", existing.ID.String())
		}
	}

	d.ID = uuid.New()
	d.Status = StatusActive
	d.CreatedAt = time.Now().UTC()
	d.DeletedAt = nil
	r.delegations[d.ID] = d

	return d.ID, nil
}

// FindActive returns the active delegation matching the tuple
func (r *InMemoryDelegationRepository) FindActive(ctx context.Context, ownerID, delegateID uuid.UUID, role Roles, resourceServerURL string) (Delegation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, d := range r.delegations {
		if d.Status == StatusActive &&
			d.OwnerID == ownerID &&
			d.DelegateID == delegateID &&
			d.Role == role &&
			d.ResourceServerURL == resourceServerURL {
			return d, nil
		}
	}

	return Delegation{}, errors.New(errors.ErrCodeDelegationNotFound, "no active delegation matches")
}

// ListByOwner returns a snapshot of all delegations created by ownerID
func (r *InMemoryDelegationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Delegation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Delegation, 0)
	for _, d := range r.delegations {
		if d.OwnerID == ownerID {
			result = append(result, d)
		}
	}

	return result, nil
}

// ListByDelegate returns a snapshot of all delegations assigned to delegateID
func (r *InMemoryDelegationRepository) ListByDelegate(ctx context.Context, delegateID uuid.UUID) ([]Delegation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Delegation, 0)
	for _, d := range r.delegations {
		if d.DelegateID == delegateID {
			result = append(result, d)
		}
	}

	return result, nil
}

// MarkDeleted transitions the record to deleted
func (r *InMemoryDelegationRepository) MarkDeleted(ctx context.Context, id, requesterID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	d, exists := r.delegations[id]
	if !exists {
		return errors.NotFound("delegation", id.String())
	}

	if d.OwnerID != requesterID && d.DelegateID != requesterID {
		return errors.Forbidden("requester is neither owner nor delegate of the delegation")
	}

	// Idempotent: deleting a deleted record is a no-op success
	if d.Status == StatusDeleted {
		return nil
	}

	now := time.Now().UTC()
	d.Status = StatusDeleted
	d.DeletedAt = &now
	r.delegations[id] = d

	return nil
}

// FindActiveDelegates returns delegate IDs of active delegations for the tuple
func (r *InMemoryDelegationRepository) FindActiveDelegates(ctx context.Context, ownerID uuid.UUID, role Roles, resourceServerURL string) ([]uuid.UUID, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]uuid.UUID, 0)
	for _, d := range r.delegations {
		if d.Status == StatusActive &&
			d.OwnerID == ownerID &&
			d.Role == role &&
			d.ResourceServerURL == resourceServerURL {
			result = append(result, d.DelegateID)
		}
	}

	return result, nil
}
