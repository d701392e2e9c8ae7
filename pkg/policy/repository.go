package policy

import (
	"context"

	"github.com/google/uuid"
)

// DelegationRepository is the durable store of delegation records.
//
// Implementations must enforce the uniqueness invariant atomically:
// at most one active record per (owner, delegate, role, resource server)
// tuple, checked and inserted in a single transaction or equivalent
// unique constraint, because concurrent Insert calls for the same tuple
// are a real race.
type DelegationRepository interface {
	// Insert persists a new active delegation and returns its ID.
	// Returns ErrCodeConflict if an active record already exists for
	// the same (owner, delegate, role, resource server) tuple.
	Insert(ctx context.Context, d Delegation) (uuid.UUID, error)

	// FindActive returns the active delegation matching the tuple, or
	// ErrCodeDelegationNotFound.
	FindActive(ctx context.Context, ownerID, delegateID uuid.UUID, role Roles, resourceServerURL string) (Delegation, error)

	// ListByOwner returns all delegations created by ownerID, both
	// active and deleted, as a point-in-time snapshot.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Delegation, error)

	// ListByDelegate returns all delegations assigned to delegateID,
	// both active and deleted, as a point-in-time snapshot.
	ListByDelegate(ctx context.Context, delegateID uuid.UUID) ([]Delegation, error)

	// MarkDeleted transitions the record to deleted. Returns
	// ErrCodeNotFound for an unknown ID and ErrCodeForbidden when the
	// requester is neither owner nor delegate of the record. Deleting
	// an already-deleted record succeeds silently so retries are safe.
	MarkDeleted(ctx context.Context, id, requesterID uuid.UUID) error

	// FindActiveDelegates returns the delegate IDs of all active
	// delegations created by ownerID for the given role and resource
	// server. An empty slice is a valid result.
	FindActiveDelegates(ctx context.Context, ownerID uuid.UUID, role Roles, resourceServerURL string) ([]uuid.UUID, error)
}

// RoleAuthority answers role membership questions against the external
// identity registry. Modeled as an injected capability so tests can
// substitute a double.
type RoleAuthority interface {
	// HasRole reports whether the identity currently holds the role.
	// Lookup failures surface as ErrCodeIdentityLookup.
	HasRole(ctx context.Context, userID uuid.UUID, role Roles) (bool, error)
}

// UserDirectory resolves identities to user records, used to turn
// delegate IDs into email addresses.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
}

// ResourceGrantSource evaluates whether an owner's role grants access
// to a resource. Policy storage itself lives outside this engine.
type ResourceGrantSource interface {
	GrantsAccess(ctx context.Context, ownerID uuid.UUID, role Roles, resourceServerURL, resourceID string) (bool, error)
}
