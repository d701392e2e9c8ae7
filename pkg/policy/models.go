package policy

import (
	"time"

	"github.com/google/uuid"
)

// Roles is the set of roles an identity may hold. Roles are assigned by
// the external identity registry; this engine only reads them.
type Roles string

const (
	RoleProvider Roles = "provider"
	RoleConsumer Roles = "consumer"
	RoleDelegate Roles = "delegate"
	RoleTrustee  Roles = "trustee"
	RoleAdmin    Roles = "admin"
)

// IsValid checks if the role is one of the known roles
func (r Roles) IsValid() bool {
	switch r {
	case RoleProvider, RoleConsumer, RoleDelegate, RoleTrustee, RoleAdmin:
		return true
	}
	return false
}

// IsDelegable checks if the role can be delegated. Only resource-owning
// roles can be delegated; trustee/admin/delegate cannot.
func (r Roles) IsDelegable() bool {
	return r == RoleProvider || r == RoleConsumer
}

// User is an already-authenticated caller, produced by the token
// validation layer.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
	Roles []Roles   `json:"roles,omitempty"`
}

// HasRole checks if the user holds the given role
func (u User) HasRole(role Roles) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks if the user holds the admin role
func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// DelegationStatus is the lifecycle state of a delegation record
type DelegationStatus string

const (
	StatusActive  DelegationStatus = "active"
	StatusDeleted DelegationStatus = "deleted"
)

// Delegation grants a delegate the right to act as its owner for one
// role on one resource server. Records are immutable after creation
// except for the active -> deleted transition; they are never
// hard-deleted so the audit trail survives.
type Delegation struct {
	ID                uuid.UUID        `json:"id"`
	OwnerID           uuid.UUID        `json:"owner_id"`
	DelegateID        uuid.UUID        `json:"delegate_id"`
	Role              Roles            `json:"role"`
	ResourceServerURL string           `json:"resource_server_url"`
	Status            DelegationStatus `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
	DeletedAt         *time.Time       `json:"deleted_at,omitempty"`
}

// RequestToken is the already-validated token attached to an access
// request. The engine treats all of its fields as trusted input.
type RequestToken struct {
	Subject           uuid.UUID `json:"sub"`
	Role              Roles     `json:"role"`
	ResourceServerURL string    `json:"resource_server_url"`
	ResourceID        string    `json:"resource_id"`
}

// DelegationInformation is the caller's claim of acting as a delegate
// for an owner. It is unauthenticated input and must be validated
// against stored delegation records before being trusted.
type DelegationInformation struct {
	OwnerID           uuid.UUID `json:"owner_id"`
	Role              Roles     `json:"role"`
	ResourceServerURL string    `json:"resource_server_url"`
}

// ReasonCode explains a denied access decision
type ReasonCode string

const (
	ReasonDelegationInvalid      ReasonCode = "DELEGATION_INVALID"
	ReasonResourceServerMismatch ReasonCode = "RESOURCE_SERVER_MISMATCH"
	ReasonPolicyDenied           ReasonCode = "POLICY_DENIED"
)

// AccessDecision is the outcome of verifying one resource access. It is
// never persisted; the transport layer renders it and the audit log
// records it.
type AccessDecision struct {
	Allowed          bool       `json:"allowed"`
	EffectiveOwnerID uuid.UUID  `json:"effective_owner_id,omitempty"`
	Reason           ReasonCode `json:"reason,omitempty"`
}

// CreateDelegationRequest is one item of a batch create call
type CreateDelegationRequest struct {
	OwnerID           uuid.UUID `json:"owner_id"`
	DelegateID        uuid.UUID `json:"delegate_id"`
	Role              Roles     `json:"role"`
	ResourceServerURL string    `json:"resource_server_url"`
}

// DeleteDelegationRequest is one item of a batch delete call
type DeleteDelegationRequest struct {
	ID uuid.UUID `json:"id"`
}

// ItemStatus is the outcome of one item in a batch operation
type ItemStatus string

const (
	ItemCreated ItemStatus = "created"
	ItemDeleted ItemStatus = "deleted"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult reports the outcome of a single batch item. Batch calls
// never abort on a failed item; callers inspect results one by one.
type ItemResult struct {
	Index  int        `json:"index"`
	ID     uuid.UUID  `json:"id,omitempty"`
	Status ItemStatus `json:"status"`
	Err    error      `json:"-"`
}

// DelegationDirection tags a listed delegation with the caller's role
// in the record.
type DelegationDirection string

const (
	DirectionOwner    DelegationDirection = "owner"
	DirectionDelegate DelegationDirection = "delegate"
)

// DelegationView is a delegation as seen by one side of it
type DelegationView struct {
	Delegation
	Direction DelegationDirection `json:"direction"`
}
