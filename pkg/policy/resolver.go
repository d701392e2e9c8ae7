package policy

import (
	"context"

	"github.com/google/uuid"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
)

// ResolvedDelegation is a validated delegation claim. EffectiveOwnerID
// is the identity whose grants are evaluated downstream.
type ResolvedDelegation struct {
	Delegation
	EffectiveOwnerID uuid.UUID
}

// Resolver validates delegation claims against stored records.
type Resolver struct {
	repo  DelegationRepository
	roles RoleAuthority
}

// NewResolver creates a new delegation resolver
func NewResolver(repo DelegationRepository, roles RoleAuthority) *Resolver {
	return &Resolver{
		repo:  repo,
		roles: roles,
	}
}

// Resolve checks whether callerID may act as a delegate for the claimed
// owner, role and resource server. The delegate identity always comes
// from the authenticated caller, never from the claim, so a forged
// claim cannot impersonate another delegate.
//
// A matching record alone is not enough: the owner must still hold the
// delegated role at use time. A role revoked after the delegation was
// created invalidates it here rather than returning a stale grant.
func (r *Resolver) Resolve(ctx context.Context, info DelegationInformation, callerID uuid.UUID) (*ResolvedDelegation, error) {
	d, err := r.repo.FindActive(ctx, info.OwnerID, callerID, info.Role, info.ResourceServerURL)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeDelegationNotFound) {
			return nil, errors.New(errors.ErrCodeDelegationInvalid, "no active delegation matches the claim")
		}
		return nil, err
	}

	held, err := r.roles.HasRole(ctx, info.OwnerID, info.Role)
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, errors.Newf(errors.ErrCodeRoleRevoked,
			"owner %s no longer holds role %s", info.OwnerID, info.Role)
	}

	return &ResolvedDelegation{
		Delegation:       d,
		EffectiveOwnerID: d.OwnerID,
	}, nil
}
