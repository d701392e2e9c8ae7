package policy

import (
	"context"
	"log/slog"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
)

// Verifier is the top-level entry point for access decisions. It
// combines the request token's own identity with an optional delegation
// claim and evaluates the effective principal's grants.
type Verifier struct {
	resolver *Resolver
	roles    RoleAuthority
	grants   ResourceGrantSource
}

// NewVerifier creates a new access verifier
func NewVerifier(resolver *Resolver, roles RoleAuthority, grants ResourceGrantSource) *Verifier {
	return &Verifier{
		resolver: resolver,
		roles:    roles,
		grants:   grants,
	}
}

// VerifyResourceAccess decides whether the requested resource access is
// authorized. Denials are reported in the decision with a reason code;
// an error return means the decision could not be made (store timeout,
// identity lookup failure) and the caller may retry. A denial is never
// silently downgraded to an allow.
func (v *Verifier) VerifyResourceAccess(ctx context.Context, token RequestToken, delegInfo *DelegationInformation, callerUser User) (AccessDecision, error) {
	effectiveOwner := token.Subject
	effectiveRole := token.Role

	if delegInfo != nil {
		// The delegation record is keyed by the claimed resource
		// server, so compare token and claim before resolving;
		// otherwise a mismatched token would masquerade as a missing
		// delegation
		if token.ResourceServerURL != delegInfo.ResourceServerURL {
			return AccessDecision{Allowed: false, Reason: ReasonResourceServerMismatch}, nil
		}

		resolved, err := v.resolver.Resolve(ctx, *delegInfo, callerUser.ID)
		if err != nil {
			switch errors.GetCode(err) {
			case errors.ErrCodeDelegationInvalid, errors.ErrCodeRoleRevoked:
				slog.Info("Denying access, delegation claim rejected", "err", err,
					"callerId", callerUser.ID, "ownerId", delegInfo.OwnerID)
				return AccessDecision{Allowed: false, Reason: ReasonDelegationInvalid}, nil
			}
			return AccessDecision{}, err
		}

		effectiveOwner = resolved.EffectiveOwnerID
		effectiveRole = delegInfo.Role
	} else {
		// No delegation path: the subject must directly hold the role
		// it presents for this resource server
		held, err := v.roles.HasRole(ctx, token.Subject, token.Role)
		if err != nil {
			return AccessDecision{}, err
		}
		if !held {
			return AccessDecision{Allowed: false, Reason: ReasonPolicyDenied}, nil
		}
	}

	granted, err := v.grants.GrantsAccess(ctx, effectiveOwner, effectiveRole, token.ResourceServerURL, token.ResourceID)
	if err != nil {
		return AccessDecision{}, err
	}
	if !granted {
		return AccessDecision{Allowed: false, Reason: ReasonPolicyDenied}, nil
	}

	return AccessDecision{Allowed: true, EffectiveOwnerID: effectiveOwner}, nil
}
