// Package policy implements delegation management and access
// verification for the AAA server.
//
// Resource owners (providers/consumers) may delegate a role, scoped to
// one resource server, to another identity. The package manages the
// delegation lifecycle and decides whether a request token, optionally
// combined with a delegation claim, authorizes a resource access.
//
// # Components
//
//   - DelegationRepository - durable delegation records; the active
//     tuple uniqueness invariant lives here, enforced atomically
//   - RoleAuthority - role membership checks against the identity
//     registry (injected, so tests can use a double)
//   - DelegationService - create/list/delete with per-item batch
//     results, plus trustee delegate-email lookup
//   - Resolver - validates delegation claims, including
//     revocation-at-use-time of the owner's role
//   - Verifier - produces the final AccessDecision
//
// # Basic Usage
//
//	repo := policy.NewPostgresDelegationRepository(pool)
//	svc := policy.NewDelegationService(repo, authority, directory)
//
//	results := svc.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
//		OwnerID:           ownerID,
//		DelegateID:        delegateID,
//		Role:              policy.RoleProvider,
//		ResourceServerURL: "rs.example.org",
//	}}, actingUser)
//
//	verifier := policy.NewVerifier(policy.NewResolver(repo, authority), authority, grants)
//	decision, err := verifier.VerifyResourceAccess(ctx, token, delegInfo, caller)
//
// Delegation depth is fixed at one: a delegate cannot delegate further.
//
// # Related Packages
//
//   - pkg/role - RoleAuthority implementations
//   - pkg/user - user directory for email resolution
//   - pkg/errors - coded errors reported by every operation
package policy
