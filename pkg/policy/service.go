package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/notification"
)

// DelegationService implements the delegation lifecycle: batch create,
// list, batch delete and trustee email lookup. All invariants that are
// correctness-critical under concurrency (active-tuple uniqueness,
// ownership on delete) are enforced at the repository boundary; the
// service enforces the caller-level preconditions.
type DelegationService struct {
	repo     DelegationRepository
	roles    RoleAuthority
	users    UserDirectory
	notifier notification.Notifier
}

// Option configures a DelegationService
type Option func(*DelegationService)

// WithNotifier makes the service send a notice to the delegate when a
// delegation is created. Notification failures are logged, never fail
// the create.
func WithNotifier(n notification.Notifier) Option {
	return func(s *DelegationService) {
		s.notifier = n
	}
}

// NewDelegationService creates a new delegation service
func NewDelegationService(repo DelegationRepository, roles RoleAuthority, users UserDirectory, opts ...Option) *DelegationService {
	s := &DelegationService{
		repo:  repo,
		roles: roles,
		users: users,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDelegation processes a batch of create requests for actingUser.
// Each request is evaluated and reported independently; a failed item
// never rolls back the others.
func (s *DelegationService) CreateDelegation(ctx context.Context, requests []CreateDelegationRequest, actingUser User) []ItemResult {
	results := make([]ItemResult, len(requests))

	for i, req := range requests {
		id, err := s.createOne(ctx, req, actingUser)
		if err != nil {
			slog.Error("Failed creating delegation", "err", err,
				"ownerId", req.OwnerID, "delegateId", req.DelegateID, "role", req.Role)
			results[i] = ItemResult{Index: i, Status: ItemFailed, Err: err}
			continue
		}
		results[i] = ItemResult{Index: i, ID: id, Status: ItemCreated}
	}

	return results
}

func (s *DelegationService) createOne(ctx context.Context, req CreateDelegationRequest, actingUser User) (uuid.UUID, error) {
	if !req.Role.IsDelegable() {
		return uuid.Nil, errors.InvalidInput("role", fmt.Sprintf("role %s cannot be delegated", req.Role))
	}
	if req.ResourceServerURL == "" {
		return uuid.Nil, errors.InvalidInput("resource_server_url", "must not be empty")
	}

	// Only the owner, or an admin acting on their behalf, may create a
	// delegation
	if actingUser.ID != req.OwnerID && !actingUser.IsAdmin() {
		return uuid.Nil, errors.Forbidden("only the owner may create delegations they own")
	}

	if req.OwnerID == req.DelegateID {
		return uuid.Nil, errors.New(errors.ErrCodeSelfDelegation, "owner and delegate must differ")
	}

	held, err := s.roles.HasRole(ctx, req.OwnerID, req.Role)
	if err != nil {
		return uuid.Nil, err
	}
	if !held {
		return uuid.Nil, errors.Newf(errors.ErrCodeRoleNotHeld,
			"owner %s does not hold role %s", req.OwnerID, req.Role)
	}

	id, err := s.repo.Insert(ctx, Delegation{
		OwnerID:           req.OwnerID,
		DelegateID:        req.DelegateID,
		Role:              req.Role,
		ResourceServerURL: req.ResourceServerURL,
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.notifyDelegate(ctx, req, id)

	return id, nil
}

func (s *DelegationService) notifyDelegate(ctx context.Context, req CreateDelegationRequest, id uuid.UUID) {
	if s.notifier == nil {
		return
	}

	delegate, err := s.users.GetUserByID(ctx, req.DelegateID)
	if err != nil {
		slog.Warn("Skipping delegation notice, delegate lookup failed", "err", err, "delegateId", req.DelegateID)
		return
	}
	if delegate.Email == "" {
		return
	}

	err = s.notifier.Send(notification.NoticeDelegationGranted, notification.NotificationData{
		To:      delegate.Email,
		Subject: "You have been granted a delegation",
		Body: fmt.Sprintf("You may now act as a %s delegate on %s.",
			req.Role, req.ResourceServerURL),
		Data: map[string]string{
			"delegation_id":       id.String(),
			"role":                string(req.Role),
			"resource_server_url": req.ResourceServerURL,
		},
	})
	if err != nil {
		slog.Warn("Failed sending delegation notice", "err", err, "delegateId", req.DelegateID)
	}
}

// ListDelegation returns the union of delegations the user created and
// delegations assigned to the user, each tagged with the user's side of
// the record.
func (s *DelegationService) ListDelegation(ctx context.Context, user User) ([]DelegationView, error) {
	owned, err := s.repo.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.ListByDelegate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]DelegationView, 0, len(owned)+len(assigned))
	for _, d := range owned {
		views = append(views, DelegationView{Delegation: d, Direction: DirectionOwner})
	}
	for _, d := range assigned {
		views = append(views, DelegationView{Delegation: d, Direction: DirectionDelegate})
	}

	return views, nil
}

// DeleteDelegation processes a batch of delete requests. A delegate may
// delete a delegation assigned to them (renouncing the assignment); the
// repository enforces that check. Per-item outcomes mirror create.
func (s *DelegationService) DeleteDelegation(ctx context.Context, requests []DeleteDelegationRequest, user User) []ItemResult {
	results := make([]ItemResult, len(requests))

	for i, req := range requests {
		if err := s.repo.MarkDeleted(ctx, req.ID, user.ID); err != nil {
			slog.Error("Failed deleting delegation", "err", err, "id", req.ID, "userId", user.ID)
			results[i] = ItemResult{Index: i, ID: req.ID, Status: ItemFailed, Err: err}
			continue
		}
		results[i] = ItemResult{Index: i, ID: req.ID, Status: ItemDeleted}
	}

	return results
}

// GetDelegateEmails returns the email addresses of all delegates with
// an active delegation matching (delegatorUserID, role, resource
// server). Restricted to trustee callers; an empty result is not an
// error.
func (s *DelegationService) GetDelegateEmails(ctx context.Context, trustee User, delegatorUserID uuid.UUID, role Roles, resourceServerURL string) ([]string, error) {
	if !trustee.HasRole(RoleTrustee) {
		return nil, errors.Forbidden("delegate email lookup requires the trustee role")
	}

	delegateIDs, err := s.repo.FindActiveDelegates(ctx, delegatorUserID, role, resourceServerURL)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(delegateIDs))
	for _, id := range delegateIDs {
		user, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			// Skip delegates the directory cannot resolve
			slog.Warn("Skipping unresolvable delegate", "err", err, "delegateId", id)
			continue
		}
		if user.Email != "" {
			emails = append(emails, user.Email)
		}
	}

	return emails, nil
}
