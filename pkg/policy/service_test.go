package policy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/notification"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/policy"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/role"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/user"
)

type serviceFixture struct {
	repo      *policy.InMemoryDelegationRepository
	authority *role.InMemoryAuthority
	directory *user.InMemoryDirectory
	notifier  *notification.MockNotifier
	service   *policy.DelegationService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:      policy.NewInMemoryDelegationRepository(),
		authority: role.NewInMemoryAuthority(),
		directory: user.NewInMemoryDirectory(),
		notifier:  notification.NewMockNotifier(),
	}
	f.service = policy.NewDelegationService(f.repo, f.authority, f.directory, policy.WithNotifier(f.notifier))
	return f
}

func (f *serviceFixture) addUser(email string, roles ...policy.Roles) policy.User {
	u := policy.User{ID: uuid.New(), Email: email, Roles: roles}
	f.directory.Add(u)
	for _, r := range roles {
		f.authority.Grant(u.ID, r)
	}
	return u
}

func TestCreateDelegation(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleProvider)
		delegate := f.addUser("delegate@example.org")

		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
			OwnerID:           owner.ID,
			DelegateID:        delegate.ID,
			Role:              policy.RoleProvider,
			ResourceServerURL: "rs.example.org",
		}}, owner)

		require.Len(t, results, 1)
		assert.Equal(t, policy.ItemCreated, results[0].Status)
		assert.NotEqual(t, uuid.Nil, results[0].ID)

		// The delegate gets a notice
		require.Equal(t, 1, f.notifier.Count())
		assert.Equal(t, "delegate@example.org", f.notifier.Sent[0].Data.To)
	})

	t.Run("SelfDelegation", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleProvider)

		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
			OwnerID:           owner.ID,
			DelegateID:        owner.ID,
			Role:              policy.RoleProvider,
			ResourceServerURL: "rs.example.org",
		}}, owner)

		require.Len(t, results, 1)
		assert.Equal(t, policy.ItemFailed, results[0].Status)
		assert.True(t, errors.IsCode(results[0].Err, errors.ErrCodeSelfDelegation))
	})

	t.Run("RoleNotHeld", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleProvider)
		delegate := f.addUser("delegate@example.org")

		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
			OwnerID:           owner.ID,
			DelegateID:        delegate.ID,
			Role:              policy.RoleConsumer,
			ResourceServerURL: "rs.example.org",
		}}, owner)

		require.Len(t, results, 1)
		assert.True(t, errors.IsCode(results[0].Err, errors.ErrCodeRoleNotHeld))
	})

	t.Run("NonDelegableRole", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleTrustee)
		delegate := f.addUser("delegate@example.org")

		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
			OwnerID:           owner.ID,
			DelegateID:        delegate.ID,
			Role:              policy.RoleTrustee,
			ResourceServerURL: "rs.example.org",
		}}, owner)

		require.Len(t, results, 1)
		assert.True(t, errors.IsCode(results[0].Err, errors.ErrCodeInvalidInput))
	})

	t.Run("OnlyOwnerMayCreate", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleProvider)
		delegate := f.addUser("delegate@example.org")
		stranger := f.addUser("stranger@example.org", policy.RoleProvider)

		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
			OwnerID:           owner.ID,
			DelegateID:        delegate.ID,
			Role:              policy.RoleProvider,
			ResourceServerURL: "rs.example.org",
		}}, stranger)

		require.Len(t, results, 1)
		assert.True(t, errors.IsCode(results[0].Err, errors.ErrCodeForbidden))
	})

	t.Run("AdminMayActOnBehalf", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleProvider)
		delegate := f.addUser("delegate@example.org")
		admin := f.addUser("admin@example.org", policy.RoleAdmin)

		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
			OwnerID:           owner.ID,
			DelegateID:        delegate.ID,
			Role:              policy.RoleProvider,
			ResourceServerURL: "rs.example.org",
		}}, admin)

		require.Len(t, results, 1)
		assert.Equal(t, policy.ItemCreated, results[0].Status)
	})

	t.Run("BatchPartialFailure", func(t *testing.T) {
		f := newServiceFixture()
		owner := f.addUser("owner@example.org", policy.RoleProvider)
		d1 := f.addUser("d1@example.org")
		d2 := f.addUser("d2@example.org")

		// Second item duplicates the first, third is fine
		results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{
			{OwnerID: owner.ID, DelegateID: d1.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org"},
			{OwnerID: owner.ID, DelegateID: d1.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org"},
			{OwnerID: owner.ID, DelegateID: d2.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org"},
		}, owner)

		require.Len(t, results, 3)
		assert.Equal(t, policy.ItemCreated, results[0].Status)
		assert.Equal(t, policy.ItemFailed, results[1].Status)
		assert.True(t, errors.IsCode(results[1].Err, errors.ErrCodeConflict))
		assert.Equal(t, policy.ItemCreated, results[2].Status, "a failed item must not abort the batch")
	})
}

func TestListDelegation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()

	owner := f.addUser("owner@example.org", policy.RoleProvider)
	other := f.addUser("other@example.org", policy.RoleConsumer)
	f.authority.Grant(other.ID, policy.RoleConsumer)

	// owner delegates to other; other delegates to owner
	results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
		OwnerID: owner.ID, DelegateID: other.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org",
	}}, owner)
	require.Equal(t, policy.ItemCreated, results[0].Status)

	results = f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
		OwnerID: other.ID, DelegateID: owner.ID, Role: policy.RoleConsumer, ResourceServerURL: "rs.example.org",
	}}, other)
	require.Equal(t, policy.ItemCreated, results[0].Status)

	views, err := f.service.ListDelegation(ctx, owner)
	require.NoError(t, err)
	require.Len(t, views, 2)

	directions := map[policy.DelegationDirection]int{}
	for _, v := range views {
		directions[v.Direction]++
	}
	assert.Equal(t, 1, directions[policy.DirectionOwner])
	assert.Equal(t, 1, directions[policy.DirectionDelegate])
}

func TestDeleteDelegation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()

	owner := f.addUser("owner@example.org", policy.RoleProvider)
	delegate := f.addUser("delegate@example.org")
	stranger := f.addUser("stranger@example.org")

	results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{{
		OwnerID: owner.ID, DelegateID: delegate.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org",
	}}, owner)
	require.Equal(t, policy.ItemCreated, results[0].Status)
	id := results[0].ID

	t.Run("StrangerForbidden", func(t *testing.T) {
		results := f.service.DeleteDelegation(ctx, []policy.DeleteDelegationRequest{{ID: id}}, stranger)
		require.Len(t, results, 1)
		assert.Equal(t, policy.ItemFailed, results[0].Status)
		assert.True(t, errors.IsCode(results[0].Err, errors.ErrCodeForbidden))
	})

	t.Run("OwnerDeletes", func(t *testing.T) {
		results := f.service.DeleteDelegation(ctx, []policy.DeleteDelegationRequest{{ID: id}}, owner)
		require.Len(t, results, 1)
		assert.Equal(t, policy.ItemDeleted, results[0].Status)
	})

	t.Run("SecondDeleteSucceeds", func(t *testing.T) {
		results := f.service.DeleteDelegation(ctx, []policy.DeleteDelegationRequest{{ID: id}}, owner)
		require.Len(t, results, 1)
		assert.Equal(t, policy.ItemDeleted, results[0].Status)
	})

	t.Run("UnknownIDFailsItem", func(t *testing.T) {
		results := f.service.DeleteDelegation(ctx, []policy.DeleteDelegationRequest{
			{ID: uuid.New()},
			{ID: id},
		}, owner)
		require.Len(t, results, 2)
		assert.Equal(t, policy.ItemFailed, results[0].Status)
		assert.True(t, errors.IsCode(results[0].Err, errors.ErrCodeNotFound))
		assert.Equal(t, policy.ItemDeleted, results[1].Status)
	})
}

func TestGetDelegateEmails(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()

	owner := f.addUser("owner@example.org", policy.RoleProvider)
	d1 := f.addUser("d1@example.org")
	d2 := f.addUser("d2@example.org")
	trustee := f.addUser("trustee@example.org", policy.RoleTrustee)

	results := f.service.CreateDelegation(ctx, []policy.CreateDelegationRequest{
		{OwnerID: owner.ID, DelegateID: d1.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org"},
		{OwnerID: owner.ID, DelegateID: d2.ID, Role: policy.RoleProvider, ResourceServerURL: "rs.example.org"},
	}, owner)
	require.Equal(t, policy.ItemCreated, results[0].Status)
	require.Equal(t, policy.ItemCreated, results[1].Status)

	t.Run("NonTrusteeForbidden", func(t *testing.T) {
		_, err := f.service.GetDelegateEmails(ctx, owner, owner.ID, policy.RoleProvider, "rs.example.org")
		assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	})

	t.Run("TrusteeGetsEmails", func(t *testing.T) {
		emails, err := f.service.GetDelegateEmails(ctx, trustee, owner.ID, policy.RoleProvider, "rs.example.org")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"d1@example.org", "d2@example.org"}, emails)
	})

	t.Run("EmptySetIsNotAnError", func(t *testing.T) {
		emails, err := f.service.GetDelegateEmails(ctx, trustee, owner.ID, policy.RoleConsumer, "rs.example.org")
		require.NoError(t, err)
		assert.Empty(t, emails)
	})
}
