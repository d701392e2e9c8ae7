package policy_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/policy"
)

func testDelegation(ownerID, delegateID uuid.UUID) policy.Delegation {
	return policy.Delegation{
		OwnerID:           ownerID,
		DelegateID:        delegateID,
		Role:              policy.RoleProvider,
		ResourceServerURL: "rs.example.org",
	}
}

func TestInMemoryRepository_Insert(t *testing.T) {
	repo := policy.NewInMemoryDelegationRepository()
	ctx := context.Background()

	ownerID := uuid.New()
	delegateID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		id, err := repo.Insert(ctx, testDelegation(ownerID, delegateID))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		d, err := repo.FindActive(ctx, ownerID, delegateID, policy.RoleProvider, "rs.example.org")
		require.NoError(t, err)
		assert.Equal(t, id, d.ID)
		assert.Equal(t, policy.StatusActive, d.Status)
		assert.False(t, d.CreatedAt.IsZero())
	})

	t.Run("DuplicateActiveTuple", func(t *testing.T) {
		_, err := repo.Insert(ctx, testDelegation(ownerID, delegateID))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	})

	t.Run("DifferentResourceServer", func(t *testing.T) {
		d := testDelegation(ownerID, delegateID)
		d.ResourceServerURL = "other.example.org"
		_, err := repo.Insert(ctx, d)
		assert.NoError(t, err)
	})

	t.Run("RecreateAfterDelete", func(t *testing.T) {
		d, err := repo.FindActive(ctx, ownerID, delegateID, policy.RoleProvider, "rs.example.org")
		require.NoError(t, err)

		require.NoError(t, repo.MarkDeleted(ctx, d.ID, ownerID))

		// Uniqueness is enforced over active records only
		_, err = repo.Insert(ctx, testDelegation(ownerID, delegateID))
		assert.NoError(t, err)
	})
}

func TestInMemoryRepository_ConcurrentInsert(t *testing.T) {
	repo := policy.NewInMemoryDelegationRepository()
	ctx := context.Background()

	ownerID := uuid.New()
	delegateID := uuid.New()

	const attempts = 16
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Insert(ctx, testDelegation(ownerID, delegateID))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent insert should win")
}

func TestInMemoryRepository_MarkDeleted(t *testing.T) {
	repo := policy.NewInMemoryDelegationRepository()
	ctx := context.Background()

	ownerID := uuid.New()
	delegateID := uuid.New()

	id, err := repo.Insert(ctx, testDelegation(ownerID, delegateID))
	require.NoError(t, err)

	t.Run("UnknownID", func(t *testing.T) {
		err := repo.MarkDeleted(ctx, uuid.New(), ownerID)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		err := repo.MarkDeleted(ctx, id, uuid.New())
		assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	})

	t.Run("DelegateMayRenounce", func(t *testing.T) {
		err := repo.MarkDeleted(ctx, id, delegateID)
		assert.NoError(t, err)
	})

	t.Run("Idempotent", func(t *testing.T) {
		err := repo.MarkDeleted(ctx, id, ownerID)
		assert.NoError(t, err)
	})

	t.Run("SoftDeleteKeepsRecord", func(t *testing.T) {
		owned, err := repo.ListByOwner(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Equal(t, policy.StatusDeleted, owned[0].Status)
		assert.NotNil(t, owned[0].DeletedAt)
	})

	t.Run("DeletedNotActive", func(t *testing.T) {
		_, err := repo.FindActive(ctx, ownerID, delegateID, policy.RoleProvider, "rs.example.org")
		assert.True(t, errors.IsCode(err, errors.ErrCodeDelegationNotFound))
	})
}

func TestInMemoryRepository_Listing(t *testing.T) {
	repo := policy.NewInMemoryDelegationRepository()
	ctx := context.Background()

	ownerID := uuid.New()
	d1 := uuid.New()
	d2 := uuid.New()

	_, err := repo.Insert(ctx, testDelegation(ownerID, d1))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, testDelegation(ownerID, d2))
	require.NoError(t, err)

	owned, err := repo.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	assigned, err := repo.ListByDelegate(ctx, d1)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, ownerID, assigned[0].OwnerID)

	none, err := repo.ListByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryRepository_FindActiveDelegates(t *testing.T) {
	repo := policy.NewInMemoryDelegationRepository()
	ctx := context.Background()

	ownerID := uuid.New()
	d1 := uuid.New()
	d2 := uuid.New()

	_, err := repo.Insert(ctx, testDelegation(ownerID, d1))
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, testDelegation(ownerID, d2))
	require.NoError(t, err)

	delegates, err := repo.FindActiveDelegates(ctx, ownerID, policy.RoleProvider, "rs.example.org")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{d1, d2}, delegates)

	// Deleted delegations fall out of the active set
	require.NoError(t, repo.MarkDeleted(ctx, id2, ownerID))

	delegates, err = repo.FindActiveDelegates(ctx, ownerID, policy.RoleProvider, "rs.example.org")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{d1}, delegates)

	empty, err := repo.FindActiveDelegates(ctx, ownerID, policy.RoleConsumer, "rs.example.org")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
