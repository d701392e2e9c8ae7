// Package role provides RoleAuthority implementations backed by the
// identity registry's user_roles data.
package role

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/policy"
)

// PostgresAuthority answers role membership from the user_roles table
type PostgresAuthority struct {
	pool *pgxpool.Pool
}

// NewPostgresAuthority creates a new PostgreSQL role authority
func NewPostgresAuthority(pool *pgxpool.Pool) *PostgresAuthority {
	return &PostgresAuthority{
		pool: pool,
	}
}

// HasRole reports whether the identity currently holds the role.
// Lookup failures surface as identity lookup errors rather than a
// false result, so a registry outage never reads as a revocation.
func (a *PostgresAuthority) HasRole(ctx context.Context, userID uuid.UUID, role policy.Roles) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_roles
			WHERE user_id = $1 AND role = $2
		)
	`

	var held bool
	err := a.pool.QueryRow(ctx, query, userID, role).Scan(&held)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrCodeIdentityLookup,
			"failed to look up roles for user %s", userID)
	}

	return held, nil
}

// InMemoryAuthority is a RoleAuthority backed by a map, used in tests
// and the quick-start path. Grant and Revoke mutate membership at
// runtime, which the tests use to model revocation-at-use-time.
type InMemoryAuthority struct {
	mutex sync.RWMutex
	held  map[uuid.UUID]map[policy.Roles]bool
}

// NewInMemoryAuthority creates an empty in-memory authority
func NewInMemoryAuthority() *InMemoryAuthority {
	return &InMemoryAuthority{
		held: make(map[uuid.UUID]map[policy.Roles]bool),
	}
}

// Grant records that the user holds the role
func (a *InMemoryAuthority) Grant(userID uuid.UUID, role policy.Roles) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.held[userID] == nil {
		a.held[userID] = make(map[policy.Roles]bool)
	}
	a.held[userID][role] = true
}

// Revoke removes the role from the user
func (a *InMemoryAuthority) Revoke(userID uuid.UUID, role policy.Roles) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	delete(a.held[userID], role)
}

// HasRole reports whether the identity currently holds the role
func (a *InMemoryAuthority) HasRole(ctx context.Context, userID uuid.UUID, role policy.Roles) (bool, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.held[userID][role], nil
}
