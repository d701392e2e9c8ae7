// Package user provides UserDirectory implementations for resolving
// identities to user records, mainly to turn delegate IDs into email
// addresses.
package user

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/policy"
)

// PostgresDirectory resolves users from the users and user_roles tables
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a new PostgreSQL user directory
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{
		pool: pool,
	}
}

// GetUserByID returns the user record with its held roles
func (d *PostgresDirectory) GetUserByID(ctx context.Context, id uuid.UUID) (policy.User, error) {
	query := `SELECT id, name, email FROM users WHERE id = $1`

	var u policy.User
	err := d.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return policy.User{}, errors.NotFound("user", id.String())
		}
		return policy.User{}, errors.Wrapf(err, errors.ErrCodeIdentityLookup,
			"failed to look up user %s", id)
	}

	rolesQuery := `SELECT role FROM user_roles WHERE user_id = $1`
	rows, err := d.pool.Query(ctx, rolesQuery, id)
	if err != nil {
		return policy.User{}, errors.Wrapf(err, errors.ErrCodeIdentityLookup,
			"failed to look up roles for user %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var role policy.Roles
		if err := rows.Scan(&role); err != nil {
			return policy.User{}, errors.Wrapf(err, errors.ErrCodeIdentityLookup,
				"failed to scan role for user %s", id)
		}
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return policy.User{}, errors.Wrapf(err, errors.ErrCodeIdentityLookup,
			"failed to read roles for user %s", id)
	}

	return u, nil
}

// InMemoryDirectory is a UserDirectory backed by a map, used in tests
// and the quick-start path
type InMemoryDirectory struct {
	mutex sync.RWMutex
	users map[uuid.UUID]policy.User
}

// NewInMemoryDirectory creates an empty in-memory directory
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		users: make(map[uuid.UUID]policy.User),
	}
}

// Add stores a user record
func (d *InMemoryDirectory) Add(u policy.User) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.users[u.ID] = u
}

// GetUserByID returns the stored user record
func (d *InMemoryDirectory) GetUserByID(ctx context.Context, id uuid.UUID) (policy.User, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	u, exists := d.users[id]
	if !exists {
		return policy.User{}, errors.NotFound("user", id.String())
	}

	return u, nil
}
