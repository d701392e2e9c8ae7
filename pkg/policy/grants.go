package policy

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGrantSource implements ResourceGrantSource against the
// resource_grants table. In a full deployment the grant data is owned
// by the catalogue/policy collaborator; this source only reads it.
type PostgresGrantSource struct {
	pool *pgxpool.Pool
}

// NewPostgresGrantSource creates a new PostgreSQL grant source
func NewPostgresGrantSource(pool *pgxpool.Pool) *PostgresGrantSource {
	return &PostgresGrantSource{
		pool: pool,
	}
}

// GrantsAccess reports whether the owner's role grants access to the resource
func (s *PostgresGrantSource) GrantsAccess(ctx context.Context, ownerID uuid.UUID, role Roles, resourceServerURL, resourceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM resource_grants
			WHERE owner_id = $1 AND role = $2
			  AND resource_server_url = $3 AND resource_id = $4
		)
	`

	var granted bool
	err := s.pool.QueryRow(ctx, query, ownerID, role, resourceServerURL, resourceID).Scan(&granted)
	if err != nil {
		return false, storeErr(err, "check resource grant")
	}

	return granted, nil
}

type grantKey struct {
	ownerID           uuid.UUID
	role              Roles
	resourceServerURL string
	resourceID        string
}

// InMemoryGrantSource is a ResourceGrantSource backed by a map, used in
// tests and the quick-start path.
type InMemoryGrantSource struct {
	mutex  sync.RWMutex
	grants map[grantKey]bool
}

// NewInMemoryGrantSource creates an empty in-memory grant source
func NewInMemoryGrantSource() *InMemoryGrantSource {
	return &InMemoryGrantSource{
		grants: make(map[grantKey]bool),
	}
}

// Allow records that the owner's role grants access to the resource
func (s *InMemoryGrantSource) Allow(ownerID uuid.UUID, role Roles, resourceServerURL, resourceID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.grants[grantKey{ownerID, role, resourceServerURL, resourceID}] = true
}

// GrantsAccess reports whether the owner's role grants access to the resource
func (s *InMemoryGrantSource) GrantsAccess(ctx context.Context, ownerID uuid.UUID, role Roles, resourceServerURL, resourceID string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.grants[grantKey{ownerID, role, resourceServerURL, resourceID}], nil
}
