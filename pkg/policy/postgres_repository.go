package policy

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
)

// uniqueViolation is the postgres error code raised by the partial
// unique index over active delegation tuples
const uniqueViolation = "23505"

// PostgresDelegationRepository implements DelegationRepository using
// PostgreSQL. The uniqueness invariant over active tuples is enforced
// by a partial unique index (see migrations/aaa_db.sql), so concurrent
// inserts for the same tuple resolve inside the database.
type PostgresDelegationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDelegationRepository creates a new PostgreSQL delegation repository
func NewPostgresDelegationRepository(pool *pgxpool.Pool) *PostgresDelegationRepository {
	return &PostgresDelegationRepository{
		pool: pool,
	}
}

// storeErr translates driver failures into coded errors. Context
// deadline errors become retryable store timeouts; everything else is
// internal.
func storeErr(err error, op string) error {
	if stderrors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return errors.Wrapf(err, errors.ErrCodeStoreTimeout, "%s timed out", op)
	}
	return errors.Wrapf(err, errors.ErrCodeInternal, "failed to %s", op)
}

// Insert persists a new active delegation
func (r *PostgresDelegationRepository) Insert(ctx context.Context, d Delegation) (uuid.UUID, error) {
	query := `
		INSERT INTO delegations (
			owner_id, delegate_id, role, resource_server_url, status, created_at
		) VALUES (
			$1, $2, $3, $4, 'active', NOW()
		) RETURNING id
	`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		d.OwnerID,
		d.DelegateID,
		d.Role,
		d.ResourceServerURL,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, errors.Newf(errors.ErrCodeConflict,
				"active delegation already exists for delegate %s with role %s on %s",
				d.DelegateID, d.Role, d.ResourceServerURL)
		}
		return uuid.Nil, storeErr(err, "insert delegation")
	}

	return id, nil
}

// FindActive returns the active delegation matching the tuple
func (r *PostgresDelegationRepository) FindActive(ctx context.Context, ownerID, delegateID uuid.UUID, role Roles, resourceServerURL string) (Delegation, error) {
	query := `
		SELECT id, owner_id, delegate_id, role, resource_server_url, status, created_at, deleted_at
		FROM delegations
		WHERE owner_id = $1 AND delegate_id = $2 AND role = $3
		  AND resource_server_url = $4 AND status = 'active'
	`

	d, err := r.scanRow(r.pool.QueryRow(ctx, query, ownerID, delegateID, role, resourceServerURL))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Delegation{}, errors.New(errors.ErrCodeDelegationNotFound, "no active delegation matches")
		}
		return Delegation{}, storeErr(err, "find active delegation")
	}

	return d, nil
}

// ListByOwner returns a snapshot of all delegations created by ownerID
func (r *PostgresDelegationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Delegation, error) {
	query := `
		SELECT id, owner_id, delegate_id, role, resource_server_url, status, created_at, deleted_at
		FROM delegations
		WHERE owner_id = $1
		ORDER BY created_at
	`
	return r.list(ctx, query, ownerID)
}

// ListByDelegate returns a snapshot of all delegations assigned to delegateID
func (r *PostgresDelegationRepository) ListByDelegate(ctx context.Context, delegateID uuid.UUID) ([]Delegation, error) {
	query := `
		SELECT id, owner_id, delegate_id, role, resource_server_url, status, created_at, deleted_at
		FROM delegations
		WHERE delegate_id = $1
		ORDER BY created_at
	`
	return r.list(ctx, query, delegateID)
}

// MarkDeleted transitions the record to deleted
func (r *PostgresDelegationRepository) MarkDeleted(ctx context.Context, id, requesterID uuid.UUID) error {
	var ownerID, delegateID uuid.UUID
	var status DelegationStatus

	query := `SELECT owner_id, delegate_id, status FROM delegations WHERE id = $1`
	err := r.pool.QueryRow(ctx, query, id).Scan(&ownerID, &delegateID, &status)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return errors.NotFound("delegation", id.String())
		}
		return storeErr(err, "get delegation")
	}

	if ownerID != requesterID && delegateID != requesterID {
		return errors.Forbidden("requester is neither owner nor delegate of the delegation")
	}

	if status == StatusDeleted {
		return nil
	}

	// Guarded update keeps the transition idempotent under concurrent
	// deletes of the same record
	update := `
		UPDATE delegations
		SET status = 'deleted', deleted_at = NOW()
		WHERE id = $1 AND status = 'active'
	`
	if _, err := r.pool.Exec(ctx, update, id); err != nil {
		return storeErr(err, "mark delegation deleted")
	}

	return nil
}

// FindActiveDelegates returns delegate IDs of active delegations for the tuple
func (r *PostgresDelegationRepository) FindActiveDelegates(ctx context.Context, ownerID uuid.UUID, role Roles, resourceServerURL string) ([]uuid.UUID, error) {
	query := `
		SELECT delegate_id
		FROM delegations
		WHERE owner_id = $1 AND role = $2 AND resource_server_url = $3 AND status = 'active'
	`

	rows, err := r.pool.Query(ctx, query, ownerID, role, resourceServerURL)
	if err != nil {
		return nil, storeErr(err, "find active delegates")
	}
	defer rows.Close()

	delegates := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr(err, "scan delegate id")
		}
		delegates = append(delegates, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "read delegate rows")
	}

	return delegates, nil
}

func (r *PostgresDelegationRepository) list(ctx context.Context, query string, id uuid.UUID) ([]Delegation, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, storeErr(err, "list delegations")
	}
	defer rows.Close()

	delegations := make([]Delegation, 0)
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, storeErr(err, "scan delegation")
		}
		delegations = append(delegations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "read delegation rows")
	}

	return delegations, nil
}

func (r *PostgresDelegationRepository) scanRow(row pgx.Row) (Delegation, error) {
	var d Delegation
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.DelegateID,
		&d.Role,
		&d.ResourceServerURL,
		&d.Status,
		&d.CreatedAt,
		&d.DeletedAt,
	)
	if err != nil {
		return Delegation{}, fmt.Errorf("failed to scan delegation: %w", err)
	}
	return d, nil
}
