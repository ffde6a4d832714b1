package permission

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-based permission repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindPermissionIDsByUserID returns the permission-id set for a user
func (r *PostgresRepository) FindPermissionIDsByUserID(ctx context.Context, userID int64) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT permission_id FROM permission_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindAssignmentsByUserID returns the full assignment records for a user
func (r *PostgresRepository) FindAssignmentsByUserID(ctx context.Context, userID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, permission_id, assigned_by, assigned_at
		FROM permission_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.UserID, &a.PermissionID, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// Assign grants a permission to a user. The composite primary key enforces
// the one-assignment-per-permission invariant.
func (r *PostgresRepository) Assign(ctx context.Context, arg Assignment) error {
	if _, ok := Lookup(arg.PermissionID); !ok {
		return ErrUnknownPermission
	}
	if arg.AssignedAt.IsZero() {
		arg.AssignedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO permission_assignments (user_id, permission_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4)`,
		arg.UserID, arg.PermissionID, arg.AssignedBy, arg.AssignedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyAssigned
	}
	return err
}

// Revoke removes a permission from a user
func (r *PostgresRepository) Revoke(ctx context.Context, userID int64, permissionID int) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM permission_assignments WHERE user_id = $1 AND permission_id = $2`,
		userID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAssigned
	}
	return nil
}
