// Package repository provides read access to the user directory backing the
// session core's existence checks. The consumer-side contract lives with the
// session service; this package only ships the concrete Postgres adapter.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"sessioncore/internal/user/domain"
)

const existsUserSQL = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND status = 'active')`

const selectUserSQL = `
SELECT id, email, name, status, created_at, updated_at
FROM users
WHERE id = $1
`

// PostgresDirectory implements Directory on Postgres.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Exists reports whether an active user with the given id is present.
// Disabled users count as absent so their sessions stop validating.
func (d *PostgresDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	if err := d.db.QueryRowContext(ctx, existsUserSQL, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetByID returns the user with the given id, or nil if not found.
func (d *PostgresDirectory) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := d.db.QueryRowContext(ctx, selectUserSQL, userID).Scan(
		&u.ID, &u.Email, &u.Name, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
