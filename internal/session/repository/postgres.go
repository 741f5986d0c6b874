package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"sessioncore/internal/session/domain"
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db
// for persistence. The sessions table is created by the embedded migrations.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertSessionSQL = `
INSERT INTO sessions (access_token_hash, access_token, refresh_token, user_id, issued_at, access_expiry, refresh_expiry)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Save inserts the record. A unique violation on either the access hash or
// the refresh token maps to ErrDuplicateKey.
func (r *PostgresRepository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	_, err := r.db.ExecContext(ctx, insertSessionSQL,
		rec.AccessTokenHash, rec.AccessToken, rec.RefreshToken, rec.UserID,
		rec.IssuedAt, rec.AccessExpiry, rec.RefreshExpiry)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateKey
	}
	return err
}

const selectSessionSQL = `
SELECT access_token_hash, access_token, refresh_token, user_id, issued_at, access_expiry, refresh_expiry
FROM sessions `

// GetByAccessHash returns the record for hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByAccessHash(ctx context.Context, hash string) (*domain.SessionRecord, error) {
	return r.getOne(ctx, selectSessionSQL+`WHERE access_token_hash = $1`, hash)
}

// GetByRefreshToken returns the record holding refreshToken, or nil if not found.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.SessionRecord, error) {
	return r.getOne(ctx, selectSessionSQL+`WHERE refresh_token = $1`, refreshToken)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, key string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.AccessTokenHash, &rec.AccessToken, &rec.RefreshToken, &rec.UserID,
		&rec.IssuedAt, &rec.AccessExpiry, &rec.RefreshExpiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

const swapAccessSQL = `
UPDATE sessions
SET access_token = $3, access_token_hash = $4, access_expiry = $5
WHERE refresh_token = $1 AND access_token_hash = $2`

// SwapAccessToken replaces the access fields in a single conditional UPDATE.
// The access-hash condition makes concurrent rotations of the same record
// produce exactly one winner; the database serializes the two updates and the
// loser matches zero rows.
func (r *PostgresRepository) SwapAccessToken(ctx context.Context, refreshToken, oldAccessHash, newAccessToken, newAccessHash string, newAccessExpiry time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, swapAccessSQL,
		refreshToken, oldAccessHash, newAccessToken, newAccessHash, newAccessExpiry)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the record for hash. Deleting an absent record is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE access_token_hash = $1`, hash)
	return err
}
