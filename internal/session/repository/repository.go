package repository

import (
	"context"
	"errors"
	"time"

	"sessioncore/internal/session/domain"
)

// ErrDuplicateKey is returned by Save when a record with the same access
// token hash already exists. Digest collision resistance makes this
// unexpected in practice; callers should treat it as fatal.
var ErrDuplicateKey = errors.New("session record already exists")

// Repository defines persistence for session records. Implementations must
// make a successful Save or SwapAccessToken visible to the next Get from any
// caller, and must perform SwapAccessToken atomically inside the store; the
// service layer holds no locks of its own.
type Repository interface {
	// Save inserts a new record. Returns ErrDuplicateKey when a record with
	// the same access token hash already exists.
	Save(ctx context.Context, rec *domain.SessionRecord) error

	// GetByAccessHash returns the record for hash, or nil if not found.
	// It returns an error only for store failures, not for missing records.
	GetByAccessHash(ctx context.Context, hash string) (*domain.SessionRecord, error)

	// GetByRefreshToken returns the record holding the given refresh token,
	// or nil if not found.
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.SessionRecord, error)

	// SwapAccessToken atomically replaces the access token, hash, and expiry
	// on the record keyed by the unchanged refreshToken, provided its access
	// hash still equals oldAccessHash. Returns false when no record matched:
	// the session was revoked, or a concurrent rotation already won.
	SwapAccessToken(ctx context.Context, refreshToken, oldAccessHash, newAccessToken, newAccessHash string, newAccessExpiry time.Time) (bool, error)

	// Delete removes the record for hash. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, hash string) error
}
