// Package service implements the session-token lifecycle: issuing an
// access/refresh pair, validating the hashed bearer credential presented on
// each request, rotating an expired access token via its refresh token, and
// revoking a session.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessioncore/internal/security"
	"sessioncore/internal/session/domain"
	"sessioncore/internal/session/repository"
	"sessioncore/internal/telemetry"
	"sessioncore/internal/token"
)

// Sentinel errors for the session lifecycle; callers branch with errors.Is.
// ErrAccessExpired is deliberately distinct from ErrInvalidToken: it tells
// the caller to attempt rotation instead of rejecting outright, while
// ErrSessionExpired is terminal and requires a fresh login.
var (
	ErrUnauthenticated  = errors.New("no credential supplied")
	ErrInvalidToken     = errors.New("invalid token")
	ErrAccessExpired    = errors.New("access token expired")
	ErrSessionExpired   = errors.New("session expired")
	ErrUserNotFound     = errors.New("user no longer exists")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Directory is the minimal read-only view of the external user directory.
// The session core only ever checks that a subject still exists.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Service holds the session lifecycle dependencies. Construct once at
// startup and share; it keeps no mutable state, so correctness under
// concurrent requests rests entirely on the store's atomic swap.
type Service struct {
	store      repository.Repository
	users      Directory
	codec      *token.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	emitter    telemetry.EventEmitter
	metrics    *telemetry.Metrics
	now        func() time.Time
}

// NewService returns a Service with the given dependencies. emitter and
// metrics may be nil. refreshTTL must exceed accessTTL so that every issued
// pair satisfies refreshExpiry > accessExpiry.
func NewService(
	store repository.Repository,
	users Directory,
	codec *token.Codec,
	accessTTL, refreshTTL time.Duration,
	emitter telemetry.EventEmitter,
	metrics *telemetry.Metrics,
) (*Service, error) {
	if store == nil || users == nil || codec == nil {
		return nil, errors.New("service: store, users, and codec are required")
	}
	if accessTTL <= 0 {
		return nil, errors.New("service: access TTL must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, errors.New("service: refresh TTL must exceed access TTL")
	}
	return &Service{
		store:      store,
		users:      users,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		emitter:    emitter,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue mints a fresh access/refresh pair for userID and returns the record
// to persist. No side effects beyond token construction: the caller (or
// Establish) is responsible for saving the record.
func (s *Service) Issue(userID string) (*domain.SessionRecord, error) {
	if userID == "" {
		return nil, errors.New("service: user id is required")
	}
	now := s.now()
	access, accessExpiry, err := s.codec.Sign(userID, token.TypeAccess, s.accessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiry, err := s.codec.Sign(userID, token.TypeRefresh, s.refreshTTL, now)
	if err != nil {
		return nil, err
	}
	return &domain.SessionRecord{
		AccessToken:     access,
		AccessTokenHash: security.HashToken(access),
		RefreshToken:    refresh,
		UserID:          userID,
		IssuedAt:        now,
		AccessExpiry:    accessExpiry,
		RefreshExpiry:   refreshExpiry,
	}, nil
}

// Establish issues a pair for userID and persists the record. This is the
// entry point for the external login collaborator; the returned record's
// AccessTokenHash is what the client gets as its bearer credential.
func (s *Service) Establish(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	rec, err := s.Issue(userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.metrics.Issued(ctx)
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType:  telemetry.EventEstablished,
		UserID:     userID,
		HashPrefix: telemetry.HashPrefix(rec.AccessTokenHash),
		At:         s.now(),
	})
	return rec, nil
}

// Validate resolves the presented bearer credential (an access token hash)
// to an authenticated subject.
//
// Failure modes, in check order: ErrUnauthenticated for an empty credential,
// ErrInvalidToken for an unknown hash, a record whose token no longer hashes
// to the presented credential, bad signature, type confusion, or a subject
// that disagrees with the stored record, ErrAccessExpired when the
// access token has expired but the session is still tracked (caller should
// attempt rotation), ErrUserNotFound when the subject has vanished from the
// user directory.
func (s *Service) Validate(ctx context.Context, presentedHash string) (string, error) {
	if presentedHash == "" {
		return "", ErrUnauthenticated
	}
	rec, err := s.store.GetByAccessHash(ctx, presentedHash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if rec == nil {
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	// The stored token must hash back to the presented credential; a mismatch
	// means the record was corrupted or tampered with after issuance.
	if !security.TokenHashEqual(rec.AccessToken, presentedHash) {
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	subject, _, err := s.codec.Verify(rec.AccessToken, token.TypeAccess, s.now())
	switch {
	case errors.Is(err, token.ErrExpired):
		return "", ErrAccessExpired
	case err != nil:
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	if subject != rec.UserID {
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	exists, err := s.users.Exists(ctx, subject)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !exists {
		s.metrics.Failure(ctx, ErrUserNotFound.Error())
		return "", ErrUserNotFound
	}
	s.metrics.Validated(ctx)
	return subject, nil
}

// Rotate exchanges an expired-but-still-tracked access credential for a new
// one via the record's refresh token. Only a new access token is minted; the
// refresh token and its expiry are preserved unchanged, so the refresh
// token's total lifetime bounds the session regardless of rotation
// frequency.
//
// A hash that resolves to no record (empty included, or one already replaced
// by a concurrent rotation) and a lost swap race all surface as
// ErrInvalidToken. An expired refresh token surfaces as ErrSessionExpired,
// which is terminal: the client must re-authenticate through the login
// collaborator.
func (s *Service) Rotate(ctx context.Context, oldAccessHash string) (string, error) {
	if oldAccessHash == "" {
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	rec, err := s.store.GetByAccessHash(ctx, oldAccessHash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if rec == nil {
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	now := s.now()
	subject, _, err := s.codec.Verify(rec.RefreshToken, token.TypeRefresh, now)
	switch {
	case errors.Is(err, token.ErrExpired):
		s.metrics.Failure(ctx, ErrSessionExpired.Error())
		return "", ErrSessionExpired
	case err != nil:
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	if subject != rec.UserID {
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	newAccess, newExpiry, err := s.codec.Sign(subject, token.TypeAccess, s.accessTTL, now)
	if err != nil {
		return "", err
	}
	newHash := security.HashToken(newAccess)
	ok, err := s.store.SwapAccessToken(ctx, rec.RefreshToken, oldAccessHash, newAccess, newHash, newExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !ok {
		// A concurrent rotation won between our read and the swap.
		s.metrics.Failure(ctx, ErrInvalidToken.Error())
		return "", ErrInvalidToken
	}
	s.metrics.Rotated(ctx)
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType:  telemetry.EventRotated,
		UserID:     subject,
		HashPrefix: telemetry.HashPrefix(newHash),
		At:         now,
	})
	return newHash, nil
}

// Revoke deletes the session record for hash. Idempotent: revoking an
// unknown or already-revoked credential is not an error. Used by the logout
// and account-deletion collaborators.
func (s *Service) Revoke(ctx context.Context, hash string) error {
	if err := s.store.Delete(ctx, hash); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.metrics.Revoked(ctx)
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType:  telemetry.EventRevoked,
		HashPrefix: telemetry.HashPrefix(hash),
		At:         s.now(),
	})
	return nil
}
