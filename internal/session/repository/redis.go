package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sessioncore/internal/session/domain"
)

// Key layout: one hash per record at sessionKeyPrefix+<accessHash>, plus a
// plain string at refreshKeyPrefix+<refreshToken> pointing back at the
// current access hash. The index key is derived from the raw refresh token so
// the Lua scripts can reconstruct it server-side; this assumes a single-node
// (non-cluster) deployment.
const (
	sessionKeyPrefix = "sessioncore:session:"
	refreshKeyPrefix = "sessioncore:refresh:"
)

// Records carry no TTL: a session with an expired refresh token is inert but
// persists until explicitly deleted.
var saveSessionLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "access_token", ARGV[1],
  "refresh_token", ARGV[2],
  "user_id", ARGV[3],
  "issued_at", ARGV[4],
  "access_expiry", ARGV[5],
  "refresh_expiry", ARGV[6])
redis.call("SET", KEYS[2], ARGV[7])
return 1
`)

var swapAccessLua = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur or cur ~= ARGV[1] then
  return 0
end
local rec = redis.call("HGETALL", KEYS[2])
if #rec == 0 then
  return 0
end
redis.call("DEL", KEYS[2])
redis.call("HSET", KEYS[3], unpack(rec))
redis.call("HSET", KEYS[3], "access_token", ARGV[2], "access_expiry", ARGV[4])
redis.call("SET", KEYS[1], ARGV[3])
return 1
`)

var deleteSessionLua = redis.NewScript(`
local rt = redis.call("HGET", KEYS[1], "refresh_token")
if not rt then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("DEL", ARGV[1] .. rt)
return 1
`)

type RedisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository returns a session repository backed by the given Redis
// client. All multi-key writes run as Lua scripts so they are atomic from the
// point of view of concurrent callers.
func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

func sessionKey(accessHash string) string   { return sessionKeyPrefix + accessHash }
func refreshKey(refreshToken string) string { return refreshKeyPrefix + refreshToken }

// Save inserts the record, failing with ErrDuplicateKey when either the
// access hash or the refresh token is already present.
func (r *RedisRepository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	ok, err := saveSessionLua.Run(ctx, r.client,
		[]string{sessionKey(rec.AccessTokenHash), refreshKey(rec.RefreshToken)},
		rec.AccessToken,
		rec.RefreshToken,
		rec.UserID,
		rec.IssuedAt.UTC().Format(time.RFC3339Nano),
		rec.AccessExpiry.UTC().Format(time.RFC3339Nano),
		rec.RefreshExpiry.UTC().Format(time.RFC3339Nano),
		rec.AccessTokenHash,
	).Int64()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrDuplicateKey
	}
	return nil
}

// GetByAccessHash returns the record for hash, or nil if not found.
func (r *RedisRepository) GetByAccessHash(ctx context.Context, hash string) (*domain.SessionRecord, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(hash)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return recordFromFields(hash, fields)
}

// GetByRefreshToken resolves the refresh index, then loads the record. A
// record deleted between the two reads is reported as absent.
func (r *RedisRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.SessionRecord, error) {
	hash, err := r.client.Get(ctx, refreshKey(refreshToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByAccessHash(ctx, hash)
}

// SwapAccessToken re-keys the record hash under the new access hash and
// repoints the refresh index, all inside one script. Returns false when the
// index no longer maps to oldAccessHash (revoked or lost a concurrent
// rotation).
func (r *RedisRepository) SwapAccessToken(ctx context.Context, refreshToken, oldAccessHash, newAccessToken, newAccessHash string, newAccessExpiry time.Time) (bool, error) {
	ok, err := swapAccessLua.Run(ctx, r.client,
		[]string{refreshKey(refreshToken), sessionKey(oldAccessHash), sessionKey(newAccessHash)},
		oldAccessHash,
		newAccessToken,
		newAccessHash,
		newAccessExpiry.UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// Delete removes the record and its refresh index. Absent records are a no-op.
func (r *RedisRepository) Delete(ctx context.Context, hash string) error {
	_, err := deleteSessionLua.Run(ctx, r.client,
		[]string{sessionKey(hash)},
		refreshKeyPrefix,
	).Int64()
	return err
}

func recordFromFields(accessHash string, fields map[string]string) (*domain.SessionRecord, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issued_at"])
	if err != nil {
		return nil, err
	}
	accessExpiry, err := time.Parse(time.RFC3339Nano, fields["access_expiry"])
	if err != nil {
		return nil, err
	}
	refreshExpiry, err := time.Parse(time.RFC3339Nano, fields["refresh_expiry"])
	if err != nil {
		return nil, err
	}
	return &domain.SessionRecord{
		AccessToken:     fields["access_token"],
		AccessTokenHash: accessHash,
		RefreshToken:    fields["refresh_token"],
		UserID:          fields["user_id"],
		IssuedAt:        issuedAt,
		AccessExpiry:    accessExpiry,
		RefreshExpiry:   refreshExpiry,
	}, nil
}
