package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mentorhub/backend/internal/security"
	"mentorhub/backend/internal/session/domain"
)

// Each session is a hash at <prefix>session:<id>; <prefix>user_sessions:<user_id> is a set of the user's ids.
// Timestamps are unix milliseconds. Every mutation runs as a Lua script so it is atomic on the server.

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "user_id", ARGV[1], "hash", ARGV[2], "issued_at", ARGV[3], "expires_at", ARGV[4])
redis.call("SADD", KEYS[2], ARGV[5])
return 1
`

// ARGV: expected hash, new hash, new expiry, now.
const rotateSessionScript = `
local f = redis.call("HMGET", KEYS[1], "hash", "expires_at", "revoked_at")
if not f[1] or not f[2] then
  return 0
end
if f[3] then
  return 0
end
if tonumber(f[2]) <= tonumber(ARGV[4]) then
  return 0
end
if f[1] ~= ARGV[1] then
  return 0
end
local next_exp = ARGV[3]
if tonumber(next_exp) < tonumber(f[2]) then
  next_exp = f[2]
end
redis.call("HSET", KEYS[1], "hash", ARGV[2], "expires_at", next_exp, "rotated_at", ARGV[4])
return 1
`

const revokeSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HEXISTS", KEYS[1], "revoked_at") == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 1
`

var (
	createSessionLua = redis.NewScript(createSessionScript)
	rotateSessionLua = redis.NewScript(rotateSessionScript)
	revokeSessionLua = redis.NewScript(revokeSessionScript)
)

// RedisRepository stores sessions in Redis.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRepository returns a session repository using client; prefix namespaces its keys.
func NewRedisRepository(client redis.UniversalClient, prefix string, opts ...Option) *RedisRepository {
	o := applyOptions(opts)
	return &RedisRepository{client: client, prefix: prefix, now: o.now}
}

func (r *RedisRepository) key(sessionID string) string {
	return r.prefix + "session:" + sessionID
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + "user_sessions:" + userID
}

func (r *RedisRepository) Create(ctx context.Context, sessionID, userID, refreshToken string, expiresAt time.Time) error {
	created, err := createSessionLua.Run(ctx, r.client,
		[]string{r.key(sessionID), r.userKey(userID)},
		userID, security.HashRefreshToken(refreshToken), r.now().UnixMilli(), expiresAt.UnixMilli(), sessionID,
	).Int()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if created == 0 {
		return ErrSessionExists
	}
	return nil
}

func (r *RedisRepository) Validate(ctx context.Context, sessionID, refreshToken string) (bool, error) {
	s, err := r.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		return false, err
	}
	return s.Active(r.now()) && security.RefreshTokenMatches(s.RefreshTokenHash, refreshToken), nil
}

func (r *RedisRepository) Rotate(ctx context.Context, sessionID, expectedToken, newToken string, newExpiresAt time.Time) (bool, error) {
	rotated, err := rotateSessionLua.Run(ctx, r.client,
		[]string{r.key(sessionID)},
		security.HashRefreshToken(expectedToken), security.HashRefreshToken(newToken), newExpiresAt.UnixMilli(), r.now().UnixMilli(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}
	return rotated == 1, nil
}

func (r *RedisRepository) Revoke(ctx context.Context, sessionID string) (bool, error) {
	revoked, err := r.revoke(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return revoked, nil
}

func (r *RedisRepository) revoke(ctx context.Context, sessionID string) (bool, error) {
	n, err := revokeSessionLua.Run(ctx, r.client, []string{r.key(sessionID)}, r.now().UnixMilli()).Int()
	return n == 1, err
}

// GetByID returns the session for id, or nil if not found.
func (r *RedisRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeSession(sessionID, fields)
}

func (r *RedisRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, r.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := r.now()
	var out []*domain.Session
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		s, err := decodeSession(ids[i], fields)
		if err != nil {
			return nil, err
		}
		if s.Active(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (r *RedisRepository) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	n := 0
	for _, id := range ids {
		revoked, err := r.revoke(ctx, id)
		if err != nil {
			return n, fmt.Errorf("revoke user sessions: %w", err)
		}
		if revoked {
			n++
		}
	}
	return n, nil
}

func decodeSession(id string, f map[string]string) (*domain.Session, error) {
	issued, err := parseMillis(f["issued_at"])
	if err != nil {
		return nil, fmt.Errorf("session %s: issued_at: %w", id, err)
	}
	expires, err := parseMillis(f["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("session %s: expires_at: %w", id, err)
	}
	s := &domain.Session{
		ID:               id,
		UserID:           f["user_id"],
		RefreshTokenHash: f["hash"],
		IssuedAt:         issued,
		ExpiresAt:        expires,
	}
	if v, ok := f["revoked_at"]; ok {
		t, err := parseMillis(v)
		if err != nil {
			return nil, fmt.Errorf("session %s: revoked_at: %w", id, err)
		}
		s.RevokedAt = &t
	}
	if v, ok := f["rotated_at"]; ok {
		t, err := parseMillis(v)
		if err != nil {
			return nil, fmt.Errorf("session %s: rotated_at: %w", id, err)
		}
		s.LastRotatedAt = &t
	}
	return s, nil
}

func parseMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
