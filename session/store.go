package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps every transport or script failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned when the session does not exist.
	ErrNotFound = errors.New("refresh session not found")
	// ErrExpired is returned when the session outlived its absolute lifetime.
	ErrExpired = errors.New("refresh session expired")
	// ErrHashMismatch is returned when the presented refresh secret is not the
	// current one. The session is destroyed before this is returned.
	ErrHashMismatch = errors.New("refresh hash mismatch")
	// ErrCorrupt is returned when a stored session is missing fields.
	ErrCorrupt = errors.New("refresh session corrupt")
)

const (
	fieldUserID    = "uid"
	fieldRole      = "role"
	fieldRefresh   = "rh"
	fieldCreatedAt = "ca"
	fieldExpiresAt = "exp"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
)

// KEYS[1] session hash. ARGV: user key prefix, session id, presented hash,
// next hash, now (unix seconds).
const rotateRefreshScript = `
local data = redis.call("HMGET", KEYS[1], "uid", "rh", "exp", "role", "ca")
if not data[1] then
  return {0}
end

local user_key = ARGV[1] .. data[1]

if tonumber(data[3] or "0") <= tonumber(ARGV[5]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", user_key, ARGV[2])
  return {1, data[1]}
end

if data[2] ~= ARGV[3] then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", user_key, ARGV[2])
  return {2, data[1]}
end

redis.call("HSET", KEYS[1], "rh", ARGV[4])
return {3, data[1], data[4] or "", data[5] or "0", data[3]}
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// KEYS[1] session hash. ARGV: user key prefix, session id.
const deleteSessionScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. uid, ARGV[2])
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed refresh session store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a Store. prefix namespaces every key it writes.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "es"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save writes sess and indexes it under its user. ttl bounds both keys.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" || sess.UserID == "" {
		return errors.New("session requires id and user id")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	sessionKey := s.key(sess.SessionID)
	userKey := s.userKey(sess.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey,
			fieldUserID, sess.UserID,
			fieldRole, sess.Role,
			fieldRefresh, hex.EncodeToString(sess.RefreshHash[:]),
			fieldCreatedAt, sess.CreatedAt,
			fieldExpiresAt, sess.ExpiresAt,
		)
		pipe.Expire(ctx, sessionKey, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	sess, err := decodeFields(sessionID, fields)
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAt <= s.now().Unix() {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	return sess, nil
}

// Rotate swaps the stored refresh hash from provided to next in one atomic
// step. On mismatch or expiry the session is destroyed. The returned session
// carries the rotated hash.
func (s *Store) Rotate(ctx context.Context, sessionID string, provided, next [32]byte) (*Session, error) {
	result, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		s.userKeyPrefix(),
		sessionID,
		hex.EncodeToString(provided[:]),
		hex.EncodeToString(next[:]),
		s.now().Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid refresh script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid refresh script status", ErrRedisUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrNotFound
	case rotateStatusExpired:
		return nil, ErrExpired
	case rotateStatusMismatch:
		return nil, ErrHashMismatch
	case rotateStatusRotated:
		// Built from the script reply: a concurrent loser may delete the key
		// right after this rotation commits.
		if len(parts) < 5 {
			return nil, fmt.Errorf("%w: short refresh script response", ErrRedisUnavailable)
		}
		return decodeFields(sessionID, map[string]string{
			fieldUserID:    replyString(parts[1]),
			fieldRole:      replyString(parts[2]),
			fieldCreatedAt: replyString(parts[3]),
			fieldExpiresAt: replyString(parts[4]),
			fieldRefresh:   hex.EncodeToString(next[:]),
		})
	default:
		return nil, fmt.Errorf("%w: unknown refresh script status %d", ErrRedisUnavailable, code)
	}
}

// Delete removes a session and its index entry. Deleting a missing session
// is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID)}, s.userKeyPrefix(), sessionID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every session indexed under userID.
//
// A session saved concurrently with this call may survive it; it still
// expires with its TTL.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, id := range sessionIDs {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs lists the session ids indexed under userID.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping measures a Redis round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func replyString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func decodeFields(sessionID string, fields map[string]string) (*Session, error) {
	uid := fields[fieldUserID]
	if uid == "" {
		return nil, ErrCorrupt
	}

	raw, err := hex.DecodeString(fields[fieldRefresh])
	if err != nil || len(raw) != 32 {
		return nil, ErrCorrupt
	}

	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}
	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}

	sess := &Session{
		SessionID: sessionID,
		UserID:    uid,
		Role:      fields[fieldRole],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	copy(sess.RefreshHash[:], raw)
	return sess, nil
}
