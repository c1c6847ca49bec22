package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	consumeStatusNotFound int64 = 0
	consumeStatusExpired  int64 = 1
	consumeStatusConsumed int64 = 2
)

// KEYS[1] refresh hash key
// ARGV[1] now (unix ms), ARGV[2] access key prefix, ARGV[3] user key prefix,
// ARGV[4] refresh digest (hex), ARGV[5] access link prefix
const consumeRefreshScript = `
local fields = redis.call("HMGET", KEYS[1], "rec", "exp", "ah", "uid")
local blob = fields[1]
if not blob then
  return {0}
end

if tonumber(ARGV[1]) > tonumber(fields[2]) then
  return {1}
end

redis.call("DEL", KEYS[1])
redis.call("DEL", ARGV[2] .. fields[3], ARGV[5] .. fields[3])
redis.call("SREM", ARGV[3] .. fields[4], fields[3] .. ":" .. ARGV[4])
return {2, blob}
`

var consumeRefreshLua = redis.NewScript(consumeRefreshScript)

// RedisStore persists session pairs in Redis:
//
//	<prefix>:s:<access hex>   access blob, PX access TTL
//	<prefix>:r:<refresh hex>  hash {rec, exp, ah, uid}, PX refresh TTL
//	<prefix>:a:<access hex>   refresh hex, PX refresh TTL
//	<prefix>:u:<user id>      set of "<access hex>:<refresh hex>"
//
// Key TTLs are a backstop; expiry decisions use the caller's clock. The
// access link outlives the access blob so a lapsed access token can still
// revoke its refresh token.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store on client. An empty prefix defaults to "as".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "as"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) accessPrefix() string  { return s.prefix + ":s:" }
func (s *RedisStore) refreshPrefix() string { return s.prefix + ":r:" }
func (s *RedisStore) userPrefix() string    { return s.prefix + ":u:" }
func (s *RedisStore) linkPrefix() string    { return s.prefix + ":a:" }

func (s *RedisStore) accessKey(h [32]byte) string  { return s.accessPrefix() + hex.EncodeToString(h[:]) }
func (s *RedisStore) refreshKey(h [32]byte) string { return s.refreshPrefix() + hex.EncodeToString(h[:]) }
func (s *RedisStore) userKey(userID string) string { return s.userPrefix() + userID }
func (s *RedisStore) linkKey(h [32]byte) string    { return s.linkPrefix() + hex.EncodeToString(h[:]) }

func member(r Record) string {
	return hex.EncodeToString(r.AccessHash[:]) + ":" + hex.EncodeToString(r.RefreshHash[:])
}

func (s *RedisStore) Save(ctx context.Context, r Record) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}

	accessTTL := r.ExpiresAt.Sub(r.CreatedAt)
	refreshTTL := r.RefreshExpiresAt.Sub(r.CreatedAt)
	if accessTTL <= 0 || refreshTTL <= 0 {
		return errors.New("session: non-positive ttl")
	}

	rk := s.refreshKey(r.RefreshHash)
	uk := s.userKey(r.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(r.AccessHash), data, accessTTL)
		pipe.Set(ctx, s.linkKey(r.AccessHash), hex.EncodeToString(r.RefreshHash[:]), refreshTTL)
		pipe.HSet(ctx, rk,
			"rec", data,
			"exp", r.RefreshExpiresAt.UnixMilli(),
			"ah", hex.EncodeToString(r.AccessHash[:]),
			"uid", r.UserID,
		)
		pipe.PExpire(ctx, rk, refreshTTL)
		pipe.SAdd(ctx, uk, member(r))
		pipe.PExpire(ctx, uk, refreshTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, accessHash [32]byte) (Record, error) {
	data, err := s.redis.Get(ctx, s.accessKey(accessHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

func (s *RedisStore) DeleteAccess(ctx context.Context, accessHash [32]byte) error {
	if err := s.redis.Del(ctx, s.accessKey(accessHash)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, accessHash [32]byte) (Record, error) {
	r, err := s.resolve(ctx, accessHash)
	if err != nil {
		return Record{}, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.accessKey(r.AccessHash), s.linkKey(r.AccessHash), s.refreshKey(r.RefreshHash))
		pipe.SRem(ctx, s.userKey(r.UserID), member(r))
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return r, nil
}

// resolve finds the pair behind accessHash, following the access link when
// the access blob is gone.
func (s *RedisStore) resolve(ctx context.Context, accessHash [32]byte) (Record, error) {
	r, err := s.Get(ctx, accessHash)
	if !errors.Is(err, ErrNotFound) {
		return r, err
	}

	rh, err := s.redis.Get(ctx, s.linkKey(accessHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	blob, err := s.redis.HGet(ctx, s.refreshPrefix()+rh, "rec").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(blob)
}

func (s *RedisStore) ConsumeRefresh(ctx context.Context, refreshHash [32]byte, now time.Time) (Record, error) {
	result, err := consumeRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.refreshKey(refreshHash)},
		now.UnixMilli(),
		s.accessPrefix(),
		s.userPrefix(),
		hex.EncodeToString(refreshHash[:]),
		s.linkPrefix(),
	).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return Record{}, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return Record{}, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return Record{}, ErrRefreshNotFound
	case consumeStatusExpired:
		return Record{}, ErrRefreshExpired
	case consumeStatusConsumed:
		if len(parts) < 2 {
			return Record{}, fmt.Errorf("%w: missing session payload", ErrRedisUnavailable)
		}
		blob, ok := parts[1].(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: invalid session payload", ErrRedisUnavailable)
		}
		return Decode([]byte(blob))
	default:
		return Record{}, fmt.Errorf("%w: unknown consume script status", ErrRedisUnavailable)
	}
}

func (s *RedisStore) ListForUser(ctx context.Context, userID string) ([]Record, error) {
	uk := s.userKey(userID)
	members, err := s.redis.SMembers(ctx, uk).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(members))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, m := range members {
			_, rh, _ := strings.Cut(m, ":")
			cmds[i] = pipe.HGet(ctx, s.refreshPrefix()+rh, "rec")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]Record, 0, len(members))
	var stale []interface{}
	for i, cmd := range cmds {
		blob, err := cmd.Bytes()
		if err != nil {
			stale = append(stale, members[i])
			continue
		}
		r, err := Decode(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, uk, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	sortByCreated(out)
	return out, nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	uk := s.userKey(userID)
	members, err := s.redis.SMembers(ctx, uk).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, 3*len(members)+1)
	for _, m := range members {
		ah, rh, _ := strings.Cut(m, ":")
		keys = append(keys, s.accessPrefix()+ah, s.linkPrefix()+ah, s.refreshPrefix()+rh)
	}
	keys = append(keys, uk)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return len(members), nil
}
