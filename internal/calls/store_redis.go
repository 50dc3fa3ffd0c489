package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	call:{callId}              -> serialized CallRecord, TTL per status
//	user:{userId}:activecall   -> callId, TTL mirrors the record's
const (
	callKeyPrefix    = "call:"
	pointerKeySuffix = ":activecall"
)

func callKey(callID string) string { return callKeyPrefix + callID }
func pointerKey(userID string) string {
	return "user:" + userID + pointerKeySuffix
}

// RedisStore is the production Store, shared by every API process. The
// client is long-lived and reused across requests.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Create(ctx context.Context, rec CallRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	// MULTI/EXEC so the record and both pointers appear together.
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, callKey(rec.CallID), raw, ttl)
		pipe.Set(ctx, pointerKey(rec.Caller.ID), rec.CallID, ttl)
		pipe.Set(ctx, pointerKey(rec.Callee.ID), rec.CallID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create call %s: %w", rec.CallID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, callID string) (CallRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, callKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CallRecord{}, false, nil
	}
	if err != nil {
		return CallRecord{}, false, fmt.Errorf("get call %s: %w", callID, err)
	}

	var rec CallRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return CallRecord{}, false, fmt.Errorf("unmarshal call %s: %w", callID, err)
	}
	return rec, true, nil
}

// updateIfStatusScript checks the stored record's status and rewrites the
// record and both pointers in one atomic step. Pointers are SET rather
// than EXPIREd so one that already lapsed between reads is restored
// alongside the record.
var updateIfStatusScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 0
end
local cur = cjson.decode(raw)
if cur.status ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[2], cur.callId, 'PX', ARGV[3])
redis.call('SET', KEYS[3], cur.callId, 'PX', ARGV[3])
return 1
`)

func (s *RedisStore) UpdateIfStatus(ctx context.Context, rec CallRecord, ttl time.Duration, expect Status) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal call record: %w", err)
	}

	keys := []string{
		callKey(rec.CallID),
		pointerKey(rec.Caller.ID),
		pointerKey(rec.Callee.ID),
	}
	n, err := updateIfStatusScript.Run(ctx, s.rdb, keys,
		string(expect), raw, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("update call %s: %w", rec.CallID, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, callID string, userIDs ...string) error {
	keys := make([]string, 0, len(userIDs)+1)
	keys = append(keys, callKey(callID))
	for _, id := range userIDs {
		keys = append(keys, pointerKey(id))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete call %s: %w", callID, err)
	}
	return nil
}

func (s *RedisStore) ActiveCallID(ctx context.Context, userID string) (string, bool, error) {
	callID, err := s.rdb.Get(ctx, pointerKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get active call pointer for %s: %w", userID, err)
	}
	return callID, true, nil
}

func (s *RedisStore) DeletePointer(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, pointerKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete active call pointer for %s: %w", userID, err)
	}
	return nil
}
