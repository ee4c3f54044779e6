package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a hash plus a turn list:
//
//	call:{call_id}:state  scalar fields
//	call:{call_id}:turns  JSON-encoded turns, append-only
//
// Mutations run as Lua so the turn cap and the language lock hold under
// concurrent writers (webhook redelivery, racing finishers).
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func stateKey(callID string) string { return "call:" + callID + ":state" }
func turnsKey(callID string) string { return "call:" + callID + ":turns" }

var createScript = redis.NewScript(`
-- KEYS[1] = state key
-- ARGV = field/value pairs..., last ARGV = ttl_ms
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local ttl = table.remove(ARGV)
redis.call('HSET', KEYS[1], unpack(ARGV))
redis.call('PEXPIRE', KEYS[1], ttl)
return 1
`)

func (s *RedisStore) Create(ctx context.Context, st State) error {
	if st.CallID == "" || st.MaxTurns <= 0 {
		return fmt.Errorf("session: call id and positive max_turns required")
	}
	args := []interface{}{
		"call_id", st.CallID,
		"tenant_id", st.TenantID,
		"started_at", st.StartedAt.UTC().Format(time.RFC3339Nano),
		"greeting", st.Greeting,
		"max_turns", st.MaxTurns,
		"turn_count", 0,
		"detected_language", st.DetectedLanguage,
		"speaking_language", st.SpeakingLanguage,
		"language_locked", boolField(st.LanguageLocked),
		"silence_count", 0,
		"exit_reason", "",
		s.ttl.Milliseconds(),
	}
	created, err := createScript.Run(ctx, s.rdb, []string{stateKey(st.CallID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	if created == 0 {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, callID string) (State, error) {
	fields, err := s.rdb.HGetAll(ctx, stateKey(callID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("session: get: %w", err)
	}
	if len(fields) == 0 {
		return State{}, ErrNotFound
	}
	st := State{
		CallID:           fields["call_id"],
		TenantID:         fields["tenant_id"],
		Greeting:         fields["greeting"],
		DetectedLanguage: fields["detected_language"],
		SpeakingLanguage: fields["speaking_language"],
		LanguageLocked:   fields["language_locked"] == "1",
		ExitReason:       ExitReason(fields["exit_reason"]),
	}
	st.MaxTurns, _ = strconv.Atoi(fields["max_turns"])
	st.TurnCount, _ = strconv.Atoi(fields["turn_count"])
	st.SilenceCount, _ = strconv.Atoi(fields["silence_count"])
	if ts := fields["started_at"]; ts != "" {
		st.StartedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}

	raw, err := s.rdb.LRange(ctx, turnsKey(callID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("session: get turns: %w", err)
	}
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return State{}, fmt.Errorf("session: corrupt turn: %w", err)
		}
		st.Turns = append(st.Turns, t)
	}
	return st, nil
}

var appendTurnScript = redis.NewScript(`
-- KEYS[1] = state key, KEYS[2] = turns key
-- ARGV[1] = turn json, ARGV[2] = ttl_ms
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local count = tonumber(redis.call('HGET', KEYS[1], 'turn_count'))
local max = tonumber(redis.call('HGET', KEYS[1], 'max_turns'))
if count >= max then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
count = redis.call('HINCRBY', KEYS[1], 'turn_count', 1)
redis.call('HSET', KEYS[1], 'silence_count', 0)
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return count
`)

func (s *RedisStore) AppendTurn(ctx context.Context, callID string, t Turn) (int, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("session: encode turn: %w", err)
	}
	n, err := appendTurnScript.Run(ctx, s.rdb,
		[]string{stateKey(callID), turnsKey(callID)},
		payload, s.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("session: append turn: %w", err)
	}
	switch n {
	case -1:
		return 0, ErrNotFound
	case 0:
		return 0, ErrLimitReached
	default:
		return n, nil
	}
}

var setLanguageScript = redis.NewScript(`
-- KEYS[1] = state key
-- ARGV[1] = language, ARGV[2] = lock flag, ARGV[3] = ttl_ms
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('HGET', KEYS[1], 'language_locked') == '1' then
  return 0
end
redis.call('HSET', KEYS[1], 'detected_language', ARGV[1], 'speaking_language', ARGV[1])
if ARGV[2] == '1' then
  redis.call('HSET', KEYS[1], 'language_locked', '1')
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (s *RedisStore) SetLanguage(ctx context.Context, callID, lang string, lock bool) (bool, error) {
	res, err := setLanguageScript.Run(ctx, s.rdb, []string{stateKey(callID)},
		lang, boolField(lock), s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("session: set language: %w", err)
	}
	if res == -1 {
		return false, ErrNotFound
	}
	return res == 1, nil
}

var recordSilenceScript = redis.NewScript(`
-- KEYS[1] = state key
-- ARGV[1] = ttl_ms
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local n = redis.call('HINCRBY', KEYS[1], 'silence_count', 1)
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return n
`)

func (s *RedisStore) RecordSilence(ctx context.Context, callID string) (int, error) {
	n, err := recordSilenceScript.Run(ctx, s.rdb, []string{stateKey(callID)}, s.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("session: record silence: %w", err)
	}
	if n == -1 {
		return 0, ErrNotFound
	}
	return n, nil
}

var finishScript = redis.NewScript(`
-- KEYS[1] = state key
-- ARGV[1] = exit reason, ARGV[2] = ttl_ms
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'exit_reason', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

func (s *RedisStore) Finish(ctx context.Context, callID string, reason ExitReason) error {
	ok, err := finishScript.Run(ctx, s.rdb, []string{stateKey(callID)},
		string(reason), s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("session: finish: %w", err)
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Expire(ctx context.Context, callID string) error {
	if err := s.rdb.Del(ctx, stateKey(callID), turnsKey(callID)).Err(); err != nil {
		return fmt.Errorf("session: expire: %w", err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
