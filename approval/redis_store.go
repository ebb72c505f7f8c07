package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDecisionStore 基于 Redis Hash 的永久决策存储，进程重启后仍然有效。
// 所有决策存放在同一个 hash 中，字段名为 "type:title"。
type RedisDecisionStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisDecisionStore 创建 Redis 决策存储
func NewRedisDecisionStore(client redis.Cmdable, keyPrefix string) *RedisDecisionStore {
	if keyPrefix == "" {
		keyPrefix = "agentgate:remember:"
	}
	return &RedisDecisionStore{
		client: client,
		key:    keyPrefix + "decisions",
	}
}

func (s *RedisDecisionStore) Get(ctx context.Context, key DecisionKey) (RememberedDecision, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return RememberedDecision{}, false, nil
	}
	if err != nil {
		return RememberedDecision{}, false, fmt.Errorf("get decision %s: %w", key, err)
	}

	var d RememberedDecision
	if err := json.Unmarshal(raw, &d); err != nil {
		return RememberedDecision{}, false, fmt.Errorf("decode decision %s: %w", key, err)
	}
	return d, true, nil
}

func (s *RedisDecisionStore) Put(ctx context.Context, decision RememberedDecision) error {
	data, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, decision.Key.String(), data).Err(); err != nil {
		return fmt.Errorf("put decision %s: %w", decision.Key, err)
	}
	return nil
}

func (s *RedisDecisionStore) Delete(ctx context.Context, key DecisionKey) error {
	return s.client.HDel(ctx, s.key, key.String()).Err()
}

func (s *RedisDecisionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisDecisionStore) List(ctx context.Context) ([]RememberedDecision, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	out := make([]RememberedDecision, 0, len(all))
	for field, raw := range all {
		var d RememberedDecision
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", field, err)
		}
		out = append(out, d)
	}
	sortDecisions(out)
	return out, nil
}
