// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each transcript as a Redis list of JSON messages.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. ttl <= 0 keeps transcripts forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "agentwardan:session:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Get 实现 Store
func (s *RedisStore) Get(ctx context.Context, id string) ([]*schema.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	msgs := make([]*schema.Message, 0, len(raw))
	for _, r := range raw {
		var m schema.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode session %s message: %w", id, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

// Append 实现 Store
func (s *RedisStore) Append(ctx context.Context, id string, msgs ...*schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([]any, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode session %s message: %w", id, err)
		}
		vals = append(vals, b)
	}
	if err := s.client.RPush(ctx, s.key(id), vals...).Err(); err != nil {
		return fmt.Errorf("append session %s: %w", id, err)
	}
	if s.ttl > 0 {
		// TTL 刷新失败不影响本轮对话
		_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()
	}
	return nil
}

// Trim 实现 Store
func (s *RedisStore) Trim(ctx context.Context, id string, keep int) (bool, error) {
	key := s.key(id)
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("trim session %s: %w", id, err)
	}
	if n <= int64(keep+1) {
		return false, nil
	}
	first, err := s.client.LIndex(ctx, key, 0).Result()
	if err != nil {
		return false, fmt.Errorf("trim session %s: %w", id, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LTrim(ctx, key, int64(-keep), -1)
		pipe.LPush(ctx, key, first)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("trim session %s: %w", id, err)
	}
	return true, nil
}
