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

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agentwardan/internal/runtime/session"
	"agentwardan/pkg/config"
)

const defaultSessionPrefix = "agentwardan:session:"

// NewSessionStore 根据 session.type 创建会话存储（memory | redis | postgres），返回关闭函数
func NewSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func() error, error) {
	noop := func() error { return nil }
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	switch t {
	case "memory":
		return session.NewMemoryStore(), noop, nil
	case "redis":
		addr := cfg.Redis.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("session redis ping: %w", err)
		}
		prefix := cfg.Redis.KeyPrefix
		if prefix == "" {
			prefix = defaultSessionPrefix
		}
		ttl := config.ParseDuration(cfg.Redis.TTL, 0)
		return session.NewRedisStore(client, prefix, ttl), client.Close, nil
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return nil, nil, fmt.Errorf("session.postgres.dsn is required")
		}
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := session.NewPostgresStore(pctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { store.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session type: %s", t)
	}
}
