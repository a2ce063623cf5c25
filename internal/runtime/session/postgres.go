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

	"github.com/cloudwego/eino/schema"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createSessionTable = `CREATE TABLE IF NOT EXISTS agent_session_messages (
	seq        BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	message    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS agent_session_messages_session_seq ON agent_session_messages (session_id, seq)`

// PostgresStore keeps transcripts in an append-only table ordered by seq.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接 PostgreSQL 并确保表存在
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createSessionTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close 关闭连接池
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Get 实现 Store
func (s *PostgresStore) Get(ctx context.Context, id string) ([]*schema.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT message FROM agent_session_messages WHERE session_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*schema.Message
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var m schema.Message
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, fmt.Errorf("decode session %s message: %w", id, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// Append 实现 Store；多条消息在同一事务内写入以保持顺序
func (s *PostgresStore) Append(ctx context.Context, id string, msgs ...*schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode session %s message: %w", id, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO agent_session_messages (session_id, message) VALUES ($1, $2)`, id, payload); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Trim 实现 Store
func (s *PostgresStore) Trim(ctx context.Context, id string, keep int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM agent_session_messages
WHERE session_id = $1
  AND seq > (SELECT MIN(seq) FROM agent_session_messages WHERE session_id = $1)
  AND seq NOT IN (
    SELECT seq FROM agent_session_messages WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
  )`, id, keep)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
