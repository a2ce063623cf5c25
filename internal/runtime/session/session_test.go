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
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the Store behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	msgs, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, msgs)

	require.NoError(t, s.Append(ctx, "s1", schema.SystemMessage("sys"), schema.UserMessage("u0")))
	for i := 1; i < 10; i++ {
		require.NoError(t, s.Append(ctx, "s1", schema.UserMessage(fmt.Sprintf("u%d", i))))
	}
	msgs, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 11)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "u9", msgs[10].Content)

	trimmed, err := s.Trim(ctx, "s1", 4)
	require.NoError(t, err)
	assert.True(t, trimmed)
	msgs, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "u6", msgs[1].Content)
	assert.Equal(t, "u9", msgs[4].Content)

	trimmed, err = s.Trim(ctx, "s1", 4)
	require.NoError(t, err)
	assert.False(t, trimmed, "already within bounds")
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, "test:session:", time.Hour)
}

func TestRedisStore(t *testing.T) {
	_, s := newRedisStore(t)
	storeContract(t, s)
}

func TestRedisStore_TTLAndToolCalls(t *testing.T) {
	mr, s := newRedisStore(t)
	ctx := context.Background()

	call := schema.ToolCall{ID: "c1", Function: schema.FunctionCall{Name: "list_rooms", Arguments: "{}"}}
	require.NoError(t, s.Append(ctx, "s2", schema.SystemMessage("sys"), schema.AssistantMessage("", []schema.ToolCall{call})))
	assert.Equal(t, time.Hour, mr.TTL("test:session:s2"))

	msgs, err := s.Get(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "list_rooms", msgs[1].ToolCalls[0].Function.Name)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_SESSION_DSN")
	if dsn == "" {
		t.Skip("TEST_SESSION_DSN not set, skipping Postgres session store tests")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, _ = s.pool.Exec(ctx, `DELETE FROM agent_session_messages`)
	storeContract(t, s)
}

func TestManager_BeginCreatesSystemMessageOnce(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), "You are the hostel assistant.")

	msgs, err := m.Begin(ctx, "default", "hello")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)

	require.NoError(t, m.Finish(ctx, "default", schema.AssistantMessage(`{"summary":"hi","data":[]}`, nil)))
	msgs, err = m.Begin(ctx, "default", "again")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	systems := 0
	for _, msg := range msgs {
		if msg.Role == schema.System {
			systems++
		}
	}
	assert.Equal(t, 1, systems)
}

func TestManager_TrimKeepsSystemPlusForty(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), "system prompt")
	for i := 0; i < 30; i++ {
		_, err := m.Begin(ctx, "s", fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
		require.NoError(t, m.Finish(ctx, "s", schema.AssistantMessage(fmt.Sprintf("reply %d", i), nil)))
	}
	msgs, err := m.Transcript(ctx, "s")
	require.NoError(t, err)
	require.Len(t, msgs, 41)
	assert.Equal(t, "system prompt", msgs[0].Content)
	assert.Equal(t, "reply 29", msgs[40].Content)
	assert.Equal(t, "turn 10", msgs[1].Content)
}

func TestManager_RejectsCorruptTranscript(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, "bad", schema.UserMessage("no system")))
	m := NewManager(store, "sys")
	_, err := m.Begin(ctx, "bad", "hi")
	assert.Error(t, err)
}

func TestManager_LockSerializesSameSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), "sys")

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "same")
			require.NoError(t, err)
			defer unlock()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
	assert.Empty(t, m.locks, "idle locks are released")
}

func TestManager_LockHonoursContext(t *testing.T) {
	m := NewManager(NewMemoryStore(), "sys")
	unlock, err := m.Lock(context.Background(), "s")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "s")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	other, err := m.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()
	assert.Empty(t, m.locks)
}
