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

// Package session keeps the per-session conversation transcript.
//
// A transcript always starts with exactly one system message. Stores only
// persist messages; the Manager owns the system-message, locking and trim
// policy.
package session

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Store 会话存储抽象
type Store interface {
	// Get returns the transcript, or nil when the session does not exist.
	Get(ctx context.Context, id string) ([]*schema.Message, error)
	// Append adds messages to the end of the transcript, creating it if needed.
	Append(ctx context.Context, id string, msgs ...*schema.Message) error
	// Trim keeps the leading message plus the last keep messages. It reports whether anything was removed.
	Trim(ctx context.Context, id string, keep int) (bool, error)
}

// MemoryStore 内存实现（map + mutex），进程内有效
type MemoryStore struct {
	mu   sync.RWMutex
	sess map[string][]*schema.Message
}

// NewMemoryStore 创建内存 Session 存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sess: make(map[string][]*schema.Message)}
}

// Get 实现 Store
func (m *MemoryStore) Get(ctx context.Context, id string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs, ok := m.sess[id]
	if !ok {
		return nil, nil
	}
	return append([]*schema.Message(nil), msgs...), nil
}

// Append 实现 Store
func (m *MemoryStore) Append(ctx context.Context, id string, msgs ...*schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess[id] = append(m.sess[id], msgs...)
	return nil
}

// Trim 实现 Store
func (m *MemoryStore) Trim(ctx context.Context, id string, keep int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.sess[id]
	if len(msgs) <= keep+1 {
		return false, nil
	}
	out := make([]*schema.Message, 0, keep+1)
	out = append(out, msgs[0])
	out = append(out, msgs[len(msgs)-keep:]...)
	m.sess[id] = out
	return true, nil
}
