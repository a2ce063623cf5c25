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
	"sync"

	"github.com/cloudwego/eino/schema"

	"agentwardan/pkg/log"
	"agentwardan/pkg/metrics"
)

// DefaultMaxHistory is how many messages are kept after the system message.
const DefaultMaxHistory = 40

// Manager applies the transcript policy on top of a Store and serializes turns per session.
type Manager struct {
	store        Store
	systemPrompt string
	maxHistory   int
	logger       *log.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock 会话级互斥：容量为 1 的信号量，可随 ctx 取消
type sessionLock struct {
	sem  chan struct{}
	refs int
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxHistory sets how many messages follow the system message after a trim.
func WithMaxHistory(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxHistory = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager 创建会话管理器；systemPrompt 作为每个新会话的首条消息
func NewManager(store Store, systemPrompt string, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		systemPrompt: systemPrompt,
		maxHistory:   DefaultMaxHistory,
		logger:       log.Nop(),
		locks:        make(map[string]*sessionLock),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Lock holds the session's turn lock until the returned func is called.
func (m *Manager) Lock(ctx context.Context, id string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{sem: make(chan struct{}, 1)}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(id, l)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(id, l)
		})
	}, nil
}

func (m *Manager) release(id string, l *sessionLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
}

// Begin appends the user's message, creating the transcript with its system
// message first when the session is new, and returns the full transcript.
func (m *Manager) Begin(ctx context.Context, id, userInput string) ([]*schema.Message, error) {
	msgs, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	human := schema.UserMessage(userInput)
	if len(msgs) == 0 {
		sys := schema.SystemMessage(m.systemPrompt)
		if err := m.store.Append(ctx, id, sys, human); err != nil {
			return nil, err
		}
		return []*schema.Message{sys, human}, nil
	}
	if msgs[0].Role != schema.System {
		return nil, fmt.Errorf("session %s transcript does not start with a system message", id)
	}
	if err := m.store.Append(ctx, id, human); err != nil {
		return nil, err
	}
	return append(msgs, human), nil
}

// Finish appends the turn's terminal assistant message and trims the transcript.
func (m *Manager) Finish(ctx context.Context, id string, reply *schema.Message) error {
	if err := m.store.Append(ctx, id, reply); err != nil {
		return err
	}
	trimmed, err := m.store.Trim(ctx, id, m.maxHistory)
	if err != nil {
		return err
	}
	if trimmed {
		metrics.SessionsTrimmedTotal.Inc()
		m.logger.Info("session trimmed", "session_id", id, "kept", m.maxHistory+1)
	}
	return nil
}

// Transcript returns the stored transcript (nil for unknown sessions).
func (m *Manager) Transcript(ctx context.Context, id string) ([]*schema.Message, error) {
	return m.store.Get(ctx, id)
}
