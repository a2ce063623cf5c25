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
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"agentwardan/internal/agent"
	"agentwardan/internal/agent/executor"
	"agentwardan/internal/agent/planner"
	"agentwardan/internal/agent/tools"
	"agentwardan/internal/backend"
	"agentwardan/internal/knowledge"
	"agentwardan/internal/model/llm"
	"agentwardan/internal/runtime/session"
	"agentwardan/pkg/config"
)

// Components 一轮对话所需的全部组件
type Components struct {
	Orchestrator *agent.Orchestrator
	Registry     *tools.Registry
	Sessions     *session.Manager
	Knowledge    *knowledge.Base
	closers      []func() error
}

// Close releases stores and clients in reverse order of creation.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// NewAgent 根据配置创建 oracle 并装配 Components
func NewAgent(ctx context.Context, b *Bootstrap) (*Components, error) {
	oracle, err := llm.NewChatModel(ctx, b.Config, b.Secrets)
	if err != nil {
		return nil, fmt.Errorf("初始化 oracle 失败: %w", err)
	}
	return NewComponents(ctx, b, oracle)
}

type componentOptions struct {
	backend tools.Backend
}

// ComponentOption 调整 NewComponents 的装配
type ComponentOption func(*componentOptions)

// WithBackend replaces the process-wide HMS client.
func WithBackend(be tools.Backend) ComponentOption {
	return func(o *componentOptions) { o.backend = be }
}

// NewComponents wires the registry, planner, executor, sessions and turn graph around oracle.
func NewComponents(ctx context.Context, b *Bootstrap, oracle model.ToolCallingChatModel, opts ...ComponentOption) (*Components, error) {
	cfg := b.Config
	logger := b.Logger
	c := &Components{}
	var o componentOptions
	for _, opt := range opts {
		opt(&o)
	}
	fail := func(err error) (*Components, error) {
		_ = c.Close()
		return nil, err
	}

	kb, err := knowledge.New(ctx, cfg, b.Secrets, logger)
	if err != nil {
		return fail(fmt.Errorf("初始化知识库失败: %w", err))
	}
	c.Knowledge = kb
	c.closers = append(c.closers, kb.Close)

	store, closeStore, err := NewSessionStore(ctx, cfg.Session)
	if err != nil {
		return fail(fmt.Errorf("初始化会话存储失败: %w", err))
	}
	c.closers = append(c.closers, closeStore)

	// backend.Shared keeps the config of its first caller; a second NewComponents
	// in the same process needs WithBackend to reach a different HMS.
	be := o.backend
	if be == nil {
		be = backend.Shared(backend.Config{
			BaseURL:   cfg.Backend.BaseURL,
			Timeout:   config.ParseDuration(cfg.Backend.Timeout, 20*time.Second),
			Retries:   cfg.Backend.Retries,
			RetryWait: config.ParseDuration(cfg.Backend.RetryWait, 500*time.Millisecond),
		})
	}

	toolTimeout := config.ParseDuration(cfg.Agent.ToolTimeout, 20*time.Second)
	oracleTimeout := config.ParseDuration(cfg.Agent.OracleTimeout, 60*time.Second)

	reg := tools.NewRegistry(tools.WithLogger(logger), tools.WithTimeout(toolTimeout))
	tools.RegisterHostel(reg, be)
	reg.Register(tools.NewHostelInfoTool(kb.Retriever, kb.TopK))
	c.Registry = reg

	catalog, err := reg.SchemasForLLM()
	if err != nil {
		return fail(fmt.Errorf("tool catalog: %w", err))
	}
	pl := planner.New(oracle, catalog,
		planner.WithTimeout(oracleTimeout),
		planner.WithMaxSteps(cfg.Agent.MaxPlanSteps),
		planner.WithLogger(logger),
	)
	ex := executor.New(reg,
		executor.WithLogger(logger),
		executor.WithStepTimeout(config.ParseDuration(cfg.Agent.StepTimeout, 0)),
	)

	c.Sessions = session.NewManager(store, cfg.Agent.SystemPrompt,
		session.WithMaxHistory(cfg.Agent.MaxHistory),
		session.WithLogger(logger),
	)

	orch, err := agent.New(ctx, agent.Deps{
		Oracle:   oracle,
		Registry: reg,
		Planner:  pl,
		Executor: ex,
		Sessions: c.Sessions,
	},
		agent.WithToolLoop(cfg.Agent.ToolLoop),
		agent.WithMaxToolRounds(cfg.Agent.MaxToolRounds),
		agent.WithMaxPlanSteps(cfg.Agent.MaxPlanSteps),
		agent.WithPreviewLimit(cfg.Agent.PreviewLimit),
		agent.WithOracleTimeout(oracleTimeout),
		agent.WithLogger(logger),
	)
	if err != nil {
		return fail(err)
	}
	c.Orchestrator = orch
	logger.Info("agent ready", "tools", len(reg.List()), "session_store", cfg.Session.Type, "tool_loop", cfg.Agent.ToolLoop)
	return c, nil
}
