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

// Package agent wires planner, router, executor and the direct tool-call path
// into the per-turn graph and serves agentwardan_chat.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"agentwardan/internal/agent/executor"
	"agentwardan/internal/agent/planner"
	"agentwardan/internal/agent/tools"
	"agentwardan/internal/runtime/session"
	"agentwardan/pkg/log"
	"agentwardan/pkg/metrics"
	"agentwardan/pkg/tracing"
)

// DefaultSessionID is used when the caller does not name a session.
const DefaultSessionID = "default"

// Tool loop modes for the direct path.
const (
	ToolLoopLoop   = "loop"
	ToolLoopSingle = "single"
)

const (
	defaultMaxToolRounds = 5
	defaultPreviewLimit  = 10
	defaultMaxPlanSteps  = 25
)

// Deps are the collaborators a turn runs against.
type Deps struct {
	Oracle   model.ToolCallingChatModel
	Registry *tools.Registry
	Planner  *planner.Planner
	Executor *executor.Executor
	Sessions *session.Manager
}

// Orchestrator 编排入口：会话锁 -> 追加用户消息 -> 运行图 -> 写回助手消息
type Orchestrator struct {
	deps          Deps
	direct        model.ToolCallingChatModel
	runnable      compose.Runnable[*TurnState, *TurnState]
	logger        *log.Logger
	toolLoop      string
	maxToolRounds int
	maxPlanSteps  int
	previewLimit  int
	oracleTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithToolLoop selects "loop" (until no tool call) or "single" (one tool round).
func WithToolLoop(mode string) Option {
	return func(o *Orchestrator) {
		if mode == ToolLoopSingle || mode == ToolLoopLoop {
			o.toolLoop = mode
		}
	}
}

// WithMaxToolRounds caps tool rounds per turn in loop mode.
func WithMaxToolRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxToolRounds = n
		}
	}
}

// WithMaxPlanSteps sizes the graph's run-step limit; keep it in line with the planner's limit.
func WithMaxPlanSteps(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPlanSteps = n
		}
	}
}

// WithPreviewLimit caps the records shown to the oracle per tool result.
func WithPreviewLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.previewLimit = n
		}
	}
}

// WithOracleTimeout bounds each direct-path oracle call.
func WithOracleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.oracleTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New binds the tool catalog to the oracle and compiles the turn graph.
func New(ctx context.Context, deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Oracle == nil || deps.Registry == nil || deps.Planner == nil || deps.Executor == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("agent: oracle, registry, planner, executor and sessions are required")
	}
	o := &Orchestrator{
		deps:          deps,
		logger:        log.Nop(),
		toolLoop:      ToolLoopLoop,
		maxToolRounds: defaultMaxToolRounds,
		maxPlanSteps:  defaultMaxPlanSteps,
		previewLimit:  defaultPreviewLimit,
	}
	for _, opt := range opts {
		opt(o)
	}

	bound, err := deps.Oracle.WithTools(deps.Registry.ToolInfos())
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	o.direct = bound

	g, err := o.Graph()
	if err != nil {
		return nil, fmt.Errorf("build turn graph: %w", err)
	}
	runnable, err := g.Compile(ctx,
		compose.WithGraphName(GraphName),
		compose.WithMaxRunSteps(o.maxRunSteps()),
	)
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	o.runnable = runnable
	return o, nil
}

// maxRunSteps covers one full executor pass plus one full tool loop.
func (o *Orchestrator) maxRunSteps() int {
	return 2*(o.maxPlanSteps+o.maxToolRounds) + 16
}

// Chat runs one turn and returns the terminal envelope as JSON. It never fails:
// errors become an "Agent error: ..." envelope.
func (o *Orchestrator) Chat(ctx context.Context, query, sessionID string) string {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	turnID := uuid.NewString()
	logger := o.logger.With("turn_id", turnID, "session_id", sessionID)
	ctx, span := tracing.StartTurnSpan(ctx, turnID, sessionID)
	start := time.Now()

	route, outcome := "none", "ok"
	var turnErr error
	defer func() {
		metrics.TurnTotal.WithLabelValues(route, outcome).Inc()
		metrics.TurnDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, turnErr)
	}()

	unlock, err := o.deps.Sessions.Lock(ctx, sessionID)
	if err != nil {
		turnErr, outcome = err, "error"
		logger.Error("session lock failed", "error", err)
		return tools.ErrorEnvelope(err).JSON()
	}
	defer unlock()

	msgs, err := o.deps.Sessions.Begin(ctx, sessionID, query)
	if err != nil {
		turnErr, outcome = err, "error"
		logger.Error("session begin failed", "error", err)
		return tools.ErrorEnvelope(err).JSON()
	}

	reply, st, err := o.run(ctx, &TurnState{SessionID: sessionID, TurnID: turnID, Input: query, Messages: msgs})
	if st != nil && st.Route != "" {
		route = string(st.Route)
	}
	switch {
	case err != nil:
		turnErr, outcome = err, "error"
		logger.Error("turn graph failed", "error", err)
	case st.Err != nil:
		turnErr, outcome = st.Err, "error"
		logger.Warn("turn ended with error envelope", "error", st.Err)
	}

	if ferr := o.deps.Sessions.Finish(ctx, sessionID, reply); ferr != nil {
		logger.Warn("session finish failed", "error", ferr)
	}
	logger.Info("turn done", "route", route, "outcome", outcome, "duration", time.Since(start))
	return reply.Content
}

func (o *Orchestrator) run(ctx context.Context, in *TurnState) (*schema.Message, *TurnState, error) {
	out, err := o.runnable.Invoke(ctx, in)
	if out == nil {
		// Invoke hands back nothing on failure; the input is the same state object.
		out = in
	}
	if err != nil {
		return schema.AssistantMessage(tools.ErrorEnvelope(err).JSON(), nil), out, err
	}
	if out.Final == nil {
		return schema.AssistantMessage(tools.Message("No response.").JSON(), nil), out, nil
	}
	return out.Final, out, nil
}

// Transcript returns the stored transcript for a session.
func (o *Orchestrator) Transcript(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return o.deps.Sessions.Transcript(ctx, sessionID)
}
