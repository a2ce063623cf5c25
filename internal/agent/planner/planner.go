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

// Package planner turns a conversation into a plan.Plan.
//
// The oracle is asked once per turn. Its free-text reply is handed to an
// ordered chain of parse strategies; the first one that yields a plan wins.
// Plan never returns an error: oracle failures and panics become a one-step
// "planning failed" plan.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"agentwardan/internal/agent/plan"
	"agentwardan/pkg/log"
	"agentwardan/pkg/metrics"
)

const (
	// StrategyFailed labels plans built from an oracle or runtime failure.
	StrategyFailed = "failed"

	defaultMaxSteps = 25
)

const instructionTemplate = `You are the planner for a hostel administration assistant.
Break the user's request into ordered steps that the executor can run with these tools:
%s

Reply with JSON only, in this shape:
{"todo": ["step one", {"action": "tool_name", "parameters": {...}}, ...], "computed_values": {"name": number}, "summary": "one line"}
- Steps are plain sentences ("List all rooms", "Update each room price to 32000") or tool calls.
- Put any number you can work out in advance (for example a price from "8000*4") in computed_values.
- Do not add explanations outside the JSON.`

// Planner asks the oracle for a plan and parses its reply.
type Planner struct {
	oracle      model.BaseChatModel
	instruction string
	strategies  []Strategy
	timeout     time.Duration
	maxSteps    int
	logger      *log.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithTimeout bounds the oracle call.
func WithTimeout(d time.Duration) Option {
	return func(p *Planner) { p.timeout = d }
}

// WithMaxSteps truncates longer plans.
func WithMaxSteps(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxSteps = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStrategies replaces the default parse chain.
func WithStrategies(s ...Strategy) Option {
	return func(p *Planner) { p.strategies = s }
}

// New creates a Planner. catalog is the tool catalog as JSON (see tools.Registry.SchemasForLLM).
func New(oracle model.BaseChatModel, catalog []byte, opts ...Option) *Planner {
	desc := strings.TrimSpace(string(catalog))
	if desc == "" {
		desc = "[]"
	}
	p := &Planner{
		oracle:      oracle,
		instruction: fmt.Sprintf(instructionTemplate, desc),
		strategies:  DefaultStrategies(),
		maxSteps:    defaultMaxSteps,
		logger:      log.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Instruction returns the system prompt sent with every planning request.
func (p *Planner) Instruction() string { return p.instruction }

// Plan produces a plan for the transcript and reports which strategy built it.
func (p *Planner) Plan(ctx context.Context, history []*schema.Message) (out plan.Plan, strategy string) {
	defer func() {
		if r := recover(); r != nil {
			out, strategy = failedPlan(fmt.Errorf("panic: %v", r)), StrategyFailed
		}
		metrics.PlanStrategyTotal.WithLabelValues(strategy).Inc()
		p.logger.Info("plan ready", "strategy", strategy, "steps", len(out.Todo), "summary", out.Summary)
	}()

	if p.oracle == nil {
		return failedPlan(fmt.Errorf("no oracle configured")), StrategyFailed
	}
	raw, err := p.ask(ctx, history)
	if err != nil {
		p.logger.Warn("planner oracle call failed", "error", err)
		return failedPlan(err), StrategyFailed
	}
	utterance := LatestUtterance(history)
	for _, s := range p.strategies {
		pl, ok := s.Parse(raw, utterance)
		if !ok {
			p.logger.Debug("plan strategy did not match", "strategy", s.Name())
			continue
		}
		return p.truncate(pl), s.Name()
	}
	// the default chain ends with a strategy that always matches
	return rawPlan(raw), StrategyRaw
}

func (p *Planner) ask(ctx context.Context, history []*schema.Message) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(p.instruction))
	for _, m := range history {
		if m == nil || m.Role == schema.System {
			continue
		}
		msgs = append(msgs, m)
	}
	reply, err := p.oracle.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	if reply == nil {
		return "", fmt.Errorf("oracle returned no message")
	}
	return reply.Content, nil
}

func (p *Planner) truncate(pl plan.Plan) plan.Plan {
	if p.maxSteps > 0 && len(pl.Todo) > p.maxSteps {
		p.logger.Warn("plan truncated", "steps", len(pl.Todo), "max", p.maxSteps)
		pl.Todo = pl.Todo[:p.maxSteps]
	}
	if pl.ComputedValues == nil {
		pl.ComputedValues = map[string]float64{}
	}
	return pl
}

func failedPlan(err error) plan.Plan {
	return plan.Plan{
		Todo:           []plan.StepDescriptor{plan.TextStep("planning failed: " + err.Error())},
		ComputedValues: map[string]float64{},
		Summary:        "Planning failed",
	}
}

// LatestUtterance returns the content of the last human message, or "".
func LatestUtterance(history []*schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if m := history[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}
