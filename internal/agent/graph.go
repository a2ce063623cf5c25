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

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"agentwardan/internal/agent/executor"
	"agentwardan/internal/agent/plan"
	"agentwardan/internal/agent/planner"
	"agentwardan/internal/agent/router"
	"agentwardan/internal/agent/tools"
	"agentwardan/pkg/tracing"
)

// GraphName is the compiled graph's name (visible in Eino Dev).
const GraphName = "agentwardan_turn"

// Graph node keys. The router's decisions double as the keys of the nodes they select.
const (
	NodePlanner     = "planner"
	NodeExecutor    = string(router.Executor)
	NodeExecuteStep = "execute_step"
	NodeReport      = "report"
	NodeAgent       = string(router.Direct)
	NodeTools       = "tools"
	NodeFinalize    = "finalize"
)

// TurnState flows through every node of the turn graph.
type TurnState struct {
	SessionID string
	TurnID    string
	// Input is the explicit user input; it takes precedence over the transcript for routing.
	Input    string
	Messages []*schema.Message

	Plan     plan.Plan
	Strategy string
	Route    router.Route

	Exec   *executor.State
	Report *plan.Report

	// Pending holds this turn's assistant tool-call and tool messages; they are not persisted.
	Pending  []*schema.Message
	Rounds   int
	LastTool *tools.Envelope

	Final *schema.Message
	Err   error
}

func (st *TurnState) utterance() string {
	if st.Input != "" {
		return st.Input
	}
	return planner.LatestUtterance(st.Messages)
}

// fail ends the turn with an "Agent error" envelope.
func (st *TurnState) fail(err error) {
	st.Err = err
	st.Final = schema.AssistantMessage(tools.ErrorEnvelope(err).JSON(), nil)
}

type nodeFunc func(ctx context.Context, st *TurnState) (*TurnState, error)

// traced 为每个节点包一层 span
func traced(name string, fn nodeFunc) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *TurnState) (out *TurnState, err error) {
		ctx, span := tracing.StartNodeSpan(ctx, name)
		defer func() { tracing.EndSpan(span, err) }()
		return fn(ctx, st)
	})
}

// Graph builds the uncompiled turn graph:
//
//	START -> planner -> {executor | agent}
//	executor -> {execute_step -> executor | report -> END}
//	agent -> {tools | END}; tools -> {agent | finalize -> END | END}
func (o *Orchestrator) Graph() (*compose.Graph[*TurnState, *TurnState], error) {
	g := compose.NewGraph[*TurnState, *TurnState]()

	nodes := []struct {
		name string
		fn   nodeFunc
	}{
		{NodePlanner, o.planNode},
		{NodeExecutor, o.executorNode},
		{NodeExecuteStep, o.executeStepNode},
		{NodeReport, o.reportNode},
		{NodeAgent, o.agentNode},
		{NodeTools, o.toolsNode},
		{NodeFinalize, o.finalizeNode},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.name, traced(n.name, n.fn), compose.WithNodeName(n.name)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.name, err)
		}
	}

	edges := [][2]string{
		{compose.START, NodePlanner},
		{NodeExecuteStep, NodeExecutor},
		{NodeReport, compose.END},
		{NodeFinalize, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e[0], e[1], err)
		}
	}

	branches := []struct {
		from   string
		branch *compose.GraphBranch
	}{
		{NodePlanner, compose.NewGraphBranch(o.routeBranch,
			map[string]bool{NodeExecutor: true, NodeAgent: true})},
		{NodeExecutor, compose.NewGraphBranch(executorBranch,
			map[string]bool{NodeExecuteStep: true, NodeReport: true})},
		{NodeAgent, compose.NewGraphBranch(agentBranch,
			map[string]bool{NodeTools: true, compose.END: true})},
		{NodeTools, compose.NewGraphBranch(o.toolsBranch,
			map[string]bool{NodeAgent: true, NodeFinalize: true, compose.END: true})},
	}
	for _, b := range branches {
		if err := g.AddBranch(b.from, b.branch); err != nil {
			return nil, fmt.Errorf("add branch from %s: %w", b.from, err)
		}
	}
	return g, nil
}

func (o *Orchestrator) planNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	st.Plan, st.Strategy = o.deps.Planner.Plan(ctx, st.Messages)
	return st, nil
}

func (o *Orchestrator) routeBranch(ctx context.Context, st *TurnState) (string, error) {
	st.Route = router.Decide(st.Input, st.Messages)
	o.logger.Info("route decided", "turn_id", st.TurnID, "route", st.Route, "strategy", st.Strategy)
	if st.Route == router.Executor {
		return NodeExecutor, nil
	}
	return NodeAgent, nil
}

// executorNode is the executor's dispatch point; it creates the run state on first entry.
func (o *Orchestrator) executorNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	if st.Exec == nil {
		st.Exec = executor.NewState(st.Plan, st.utterance())
	}
	return st, nil
}

func executorBranch(ctx context.Context, st *TurnState) (string, error) {
	if st.Exec.Done() {
		return NodeReport, nil
	}
	return NodeExecuteStep, nil
}

func (o *Orchestrator) executeStepNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	o.deps.Executor.Step(ctx, st.Exec)
	return st, nil
}

func (o *Orchestrator) reportNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	r := o.deps.Executor.Report(st.Exec)
	st.Report = &r
	b, err := json.Marshal(r)
	if err != nil {
		st.fail(err)
		return st, nil
	}
	st.Final = schema.AssistantMessage(string(b), nil)
	return st, nil
}
