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

// Package executor runs a plan one step at a time.
//
// Each call to Step settles exactly one step and advances the cursor, so the
// orchestrator can treat every step boundary as its own graph activation.
// A failing step never stops the plan: errors and panics are recorded on the
// step result.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agentwardan/internal/agent/plan"
	"agentwardan/internal/agent/tools"
	"agentwardan/pkg/log"
	"agentwardan/pkg/metrics"
)

// Invoker runs registered tools. *tools.Registry implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (tools.Envelope, error)
	Has(name string) bool
}

// State is the executor's per-turn cursor over a plan.
type State struct {
	Plan      plan.Plan
	Cursor    int
	Results   []plan.StepResult
	Utterance string // original user request, used to recover expressions
}

// NewState starts at step 0 with a private copy of p.
func NewState(p plan.Plan, utterance string) *State {
	return &State{Plan: p.Clone(), Utterance: utterance}
}

// Done reports whether every step has been settled.
func (s *State) Done() bool { return s == nil || s.Cursor >= len(s.Plan.Todo) }

// Executor 按意图执行计划步骤
type Executor struct {
	inv         Invoker
	stepTimeout time.Duration
	logger      *log.Logger
	rules       []rule
}

// Option configures an Executor.
type Option func(*Executor)

// WithStepTimeout bounds a single step, including every tool call it makes.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) { e.stepTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor over inv.
func New(inv Invoker, opts ...Option) *Executor {
	e := &Executor{inv: inv, logger: log.Nop()}
	e.rules = e.defaultRules()
	for _, o := range opts {
		o(e)
	}
	return e
}

// Step settles the step at the cursor and advances it. It is a no-op once the plan is done.
func (e *Executor) Step(ctx context.Context, st *State) {
	if st.Done() {
		return
	}
	step := st.Plan.Todo[st.Cursor]
	res := plan.NewStepResult(st.Cursor+1, step.Description())
	st.Cursor++

	r := e.classify(step)
	res.Intent = string(r.intent)
	e.run(ctx, st, step, r, res)
	if res.Status == plan.StatusPending {
		res.Complete()
	}
	st.Results = append(st.Results, *res)

	metrics.ExecutorStepsTotal.WithLabelValues(res.Intent, string(res.Status)).Inc()
	e.logger.Info("plan step settled",
		"step", res.Step, "intent", res.Intent, "status", res.Status, "error", res.Error, "sub_errors", len(res.Errors))
}

// run executes one handler behind the step boundary.
func (e *Executor) run(ctx context.Context, st *State, step plan.StepDescriptor, r rule, res *plan.StepResult) {
	defer func() {
		if p := recover(); p != nil {
			res.Fail(fmt.Sprintf("step panicked: %v", p))
		}
	}()
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}
	if err := r.run(ctx, st, step, res); err != nil {
		res.Fail(err.Error())
	}
}

// Run drives st to completion and returns the report.
func (e *Executor) Run(ctx context.Context, st *State) plan.Report {
	for !st.Done() {
		e.Step(ctx, st)
	}
	return e.Report(st)
}

// Report builds the terminal envelope for a finished (or abandoned) plan.
func (e *Executor) Report(st *State) plan.Report {
	total := len(st.Plan.Todo)
	var completed, failed, items int
	var priced *float64
	for i := range st.Results {
		r := &st.Results[i]
		switch r.Status {
		case plan.StatusCompleted:
			completed++
		case plan.StatusFailed:
			failed++
		}
		if r.Count != nil {
			items += *r.Count
		}
		if r.Intent == string(IntentBulkPriceUpdate) && r.PriceApplied != nil {
			priced = r.PriceApplied
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d/%d steps.", completed, total)
	switch {
	case priced != nil:
		fmt.Fprintf(&b, " Updated room prices to %s.", tools.FormatINR(*priced))
	case e.listed(st):
		fmt.Fprintf(&b, " Retrieved %d items.", items)
	case failed == 0:
		b.WriteString(" All steps completed successfully.")
	}
	if failed > 0 {
		fmt.Fprintf(&b, " %d step(s) failed.", failed)
	}

	data := st.Results
	if data == nil {
		data = []plan.StepResult{}
	}
	return plan.Report{
		Summary: b.String(),
		Data:    data,
		Plan:    st.Plan,
		ExecutionStats: plan.ExecutionStats{
			TotalSteps:     total,
			Completed:      completed,
			Failed:         failed,
			ComputedValues: st.Plan.ComputedValues,
		},
	}
}

func (e *Executor) listed(st *State) bool {
	for _, r := range st.Results {
		switch Intent(r.Intent) {
		case IntentListRooms, IntentListStudents:
			return true
		}
	}
	return false
}
