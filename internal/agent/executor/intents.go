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

package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentwardan/internal/agent/calc"
	"agentwardan/internal/agent/plan"
	"agentwardan/internal/backend"
)

// Intent is the closed set of things a step can mean.
type Intent string

const (
	IntentTool            Intent = "tool"
	IntentArithmetic      Intent = "arithmetic"
	IntentListRooms       Intent = "list_rooms"
	IntentListStudents    Intent = "list_students"
	IntentBulkPriceUpdate Intent = "bulk_price_update"
	IntentGeneric         Intent = "generic"
)

// Computed value keys.
const (
	KeyPrice    = "price"
	KeyLastCalc = "last_calc"
)

// GenericNote marks a step that was acknowledged without side effects.
const GenericNote = "Generic step execution: acknowledged, no action taken"

// rule pairs an intent predicate with its handler; the first matching rule wins.
type rule struct {
	intent Intent
	match  func(step plan.StepDescriptor, text string) bool
	run    func(ctx context.Context, st *State, step plan.StepDescriptor, res *plan.StepResult) error
}

var (
	listRoomsPhrases    = []string{"list rooms", "list_rooms", "list all rooms", "fetch all rooms", "get all rooms", "show all rooms"}
	listStudentsPhrases = []string{"list students", "list_students", "list all students", "fetch all students", "get all students", "show all students"}
)

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func (e *Executor) defaultRules() []rule {
	return []rule{
		{
			intent: IntentTool,
			match: func(step plan.StepDescriptor, _ string) bool {
				return step.Structured() && e.inv.Has(step.Action)
			},
			run: e.runTool,
		},
		{
			intent: IntentArithmetic,
			match: func(_ plan.StepDescriptor, text string) bool {
				return strings.Contains(text, "calculate") || strings.ContainsAny(text, "+-*/%")
			},
			run: e.runArithmetic,
		},
		{
			intent: IntentListRooms,
			match:  func(_ plan.StepDescriptor, text string) bool { return containsAny(text, listRoomsPhrases...) },
			run:    e.listRun("list_rooms"),
		},
		{
			intent: IntentListStudents,
			match:  func(_ plan.StepDescriptor, text string) bool { return containsAny(text, listStudentsPhrases...) },
			run:    e.listRun("list_students"),
		},
		{
			intent: IntentBulkPriceUpdate,
			match: func(_ plan.StepDescriptor, text string) bool {
				return strings.Contains(text, "update") && strings.Contains(text, "room") && strings.Contains(text, "price")
			},
			run: e.runBulkPriceUpdate,
		},
		{
			intent: IntentGeneric,
			match:  func(plan.StepDescriptor, string) bool { return true },
			run: func(_ context.Context, _ *State, _ plan.StepDescriptor, res *plan.StepResult) error {
				res.Result = "Step acknowledged"
				res.Note = GenericNote
				return nil
			},
		},
	}
}

// classify returns the first rule matching step.
func (e *Executor) classify(step plan.StepDescriptor) rule {
	text := strings.ToLower(step.Description())
	for _, r := range e.rules {
		if r.match(step, text) {
			return r
		}
	}
	return e.rules[len(e.rules)-1]
}

// Classify reports the intent a step would run under.
func (e *Executor) Classify(step plan.StepDescriptor) Intent { return e.classify(step).intent }

func (e *Executor) runTool(ctx context.Context, _ *State, step plan.StepDescriptor, res *plan.StepResult) error {
	env, err := e.inv.Invoke(ctx, step.Action, step.Parameters)
	if err != nil {
		return err
	}
	res.Result = env
	res.SetCount(len(env.Data))
	if env.Error != "" {
		res.Fail(env.Summary)
	}
	return nil
}

var errNoExpression = errors.New("no math expression found in step or user input")

func (e *Executor) runArithmetic(_ context.Context, st *State, step plan.StepDescriptor, res *plan.StepResult) error {
	text := step.Description()
	expr, ok := calc.FindExpression(text)
	if !ok {
		expr, ok = calc.FindExpression(st.Utterance)
	}
	if !ok {
		return errNoExpression
	}
	v, err := calc.Eval(expr)
	if err != nil {
		return err
	}
	res.Result = fmt.Sprintf("%s = %s", expr, calc.Format(v))
	res.ComputedValue = &v
	st.Plan.ComputedValues[KeyLastCalc] = v
	if strings.Contains(strings.ToLower(text), "price") {
		st.Plan.ComputedValues[KeyPrice] = v
	}
	return nil
}

func (e *Executor) listRun(tool string) func(context.Context, *State, plan.StepDescriptor, *plan.StepResult) error {
	return func(ctx context.Context, _ *State, _ plan.StepDescriptor, res *plan.StepResult) error {
		env, err := e.inv.Invoke(ctx, tool, map[string]any{})
		if err != nil {
			return err
		}
		if env.Error != "" {
			return errors.New(env.Summary)
		}
		res.Result = env.Data
		res.SetCount(len(env.Data))
		return nil
	}
}

// resolvePrice follows computed price, then last_calc, then a literal in the
// step text, then an expression in the user's request.
func resolvePrice(st *State, text string) (float64, bool) {
	if v, ok := st.Plan.ComputedValues[KeyPrice]; ok {
		return v, true
	}
	if v, ok := st.Plan.ComputedValues[KeyLastCalc]; ok {
		return v, true
	}
	if v, ok := calc.FindNumber(text); ok {
		return v, true
	}
	if expr, ok := calc.FindExpression(st.Utterance); ok {
		if v, err := calc.Eval(expr); err == nil {
			return v, true
		}
	}
	return 0, false
}

func (e *Executor) runBulkPriceUpdate(ctx context.Context, st *State, step plan.StepDescriptor, res *plan.StepResult) error {
	price, ok := resolvePrice(st, step.Description())
	if !ok {
		return errors.New("no price value found for room updates")
	}
	rooms, err := e.inv.Invoke(ctx, "list_rooms", map[string]any{})
	if err != nil {
		return err
	}
	if rooms.Error != "" {
		return errors.New(rooms.Summary)
	}

	updated := make([]any, 0, len(rooms.Data))
	for _, rec := range rooms.Records() {
		roomNo := backend.String(rec, "room_no")
		if roomNo == "" {
			continue
		}
		env, err := e.inv.Invoke(ctx, "update_room", map[string]any{
			"room_no": roomNo,
			"data":    map[string]any{"price": price},
		})
		switch {
		case err != nil:
			res.Errors = append(res.Errors, plan.SubError{Target: roomNo, Error: err.Error()})
		case env.Error != "":
			res.Errors = append(res.Errors, plan.SubError{Target: roomNo, Error: env.Summary})
		default:
			res.Updated = append(res.Updated, roomNo)
			updated = append(updated, env.Data...)
		}
	}

	st.Plan.ComputedValues[KeyPrice] = price
	res.Result = updated
	res.SetCount(len(res.Updated))
	res.PriceApplied = &price
	return nil
}
