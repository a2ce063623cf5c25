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

package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwardan/internal/agent/plan"
	"agentwardan/internal/model/llm/llmtest"
)

func history(utterance string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("You are the hostel assistant."),
		schema.UserMessage(utterance),
	}
}

func planFor(t *testing.T, reply llmtest.Reply, utterance string) (plan.Plan, string) {
	t.Helper()
	oracle := llmtest.New(reply)
	p := New(oracle, []byte(`[{"name":"list_rooms"}]`))
	return p.Plan(context.Background(), history(utterance))
}

func TestPlanner_Strict(t *testing.T) {
	reply := "Here you go:\n```json\n" +
		`{"todo": ["List all rooms", {"action": "payments_by_name", "parameters": {"name": "Asha"}}], "computed_values": {"price": 32000}, "summary": "Rooms and payments"}` +
		"\n```"
	pl, strategy := planFor(t, llmtest.Text(reply), "list rooms and Asha's payments")

	assert.Equal(t, StrategyStrict, strategy)
	require.Len(t, pl.Todo, 2)
	assert.Equal(t, "List all rooms", pl.Todo[0].Text)
	assert.Equal(t, "payments_by_name", pl.Todo[1].Action)
	assert.Equal(t, "Asha", pl.Todo[1].Parameters["name"])
	assert.Equal(t, 32000.0, pl.ComputedValues["price"])
	assert.Equal(t, "Rooms and payments", pl.Summary)
}

func TestPlanner_LenientQuoteRepair(t *testing.T) {
	reply := `{'todo': ['List all rooms', 'Update each room's price to 500'], 'computed_values': {}, 'summary': 'Don't wait'}`
	pl, strategy := planFor(t, llmtest.Text(reply), "update all rooms")

	assert.Equal(t, StrategyLenient, strategy)
	require.Len(t, pl.Todo, 2)
	assert.Equal(t, "Update each room's price to 500", pl.Todo[1].Text)
}

func TestPlanner_TodoMustBeSequence(t *testing.T) {
	pl, strategy := planFor(t, llmtest.Text(`{"todo": "list rooms", "summary": "x"}`), "hello there")

	assert.Equal(t, StrategyRaw, strategy)
	require.Len(t, pl.Todo, 1)
	assert.Equal(t, `{"todo": "list rooms", "summary": "x"}`, pl.Todo[0].Text)
	assert.Equal(t, "Simple task execution", pl.Summary)
}

func TestPlanner_PaymentsHeuristic(t *testing.T) {
	reply := `{"todo": [payments_by_name with name='Asha Rao'}`
	pl, strategy := planFor(t, llmtest.Text(reply), "show payments")

	assert.Equal(t, StrategyPayments, strategy)
	require.Len(t, pl.Todo, 1)
	assert.Equal(t, "payments_by_name", pl.Todo[0].Action)
	assert.Equal(t, "Asha Rao", pl.Todo[0].Parameters["name"])
}

func TestPlanner_PaymentsHeuristicFromUtterance(t *testing.T) {
	pl, strategy := planFor(t, llmtest.Text("I can help with that."), "get all payments for Ravi Kumar please")

	assert.Equal(t, StrategyPayments, strategy)
	assert.Equal(t, "Ravi Kumar", pl.Todo[0].Parameters["name"])
}

func TestPlanner_ArithmeticHeuristic(t *testing.T) {
	pl, strategy := planFor(t, llmtest.Text("Sure! I will set every room to 8000*4."), "update all rooms to price 8000*4")

	assert.Equal(t, StrategyArithmetic, strategy)
	require.Len(t, pl.Todo, 3)
	assert.Equal(t, "Calculate 8000*4 = 32000", pl.Todo[0].Text)
	assert.Equal(t, "List all rooms", pl.Todo[1].Text)
	assert.Equal(t, "Update each room price to 32000", pl.Todo[2].Text)
	assert.Equal(t, 32000.0, pl.ComputedValues["price"])
	assert.Equal(t, "Update all room prices to ₹32,000", pl.Summary)
}

func TestPlanner_RawFallback(t *testing.T) {
	pl, strategy := planFor(t, llmtest.Text("Just say hello"), "greet me")

	assert.Equal(t, StrategyRaw, strategy)
	require.Len(t, pl.Todo, 1)
	assert.Equal(t, "Just say hello", pl.Todo[0].Text)
	assert.Empty(t, pl.ComputedValues)
}

func TestPlanner_NeverFails(t *testing.T) {
	outputs := []string{"", "{", "}{", "```", "```json\n```", "null", "[1,2,3]", `{"todo": null}`, "\x00\xff"}
	for _, out := range outputs {
		pl, _ := planFor(t, llmtest.Text(out), "do something")
		assert.GreaterOrEqual(t, len(pl.Todo), 1, "output %q", out)
	}
}

func TestPlanner_OracleError(t *testing.T) {
	pl, strategy := planFor(t, llmtest.Fail(errors.New("503 upstream")), "list rooms")

	assert.Equal(t, StrategyFailed, strategy)
	require.Len(t, pl.Todo, 1)
	assert.Equal(t, "planning failed: 503 upstream", pl.Todo[0].Text)
	assert.Equal(t, "Planning failed", pl.Summary)
}

type panicModel struct{ model.BaseChatModel }

func (panicModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	panic("boom")
}

func TestPlanner_RecoversPanic(t *testing.T) {
	p := New(panicModel{}, nil)
	pl, strategy := p.Plan(context.Background(), history("x"))

	assert.Equal(t, StrategyFailed, strategy)
	assert.True(t, strings.HasPrefix(pl.Todo[0].Text, "planning failed: panic: boom"))
}

func TestPlanner_TruncatesLongPlans(t *testing.T) {
	reply := `{"todo": ["a", "b", "c", "d"], "computed_values": {}, "summary": "s"}`
	p := New(llmtest.New(llmtest.Text(reply)), nil, WithMaxSteps(2))
	pl, _ := p.Plan(context.Background(), history("x"))
	assert.Len(t, pl.Todo, 2)
}

func TestPlanner_PromptCarriesCatalogAndHistory(t *testing.T) {
	oracle := llmtest.New(llmtest.Text(`{"todo": ["x"]}`))
	p := New(oracle, []byte(`[{"name":"list_rooms"}]`))
	p.Plan(context.Background(), history("list rooms"))

	inputs := oracle.Inputs()
	require.Len(t, inputs, 1)
	msgs := inputs[0]
	require.Len(t, msgs, 2, "session system message is replaced by the planning instruction")
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "list_rooms")
	assert.Equal(t, "list rooms", msgs[1].Content)
}

func TestRepairQuotes(t *testing.T) {
	assert.Equal(t, `{"a": "it's ok"}`, repairQuotes(`{'a': 'it's ok'}`))
	assert.Equal(t, `{"a": "b"}`, repairQuotes(`{‘a’: “b”}`))
}

func TestLatestUtterance(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("s"),
		schema.UserMessage("first"),
		schema.AssistantMessage("reply", nil),
		schema.UserMessage("second"),
		schema.AssistantMessage("reply", nil),
	}
	assert.Equal(t, "second", LatestUtterance(msgs))
	assert.Equal(t, "", LatestUtterance(nil))
}
