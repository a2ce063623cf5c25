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

package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_UnmarshalMixedSteps(t *testing.T) {
	var p Plan
	err := json.Unmarshal([]byte(`{
		"todo": [
			"Calculate 8000*4",
			{"action": "payments_by_name", "parameters": {"name": "Asha"}},
			{"step": "List all rooms"},
			7
		],
		"computed_values": {"price": 32000, "rate": "1,500", "label": "x"},
		"summary": "Update prices"
	}`), &p)
	require.NoError(t, err)
	require.Len(t, p.Todo, 4)
	assert.Equal(t, "Calculate 8000*4", p.Todo[0].Description())
	assert.True(t, p.Todo[1].Structured())
	assert.Equal(t, "payments_by_name(name=Asha)", p.Todo[1].Description())
	assert.Equal(t, "List all rooms", p.Todo[2].Description())
	assert.Equal(t, "7", p.Todo[3].Description())
	assert.Equal(t, map[string]float64{"price": 32000, "rate": 1500}, p.ComputedValues)
	assert.Equal(t, "Update prices", p.Summary)
}

func TestPlan_RequiresTodoSequence(t *testing.T) {
	for _, payload := range []string{
		`{"summary": "no todo"}`,
		`{"todo": "just a string"}`,
		`{"todo": {"a": 1}}`,
	} {
		var p Plan
		err := json.Unmarshal([]byte(payload), &p)
		assert.ErrorIs(t, err, ErrNoTodo, payload)
	}
	var p Plan
	require.NoError(t, json.Unmarshal([]byte(`{"todo": []}`), &p))
	assert.True(t, p.Empty())
}

func TestStepDescriptor_RoundTrip(t *testing.T) {
	p := Plan{Todo: []StepDescriptor{TextStep("List all rooms"), ToolStep("list_rooms", nil)}}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"todo":["List all rooms",{"action":"list_rooms","parameters":{}}],"computed_values":null,"summary":""}`, string(b))
}

func TestStepResult_Transitions(t *testing.T) {
	r := NewStepResult(1, "x")
	assert.Equal(t, StatusPending, r.Status)
	assert.True(t, r.Complete())
	assert.False(t, r.Fail("late"))
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Empty(t, r.Error)

	f := NewStepResult(2, "y")
	assert.True(t, f.Fail("boom"))
	assert.False(t, f.Complete())
	assert.Equal(t, StatusFailed, f.Status)
}

func TestClone(t *testing.T) {
	p := Plan{Todo: []StepDescriptor{TextStep("a")}, ComputedValues: map[string]float64{"price": 1}}
	c := p.Clone()
	c.ComputedValues["price"] = 2
	assert.Equal(t, 1.0, p.ComputedValues["price"])
}
