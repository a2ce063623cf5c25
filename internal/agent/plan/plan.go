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

// Package plan holds the data model shared by the planner and the executor.
package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StepDescriptor is one todo entry: free text, or a structured tool call.
type StepDescriptor struct {
	Text       string
	Action     string
	Parameters map[string]any
}

// TextStep builds a free-text step.
func TextStep(text string) StepDescriptor { return StepDescriptor{Text: text} }

// ToolStep builds a structured step.
func ToolStep(action string, params map[string]any) StepDescriptor {
	return StepDescriptor{Action: action, Parameters: params}
}

// Structured reports whether the step names an action.
func (s StepDescriptor) Structured() bool { return s.Action != "" }

// Description is the human-readable form used for classification and reports.
func (s StepDescriptor) Description() string {
	if !s.Structured() {
		return s.Text
	}
	if len(s.Parameters) == 0 {
		return s.Action
	}
	keys := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, s.Parameters[k]))
	}
	return fmt.Sprintf("%s(%s)", s.Action, strings.Join(parts, ", "))
}

// MarshalJSON writes text steps as strings and structured steps as objects.
func (s StepDescriptor) MarshalJSON() ([]byte, error) {
	if !s.Structured() {
		return json.Marshal(s.Text)
	}
	params := s.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return json.Marshal(struct {
		Action     string         `json:"action"`
		Parameters map[string]any `json:"parameters"`
	}{s.Action, params})
}

// UnmarshalJSON accepts a string, an {action, parameters} object, or any
// other object (rendered to text from a description-like field).
func (s *StepDescriptor) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*s = TextStep(text)
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		// numbers, booleans: keep the literal text
		*s = TextStep(string(b))
		return nil
	}
	if action, ok := obj["action"].(string); ok && action != "" {
		params, _ := obj["parameters"].(map[string]any)
		if params == nil {
			params, _ = obj["params"].(map[string]any)
		}
		*s = ToolStep(action, params)
		return nil
	}
	for _, k := range []string{"description", "step", "task", "text"} {
		if text, ok := obj[k].(string); ok && text != "" {
			*s = TextStep(text)
			return nil
		}
	}
	*s = TextStep(string(b))
	return nil
}

// Plan is the per-turn decomposition of a request.
type Plan struct {
	Todo           []StepDescriptor   `json:"todo"`
	ComputedValues map[string]float64 `json:"computed_values"`
	Summary        string             `json:"summary"`
}

// UnmarshalJSON requires todo to be a JSON array; computed values that are
// not numeric (or numeric strings) are dropped.
func (p *Plan) UnmarshalJSON(b []byte) error {
	var raw struct {
		Todo           json.RawMessage `json:"todo"`
		ComputedValues map[string]any  `json:"computed_values"`
		Summary        any             `json:"summary"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	todo := bytes.TrimSpace(raw.Todo)
	if len(todo) == 0 || todo[0] != '[' {
		return ErrNoTodo
	}
	var steps []StepDescriptor
	if err := json.Unmarshal(todo, &steps); err != nil {
		return err
	}
	p.Todo = steps
	p.ComputedValues = make(map[string]float64, len(raw.ComputedValues))
	for k, v := range raw.ComputedValues {
		if f, ok := toFloat(v); ok {
			p.ComputedValues[k] = f
		}
	}
	switch s := raw.Summary.(type) {
	case nil:
		p.Summary = ""
	case string:
		p.Summary = s
	default:
		p.Summary = fmt.Sprint(s)
	}
	return nil
}

// ErrNoTodo is returned when a payload has no todo sequence.
var ErrNoTodo = errors.New("plan payload has no todo sequence")

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Empty reports whether the plan has nothing to execute.
func (p *Plan) Empty() bool { return p == nil || len(p.Todo) == 0 }

// Clone copies the plan so the executor can mutate computed values freely.
func (p Plan) Clone() Plan {
	out := Plan{Summary: p.Summary, Todo: append([]StepDescriptor(nil), p.Todo...)}
	out.ComputedValues = make(map[string]float64, len(p.ComputedValues))
	for k, v := range p.ComputedValues {
		out.ComputedValues[k] = v
	}
	return out
}
