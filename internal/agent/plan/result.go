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

// StepStatus is pending until the executor settles the step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// SubError records one failed item inside a step (e.g. one room of a bulk update).
type SubError struct {
	Target string `json:"target"`
	Error  string `json:"error"`
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Step          int        `json:"step"`
	Description   string     `json:"description"`
	Intent        string     `json:"intent,omitempty"`
	Status        StepStatus `json:"status"`
	Result        any        `json:"result,omitempty"`
	Count         *int       `json:"count,omitempty"`
	ComputedValue *float64   `json:"computed_value,omitempty"`
	PriceApplied  *float64   `json:"price_applied,omitempty"`
	Updated       []string   `json:"updated,omitempty"`
	Note          string     `json:"note,omitempty"`
	Error         string     `json:"error,omitempty"`
	Errors        []SubError `json:"errors,omitempty"`
}

// NewStepResult starts a pending result for the 1-based step index.
func NewStepResult(step int, description string) *StepResult {
	return &StepResult{Step: step, Description: description, Status: StatusPending}
}

// Complete settles a pending step as completed. Settled steps are not changed.
func (r *StepResult) Complete() bool {
	if r.Status != StatusPending {
		return false
	}
	r.Status = StatusCompleted
	return true
}

// Fail settles a pending step as failed with msg. Settled steps are not changed.
func (r *StepResult) Fail(msg string) bool {
	if r.Status != StatusPending {
		return false
	}
	r.Status = StatusFailed
	r.Error = msg
	return true
}

// SetCount records a record count.
func (r *StepResult) SetCount(n int) { r.Count = &n }

// ExecutionStats summarizes a finished plan.
type ExecutionStats struct {
	TotalSteps     int                `json:"total_steps"`
	Completed      int                `json:"completed"`
	Failed         int                `json:"failed"`
	ComputedValues map[string]float64 `json:"computed_values"`
}

// Report is the executor's terminal envelope.
type Report struct {
	Summary        string         `json:"summary"`
	Data           []StepResult   `json:"data"`
	Plan           Plan           `json:"plan"`
	ExecutionStats ExecutionStats `json:"execution_stats"`
}
