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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"agentwardan/internal/agent/calc"
	"agentwardan/internal/agent/plan"
	"agentwardan/internal/agent/tools"
)

// Strategy names, also used as metric labels.
const (
	StrategyStrict     = "strict"
	StrategyLenient    = "lenient"
	StrategyPayments   = "heuristic_payments"
	StrategyArithmetic = "heuristic_arithmetic"
	StrategyRaw        = "raw"
)

// Strategy 解析策略：从 oracle 原文中提取计划，不匹配时返回 false，不得 panic
type Strategy interface {
	Name() string
	Parse(raw, utterance string) (plan.Plan, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	name string
	fn   func(raw, utterance string) (plan.Plan, bool)
}

// NewStrategy names fn as a Strategy.
func NewStrategy(name string, fn func(raw, utterance string) (plan.Plan, bool)) Strategy {
	return StrategyFunc{name: name, fn: fn}
}

func (s StrategyFunc) Name() string { return s.name }

func (s StrategyFunc) Parse(raw, utterance string) (plan.Plan, bool) { return s.fn(raw, utterance) }

// DefaultStrategies is the parse chain in precedence order. The last entry always matches.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewStrategy(StrategyStrict, parseStrict),
		NewStrategy(StrategyLenient, parseLenient),
		NewStrategy(StrategyPayments, paymentsHeuristic),
		NewStrategy(StrategyArithmetic, arithmeticHeuristic),
		NewStrategy(StrategyRaw, func(raw, utterance string) (plan.Plan, bool) {
			if strings.TrimSpace(raw) == "" {
				return rawPlan(utterance), true
			}
			return rawPlan(raw), true
		}),
	}
}

// stripFence returns the body of the first ``` fenced block, or text unchanged.
func stripFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	// drop an info string such as "json"
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// jsonObject cuts text down to its outermost {...} span.
func jsonObject(text string) (string, bool) {
	text = stripFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decodePlan(payload string) (plan.Plan, bool) {
	var p plan.Plan
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return plan.Plan{}, false
	}
	return p, true
}

func parseStrict(raw, _ string) (plan.Plan, bool) {
	payload, ok := jsonObject(raw)
	if !ok {
		return plan.Plan{}, false
	}
	return decodePlan(payload)
}

var contractions = strings.NewReplacer(
	`"s `, `'s `,
	`"t `, `'t `,
	`"re `, `'re `,
	`"ll `, `'ll `,
	`"ve `, `'ve `,
)

// repairQuotes turns single-quoted pseudo-JSON into JSON, keeping apostrophes in contractions.
func repairQuotes(s string) string {
	s = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`).Replace(s)
	return contractions.Replace(strings.ReplaceAll(s, "'", `"`))
}

func parseLenient(raw, _ string) (plan.Plan, bool) {
	payload, ok := jsonObject(raw)
	if !ok {
		return plan.Plan{}, false
	}
	return decodePlan(repairQuotes(payload))
}

var (
	paymentsToolArg = regexp.MustCompile(`(?i)["']?name["']?\s*[:=]\s*["']([^"']+)["']`)
	paymentsPhrase  = regexp.MustCompile(`(?i:payments?\s+(?:for|of)\s+(?:student\s+)?)([A-Za-z][A-Za-z.'-]*(?:\s+[A-Z][A-Za-z.'-]*)*)`)
)

func paymentsName(text string) (string, bool) {
	if i := strings.Index(strings.ToLower(text), "payments_by_name"); i >= 0 {
		if m := paymentsToolArg.FindStringSubmatch(text[i:]); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	if m := paymentsPhrase.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// paymentsHeuristic synthesizes a single payments_by_name step.
func paymentsHeuristic(raw, utterance string) (plan.Plan, bool) {
	name, ok := paymentsName(raw)
	if !ok {
		name, ok = paymentsName(utterance)
	}
	if !ok || name == "" {
		return plan.Plan{}, false
	}
	return plan.Plan{
		Todo:           []plan.StepDescriptor{plan.ToolStep("payments_by_name", map[string]any{"name": name})},
		ComputedValues: map[string]float64{},
		Summary:        fmt.Sprintf("Retrieve payments for student %s", name),
	}, true
}

// arithmeticHeuristic synthesizes the calculate/list/update triple for a room price expression.
func arithmeticHeuristic(raw, utterance string) (plan.Plan, bool) {
	hay := strings.ToLower(raw + " " + utterance)
	if !strings.Contains(hay, "price") && !strings.Contains(hay, "room") {
		return plan.Plan{}, false
	}
	expr, ok := calc.FindExpression(raw)
	if !ok {
		expr, ok = calc.FindExpression(utterance)
	}
	if !ok {
		return plan.Plan{}, false
	}
	price, err := calc.Eval(expr)
	if err != nil {
		return plan.Plan{}, false
	}
	p := calc.Format(price)
	return plan.Plan{
		Todo: []plan.StepDescriptor{
			plan.TextStep(fmt.Sprintf("Calculate %s = %s", expr, p)),
			plan.TextStep("List all rooms"),
			plan.TextStep("Update each room price to " + p),
		},
		ComputedValues: map[string]float64{"price": price},
		Summary:        "Update all room prices to " + tools.FormatINR(price),
	}, true
}

func rawPlan(text string) plan.Plan {
	return plan.Plan{
		Todo:           []plan.StepDescriptor{plan.TextStep(text)},
		ComputedValues: map[string]float64{},
		Summary:        "Simple task execution",
	}
}
