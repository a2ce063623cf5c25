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

// Package router decides whether a turn needs stepwise execution.
package router

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Route is the path a turn takes after planning.
type Route string

const (
	// Executor runs the plan step by step.
	Executor Route = "executor"
	// Direct lets the oracle call tools itself.
	Direct Route = "agent"
)

// complexSignals mark bulk phrasing or arithmetic.
var complexSignals = []string{
	"all rooms", "all students", "bulk", "multiple", "update all", "delete all", "every", "each",
	"*", "+", "-", "/", "%", "calculate", "math",
}

// Classify routes a single utterance.
func Classify(text string) Route {
	lower := strings.ToLower(text)
	for _, s := range complexSignals {
		if strings.Contains(lower, s) {
			return Executor
		}
	}
	return Direct
}

// Decide 路由决策：显式输入优先，否则取最后一条用户消息；无用户消息时保守地走执行器
func Decide(explicitInput string, msgs []*schema.Message) Route {
	if explicitInput != "" {
		return Classify(explicitInput)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if m := msgs[i]; m != nil && m.Role == schema.User {
			return Classify(m.Content)
		}
	}
	return Executor
}
