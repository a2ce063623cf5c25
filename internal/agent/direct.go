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
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"agentwardan/internal/agent/tools"
)

func (o *Orchestrator) agentNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	if o.oracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.oracleTimeout)
		defer cancel()
	}
	msgs := make([]*schema.Message, 0, len(st.Messages)+len(st.Pending))
	msgs = append(msgs, st.Messages...)
	msgs = append(msgs, st.Pending...)

	reply, err := o.direct.Generate(ctx, msgs)
	if err != nil {
		st.fail(fmt.Errorf("oracle: %w", err))
		return st, nil
	}
	if reply == nil {
		st.fail(fmt.Errorf("oracle returned no message"))
		return st, nil
	}
	if len(reply.ToolCalls) > 0 {
		st.Pending = append(st.Pending, reply)
		return st, nil
	}
	st.Final = o.answer(st, reply.Content)
	return st, nil
}

func agentBranch(ctx context.Context, st *TurnState) (string, error) {
	if st.Final != nil {
		return compose.END, nil
	}
	return NodeTools, nil
}

// toolsNode runs every tool call of the latest assistant message.
func (o *Orchestrator) toolsNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	last := st.Pending[len(st.Pending)-1]
	for _, call := range last.ToolCalls {
		env, err := o.invoke(ctx, call)
		if err != nil {
			st.fail(err)
			return st, nil
		}
		full := env
		st.LastTool = &full
		st.Pending = append(st.Pending, schema.ToolMessage(env.Preview(o.previewLimit).JSON(), call.ID))
	}
	st.Rounds++
	return st, nil
}

func (o *Orchestrator) invoke(ctx context.Context, call schema.ToolCall) (tools.Envelope, error) {
	name := call.Function.Name
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return tools.Envelope{
				Summary: fmt.Sprintf("Invalid arguments for %s: %v", name, err),
				Data:    []any{},
				Error:   err.Error(),
			}, nil
		}
	}
	o.logger.Debug("direct tool call", "tool", name, "call_id", call.ID)
	return o.deps.Registry.Invoke(ctx, name, args)
}

func (o *Orchestrator) toolsBranch(ctx context.Context, st *TurnState) (string, error) {
	switch {
	case st.Final != nil:
		return compose.END, nil
	case o.toolLoop == ToolLoopSingle:
		return NodeFinalize, nil
	case st.Rounds >= o.maxToolRounds:
		o.logger.Warn("tool round limit reached", "turn_id", st.TurnID, "rounds", st.Rounds)
		return NodeFinalize, nil
	}
	return NodeAgent, nil
}

// finalizeNode ends the turn with the last tool result when the oracle gets no follow-up.
func (o *Orchestrator) finalizeNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	env := tools.Message("No response.")
	if st.LastTool != nil {
		env = *st.LastTool
	}
	st.Final = schema.AssistantMessage(env.JSON(), nil)
	return st, nil
}

// answer 规范化 oracle 的最终回答；纯文本回答附带本轮最后一次工具结果的数据
func (o *Orchestrator) answer(st *TurnState, text string) *schema.Message {
	env := tools.NormalizeAnswer(text)
	trimmed := strings.TrimSpace(text)
	isJSON := trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed))
	if !isJSON && st.LastTool != nil {
		env = tools.Envelope{
			Summary: env.Summary,
			Data:    st.LastTool.Data,
			Error:   st.LastTool.Error,
			Undo:    st.LastTool.Undo,
		}
		if trimmed == "" {
			env.Summary = st.LastTool.Summary
		}
	}
	return schema.AssistantMessage(env.JSON(), nil)
}
