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

// Package llmtest provides a scripted oracle for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrExhausted is returned once every scripted reply has been consumed.
var ErrExhausted = errors.New("llmtest: no scripted reply left")

// Reply is one scripted oracle answer.
type Reply struct {
	Msg *schema.Message
	Err error
}

// Text replies with plain assistant content.
func Text(content string) Reply {
	return Reply{Msg: schema.AssistantMessage(content, nil)}
}

// Calls replies with tool call requests.
func Calls(calls ...schema.ToolCall) Reply {
	return Reply{Msg: schema.AssistantMessage("", calls)}
}

// Fail replies with an error.
func Fail(err error) Reply { return Reply{Err: err} }

// ToolCall builds a tool call request with JSON arguments.
func ToolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

// Scripted is a model.ToolCallingChatModel that answers from a fixed script, in order.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

var _ model.ToolCallingChatModel = (*Scripted)(nil)

// New creates a scripted model.
func New(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Generate pops the next reply and records the input.
func (s *Scripted) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, append([]*schema.Message(nil), input...))
	if len(s.replies) == 0 {
		return nil, ErrExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Msg, r.Err
}

// Stream returns the next reply as a single-chunk stream.
func (s *Scripted) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := s.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools records the bound tools; the script is shared.
func (s *Scripted) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	s.mu.Lock()
	s.tools = tools
	s.mu.Unlock()
	return s, nil
}

// Inputs returns the message lists passed to Generate, one per call.
func (s *Scripted) Inputs() [][]*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*schema.Message(nil), s.inputs...)
}

// Tools returns the tools last bound with WithTools.
func (s *Scripted) Tools() []*schema.ToolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools
}

// Remaining reports how many scripted replies are left.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
