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

package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"agentwardan/pkg/metrics"
)

// RateLimitedChatModel 包装任意 ChatModel，在真实调用前后执行限流控制。
// Planner 与直接工具调用路径共用同一个 limiter。
type RateLimitedChatModel struct {
	inner    model.ToolCallingChatModel
	limiter  *RateLimiter
	provider string
}

// NewRateLimitedChatModel wraps inner. A nil limiter makes the wrapper a pass-through.
func NewRateLimitedChatModel(inner model.ToolCallingChatModel, limiter *RateLimiter, provider string) *RateLimitedChatModel {
	return &RateLimitedChatModel{inner: inner, limiter: limiter, provider: provider}
}

func (c *RateLimitedChatModel) acquire(ctx context.Context) (func(), error) {
	if c.limiter == nil {
		return func() {}, nil
	}
	start := time.Now()
	if err := c.limiter.Wait(ctx, c.provider); err != nil {
		return nil, err
	}
	metrics.OracleWait.Observe(time.Since(start).Seconds())
	return func() { c.limiter.Release(c.provider) }, nil
}

// Generate 实现 model.BaseChatModel
func (c *RateLimitedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.inner.Generate(ctx, input, opts...)
}

// Stream holds the slot only until the stream is returned.
func (c *RateLimitedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.inner.Stream(ctx, input, opts...)
}

// WithTools binds tools on the inner model and keeps the limiter.
func (c *RateLimitedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := c.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedChatModel{inner: bound, limiter: c.limiter, provider: c.provider}, nil
}
