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

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"agentwardan/internal/backend"
	pkgerrors "agentwardan/pkg/errors"
	"agentwardan/pkg/log"
	"agentwardan/pkg/metrics"
	"agentwardan/pkg/tracing"
)

// Registry 工具注册表
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	logger  *log.Logger
	timeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for tool invocations.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeout bounds every Invoke; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// NewRegistry 创建新 Registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{tools: make(map[string]Tool), logger: log.Nop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register 注册工具；同名工具覆盖
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get 按名称获取工具
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List 返回所有已注册工具（按名称排序）
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// ToolSchemaForLLM 供 LLM 使用的工具描述
type ToolSchemaForLLM struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// SchemasForLLM 返回所有工具的 Schema 列表（JSON，供 Planner 使用）
func (r *Registry) SchemasForLLM() ([]byte, error) {
	tools := r.List()
	list := make([]ToolSchemaForLLM, 0, len(tools))
	for _, t := range tools {
		list = append(list, ToolSchemaForLLM{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return json.Marshal(list)
}

// ToolInfos returns the eino tool catalog used to bind the oracle.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	tools := r.List()
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo(t))
	}
	return infos
}

// Invoke runs the named tool and normalizes its output.
//
// Unknown tools, invalid arguments and backend status replies come back as an
// Envelope with Error set. Transport failures and timeouts are returned as
// errors for the caller to treat as fatal.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (env Envelope, err error) {
	t, ok := r.Get(name)
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues(name, "unknown").Inc()
		return Envelope{Summary: "Unknown tool: " + name, Data: []any{}, Error: "unknown tool"}, nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if verr := validateRequired(t.Schema(), args); verr != nil {
		metrics.ToolCallsTotal.WithLabelValues(name, "envelope_error").Inc()
		return Envelope{Summary: fmt.Sprintf("Invalid arguments for %s: %v", name, verr), Data: []any{}, Error: verr.Error()}, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx, span := tracing.StartToolSpan(ctx, name)
	start := time.Now()
	defer func() {
		metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	out, execErr := t.Execute(ctx, args)
	if execErr != nil {
		if backend.IsStatus(execErr) || pkgerrors.Is(execErr, pkgerrors.ErrInvalidArg) {
			metrics.ToolCallsTotal.WithLabelValues(name, "envelope_error").Inc()
			r.logger.Warn("tool returned error envelope", "tool", name, "error", execErr)
			return Envelope{Summary: failureSummary(name, execErr), Data: []any{}, Error: execErr.Error()}, nil
		}
		metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
		r.logger.Error("tool failed", "tool", name, "error", execErr)
		return Envelope{}, fmt.Errorf("tool %s: %w", name, execErr)
	}

	env = Normalize(out)
	outcome := "ok"
	if env.Error != "" {
		outcome = "envelope_error"
	}
	metrics.ToolCallsTotal.WithLabelValues(name, outcome).Inc()
	r.logger.Debug("tool invoked", "tool", name, "records", len(env.Data), "duration", time.Since(start))
	return env, nil
}

func failureSummary(name string, err error) string {
	var se *backend.StatusError
	if pkgerrors.As(err, &se) {
		return fmt.Sprintf("%s failed: %s", name, se.Detail())
	}
	return fmt.Sprintf("%s failed: %v", name, err)
}
