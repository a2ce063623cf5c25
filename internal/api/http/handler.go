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

package http

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agentwardan/pkg/log"
	"agentwardan/pkg/metrics"
)

// Chatter runs one agent turn and returns the envelope JSON.
type Chatter interface {
	Chat(ctx context.Context, query, sessionID string) string
	Transcript(ctx context.Context, sessionID string) ([]*schema.Message, error)
}

// Handler HTTP 处理器
type Handler struct {
	agent  Chatter
	logger *log.Logger
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(agent Chatter, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{agent: agent, logger: logger}
}

// QueryRequest is the body of POST /api/agent/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "agentwardan",
	})
}

// AgentQuery runs one turn. The envelope is returned verbatim with 200, including error envelopes.
// POST /api/agent/query
func (h *Handler) AgentQuery(ctx context.Context, c *app.RequestContext) {
	var req QueryRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if h.agent == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "agent is not configured"})
		return
	}
	out := h.agent.Chat(ctx, req.Query, req.SessionID)
	c.Data(consts.StatusOK, "application/json; charset=utf-8", []byte(out))
}

type transcriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionTranscript 返回会话记录
// GET /api/agent/sessions/:id
func (h *Handler) SessionTranscript(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	if h.agent == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "agent is not configured"})
		return
	}
	msgs, err := h.agent.Transcript(ctx, id)
	if err != nil {
		hlog.CtxErrorf(ctx, "load transcript for session %s: %v", id, err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(msgs) == 0 {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	out := make([]transcriptMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, transcriptMessage{Role: string(m.Role), Content: m.Content})
	}
	c.JSON(consts.StatusOK, map[string]any{"session_id": id, "messages": out})
}

// Metrics exposes the Prometheus registry in text format.
// GET /metrics
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.logger.Error("write metrics", "error", err)
		c.String(consts.StatusInternalServerError, err.Error())
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
