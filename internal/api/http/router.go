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
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agentwardan/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	metrics    bool
	extra      []app.HandlerFunc
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// EnableMetrics exposes GET /metrics.
func (r *Router) EnableMetrics(on bool) { r.metrics = on }

// Use adds middleware that runs ahead of the built-in ones; call before Build.
func (r *Router) Use(mw ...app.HandlerFunc) { r.extra = append(r.extra, mw...) }

// Build 创建 Hertz 实例并注册路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	if len(r.extra) > 0 {
		h.Use(r.extra...)
	}
	h.Use(r.middleware.AccessLog(), r.middleware.CORS())
	h.OPTIONS("/*path", func(ctx context.Context, c *app.RequestContext) {
		c.SetStatusCode(consts.StatusNoContent)
	})

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)

	agent := api.Group("/agent")
	agent.POST("/query", r.handler.AgentQuery)
	agent.GET("/sessions/:id", r.handler.SessionTranscript)

	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}
	return h
}
