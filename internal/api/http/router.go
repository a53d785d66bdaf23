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
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"github.com/salsama1/twuiq-proj/internal/api/http/middleware"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

// Router 路由装配
type Router struct {
	handler *Handler
	mw      *middleware.Middleware
	cfg     *config.Config
}

// NewRouter 创建路由装配器；cfg 可为 nil
func NewRouter(handler *Handler, mw *middleware.Middleware, cfg *config.Config) *Router {
	return &Router{handler: handler, mw: mw, cfg: cfg}
}

// Build 构建 Hertz Server 并注册全部路由
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	serverOpts := append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(serverOpts...)

	h.Use(r.mw.RequestID())
	h.Use(r.mw.AccessLog())
	if r.cfg != nil && r.cfg.API.CORS.Enable {
		h.Use(r.mw.CORS(r.cfg.API.CORS))
	}

	h.GET("/healthz", r.handler.HealthCheck)
	if r.cfg == nil || r.cfg.Monitoring.Prometheus.Enable {
		h.GET("/metrics", r.handler.Metrics)
	}

	v1 := h.Group("/api/v1")
	{
		v1.POST("/agent/run", r.handler.AgentRun)
		v1.POST("/workflow/run", r.handler.WorkflowRun)
		v1.POST("/intent", r.handler.Intent)
		v1.GET("/tools", r.handler.Tools)

		sessions := v1.Group("/sessions")
		sessions.GET("/:id/history", r.handler.SessionHistory)
		sessions.POST("/:id/reset", r.handler.SessionReset)
		sessions.DELETE("/:id", r.handler.SessionDelete)
		sessions.POST("/:id/geometry", r.handler.SessionGeometry)
	}

	return h
}
