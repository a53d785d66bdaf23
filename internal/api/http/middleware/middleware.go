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

// Package middleware Hertz 请求中间件：请求 ID、访问日志、CORS
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"github.com/salsama1/twuiq-proj/internal/requestctx"
	"github.com/salsama1/twuiq-proj/pkg/config"
	"github.com/salsama1/twuiq-proj/pkg/log"
)

const requestIDHeader = "X-Request-ID"

// Middleware 中间件集合
type Middleware struct {
	logger *log.Logger
}

// NewMiddleware 创建中间件集合；logger 可为 nil（访问日志关闭）
func NewMiddleware(logger *log.Logger) *Middleware {
	return &Middleware{logger: logger}
}

// RequestID 为每个请求分配 ID，透传调用方自带的 X-Request-ID
func (m *Middleware) RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		ctx = requestctx.WithRequestID(ctx, id)
		c.Response.Header.Set(requestIDHeader, id)
		c.Next(ctx)
	}
}

// AccessLog 结构化访问日志
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		if m.logger == nil {
			return
		}
		m.logger.Info("http request",
			"method", string(c.Method()),
			"path", string(c.Path()),
			"status", c.Response.StatusCode(),
			"request_id", requestctx.RequestID(ctx),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// CORS 跨域响应头；allow_origins 为空默认 *
func (m *Middleware) CORS(cfg config.CORSConfig) app.HandlerFunc {
	origins := "*"
	if len(cfg.AllowOrigins) > 0 {
		origins = strings.Join(cfg.AllowOrigins, ", ")
	}
	return func(ctx context.Context, c *app.RequestContext) {
		c.Response.Header.Set("Access-Control-Allow-Origin", origins)
		c.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Response.Header.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Response.Header.Set("Access-Control-Max-Age", "86400")
		if string(c.Method()) == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next(ctx)
	}
}
