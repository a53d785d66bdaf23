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
	"time"

	"github.com/salsama1/twuiq-proj/internal/governance"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	pkgerrors "github.com/salsama1/twuiq-proj/pkg/errors"
	"github.com/salsama1/twuiq-proj/pkg/log"
	"github.com/salsama1/twuiq-proj/pkg/metrics"
	"github.com/salsama1/twuiq-proj/pkg/tracing"
)

// Executor 工具调度：门禁、限流、指标、审计之后再转给具体工具。
// 返回的 error 由 Agent 循环写进轨迹，不会中断 HTTP 请求。
type Executor struct {
	registry *Registry
	policy   *governance.Policy
	auditor  *governance.Auditor
	limiter  *RateLimiter
	logger   *log.Logger
}

// NewExecutor 创建执行器；policy/auditor/limiter 均可为 nil
func NewExecutor(registry *Registry, policy *governance.Policy, auditor *governance.Auditor, limiter *RateLimiter, logger *log.Logger) *Executor {
	return &Executor{
		registry: registry,
		policy:   policy,
		auditor:  auditor,
		limiter:  limiter,
		logger:   logger,
	}
}

// Registry 返回底层注册表
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute 执行一次工具调用
func (e *Executor) Execute(ctx context.Context, sess *session.Session, name string, args map[string]any) (*Result, error) {
	tool, ok := e.registry.Get(name)
	if !ok {
		metrics.ToolTotal.WithLabelValues(name, "error").Inc()
		return nil, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "unknown tool %q", name)
	}

	if !e.policy.FeatureEnabled(name) {
		metrics.ToolTotal.WithLabelValues(name, "denied").Inc()
		e.audit(governance.Event{Kind: "denied", Tool: name, SessionID: sessionID(sess), Detail: governance.DeniedMessage})
		return nil, pkgerrors.Wrap(pkgerrors.ErrForbidden, governance.DeniedMessage)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, name); err != nil {
			metrics.ToolTotal.WithLabelValues(name, "error").Inc()
			return nil, err
		}
		defer e.limiter.Release(name)
	}

	spanCtx, span := tracing.StartToolSpan(ctx, name)
	start := time.Now()
	result, err := tool.Execute(spanCtx, sess, args)
	span.End()
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	status := "ok"
	detail := ""
	if err != nil {
		status = "error"
		detail = governance.SanitizeText(err.Error())
	}
	metrics.ToolTotal.WithLabelValues(name, status).Inc()
	e.audit(governance.Event{Kind: "tool", Tool: name, SessionID: sessionID(sess), Status: status, Detail: detail})

	if e.logger != nil {
		e.logger.Info("tool executed",
			"tool", name,
			"status", status,
			"args", sanitizedArgs(args),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return result, err
}

func (e *Executor) audit(event governance.Event) {
	if e.auditor != nil {
		e.auditor.Log(event)
	}
}

func sessionID(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.ID
}

// sanitizedArgs 参数脱敏后的紧凑 JSON，仅用于日志
func sanitizedArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return governance.SanitizeText(string(raw))
}
