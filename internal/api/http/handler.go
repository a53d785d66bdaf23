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

// Package http Hertz HTTP 接口层
package http

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/salsama1/twuiq-proj/internal/agent"
	"github.com/salsama1/twuiq-proj/internal/agent/intent"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/geojson"
	"github.com/salsama1/twuiq-proj/internal/requestctx"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/pkg/log"
	"github.com/salsama1/twuiq-proj/pkg/metrics"
)

// Handler HTTP 处理器
type Handler struct {
	agent      *agent.Agent
	workflow   *agent.Workflow
	classifier *intent.Classifier
	sessions   *session.Manager
	registry   *tools.Registry
	logger     *log.Logger
}

// NewHandler 创建处理器；classifier 可为 nil
func NewHandler(agentRunner *agent.Agent, workflow *agent.Workflow, classifier *intent.Classifier, sessions *session.Manager, registry *tools.Registry, logger *log.Logger) *Handler {
	return &Handler{
		agent:      agentRunner,
		workflow:   workflow,
		classifier: classifier,
		sessions:   sessions,
		registry:   registry,
		logger:     logger,
	}
}

// HealthCheck GET /healthz
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "geoagent-api",
		"timestamp": time.Now().Unix(),
	})
}

// Metrics GET /metrics（Prometheus 文本格式)
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	ctx.Response.Header.SetContentType("text/plain; version=0.0.4; charset=utf-8")
	if err := metrics.WritePrometheus(ctx.Response.BodyWriter()); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "metrics unavailable"})
	}
}

// Tools GET /api/v1/tools 工具目录（与提示词里的 Schema 同源）
func (h *Handler) Tools(c context.Context, ctx *app.RequestContext) {
	raw, err := h.registry.SchemasForLLM()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "tool schemas unavailable"})
		return
	}
	ctx.Response.Header.SetContentType("application/json; charset=utf-8")
	ctx.Response.SetStatusCode(consts.StatusOK)
	ctx.Response.SetBody(raw)
}

type runRequest struct {
	SessionID string          `json:"session_id"`
	Query     string          `json:"query"`
	Geometry  json.RawMessage `json:"geometry,omitempty"` // 请求级 AOI，GeoJSON geometry
	UseLLM    *bool           `json:"use_llm,omitempty"`  // workflow：缺省 true
}

type runResponse struct {
	SessionID   string                 `json:"session_id"`
	Answer      string                 `json:"answer"`
	Intent      *intent.Classification `json:"intent,omitempty"`
	ToolTrace   []agent.TraceEntry     `json:"tool_trace"`
	Occurrences any                    `json:"occurrences,omitempty"`
	Artifacts   map[string]any         `json:"artifacts"`
	Steps       int                    `json:"steps"`
	DurationMS  int64                  `json:"duration_ms"`
}

func (h *Handler) bindRun(ctx *app.RequestContext) (*runRequest, bool) {
	var req runRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	if strings.TrimSpace(req.Query) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "query is required"})
		return nil, false
	}
	return &req, true
}

// sessionFor 取或建会话；session_id 为空自动生成
func (h *Handler) sessionFor(c context.Context, id string) (*session.Session, error) {
	return h.sessions.GetOrCreate(c, id)
}

// AgentRun POST /api/v1/agent/run
func (h *Handler) AgentRun(c context.Context, ctx *app.RequestContext) {
	req, ok := h.bindRun(ctx)
	if !ok {
		return
	}
	sess, err := h.sessionFor(c, req.SessionID)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "session store unavailable"})
		return
	}
	if len(req.Geometry) > 0 {
		c = requestctx.WithUploadedGeometry(c, string(req.Geometry))
	}

	res, err := h.agent.Run(c, sess, req.Query)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.sessions.Save(c, sess); err != nil && h.logger != nil {
		h.logger.Warn("保存会话失败", "session", sess.ID, "error", err)
	}

	resp := runResponse{
		SessionID:  sess.ID,
		Answer:     res.Answer,
		ToolTrace:  res.Trace,
		Artifacts:  res.Artifacts,
		Steps:      res.Steps,
		DurationMS: res.Duration.Milliseconds(),
	}
	if len(res.Occurrences) > 0 {
		resp.Occurrences = res.Occurrences
	}
	// 意图只走关键词通道，不为它多付一次模型调用
	if h.classifier != nil {
		resp.Intent = h.classifier.Quick(req.Query)
	}
	ctx.JSON(consts.StatusOK, resp)
}

// WorkflowRun POST /api/v1/workflow/run
func (h *Handler) WorkflowRun(c context.Context, ctx *app.RequestContext) {
	req, ok := h.bindRun(ctx)
	if !ok {
		return
	}
	sess, err := h.sessionFor(c, req.SessionID)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "session store unavailable"})
		return
	}
	if len(req.Geometry) > 0 {
		c = requestctx.WithUploadedGeometry(c, string(req.Geometry))
	}
	useLLM := true
	if req.UseLLM != nil {
		useLLM = *req.UseLLM
	}

	res, err := h.workflow.Run(c, sess, req.Query, useLLM)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.sessions.Save(c, sess); err != nil && h.logger != nil {
		h.logger.Warn("保存会话失败", "session", sess.ID, "error", err)
	}

	resp := runResponse{
		SessionID:  sess.ID,
		Answer:     res.Answer,
		ToolTrace:  res.Trace,
		Artifacts:  res.Artifacts,
		Steps:      res.Steps,
		DurationMS: res.Duration.Milliseconds(),
	}
	if len(res.Occurrences) > 0 {
		resp.Occurrences = res.Occurrences
	}
	ctx.JSON(consts.StatusOK, resp)
}

// Intent POST /api/v1/intent
func (h *Handler) Intent(c context.Context, ctx *app.RequestContext) {
	var req struct {
		Query string `json:"query"`
	}
	if err := ctx.BindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if h.classifier == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "intent classifier not configured"})
		return
	}
	ctx.JSON(consts.StatusOK, h.classifier.Classify(c, req.Query))
}

// SessionHistory GET /api/v1/sessions/:id/history
func (h *Handler) SessionHistory(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	sess, err := h.sessions.Get(c, id)
	if err != nil || sess == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	limit := 0
	if v := ctx.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"session_id": sess.ID,
		"messages":   sess.History(limit),
	})
}

// SessionReset POST /api/v1/sessions/:id/reset
func (h *Handler) SessionReset(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	if err := h.sessions.Reset(c, id); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "reset failed"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"session_id": id, "status": "reset"})
}

// SessionDelete DELETE /api/v1/sessions/:id
func (h *Handler) SessionDelete(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	if err := h.sessions.Delete(c, id); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

type geometryRequest struct {
	Geometry          json.RawMessage `json:"geometry,omitempty"`
	FeatureCollection json.RawMessage `json:"feature_collection,omitempty"`
}

// SessionGeometry POST /api/v1/sessions/:id/geometry
// 上传会话级 AOI geometry 或 FeatureCollection，后续轮次的空间工具直接取用
func (h *Handler) SessionGeometry(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	var req geometryRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Geometry) == 0 && len(req.FeatureCollection) == 0 {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "geometry or feature_collection is required"})
		return
	}

	sess, err := h.sessionFor(c, id)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "session store unavailable"})
		return
	}

	stored := map[string]any{}
	if len(req.Geometry) > 0 {
		var geom map[string]any
		if err := json.Unmarshal(req.Geometry, &geom); err != nil {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "geometry is not a valid GeoJSON object"})
			return
		}
		sess.StateSet(session.StateKeyUploadedGeometry, geom)
		stored["geometry"] = true
	}
	if len(req.FeatureCollection) > 0 {
		fc, err := geojson.ParseFeatureCollection(req.FeatureCollection)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid FeatureCollection: " + err.Error()})
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(req.FeatureCollection, &raw); err != nil {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid FeatureCollection"})
			return
		}
		sess.StateSet(session.StateKeyUploadedFC, raw)
		stored["feature_collection"] = true
		stored["features"] = len(fc.Features)
	}
	if err := h.sessions.Save(c, sess); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "save failed"})
		return
	}
	stored["session_id"] = sess.ID
	ctx.JSON(consts.StatusOK, stored)
}
