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
	"encoding/json"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsama1/twuiq-proj/internal/agent"
	"github.com/salsama1/twuiq-proj/internal/agent/intent"
	"github.com/salsama1/twuiq-proj/internal/agent/router"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/api/http/middleware"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

func f64(v float64) *float64 { return &v }

func buildServerForTest(t *testing.T) *server.Hertz {
	t.Helper()

	store := occurrence.NewMemoryStore([]occurrence.Occurrence{
		{ID: 1, ModsID: "M1", EnglishName: "Mahd adh Dhahab", MajorCommodity: "Gold", AdminRegion: "Madinah Region", ExplorationStatus: "Mine", Importance: "High", Longitude: f64(40.86), Latitude: f64(23.50)},
		{ID: 2, ModsID: "M2", EnglishName: "Jabal Sayid", MajorCommodity: "Copper", AdminRegion: "Madinah Region", ExplorationStatus: "Mine", Importance: "High", Longitude: f64(40.93), Latitude: f64(23.85)},
	})
	reg := tools.NewRegistry()
	tools.RegisterBuiltin(reg, store, nil, nil, nil, config.OGCConfig{})
	executor := tools.NewExecutor(reg, nil, nil, nil, nil)

	// 无模型配置：所有 LLM 调用返回哨兵，只有确定性路径可用
	guard := llm.NewGuard(nil, llm.GuardConfig{}, nil)
	rtr := router.New([]string{"Madinah Region", "Makkah Region"}, 0)

	agentRunner := agent.New(executor, guard, rtr, nil, config.AgentConfig{MaxSteps: 4}, nil)
	workflowRunner := agent.NewWorkflow(executor, guard, rtr, config.AgentConfig{MaxSteps: 4}, nil)
	sessions := session.NewManager(session.NewMemoryStore())

	h := NewHandler(agentRunner, workflowRunner, intent.NewClassifier(guard), sessions, reg, nil)
	r := NewRouter(h, middleware.NewMiddleware(nil), nil)
	return r.Build(":0")
}

func postJSON(s *server.Hertz, path string, payload any) *ut.ResponseRecorder {
	body, _ := json.Marshal(payload)
	return ut.PerformRequest(s.Engine, "POST", path,
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
}

func TestHealthCheck(t *testing.T) {
	s := buildServerForTest(t)
	w := ut.PerformRequest(s.Engine, "GET", "/healthz", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), `"ok"`)
}

func TestAgentRunRouted(t *testing.T) {
	s := buildServerForTest(t)

	w := postJSON(s, "/api/v1/agent/run", map[string]any{
		"session_id": "s1",
		"query":      "show gold mines in madinah",
	})
	require.Equal(t, 200, w.Result().StatusCode())

	var resp struct {
		SessionID string `json:"session_id"`
		Answer    string `json:"answer"`
		ToolTrace []struct {
			Tool string `json:"tool"`
		} `json:"tool_trace"`
		Artifacts map[string]any `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.Contains(t, resp.Answer, "GeoJSON layer")
	require.Len(t, resp.ToolTrace, 1)
	assert.Equal(t, "geojson_export", resp.ToolTrace[0].Tool)
	assert.Contains(t, resp.Artifacts, "geojson")
}

func TestAgentRunRejectsEmptyQuery(t *testing.T) {
	s := buildServerForTest(t)
	w := postJSON(s, "/api/v1/agent/run", map[string]any{"query": "   "})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestWorkflowRunDeterministic(t *testing.T) {
	s := buildServerForTest(t)

	w := postJSON(s, "/api/v1/workflow/run", map[string]any{
		"session_id": "wf1",
		"query":      "qc check and commodity breakdown",
		"use_llm":    false,
	})
	require.Equal(t, 200, w.Result().StatusCode())

	var resp struct {
		Answer    string `json:"answer"`
		ToolTrace []struct {
			Tool string `json:"tool"`
			Why  string `json:"why"`
		} `json:"tool_trace"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Contains(t, resp.Answer, "QC summary")
	require.GreaterOrEqual(t, len(resp.ToolTrace), 2)
	for _, step := range resp.ToolTrace {
		assert.NotEmpty(t, step.Why)
	}
}

func TestIntentKeywordPath(t *testing.T) {
	s := buildServerForTest(t)

	w := postJSON(s, "/api/v1/intent", map[string]any{"query": "export all copper occurrences as geojson"})
	require.Equal(t, 200, w.Result().StatusCode())

	var resp intent.Classification
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Equal(t, intent.Export, resp.Intent)
	assert.Equal(t, "keyword", resp.Source)
}

func TestSessionGeometryRoundTrip(t *testing.T) {
	s := buildServerForTest(t)

	w := postJSON(s, "/api/v1/sessions/geo1/geometry", map[string]any{
		"geometry": map[string]any{
			"type":        "Point",
			"coordinates": []float64{40.9, 23.6},
		},
	})
	require.Equal(t, 200, w.Result().StatusCode())

	// AOI 已入会话，空间工具不再要求显式几何
	w = postJSON(s, "/api/v1/agent/run", map[string]any{
		"session_id": "geo1",
		"query":      "nearest occurrences to my point",
	})
	require.Equal(t, 200, w.Result().StatusCode())
	var resp struct {
		ToolTrace []struct {
			Tool  string `json:"tool"`
			Error string `json:"error,omitempty"`
		} `json:"tool_trace"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	require.NotEmpty(t, resp.ToolTrace)
	assert.Equal(t, "spatial_nearest", resp.ToolTrace[0].Tool)
}

func TestSessionGeometryRequiresBody(t *testing.T) {
	s := buildServerForTest(t)
	w := postJSON(s, "/api/v1/sessions/geo2/geometry", map[string]any{})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestSessionHistoryAndReset(t *testing.T) {
	s := buildServerForTest(t)

	w := postJSON(s, "/api/v1/agent/run", map[string]any{
		"session_id": "h1",
		"query":      "show gold mines in madinah",
	})
	require.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "GET", "/api/v1/sessions/h1/history", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	var hist struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &hist))
	assert.Len(t, hist.Messages, 2)

	w = postJSON(s, "/api/v1/sessions/h1/reset", map[string]any{})
	require.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "GET", "/api/v1/sessions/h1/history", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	require.NoError(t, json.Unmarshal(w.Result().Body(), &hist))
	assert.Empty(t, hist.Messages)
}

func TestSessionDelete(t *testing.T) {
	s := buildServerForTest(t)

	w := postJSON(s, "/api/v1/agent/run", map[string]any{
		"session_id": "d1",
		"query":      "show gold mines in madinah",
	})
	require.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "DELETE", "/api/v1/sessions/d1", nil)
	require.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "GET", "/api/v1/sessions/d1/history", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestToolsCatalog(t *testing.T) {
	s := buildServerForTest(t)

	w := ut.PerformRequest(s.Engine, "GET", "/api/v1/tools", nil)
	require.Equal(t, 200, w.Result().StatusCode())

	var schemas []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &schemas))
	names := make(map[string]bool, len(schemas))
	for _, sc := range schemas {
		names[sc.Name] = true
	}
	assert.True(t, names["search_mods"])
	assert.True(t, names["geojson_export"])
	assert.True(t, names["qc_summary"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := buildServerForTest(t)

	// 先跑一轮请求，确保指标有样本
	w := postJSON(s, "/api/v1/agent/run", map[string]any{
		"session_id": "m1",
		"query":      "show gold mines in madinah",
	})
	require.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "GET", "/metrics", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "geoagent_")
}

func TestUnknownSessionHistoryNotFound(t *testing.T) {
	s := buildServerForTest(t)
	w := ut.PerformRequest(s.Engine, "GET", "/api/v1/sessions/no-such/history", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}
