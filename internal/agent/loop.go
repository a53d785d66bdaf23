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

package agent

import (
	"context"
	"errors"
	"time"

	"github.com/salsama1/twuiq-proj/internal/agent/router"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/internal/rag"
	"github.com/salsama1/twuiq-proj/internal/requestctx"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
	pkgerrors "github.com/salsama1/twuiq-proj/pkg/errors"
	"github.com/salsama1/twuiq-proj/pkg/log"
	"github.com/salsama1/twuiq-proj/pkg/metrics"
	"github.com/salsama1/twuiq-proj/pkg/tracing"
)

const (
	defaultMaxSteps     = 6
	defaultHistoryLimit = 6
	ragTopK             = 3
)

// zonalStatsKey 此工件是累积列表，重复写入不算冗余
const zonalStatsKey = "zonal_stats"

// Agent 逐步决策循环：路由优先，LLM 兜底，每步一个工具调用
type Agent struct {
	executor *tools.Executor
	guard    *llm.Guard
	router   *router.Router
	rag      *rag.Service
	maxSteps int
	history  int
	logger   *log.Logger
}

// New 构建 Agent；ragSvc 可为 nil
func New(executor *tools.Executor, guard *llm.Guard, rtr *router.Router, ragSvc *rag.Service, cfg config.AgentConfig, logger *log.Logger) *Agent {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	history := cfg.HistoryLimit
	if history <= 0 {
		history = defaultHistoryLimit
	}
	return &Agent{
		executor: executor,
		guard:    guard,
		router:   rtr,
		rag:      ragSvc,
		maxSteps: maxSteps,
		history:  history,
		logger:   logger,
	}
}

// runState 单次运行的局部可变状态，不跨请求共享
type runState struct {
	artifacts   map[string]any
	trace       []TraceEntry
	scratchpad  []string
	occurrences []occurrence.Occurrence
	seen        map[string]struct{}
	toolsRan    bool
}

func newRunState() *runState {
	return &runState{
		artifacts: make(map[string]any),
		seen:      make(map[string]struct{}),
	}
}

// mergeArtifacts zonal_stats 每次调用追加一项，其余键直接覆盖
func (st *runState) mergeArtifacts(in map[string]any) {
	for k, v := range in {
		if k == zonalStatsKey {
			list, _ := st.artifacts[k].([]any)
			st.artifacts[k] = append(list, v)
			continue
		}
		st.artifacts[k] = v
	}
}

// hasGeometry 请求级 AOI 优先于会话级
func hasGeometry(ctx context.Context, sess *session.Session) bool {
	if requestctx.UploadedGeometry(ctx) != "" {
		return true
	}
	if sess == nil {
		return false
	}
	_, ok := sess.StateGet(session.StateKeyUploadedGeometry)
	return ok
}

func hasFeatureCollection(sess *session.Session) bool {
	if sess == nil {
		return false
	}
	_, ok := sess.StateGet(session.StateKeyUploadedFC)
	return ok
}

// Run 执行一次 Agent 循环并把问答写入会话历史
func (a *Agent) Run(ctx context.Context, sess *session.Session, query string) (*RunResult, error) {
	start := time.Now()
	st := newRunState()
	outcome := "answered"

	ctx, span := tracing.StartRunSpan(ctx, "agent", sessionLabel(sess))
	answer := a.run(ctx, sess, query, st, &outcome)
	span.End()

	if sess != nil {
		sess.AddMessage("user", query)
		sess.AddMessage("assistant", answer)
	}
	dur := time.Since(start)
	metrics.AgentRunDuration.WithLabelValues("agent").Observe(dur.Seconds())
	metrics.AgentRunTotal.WithLabelValues("agent", outcome).Inc()
	if a.logger != nil {
		a.logger.Info("agent run done",
			"session", sessionLabel(sess), "outcome", outcome,
			"steps", len(st.trace), "duration_ms", dur.Milliseconds())
	}
	return &RunResult{
		Answer:      answer,
		Trace:       st.trace,
		Occurrences: st.occurrences,
		Artifacts:   st.artifacts,
		Steps:       len(st.trace),
		Duration:    dur,
	}, nil
}

func (a *Agent) run(ctx context.Context, sess *session.Session, query string, st *runState, outcome *string) string {
	// ROUTING：确定性规则命中时全程不碰 LLM
	if call := a.router.Route(query, hasGeometry(ctx, sess)); call != nil {
		metrics.AgentStepTotal.WithLabelValues("routing").Inc()
		a.execute(ctx, sess, ToolCall{Name: call.Tool, Args: call.Args}, call.Why, st)
		*outcome = "routed"
		return a.finalAnswer(ctx, query, st)
	}

	if a.guard == nil {
		*outcome = "fallback"
		return a.finalAnswer(ctx, query, st)
	}

	schemas, err := a.executor.Registry().SchemasForLLM()
	if err != nil {
		schemas = []byte("[]")
	}
	ragContext := a.ragContext(ctx, query)
	var history []*session.Message
	if sess != nil {
		history = sess.History(a.history)
	}

	for step := 0; step < a.maxSteps; step++ {
		metrics.AgentStepTotal.WithLabelValues("prompting").Inc()
		prompt := buildAgentPrompt(schemas, history, ragContext, query, st.scratchpad)
		reply := a.guard.Generate(ctx, prompt)

		obj := ExtractJSONObject(reply)
		action, _ := actionOf(obj)
		if llm.IsSentinel(reply) || action == "" {
			// 无可解析动作：有过工具结果就落地合成，否则原文返回
			*outcome = "fallback"
			if st.toolsRan {
				return a.finalAnswer(ctx, query, st)
			}
			return reply
		}

		if action == "final" {
			*outcome = "answered"
			if st.toolsRan {
				// 最终回答一律基于工件重新合成，防止与数据矛盾
				return a.finalAnswer(ctx, query, st)
			}
			if text, ok := obj["answer"].(string); ok && text != "" {
				return text
			}
			return reply
		}

		args, _ := obj["args"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		call := ToolCall{Name: action, Args: args}

		// 冗余守卫：同一工件键本次运行只允许填一次
		if key := a.executor.Registry().ArtifactKey(action); key != "" && key != zonalStatsKey {
			if _, exists := st.artifacts[key]; exists {
				*outcome = "redundant"
				return a.finalAnswer(ctx, query, st)
			}
		}
		// 循环守卫：完全相同的 (tool, args) 只执行一次
		sig := CallSignature(call.Name, call.Args)
		if _, dup := st.seen[sig]; dup {
			*outcome = "repeated"
			return a.finalAnswer(ctx, query, st)
		}
		st.seen[sig] = struct{}{}

		metrics.AgentStepTotal.WithLabelValues("executing").Inc()
		if stop := a.execute(ctx, sess, call, "", st); stop {
			*outcome = "fallback"
			return a.finalAnswer(ctx, query, st)
		}
	}

	*outcome = "max_steps"
	return a.finalAnswer(ctx, query, st)
}

// execute 跑一个工具并把结果并入运行状态。返回 true 表示应当终止循环
// （目前只有未知工具会触发）。工具自身的失败写进轨迹后循环继续
func (a *Agent) execute(ctx context.Context, sess *session.Session, call ToolCall, why string, st *runState) bool {
	return executeCall(ctx, a.executor, sess, call, why, st)
}

// executeCall Agent 循环与 Workflow 共用的执行管线。
// 失败步骤只记录轨迹不中断，未知工具返回 true 示意终止
func executeCall(ctx context.Context, executor *tools.Executor, sess *session.Session, call ToolCall, why string, st *runState) bool {
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	// publish_layer_instructions 缺 ogc_items_url 时回填先前生成的 OGC 链接
	if call.Name == "publish_layer_instructions" {
		if _, ok := call.Args["ogc_items_url"]; !ok {
			if u, ok := st.artifacts["ogc_items_url"].(string); ok {
				call.Args["ogc_items_url"] = u
			}
		}
	}

	entry := TraceEntry{Tool: call.Name, Args: call.Args, Why: why}
	res, err := executor.Execute(ctx, sess, call.Name, call.Args)
	if err != nil {
		entry.Error = err.Error()
		st.trace = append(st.trace, entry)
		st.scratchpad = append(st.scratchpad, call.Name+" failed: "+err.Error())
		return errors.Is(err, pkgerrors.ErrNotFound)
	}
	entry.Summary = res.Summary
	st.trace = append(st.trace, entry)
	st.toolsRan = true
	if res.Summary != "" {
		st.scratchpad = append(st.scratchpad, res.Summary)
	}
	if len(res.Artifacts) > 0 {
		st.mergeArtifacts(res.Artifacts)
	}
	if len(res.Occurrences) > 0 {
		st.occurrences = res.Occurrences
	}
	return false
}

// finalAnswer 优先用确定性合成；工件无可叙述内容时再请模型收尾一次
func (a *Agent) finalAnswer(ctx context.Context, query string, st *runState) string {
	if answer := Synthesize(query, st.artifacts, st.occurrences, st.trace); answer != "" {
		return answer
	}
	if len(st.artifacts) > 0 && a.guard != nil && a.guard.Available() {
		reply := a.guard.Generate(ctx, buildForcedFinalPrompt(query, st.artifacts))
		if !llm.IsSentinel(reply) && reply != "" {
			return reply
		}
	}
	if st.toolsRan {
		return "The requested tools ran but produced no reportable results."
	}
	return "I could not determine how to answer that. Try asking about occurrences, regions, commodities, QC, or exports."
}

func (a *Agent) ragContext(ctx context.Context, query string) string {
	if a.rag == nil || !a.rag.Enabled() {
		return ""
	}
	notes, err := a.rag.Search(ctx, query, ragTopK)
	if err != nil || len(notes) == 0 {
		return ""
	}
	var b []byte
	for i, n := range notes {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, "- "...)
		b = append(b, n.Content...)
	}
	return string(b)
}

func actionOf(obj map[string]any) (string, bool) {
	if obj == nil {
		return "", false
	}
	s, ok := obj["action"].(string)
	return s, ok
}

func sessionLabel(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.ID
}
