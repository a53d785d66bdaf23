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
	"fmt"
	"strings"
	"time"

	"github.com/salsama1/twuiq-proj/internal/agent/router"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/pkg/config"
	"github.com/salsama1/twuiq-proj/pkg/log"
	"github.com/salsama1/twuiq-proj/pkg/metrics"
	"github.com/salsama1/twuiq-proj/pkg/tracing"
)

// Workflow 先计划后执行：计划在执行前固定，便于审计和前端展示每步缘由
type Workflow struct {
	executor *tools.Executor
	guard    *llm.Guard
	router   *router.Router
	maxSteps int
	logger   *log.Logger
}

// NewWorkflow 构建 Workflow 执行器
func NewWorkflow(executor *tools.Executor, guard *llm.Guard, rtr *router.Router, cfg config.AgentConfig, logger *log.Logger) *Workflow {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Workflow{
		executor: executor,
		guard:    guard,
		router:   rtr,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Run PLAN -> EXECUTE -> SUMMARIZE。useLLM 为假时全程零 LLM 调用
func (w *Workflow) Run(ctx context.Context, sess *session.Session, query string, useLLM bool) (*RunResult, error) {
	start := time.Now()
	st := newRunState()
	outcome := "answered"

	ctx, span := tracing.StartRunSpan(ctx, "workflow", sessionLabel(sess))
	plan := w.router.Plan(query, hasGeometry(ctx, sess), hasFeatureCollection(sess), w.maxSteps)
	if len(plan) == 0 && useLLM && w.guard != nil && w.guard.Available() {
		plan = w.llmPlan(ctx, query)
	}

	answer := w.runPlan(ctx, sess, query, plan, useLLM, st, &outcome)
	span.End()

	if sess != nil {
		sess.AddMessage("user", query)
		sess.AddMessage("assistant", answer)
	}
	dur := time.Since(start)
	metrics.AgentRunDuration.WithLabelValues("workflow").Observe(dur.Seconds())
	metrics.AgentRunTotal.WithLabelValues("workflow", outcome).Inc()
	if w.logger != nil {
		w.logger.Info("workflow run done",
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

func (w *Workflow) runPlan(ctx context.Context, sess *session.Session, query string, plan []router.Call, useLLM bool, st *runState, outcome *string) string {
	if len(plan) == 0 {
		*outcome = "fallback"
		return "I could not derive an analysis plan from that request. Try mentioning regions, commodities, QC, density, or an uploaded geometry."
	}

	// 计划固定，逐步执行；失败步骤记录后继续
	for _, step := range plan {
		metrics.AgentStepTotal.WithLabelValues("executing").Inc()
		if key := w.executor.Registry().ArtifactKey(step.Tool); key != "" && key != zonalStatsKey {
			if _, exists := st.artifacts[key]; exists {
				st.trace = append(st.trace, TraceEntry{
					Tool: step.Tool, Args: step.Args, Why: step.Why,
					Error: "skipped: artifact already produced this run",
				})
				continue
			}
		}
		executeCall(ctx, w.executor, sess, ToolCall{Name: step.Tool, Args: step.Args}, step.Why, st)
	}

	if charts := BuildCharts(st.artifacts); charts != nil {
		st.artifacts["charts"] = charts
	}

	if useLLM && w.guard != nil && w.guard.Available() {
		reply := w.guard.Generate(ctx, buildWorkflowSummaryPrompt(query, st.trace, st.artifacts))
		if !llm.IsSentinel(reply) && reply != "" {
			return reply
		}
		*outcome = "fallback"
		return w.bulletSummary(query, st)
	}
	return w.bulletSummary(query, st)
}

// llmPlan 一次性向模型要整个计划，宽松解析，丢弃缺 action 的条目
func (w *Workflow) llmPlan(ctx context.Context, query string) []router.Call {
	schemas, err := w.executor.Registry().SchemasForLLM()
	if err != nil {
		schemas = []byte("[]")
	}
	reply := w.guard.Generate(ctx, buildPlanPrompt(schemas, query, w.maxSteps))
	if llm.IsSentinel(reply) {
		return nil
	}
	obj := ExtractJSONObject(reply)
	if obj == nil {
		return nil
	}
	raw, _ := obj["plan"].([]any)
	var plan []router.Call
	for _, item := range raw {
		if len(plan) >= w.maxSteps {
			break
		}
		step, ok := item.(map[string]any)
		if !ok {
			continue
		}
		action, _ := step["action"].(string)
		if action == "" || action == "final" {
			continue
		}
		args, _ := step["args"].(map[string]any)
		why, _ := step["why"].(string)
		plan = append(plan, router.Call{Tool: action, Args: args, Why: why})
	}
	return plan
}

// bulletSummary 不依赖模型的逐步清单，再附上工件合成的事实段落
func (w *Workflow) bulletSummary(query string, st *runState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow executed %d steps:\n", len(st.trace))
	for _, t := range st.trace {
		if t.Error != "" {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", t.Tool, t.Error)
			continue
		}
		line := t.Summary
		if line == "" {
			line = "done"
		}
		fmt.Fprintf(&b, "- %s: %s\n", t.Tool, line)
	}
	if facts := Synthesize(query, st.artifacts, st.occurrences, nil); facts != "" {
		b.WriteString("\n")
		b.WriteString(facts)
	}
	return strings.TrimRight(b.String(), "\n")
}
