package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		AgentRunDuration, AgentRunTotal, AgentStepTotal,
		ToolDuration, ToolTotal,
		LLMDuration, LLMCallTotal,
	)
}

// AgentRunDuration Agent/Workflow 运行耗时（秒）
var AgentRunDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "geoagent_run_duration_seconds",
		Help:    "Agent 运行耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"mode"}, // agent | workflow
)

// AgentRunTotal 运行总数（按结束原因）
var AgentRunTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "geoagent_run_total",
		Help: "Agent 运行总数（按结束原因）",
	},
	[]string{"mode", "outcome"}, // routed | answered | redundant | repeated | max_steps | fallback
)

// AgentStepTotal 循环步数总数
var AgentStepTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "geoagent_step_total",
		Help: "Agent 循环步数总数",
	},
	[]string{"state"}, // routing | prompting | executing
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "geoagent_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolTotal 工具调用总数（按结果）
var ToolTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "geoagent_tool_total",
		Help: "工具调用总数（按结果）",
	},
	[]string{"tool", "status"}, // ok | error | denied
)

// LLMDuration LLM 调用耗时（秒）
var LLMDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "geoagent_llm_duration_seconds",
		Help:    "LLM 调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// LLMCallTotal LLM 调用总数（按结果）
var LLMCallTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "geoagent_llm_call_total",
		Help: "LLM 调用总数（按结果）",
	},
	[]string{"provider", "status"}, // ok | timeout | error
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
