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

// Package agent 实现矿产数据问答的两种执行模式：逐步决策的 Agent 循环
// 与先计划后执行的 Workflow。两者共享确定性路由、工具执行与回答合成。
package agent

import (
	"encoding/json"
	"time"

	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

// ToolCall 一次工具调用请求，来自确定性路由或 LLM 输出解析
type ToolCall struct {
	Name string         `json:"action"`
	Args map[string]any `json:"args"`
}

// TraceEntry 工具轨迹条目；Summary 只放计数和尺寸，不放原始数据
type TraceEntry struct {
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args,omitempty"`
	Summary string         `json:"summary,omitempty"`
	Why     string         `json:"why,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// RunResult 一次 Agent/Workflow 运行的完整输出
type RunResult struct {
	Answer      string                  `json:"answer"`
	Trace       []TraceEntry            `json:"tool_trace"`
	Occurrences []occurrence.Occurrence `json:"occurrences,omitempty"`
	Artifacts   map[string]any          `json:"artifacts"`
	Steps       int                     `json:"steps"`
	Duration    time.Duration           `json:"-"`
}

// CallSignature 调用签名，用于单次运行内的重复调用检测。
// encoding/json 对 map 按键排序，天然得到规范化形态
func CallSignature(name string, args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte("{}")
	}
	return name + ":" + string(raw)
}
