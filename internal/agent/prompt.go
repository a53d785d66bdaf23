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
	"fmt"
	"strings"

	"github.com/salsama1/twuiq-proj/internal/runtime/session"
)

const promptHistoryDefault = 6

// instructionBlock 固定指令段。工具目录以 JSON 形式内嵌，
// 调用格式契约与领域提示保持稳定措辞，便于模型模式匹配
const instructionBlock = `You are a geoscience data assistant for the Saudi Arabian national
mineral occurrence database (MODS). You answer questions by calling tools.

Available tools (JSON schemas):
%s

To call a tool reply with ONLY a JSON object:
{"action": "<tool name>", "args": {...}}

When you have enough information reply with:
{"action": "final", "answer": "<your answer>"}

Rules:
- One tool call per reply. No prose around the JSON.
- Never invent mods_id values, counts, or coordinates. Only report what tools returned.
- Commodity and region filters are case-insensitive substrings.
- Arabic queries are common; answer in the language of the question.`

// buildAgentPrompt 组装一轮 PROMPTING 的完整提示词
func buildAgentPrompt(schemas []byte, history []*session.Message, ragContext, query string, scratchpad []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, instructionBlock, string(schemas))
	b.WriteString("\n")

	if ragContext != "" {
		b.WriteString("\nRelevant domain notes:\n")
		b.WriteString(ragContext)
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	if len(scratchpad) > 0 {
		b.WriteString("\nTool results so far this turn:\n")
		for _, line := range scratchpad {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nUser question: %s\nReply with one JSON object.", query)
	return b.String()
}

// buildForcedFinalPrompt 步数或守卫触发后的收尾提示，禁止继续调工具
func buildForcedFinalPrompt(query string, artifacts map[string]any) string {
	return fmt.Sprintf(`The tool budget for this question is exhausted.
Do NOT call any more tools. Using ONLY the collected results below, write a short
factual answer to the user's question. Do not contradict the data.

Collected results (truncated preview):
%s

User question: %s
Answer:`, PreviewJSON(artifacts), query)
}

// buildPlanPrompt Workflow 的一次性计划提示
func buildPlanPrompt(schemas []byte, query string, maxSteps int) string {
	return fmt.Sprintf(`You plan analysis steps over the Saudi MODS mineral occurrence database.

Available tools (JSON schemas):
%s

Produce a plan of at most %d steps for the request below. Reply with ONLY:
{"plan": [{"action": "<tool name>", "args": {...}, "why": "<one line>"}, ...]}

Request: %s`, string(schemas), maxSteps, query)
}

// buildWorkflowSummaryPrompt 执行完成后的总结提示
func buildWorkflowSummaryPrompt(query string, trace []TraceEntry, artifacts map[string]any) string {
	var steps strings.Builder
	for _, t := range trace {
		if t.Error != "" {
			fmt.Fprintf(&steps, "- %s: failed (%s)\n", t.Tool, t.Error)
			continue
		}
		fmt.Fprintf(&steps, "- %s: %s\n", t.Tool, t.Summary)
	}
	return fmt.Sprintf(`Summarize the analysis below for the user in a few sentences.
Only state facts present in the results. Answer in the language of the request.

Request: %s

Executed steps:
%s
Results (truncated preview):
%s

Summary:`, query, steps.String(), PreviewJSON(artifacts))
}
