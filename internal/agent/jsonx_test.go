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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string // 期望的 action 值，空串表示解析失败
	}{
		{"bare", `{"action": "search_mods", "args": {"commodity": "gold"}}`, "search_mods"},
		{"fenced", "Here is my call:\n```json\n{\"action\": \"qc_summary\", \"args\": {}}\n```\nDone.", "qc_summary"},
		{"prose around", `I will search. {"action": "final", "answer": "done"} Hope that helps!`, "final"},
		{"no json", "I cannot help with that.", ""},
		{"empty", "", ""},
		{"broken", `{"action": "search_mods", "args": {`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj := ExtractJSONObject(tc.in)
			if tc.want == "" {
				assert.Nil(t, obj)
				return
			}
			require.NotNil(t, obj)
			assert.Equal(t, tc.want, obj["action"])
		})
	}
}

func TestExtractJSONObjectNested(t *testing.T) {
	obj := ExtractJSONObject(`{"plan": [{"action": "qc_summary", "args": {}, "why": "quality check"}]}`)
	require.NotNil(t, obj)
	plan, ok := obj["plan"].([]any)
	require.True(t, ok)
	assert.Len(t, plan, 1)
}

func TestCallSignatureCanonical(t *testing.T) {
	a := CallSignature("search_mods", map[string]any{"commodity": "gold", "limit": 25})
	b := CallSignature("search_mods", map[string]any{"limit": 25, "commodity": "gold"})
	assert.Equal(t, a, b)

	c := CallSignature("search_mods", map[string]any{"commodity": "copper", "limit": 25})
	assert.NotEqual(t, a, c)
}

func TestTruncateForLLM(t *testing.T) {
	long := strings.Repeat("x", previewMaxString+100)
	got := TruncateForLLM(long).(string)
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
	assert.Less(t, len(got), previewMaxString+100)

	list := make([]any, 40)
	for i := range list {
		list[i] = i
	}
	truncated := TruncateForLLM(list).([]any)
	assert.Len(t, truncated, previewMaxList)
}

func TestTruncateForLLMStructs(t *testing.T) {
	type row struct {
		Region string `json:"region"`
		Count  int    `json:"count"`
	}
	got := TruncateForLLM([]row{{"Riyadh Region", 7}})
	list, ok := got.([]any)
	require.True(t, ok)
	first, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Riyadh Region", first["region"])
}

func TestPreviewJSON(t *testing.T) {
	out := PreviewJSON(map[string]any{"spatial_total": 12})
	assert.Contains(t, out, `"spatial_total":12`)
}
