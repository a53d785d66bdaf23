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
	"encoding/json"
	"strings"
)

const (
	previewMaxList   = 25
	previewMaxString = 4000
	previewMaxKeys   = 100
)

// ExtractJSONObject 从 LLM 回复里提取第一个 JSON 对象。
// 模型经常在 JSON 前后加说明文字或代码围栏，这里取第一个 '{'
// 到最后一个 '}' 之间的片段做宽松解析，失败返回 nil
func ExtractJSONObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		// 退一步尝试逐步缩短尾部，应对回复被截断后粘连的文字
		for e := end; e > start; e = strings.LastIndex(text[:e], "}") {
			if err := json.Unmarshal([]byte(text[start:e+1]), &obj); err == nil {
				return obj
			}
		}
		return nil
	}
	return obj
}

// TruncateForLLM 生成工件的紧凑预览，控制回填到提示词里的体积。
// 列表截断到 25 项，字符串截断到 4000 字符，对象最多保留 100 个键
func TruncateForLLM(v any) any {
	switch val := v.(type) {
	case string:
		if len(val) > previewMaxString {
			return val[:previewMaxString] + "...(truncated)"
		}
		return val
	case []any:
		out := make([]any, 0, previewMaxList)
		for i, item := range val {
			if i >= previewMaxList {
				break
			}
			out = append(out, TruncateForLLM(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		n := 0
		for k, item := range val {
			if n >= previewMaxKeys {
				break
			}
			out[k] = TruncateForLLM(item)
			n++
		}
		return out
	default:
		// 非基础容器先走一轮 JSON 规整，结构体和 RawMessage 都能覆盖
		raw, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return v
		}
		switch generic.(type) {
		case string, []any, map[string]any:
			return TruncateForLLM(generic)
		}
		return generic
	}
}

// PreviewJSON 把工件预览编码成单行 JSON，供提示词嵌入
func PreviewJSON(artifacts map[string]any) string {
	preview := make(map[string]any, len(artifacts))
	for k, v := range artifacts {
		preview[k] = TruncateForLLM(v)
	}
	raw, err := json.Marshal(preview)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
