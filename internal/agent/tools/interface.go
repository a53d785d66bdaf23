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

	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

// Result 工具执行结果
type Result struct {
	Output      any                     `json:"output,omitempty"`      // 主输出，进入提示词前会被截断
	Artifacts   map[string]any          `json:"artifacts,omitempty"`   // artifact key -> 值，合并进本次运行
	Occurrences []occurrence.Occurrence `json:"occurrences,omitempty"` // 行结果，作为回答的 last_occurrences
	Summary     string                  `json:"summary,omitempty"`     // 一行摘要，写入 scratchpad
}

// Tool Agent 可调用的工具接口
type Tool interface {
	Name() string
	Description() string
	// Schema 参数契约，渲染进提示词的工具清单
	Schema() map[string]any
	// ArtifactKey 主 artifact key，空表示该工具只产生行结果
	ArtifactKey() string
	Execute(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error)
}

// funcTool 以闭包实现 Tool，注册表里所有内置工具都用它构造
type funcTool struct {
	name        string
	description string
	schema      map[string]any
	artifactKey string
	fn          func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error)
}

func newFuncTool(name, description, artifactKey string, schema map[string]any,
	fn func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error)) Tool {
	return &funcTool{name: name, description: description, schema: schema, artifactKey: artifactKey, fn: fn}
}

func (t *funcTool) Name() string           { return t.name }
func (t *funcTool) Description() string    { return t.description }
func (t *funcTool) Schema() map[string]any { return t.schema }
func (t *funcTool) ArtifactKey() string    { return t.artifactKey }

func (t *funcTool) Execute(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
	return t.fn(ctx, sess, args)
}
