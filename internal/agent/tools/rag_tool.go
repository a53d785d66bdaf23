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
	"fmt"

	"github.com/salsama1/twuiq-proj/internal/rag"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
)

// NewRAGTool 地质知识检索
func NewRAGTool(svc *rag.Service) Tool {
	return newFuncTool("rag",
		"Retrieve geology knowledge notes relevant to the query.",
		"",
		map[string]any{"query": "str"},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			query := strArg(args, "query")
			if query == "" {
				return nil, fmt.Errorf("rag requires query")
			}
			if !svc.Enabled() {
				return nil, fmt.Errorf("knowledge retrieval is not configured")
			}
			notes, err := svc.Search(ctx, query, 5)
			if err != nil {
				return nil, err
			}
			return &Result{
				Output:  notes,
				Summary: fmt.Sprintf("rag returned %d notes", len(notes)),
			}, nil
		})
}
