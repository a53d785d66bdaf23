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

package rag

import (
	"context"
	"fmt"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// Note 地质知识库条目（检索结果或待入库文档）
type Note struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Score   float64        `json:"score,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Service 地质知识检索服务；retriever/indexer 可为 nil（RAG 关闭）
type Service struct {
	retriever einoretriever.Retriever
	indexer   einoindexer.Indexer
}

// NewService 创建检索服务
func NewService(retriever einoretriever.Retriever, indexer einoindexer.Indexer) *Service {
	return &Service{retriever: retriever, indexer: indexer}
}

// Enabled 是否可检索
func (s *Service) Enabled() bool {
	return s != nil && s.retriever != nil
}

// Search 按相似度检索知识库条目
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Note, error) {
	if !s.Enabled() {
		return nil, nil
	}
	opts := []einoretriever.Option{}
	if topK > 0 {
		opts = append(opts, einoretriever.WithTopK(topK))
	}
	docs, err := s.retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	notes := make([]Note, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		notes = append(notes, Note{
			ID:      d.ID,
			Content: d.Content,
			Score:   d.Score(),
			Meta:    d.MetaData,
		})
	}
	return notes, nil
}

// Index 写入知识库条目，返回生成的文档 ID
func (s *Service) Index(ctx context.Context, notes []Note) ([]string, error) {
	if s == nil || s.indexer == nil {
		return nil, fmt.Errorf("indexer not configured")
	}
	docs := make([]*schema.Document, 0, len(notes))
	for _, n := range notes {
		if n.Content == "" {
			continue
		}
		docs = append(docs, &schema.Document{
			ID:       n.ID,
			Content:  n.Content,
			MetaData: n.Meta,
		})
	}
	if len(docs) == 0 {
		return nil, nil
	}
	ids, err := s.indexer.Store(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return ids, nil
}
