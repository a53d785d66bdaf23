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

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"github.com/salsama1/twuiq-proj/pkg/config"
)

const (
	defaultBatchSize  = 100
	defaultTopK       = 5
	defaultCollection = "geo_notes"
)

// NewIndexer 根据 VectorConfig 创建 Eino Indexer；type 为空或 none 返回 nil（RAG 关闭）
func NewIndexer(ctx context.Context, cfg config.VectorConfig, embedder einoembed.Embedder) (einoindexer.Indexer, error) {
	t := cfg.Type
	if t == "" || t == "none" {
		return nil, nil
	}
	if t != "redis" {
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}
	opts, err := RedisOptionsFromVectorConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	coll := cfg.Collection
	if coll == "" {
		coll = defaultCollection
	}
	idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
		Client:    client,
		KeyPrefix: coll,
		BatchSize: defaultBatchSize,
		Embedding: embedder,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis indexer: %w", err)
	}
	return idx, nil
}

// NewRetriever 根据 VectorConfig 创建 Eino Retriever；type 为空或 none 返回 nil（RAG 关闭）
func NewRetriever(ctx context.Context, cfg config.VectorConfig, embedder einoembed.Embedder) (einoretriever.Retriever, error) {
	t := cfg.Type
	if t == "" || t == "none" {
		return nil, nil
	}
	if t != "redis" {
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}
	opts, err := RedisOptionsFromVectorConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	indexName := cfg.Collection
	if indexName == "" {
		indexName = defaultCollection
	}
	ret, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
		Client:    client,
		Index:     indexName,
		TopK:      defaultTopK,
		Embedding: embedder,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis retriever: %w", err)
	}
	return ret, nil
}
