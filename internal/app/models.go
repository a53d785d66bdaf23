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

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/salsama1/twuiq-proj/internal/model/embedding"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/pkg/config"
	"github.com/salsama1/twuiq-proj/pkg/secrets"
)

// resolveAPIKey 取 provider 的 API Key：配置值优先（${ENV} 已在加载时替换），
// 其次按 api_key_ref 查 secrets.Store
func resolveAPIKey(ctx context.Context, pc config.ProviderConfig, store secrets.Store) string {
	if pc.APIKey != "" {
		return pc.APIKey
	}
	if pc.APIKeyRef != "" && store != nil {
		if v, err := store.Get(ctx, pc.APIKeyRef); err == nil {
			return v
		}
	}
	return ""
}

// NewLLMClientFromConfig 按 defaults.llm 指定的 provider 创建 LLM 客户端。
// 未配置时返回 (nil, nil)，上层以哨兵降级而不是拒绝启动
func NewLLMClientFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store) (llm.Client, error) {
	if cfg == nil || cfg.Model.Defaults.LLM == "" {
		return nil, nil
	}
	provider := cfg.Model.Defaults.LLM
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q 未配置", provider)
	}
	timeout, _ := time.ParseDuration(pc.Timeout)
	return llm.NewClient(llm.ClientConfig{
		Provider: provider,
		Model:    pc.Model,
		APIKey:   resolveAPIKey(ctx, pc, store),
		BaseURL:  pc.BaseURL,
		Timeout:  timeout,
		Retries:  pc.Retries,
	})
}

// NewEmbedderFromConfig 按 defaults.embedding 创建 Embedder；未配置返回 (nil, nil)
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store) (embedding.Embedder, error) {
	if cfg == nil || cfg.Model.Defaults.Embedding == "" {
		return nil, nil
	}
	provider := cfg.Model.Defaults.Embedding
	pc, ok := cfg.Model.Embedding.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("Embedding provider %q 未配置", provider)
	}
	timeout, _ := time.ParseDuration(pc.Timeout)
	return embedding.NewOpenAIEmbedder(embedding.Config{
		APIKey:  resolveAPIKey(ctx, pc, store),
		Model:   pc.Model,
		BaseURL: pc.BaseURL,
		Timeout: timeout,
	}), nil
}
