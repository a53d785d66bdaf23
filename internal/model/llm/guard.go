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

package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/salsama1/twuiq-proj/pkg/log"
	"github.com/salsama1/twuiq-proj/pkg/metrics"
)

// 哨兵前缀：Guard 不向调用方返回 error，失败时把原因放进回复文本，
// Agent 循环据此退回确定性路径
const (
	SentinelTimeout = "LLM call timed out"
	SentinelError   = "LLM error"
)

// IsSentinel 判断回复是否为失败哨兵（模型不可用时退回确定性回答）
func IsSentinel(reply string) bool {
	return strings.HasPrefix(reply, SentinelTimeout) || strings.HasPrefix(reply, SentinelError)
}

// Guard 包装 Client：限流、超时、指标；Generate/Chat 永不返回 error
type Guard struct {
	client  Client
	limiter *rate.Limiter
	timeout time.Duration
	options GenerateOptions
	logger  *log.Logger
}

// GuardConfig Guard 构建参数
type GuardConfig struct {
	Timeout time.Duration // <=0 默认 45s
	QPS     float64       // <=0 不限流
	Burst   int
	Options GenerateOptions
}

// NewGuard 创建 Guard；client 可为 nil（无模型配置时所有调用返回哨兵）
func NewGuard(client Client, cfg GuardConfig, logger *log.Logger) *Guard {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), burst)
	}
	return &Guard{
		client:  client,
		limiter: limiter,
		timeout: timeout,
		options: cfg.Options,
		logger:  logger,
	}
}

// Available 是否配置了可用的模型客户端
func (g *Guard) Available() bool {
	return g != nil && g.client != nil
}

// Generate 单轮生成，失败时返回哨兵文本
func (g *Guard) Generate(ctx context.Context, prompt string) string {
	return g.Chat(ctx, []Message{{Role: "user", Content: prompt}})
}

// Chat 多轮聊天，失败时返回哨兵文本
func (g *Guard) Chat(ctx context.Context, messages []Message) string {
	if !g.Available() {
		return SentinelError + ": no model configured"
	}
	provider := g.client.Provider()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(callCtx); err != nil {
			metrics.LLMCallTotal.WithLabelValues(provider, "timeout").Inc()
			return SentinelTimeout
		}
	}

	start := time.Now()
	reply, err := g.client.ChatWithContext(callCtx, messages, g.options)
	metrics.LLMDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			metrics.LLMCallTotal.WithLabelValues(provider, "timeout").Inc()
			if g.logger != nil {
				g.logger.Warn("llm call timed out", "provider", provider, "timeout", g.timeout)
			}
			return SentinelTimeout
		}
		metrics.LLMCallTotal.WithLabelValues(provider, "error").Inc()
		if g.logger != nil {
			g.logger.Warn("llm call failed", "provider", provider, "error", err)
		}
		return SentinelError + ": " + err.Error()
	}

	metrics.LLMCallTotal.WithLabelValues(provider, "ok").Inc()
	return strings.TrimSpace(reply)
}
