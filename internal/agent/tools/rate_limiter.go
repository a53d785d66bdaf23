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
	"sync"

	"golang.org/x/time/rate"

	"github.com/salsama1/twuiq-proj/pkg/config"
)

// LimitConfig 单个工具的限流配置
type LimitConfig struct {
	QPS           float64 // 每秒请求数限制
	MaxConcurrent int     // 最大并发数
	Burst         int     // 令牌桶容量，默认为 QPS
}

// RateLimiter 工具维度限流器，QPS + 并发双重控制
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*toolLimiter
	defaults LimitConfig
}

type toolLimiter struct {
	rateLimiter *rate.Limiter
	semaphore   chan struct{}
}

// NewRateLimiter 从配置创建工具限流器
func NewRateLimiter(cfg config.RateLimitsConfig) *RateLimiter {
	limiter := &RateLimiter{
		limiters: make(map[string]*toolLimiter),
		defaults: LimitConfig{QPS: 100, MaxConcurrent: 10, Burst: 100},
	}
	for toolName, tc := range cfg.Tools {
		limiter.addToolLimiter(toolName, LimitConfig{
			QPS:           tc.QPS,
			MaxConcurrent: tc.MaxConcurrent,
			Burst:         tc.Burst,
		})
	}
	return limiter
}

func (t *RateLimiter) addToolLimiter(toolName string, cfg LimitConfig) {
	if cfg.Burst == 0 {
		cfg.Burst = int(cfg.QPS)
	}
	limiter := &toolLimiter{}
	if cfg.QPS > 0 {
		limiter.rateLimiter = rate.NewLimiter(rate.Limit(cfg.QPS), cfg.Burst)
	}
	if cfg.MaxConcurrent > 0 {
		limiter.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	t.mu.Lock()
	t.limiters[toolName] = limiter
	t.mu.Unlock()
}

// Wait 阻塞直到获得执行许可
func (t *RateLimiter) Wait(ctx context.Context, toolName string) error {
	t.mu.RLock()
	limiter, exists := t.limiters[toolName]
	t.mu.RUnlock()

	if !exists {
		t.addToolLimiter(toolName, t.defaults)
		t.mu.RLock()
		limiter = t.limiters[toolName]
		t.mu.RUnlock()
	}

	if limiter.rateLimiter != nil {
		if err := limiter.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	if limiter.semaphore != nil {
		select {
		case limiter.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发 slot，工具执行完成后调用
func (t *RateLimiter) Release(toolName string) {
	t.mu.RLock()
	limiter, exists := t.limiters[toolName]
	t.mu.RUnlock()

	if exists && limiter.semaphore != nil {
		select {
		case <-limiter.semaphore:
		default:
		}
	}
}
