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

package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxHistory 会话历史上限；超出时丢弃最旧消息
const maxHistory = 40

// Session 一次对话的唯一状态载体
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages  []*Message       // 对话历史
	State     map[string]any   // 会话级持久状态（如上传的 AOI 几何）
	ToolCalls []ToolCallRecord // 工具调用记录

	mu sync.RWMutex
}

// New 创建新 Session（ID 为空时自动生成）
func New(id string) *Session {
	now := time.Now()
	if id == "" {
		id = "session-" + uuid.New().String()
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		State:     make(map[string]any),
	}
}

// AddMessage 追加一条对话消息；空内容为 no-op，历史只保留最近 maxHistory 条
func (s *Session) AddMessage(role, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	s.Messages = append(s.Messages, &Message{Role: role, Content: content, Timestamp: s.UpdatedAt})
	if len(s.Messages) > maxHistory {
		s.Messages = s.Messages[len(s.Messages)-maxHistory:]
	}
}

// History 返回最近 limit 条消息的副本；limit<=0 返回全部
func (s *Session) History(limit int) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	if len(msgs) == 0 {
		return nil
	}
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = &Message{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
	}
	return out
}

// AddObservation 追加一次工具调用观察
func (s *Session) AddObservation(tool string, input map[string]any, output string, errStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	s.ToolCalls = append(s.ToolCalls, ToolCallRecord{
		Tool:   tool,
		Input:  input,
		Output: output,
		Err:    errStr,
		At:     s.UpdatedAt,
	})
}

// StateGet 读取会话状态键
func (s *Session) StateGet(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// StateSet 写入会话状态
func (s *Session) StateSet(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	if s.State == nil {
		s.State = make(map[string]any)
	}
	s.State[key] = value
}

// Reset 清空历史、状态与工具记录，保留 ID
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	s.Messages = nil
	s.ToolCalls = nil
	s.State = make(map[string]any)
}

// CopyToolCalls 返回 ToolCalls 的副本
func (s *Session) CopyToolCalls() []ToolCallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ToolCalls) == 0 {
		return nil
	}
	out := make([]ToolCallRecord, len(s.ToolCalls))
	copy(out, s.ToolCalls)
	return out
}
