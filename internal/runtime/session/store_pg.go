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
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StorePg Postgres 实现的 SessionStore；与矿点数据同库即可
type StorePg struct {
	pool *pgxpool.Pool
}

// NewStorePg 创建基于 PostgreSQL 的 SessionStore
func NewStorePg(ctx context.Context, dsn string) (*StorePg, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &StorePg{pool: pool}, nil
}

// Close 关闭连接池
func (s *StorePg) Close() {
	s.pool.Close()
}

// Get 实现 SessionStore；未找到返回 (nil, nil)
func (s *StorePg) Get(ctx context.Context, id string) (*Session, error) {
	var createdAt, updatedAt time.Time
	var messages, state, toolCalls []byte
	err := s.pool.QueryRow(ctx,
		`SELECT created_at, updated_at, COALESCE(messages,'[]'::jsonb),
		 COALESCE(state,'{}'::jsonb), COALESCE(tool_calls,'[]'::jsonb)
		 FROM agent_sessions WHERE id = $1`,
		id).Scan(&createdAt, &updatedAt, &messages, &state, &toolCalls)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out := &Session{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt, State: make(map[string]any)}
	_ = json.Unmarshal(messages, &out.Messages)
	_ = json.Unmarshal(state, &out.State)
	_ = json.Unmarshal(toolCalls, &out.ToolCalls)
	return out, nil
}

// Put 实现 SessionStore；UPSERT 整行
func (s *StorePg) Put(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.mu.RLock()
	messages, _ := json.Marshal(sess.Messages)
	state, _ := json.Marshal(sess.State)
	toolCalls, _ := json.Marshal(sess.ToolCalls)
	createdAt, updatedAt := sess.CreatedAt, sess.UpdatedAt
	id := sess.ID
	sess.mu.RUnlock()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_sessions (id, created_at, updated_at, messages, state, tool_calls)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		 updated_at = EXCLUDED.updated_at,
		 messages = EXCLUDED.messages,
		 state = EXCLUDED.state,
		 tool_calls = EXCLUDED.tool_calls`,
		id, createdAt, updatedAt, messages, state, toolCalls)
	return err
}

// Delete 实现 SessionStore
func (s *StorePg) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agent_sessions WHERE id = $1`, id)
	return err
}
