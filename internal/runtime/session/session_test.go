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
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	s := New("sid1")
	if s == nil || s.ID != "sid1" {
		t.Errorf("New: %+v", s)
	}
	if s.State == nil {
		t.Error("State should be initialized")
	}
	s2 := New("")
	if s2.ID == "" {
		t.Error("empty id should generate id")
	}
}

func TestSession_AddMessage_History(t *testing.T) {
	s := New("s1")
	s.AddMessage("user", "hello")
	s.AddMessage("assistant", "hi")
	s.AddMessage("user", "   ") // 空内容应被忽略
	msgs := s.History(0)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("first message: %+v", msgs[0])
	}
	if got := s.History(1); len(got) != 1 || got[0].Content != "hi" {
		t.Errorf("History(1): %+v", got)
	}
}

func TestSession_HistoryTruncation(t *testing.T) {
	s := New("s1")
	for i := 0; i < maxHistory+10; i++ {
		s.AddMessage("user", fmt.Sprintf("msg-%d", i))
	}
	msgs := s.History(0)
	if len(msgs) != maxHistory {
		t.Fatalf("expected %d messages, got %d", maxHistory, len(msgs))
	}
	if msgs[0].Content != "msg-10" {
		t.Errorf("oldest surviving message: %q", msgs[0].Content)
	}
}

func TestSession_AddObservation_CopyToolCalls(t *testing.T) {
	s := New("s1")
	s.AddObservation("search_mods", map[string]any{"commodity": "gold"}, "3 results", "")
	calls := s.CopyToolCalls()
	if len(calls) != 1 || calls[0].Tool != "search_mods" || calls[0].Output != "3 results" {
		t.Errorf("CopyToolCalls: %+v", calls)
	}
}

func TestSession_State(t *testing.T) {
	s := New("s1")
	s.StateSet("uploaded_geometry", map[string]any{"type": "Point"})
	v, ok := s.StateGet("uploaded_geometry")
	if !ok || v == nil {
		t.Errorf("StateGet: v=%v ok=%v", v, ok)
	}
	_, ok = s.StateGet("missing")
	if ok {
		t.Error("StateGet missing should be false")
	}
	s.Reset()
	if _, ok := s.StateGet("uploaded_geometry"); ok {
		t.Error("Reset should clear state")
	}
	if len(s.History(0)) != 0 {
		t.Error("Reset should clear history")
	}
}

func TestManager_GetOrCreateAndReset(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	s, err := m.GetOrCreate(ctx, "abc")
	if err != nil || s == nil || s.ID != "abc" {
		t.Fatalf("GetOrCreate: s=%+v err=%v", s, err)
	}
	s.AddMessage("user", "hello")
	if err := m.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := m.GetOrCreate(ctx, "abc")
	if err != nil || len(again.History(0)) != 1 {
		t.Fatalf("GetOrCreate again: %v", err)
	}

	if err := m.Reset(ctx, "abc"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	after, _ := m.Get(ctx, "abc")
	if after == nil || len(after.History(0)) != 0 {
		t.Errorf("session should survive reset with empty history: %+v", after)
	}

	if err := m.Reset(ctx, "missing"); err != nil {
		t.Errorf("Reset missing session should be no-op: %v", err)
	}
}
