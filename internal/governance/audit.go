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

package governance

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/salsama1/twuiq-proj/pkg/log"
)

const defaultAuditMaxSize = 10 * 1024 * 1024

// Event 审计事件，每条写成一行 JSON
type Event struct {
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"` // tool | agent_run | workflow_run | denied
	Tool      string    `json:"tool,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Auditor 审计日志，按大小轮转；写失败只告警，不向调用方返回错误
type Auditor struct {
	path    string
	maxSize int64
	logger  *log.Logger

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewAuditor 创建审计日志；path 为空返回 nil（审计关闭，调用方可直接用 nil）
func NewAuditor(path string, maxSize int64, logger *log.Logger) *Auditor {
	if path == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = defaultAuditMaxSize
	}
	return &Auditor{path: path, maxSize: maxSize, logger: logger}
}

// Log 追加一条审计事件
func (a *Auditor) Log(event Event) {
	if a == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	line, err := json.Marshal(event)
	if err != nil {
		a.warn("audit marshal failed", err)
		return
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureOpen(); err != nil {
		a.warn("audit open failed", err)
		return
	}
	if a.size+int64(len(line)) > a.maxSize {
		if err := a.rotate(); err != nil {
			a.warn("audit rotate failed", err)
			return
		}
	}
	n, err := a.file.Write(line)
	a.size += int64(n)
	if err != nil {
		a.warn("audit write failed", err)
	}
}

// Close 关闭底层文件
func (a *Auditor) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *Auditor) ensureOpen() error {
	if a.file != nil {
		return nil
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	a.file = f
	a.size = info.Size()
	return nil
}

// rotate 将当前文件改名为 <path>.1（覆盖旧备份）后重开
func (a *Auditor) rotate() error {
	if a.file != nil {
		_ = a.file.Close()
		a.file = nil
	}
	if err := os.Rename(a.path, a.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	a.size = 0
	return a.ensureOpen()
}

func (a *Auditor) warn(msg string, err error) {
	if a.logger != nil {
		a.logger.Warn(msg, "path", a.path, "error", err)
	}
}
