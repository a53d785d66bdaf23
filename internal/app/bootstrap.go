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

// Package app 统一初始化：配置、日志、存储、会话，供 cmd 层复用
package app

import (
	"context"
	"fmt"

	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
	"github.com/salsama1/twuiq-proj/pkg/log"
	"github.com/salsama1/twuiq-proj/pkg/secrets"
)

// Bootstrap 进程级依赖集合
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store

	// 矿点数据访问。database.dsn 配置时三者都由 PostGIS 支撑；
	// 未配置时 Store 退化为空内存库（演示/测试），空间与栅格能力缺席
	Store   occurrence.Store
	Spatial occurrence.SpatialStore
	Raster  occurrence.RasterStore

	SessionStore session.SessionStore

	closers []func()
}

// NewBootstrap 根据配置装配进程依赖
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	var secretStore secrets.Store
	if cfg != nil {
		secretStore, err = secrets.NewStore(cfg.Secrets)
		if err != nil {
			return nil, fmt.Errorf("初始化 Secret 存储失败: %w", err)
		}
	} else {
		secretStore = secrets.NewEnvStore()
	}

	b := &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Secrets: secretStore,
	}

	if cfg != nil && cfg.Database.DSN != "" {
		pg, err := occurrence.NewPGStore(ctx, cfg.Database.DSN, cfg.Database.Table)
		if err != nil {
			return nil, fmt.Errorf("初始化 PostGIS 存储失败: %w", err)
		}
		b.Store = pg
		b.Spatial = pg
		b.Raster = pg
		b.closers = append(b.closers, pg.Close)
	} else {
		logger.Warn("database.dsn 未配置，使用空内存数据集（仅供演示）")
		b.Store = occurrence.NewMemoryStore(nil)
	}

	if cfg != nil && cfg.Sessions.Type == "postgres" {
		dsn := cfg.Sessions.DSN
		if dsn == "" {
			dsn = cfg.Database.DSN
		}
		if dsn == "" {
			return nil, fmt.Errorf("sessions.type=postgres 但未配置 DSN")
		}
		pgSess, err := session.NewStorePg(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("初始化会话存储失败: %w", err)
		}
		b.SessionStore = pgSess
		b.closers = append(b.closers, pgSess.Close)
	} else {
		b.SessionStore = session.NewMemoryStore()
	}

	return b, nil
}

// Close 逆序释放持有的连接
func (b *Bootstrap) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
