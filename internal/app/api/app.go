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

// Package api API 应用装配：工具注册表、Agent 循环、工作流、HTTP 层
package api

import (
	"context"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"github.com/salsama1/twuiq-proj/internal/agent"
	"github.com/salsama1/twuiq-proj/internal/agent/intent"
	"github.com/salsama1/twuiq-proj/internal/agent/router"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/api/http"
	"github.com/salsama1/twuiq-proj/internal/api/http/middleware"
	"github.com/salsama1/twuiq-proj/internal/app"
	"github.com/salsama1/twuiq-proj/internal/governance"
	"github.com/salsama1/twuiq-proj/internal/model/embedding"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/internal/rag"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/pkg/config"
	"github.com/salsama1/twuiq-proj/pkg/utils"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 Registry、Executor、Agent、Workflow、HTTP Router）
type App struct {
	bootstrap    *app.Bootstrap
	router       *http.Router
	auditor      *governance.Auditor
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(ctx context.Context, bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	logger := bootstrap.Logger
	agentCfg := config.AgentConfig{}
	if cfg != nil {
		agentCfg = cfg.Agent
	}

	// RAG 检索服务：vector.type=redis 且嵌入模型可用时启用，否则降级为 nil
	var ragSvc *rag.Service
	if cfg != nil && cfg.Vector.Type == "redis" {
		embedder, err := app.NewEmbedderFromConfig(ctx, cfg, bootstrap.Secrets)
		if err != nil || embedder == nil {
			logger.Warn("嵌入模型不可用，RAG 检索关闭", "error", err)
		} else {
			adapter := embedding.NewEinoAdapter(embedder)
			indexer, errIdx := rag.NewIndexer(ctx, cfg.Vector, adapter)
			retriever, errRet := rag.NewRetriever(ctx, cfg.Vector, adapter)
			if errIdx != nil || errRet != nil {
				logger.Warn("Redis 向量存储初始化失败，RAG 检索关闭", "index_error", errIdx, "retrieve_error", errRet)
			} else {
				ragSvc = rag.NewService(retriever, indexer)
				logger.Info("RAG 检索已启用", "addr", cfg.Vector.Addr, "collection", cfg.Vector.Collection)
			}
		}
	}

	registry := tools.NewRegistry()
	ogcCfg := config.OGCConfig{}
	if cfg != nil {
		ogcCfg = cfg.OGC
	}
	tools.RegisterBuiltin(registry, bootstrap.Store, bootstrap.Spatial, bootstrap.Raster, ragSvc, ogcCfg)

	var policy *governance.Policy
	var auditor *governance.Auditor
	rateCfg := config.RateLimitsConfig{}
	if cfg != nil {
		policy = governance.NewPolicy(cfg.Governance)
		auditor = governance.NewAuditor(cfg.Governance.AuditFile, cfg.Governance.AuditMaxSize, logger)
		rateCfg = cfg.RateLimits
	}
	executor := tools.NewExecutor(registry, policy, auditor, tools.NewRateLimiter(rateCfg), logger)

	llmClient, err := app.NewLLMClientFromConfig(ctx, cfg, bootstrap.Secrets)
	if err != nil {
		logger.Warn("LLM 客户端初始化失败，仅确定性路径可用", "error", err)
	}
	guard := llm.NewGuard(llmClient, llm.GuardConfig{}, logger)

	var regions []string
	if bootstrap.Store != nil {
		if rs, err := bootstrap.Store.Regions(ctx); err != nil {
			logger.Warn("读取行政区列表失败，路由区域推断受限", "error", err)
		} else {
			regions = rs
		}
	}
	rtr := router.New(regions, agentCfg.AllPointsLimit)

	agentRunner := agent.New(executor, guard, rtr, ragSvc, agentCfg, logger)
	workflowRunner := agent.NewWorkflow(executor, guard, rtr, agentCfg, logger)
	classifier := intent.NewClassifier(guard)
	sessions := session.NewManager(bootstrap.SessionStore)

	handler := http.NewHandler(agentRunner, workflowRunner, classifier, sessions, registry, logger)
	mw := middleware.NewMiddleware(logger)

	return &App{
		bootstrap: bootstrap,
		router:    http.NewRouter(handler, mw, cfg),
		auditor:   auditor,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 日志配置对齐
	output := os.Stdout
	if cfg != nil && cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}
	levelVar := &slog.LevelVar{}
	level := ""
	if cfg != nil {
		level = cfg.Log.Level
	}
	switch level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）
	if cfg != nil && cfg.Monitoring.Tracing.Enable {
		serviceName := utils.CoalesceString(cfg.Monitoring.Tracing.ServiceName, "geoagent-api")
		endpoint := utils.CoalesceString(cfg.Monitoring.Tracing.ExportEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
		if endpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(endpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			a.hertz = a.router.Build(addr, tracerOpt)
			a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
			a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", endpoint)
		} else {
			a.bootstrap.Logger.Warn("tracing.enable=true 但未配置导出端点，追踪未启用")
			a.hertz = a.router.Build(addr)
		}
	} else {
		a.hertz = a.router.Build(addr)
	}

	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.auditor != nil {
		_ = a.auditor.Close()
	}
	a.bootstrap.Close()
	return nil
}
