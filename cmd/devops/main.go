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

// devops 启动 Eino Dev 调试服务并注册查询处理 Graph，供 IDE 插件（Eino Dev）连接后进行可视化调试。
// 使用：go run ./cmd/devops；在 IDE 中配置连接地址 127.0.0.1:52538 后选择编排进行 Test Run。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/cloudwego/eino/compose"

	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
	"github.com/salsama1/twuiq-proj/internal/agent/router"
)

// DevInput 调试图输入
type DevInput struct {
	Query string `json:"query"`
}

// DevOutput 调试图输出
type DevOutput struct {
	Result string `json:"result"`
}

// registerNormalizeGraph 注册查询归一化 Graph：阿拉伯文去音符、大小写折叠，便于调试中英双语查询
func registerNormalizeGraph(ctx context.Context) error {
	g := compose.NewGraph[*DevInput, *DevOutput]()

	g.AddLambdaNode("validate", compose.InvokableLambda(func(ctx context.Context, input *DevInput) (*DevInput, error) {
		if input == nil || input.Query == "" {
			return nil, fmt.Errorf("查询不能为空")
		}
		return input, nil
	}))

	g.AddLambdaNode("normalize", compose.InvokableLambda(func(ctx context.Context, input *DevInput) (*DevOutput, error) {
		return &DevOutput{Result: normalize.NormalizeQuery(input.Query)}, nil
	}))

	g.AddEdge(compose.START, "validate")
	g.AddEdge("validate", "normalize")
	g.AddEdge("normalize", compose.END)

	_, err := g.Compile(ctx)
	if err != nil {
		return fmt.Errorf("compile normalize graph: %w", err)
	}
	return nil
}

// registerPlanGraph 注册路由规划图：展示一条查询会被拆成哪些确定性分析步骤
func registerPlanGraph(ctx context.Context) error {
	g := compose.NewGraph[*DevInput, *DevOutput]()
	rtr := router.New(nil, 0)

	g.AddLambdaNode("plan", compose.InvokableLambda(func(ctx context.Context, input *DevInput) (*DevOutput, error) {
		if input == nil {
			return &DevOutput{Result: ""}, nil
		}
		steps := rtr.Plan(input.Query, false, false, 6)
		names := make([]string, 0, len(steps))
		for _, s := range steps {
			names = append(names, s.Tool)
		}
		return &DevOutput{Result: strings.Join(names, " -> ")}, nil
	}))

	g.AddEdge(compose.START, "plan")
	g.AddEdge("plan", compose.END)

	_, err := g.Compile(ctx)
	if err != nil {
		return fmt.Errorf("compile plan graph: %w", err)
	}
	return nil
}

func main() {
	ctx := context.Background()

	// 1. 先初始化 Eino Dev 调试服务（必须在任何 Compile 之前调用）
	if err := devops.Init(ctx); err != nil {
		log.Fatalf("[eino dev] init failed: %v", err)
	}

	// 2. 注册并编译调试图，插件会通过已编译的 artifact 列表展示
	if err := registerNormalizeGraph(ctx); err != nil {
		log.Fatalf("[eino dev] register normalize graph: %v", err)
	}
	if err := registerPlanGraph(ctx); err != nil {
		log.Fatalf("[eino dev] register plan graph: %v", err)
	}

	log.Println("[eino dev] server listening on 127.0.0.1:52538; open Eino Dev in IDE and configure this address to debug")
	log.Println("[eino dev] press Ctrl+C to exit")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Println("[eino dev] shutting down")
}
