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
	"strings"

	"github.com/salsama1/twuiq-proj/pkg/config"
)

// DeniedMessage 门禁拒绝时写入工具轨迹的错误文本
const DeniedMessage = "feature disabled by governance"

// strict 模式下需要显式开启的工具前缀
var gatedPrefixes = []string{"qc_", "spatial_", "rasters_", "ogc_"}

// Policy 功能门禁；mode 为 disabled（默认）或 strict
type Policy struct {
	mode     string
	features map[string]bool
}

// NewPolicy 从配置创建门禁策略
func NewPolicy(cfg config.GovernanceConfig) *Policy {
	mode := cfg.Mode
	if mode == "" {
		mode = "disabled"
	}
	features := make(map[string]bool, len(cfg.Features))
	for k, v := range cfg.Features {
		features[k] = v
	}
	return &Policy{mode: mode, features: features}
}

// FeatureEnabled 判断工具是否可用。显式 false 始终拒绝；strict 模式下
// 带门禁前缀的工具必须显式 true，其余工具默认放行
func (p *Policy) FeatureEnabled(name string) bool {
	if p == nil {
		return true
	}
	if v, ok := p.features[name]; ok {
		return v
	}
	if p.mode != "strict" {
		return true
	}
	for _, prefix := range gatedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}
