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

// Package router 在调用 LLM 之前拦截高置信度意图。
// 规则按固定顺序求值：单 Agent 模式下首条命中即短路，
// Workflow 模式下各独立类别各贡献一步，直到步数上限。
package router

import (
	"strings"

	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
)

// Call 路由产出的一次工具调用，Why 供轨迹和 Workflow 计划展示
type Call struct {
	Tool string
	Args map[string]any
	Why  string
}

const (
	defaultAllLimit   = 2000
	autoGeoJSONLimit  = 400
	defaultBufferM    = 50000
	defaultHeatBinKM  = 50
	defaultHeatLimit  = 500
	defaultNearLimit  = 25
	defaultSpatialCap = 500
)

// 矿种词表，英文在前，阿文映射到同一过滤值
var commodityVocab = []struct{ keyword, value string }{
	{"gold", "gold"},
	{"copper", "copper"},
	{"zinc", "zinc"},
	{"silver", "silver"},
	{"ذهب", "gold"},
	{"نحاس", "copper"},
	{"فضة", "silver"},
	{"زنك", "zinc"},
}

var (
	qcKeywords        = []string{"qc", "quality", "duplicates", "duplicate"}
	commodityBreak    = []string{"top commodities", "commodities", "commodity breakdown", "by commodity"}
	regionBreak       = []string{"by region", "per region", "region breakdown", "regions breakdown", "count by region"}
	importanceBreak   = []string{"importance breakdown", "by importance", "importance"}
	heatmapKeywords   = []string{"heatmap", "heat map", "density", "hotspot", "hotspots"}
	mapVerbs          = []string{"mine", "mines", "show", "map", "display"}
	arabicAllWords    = []string{"جميع", "كل"}
	arabicPointWords  = []string{"نقاط", "مواقع", "تواجد"}
	arabicCountryRefs = []string{"السعود", "المملكة"}
	countryRefs       = []string{"saudi arabia", "all of saudi", "countrywide", "country-wide"}
)

// Router 关键词路由器。regions 来自数据层的去重行政区列表
type Router struct {
	regions  []string
	allLimit int
}

// New 构建路由器；allPointsLimit<=0 使用默认 2000
func New(regions []string, allPointsLimit int) *Router {
	if allPointsLimit <= 0 {
		allPointsLimit = defaultAllLimit
	}
	return &Router{regions: regions, allLimit: allPointsLimit}
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// InferCommodity 按子串匹配推断矿种，空串表示未命中。
// 输入自带规范化，外部可直接传原始话语
func (r *Router) InferCommodity(q string) string {
	q = normalize.NormalizeQuery(q)
	for _, c := range commodityVocab {
		if strings.Contains(q, c.keyword) {
			return c.value
		}
	}
	return ""
}

// InferRegions 用已知行政区名做子串推断，含 madinah/medina 别名。
// 返回数据层里的原始区名
func (r *Router) InferRegions(q string) []string {
	q = normalize.NormalizeQuery(q)
	var out []string
	seen := map[string]struct{}{}
	add := func(region string) {
		if _, ok := seen[region]; ok {
			return
		}
		seen[region] = struct{}{}
		out = append(out, region)
	}
	for _, region := range r.regions {
		name := strings.ToLower(region)
		name = strings.TrimSuffix(name, " region")
		name = strings.TrimSuffix(name, " province")
		if name == "" {
			continue
		}
		if strings.Contains(q, name) {
			add(region)
			continue
		}
		// 常见拼写差异；madinah 在数据里，medina 在用户嘴里
		if strings.Contains(name, "madinah") && strings.Contains(q, "medina") {
			add(region)
		}
	}
	return out
}

// Route 单 Agent 模式：首条命中即返回，未命中返回 nil 交给 LLM
func (r *Router) Route(query string, hasGeometry bool) *Call {
	q := normalize.NormalizeQuery(query)
	for _, rule := range r.rules(hasGeometry, false) {
		if call := rule(q); call != nil {
			return call
		}
	}
	return nil
}

// Plan Workflow 模式：每个独立类别至多贡献一步，直到 maxSteps
func (r *Router) Plan(query string, hasGeometry, hasFC bool, maxSteps int) []Call {
	if maxSteps <= 0 {
		maxSteps = 6
	}
	q := normalize.NormalizeQuery(query)
	var plan []Call
	for _, rule := range r.rules(hasGeometry, hasFC) {
		if len(plan) >= maxSteps {
			break
		}
		if call := rule(q); call != nil {
			plan = append(plan, *call)
		}
	}
	return plan
}

type rule func(q string) *Call

// rules 返回按优先级排列的规则序列。hasFC 只在 Workflow 模式为真时
// 启用 FeatureCollection 相关类别
func (r *Router) rules(hasGeometry, hasFC bool) []rule {
	rules := []rule{
		r.aoiRule(hasGeometry),
		r.qcRule(),
		r.commodityStatsRule(),
		r.regionStatsRule(),
		r.importanceRule(),
		r.heatmapRule(),
	}
	if hasFC {
		rules = append(rules, r.featureCollectionRule())
	}
	rules = append(rules, r.autoVisualizeRule(), r.arabicAllPointsRule())
	return rules
}

func (r *Router) aoiRule(hasGeometry bool) rule {
	return func(q string) *Call {
		if !hasGeometry {
			return nil
		}
		switch {
		case strings.Contains(q, "buffer"):
			return &Call{
				Tool: "spatial_buffer",
				Args: map[string]any{"distance_m": defaultBufferM},
				Why:  "uploaded geometry with a buffer request",
			}
		case strings.Contains(q, "nearest") || strings.Contains(q, "closest"):
			return &Call{
				Tool: "spatial_nearest",
				Args: map[string]any{"limit": defaultNearLimit},
				Why:  "uploaded geometry with a nearest request",
			}
		case strings.Contains(q, "intersect") || strings.Contains(q, "clip"):
			return &Call{
				Tool: "spatial_query",
				Args: map[string]any{"op": "intersects", "limit": defaultSpatialCap},
				Why:  "uploaded geometry with an intersection request",
			}
		}
		return nil
	}
}

func (r *Router) qcRule() rule {
	return func(q string) *Call {
		if !containsAny(q, qcKeywords) {
			return nil
		}
		return &Call{Tool: "qc_summary", Args: map[string]any{}, Why: "data-quality keywords detected"}
	}
}

func (r *Router) commodityStatsRule() rule {
	return func(q string) *Call {
		if !containsAny(q, commodityBreak) {
			return nil
		}
		return &Call{Tool: "commodity_stats", Args: map[string]any{"limit": 15}, Why: "commodity breakdown requested"}
	}
}

func (r *Router) regionStatsRule() rule {
	return func(q string) *Call {
		if !containsAny(q, regionBreak) {
			return nil
		}
		args := map[string]any{"limit": 20}
		if c := r.InferCommodity(q); c != "" {
			args["commodity"] = c
		}
		return &Call{Tool: "stats_by_region", Args: args, Why: "region breakdown requested"}
	}
}

func (r *Router) importanceRule() rule {
	return func(q string) *Call {
		if !containsAny(q, importanceBreak) {
			return nil
		}
		return &Call{Tool: "importance_breakdown", Args: map[string]any{}, Why: "importance breakdown requested"}
	}
}

func (r *Router) heatmapRule() rule {
	return func(q string) *Call {
		if !containsAny(q, heatmapKeywords) {
			return nil
		}
		args := map[string]any{"bin_km": defaultHeatBinKM, "limit": defaultHeatLimit}
		if c := r.InferCommodity(q); c != "" {
			args["commodity"] = c
		}
		return &Call{Tool: "heatmap_bins", Args: args, Why: "density/heatmap keywords detected"}
	}
}

// featureCollectionRule 覆盖上传 FeatureCollection 的分析类请求
func (r *Router) featureCollectionRule() rule {
	return func(q string) *Call {
		switch {
		case strings.Contains(q, "dissolve"):
			return &Call{Tool: "spatial_dissolve", Args: map[string]any{}, Why: "dissolve requested on uploaded features"}
		case strings.Contains(q, "count") || strings.Contains(q, "join"):
			return &Call{Tool: "spatial_join_mods_counts", Args: map[string]any{}, Why: "per-feature occurrence counts requested"}
		case strings.Contains(q, "union") || strings.Contains(q, "difference") || strings.Contains(q, "overlay"):
			op := "union"
			if strings.Contains(q, "difference") {
				op = "difference"
			}
			return &Call{Tool: "spatial_overlay", Args: map[string]any{"op": op}, Why: "overlay operation requested on uploaded features"}
		}
		return nil
	}
}

// autoVisualizeRule 区域+矿种+show/map/mine 组合直接出一张过滤后的地图
func (r *Router) autoVisualizeRule() rule {
	return func(q string) *Call {
		commodity := r.InferCommodity(q)
		regions := r.InferRegions(q)
		if commodity == "" || len(regions) == 0 || !containsAny(q, mapVerbs) {
			return nil
		}
		args := map[string]any{
			"commodity": commodity,
			"region":    strings.Join(regions, ", "),
			"limit":     autoGeoJSONLimit,
		}
		if strings.Contains(q, "mine") {
			args["exploration_status"] = "mine"
		}
		return &Call{Tool: "geojson_export", Args: args, Why: "region and commodity visualization request"}
	}
}

// arabicAllPointsRule 阿文"全部点位"类请求，带安全上限
func (r *Router) arabicAllPointsRule() rule {
	return func(q string) *Call {
		all := containsAny(q, arabicAllWords) && containsAny(q, arabicPointWords)
		country := containsAny(q, arabicCountryRefs) || containsAny(q, countryRefs)
		if !all && !country {
			return nil
		}
		args := map[string]any{"limit": r.allLimit}
		if c := r.InferCommodity(q); c != "" {
			args["commodity"] = c
		}
		return &Call{Tool: "geojson_export", Args: args, Why: "country-wide point export with safety cap"}
	}
}
