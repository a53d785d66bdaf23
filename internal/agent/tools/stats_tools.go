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

	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

// 热力格网：bin_km 换算为度的近似系数（赤道 1 度 ≈ 111.32 km）
const kmPerDegree = 111.32

// NewStatsByRegionTool 按行政区计数
func NewStatsByRegionTool(store occurrence.Store) Tool {
	return newFuncTool("stats_by_region",
		"Count occurrences per admin region, descending.",
		"stats_by_region",
		map[string]any{
			"commodity": "str?", "occurrence_type": "str?", "limit": "int? (1-200, default 25)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.StatsByRegion(ctx, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"stats_by_region": rows},
				Summary:   fmt.Sprintf("stats_by_region returned %d rows", len(rows)),
			}, nil
		})
}

// NewCommodityStatsTool 按矿种计数
func NewCommodityStatsTool(store occurrence.Store) Tool {
	return newFuncTool("commodity_stats",
		"Count occurrences per commodity, descending.",
		"commodity_stats",
		map[string]any{
			"region": "str?", "occurrence_type": "str?", "limit": "int? (1-200, default 25)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.CommodityStats(ctx, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"commodity_stats": rows},
				Summary:   fmt.Sprintf("commodity_stats returned %d rows", len(rows)),
			}, nil
		})
}

// NewImportanceBreakdownTool 按重要性计数
func NewImportanceBreakdownTool(store occurrence.Store) Tool {
	return newFuncTool("importance_breakdown",
		"Count occurrences per importance class.",
		"importance_breakdown",
		map[string]any{
			"commodity": "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.ImportanceBreakdown(ctx, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"importance_breakdown": rows},
				Summary:   fmt.Sprintf("importance_breakdown returned %d rows", len(rows)),
			}, nil
		})
}

// NewHeatmapBinsTool 固定格网密度统计
func NewHeatmapBinsTool(store occurrence.Store) Tool {
	return newFuncTool("heatmap_bins",
		"Aggregate occurrences into fixed lat/lon grid bins for density maps.",
		"heatmap_bins",
		map[string]any{
			"commodity": "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
			"bin_km": "float? (1-250, default 25)", "limit": "int? (1-500, default 200)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			binKM := normalize.ClampFloat(args["bin_km"], 1, 250, 25)
			limit := normalize.ClampInt(args["limit"], 1, 500, 200)
			f := filterFromArgs(args, 1, 500, 200)
			bins, err := store.HeatmapBins(ctx, binKM/kmPerDegree, limit, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"heatmap_bins": bins},
				Summary:   fmt.Sprintf("heatmap_bins produced %d bins at %.0f km", len(bins), binKM),
			}, nil
		})
}
