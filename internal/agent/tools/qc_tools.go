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

// NewQCSummaryTool 数据质量概览
func NewQCSummaryTool(store occurrence.Store) Tool {
	return newFuncTool("qc_summary",
		"Data quality overview: null/zero/out-of-range coordinates, missing geometry, duplicate groups.",
		"qc_summary",
		map[string]any{},
		func(ctx context.Context, _ *session.Session, _ map[string]any) (*Result, error) {
			summary, err := store.QCSummary(ctx)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"qc_summary": summary},
				Summary:   fmt.Sprintf("qc_summary over %d rows", summary.TotalRows),
			}, nil
		})
}

// NewQCDuplicateModsIDsTool mods_id 重复组
func NewQCDuplicateModsIDsTool(store occurrence.Store) Tool {
	return newFuncTool("qc_duplicates_mods_id",
		"Groups of rows sharing the same mods_id.",
		"qc_duplicates_mods_id",
		map[string]any{"limit": "int? (1-5000, default 200)"},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			limit := normalize.ClampInt(args["limit"], 1, 5000, 200)
			rows, err := store.DuplicateModsIDs(ctx, limit)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"qc_duplicates_mods_id": rows},
				Summary:   fmt.Sprintf("qc_duplicates_mods_id found %d groups", len(rows)),
			}, nil
		})
}

// NewQCDuplicateCoordsTool 坐标重复组
func NewQCDuplicateCoordsTool(store occurrence.Store) Tool {
	return newFuncTool("qc_duplicates_coords",
		"Groups of rows sharing identical coordinates.",
		"qc_duplicates_coords",
		map[string]any{"limit": "int? (1-5000, default 200)"},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			limit := normalize.ClampInt(args["limit"], 1, 5000, 200)
			rows, err := store.DuplicateCoords(ctx, limit)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"qc_duplicates_coords": rows},
				Summary:   fmt.Sprintf("qc_duplicates_coords found %d groups", len(rows)),
			}, nil
		})
}

// NewQCOutliersTool 异常坐标报告；expected_* 四个都给出时做范围检查
func NewQCOutliersTool(store occurrence.Store) Tool {
	return newFuncTool("qc_outliers",
		"Invalid coordinates, optionally rows outside an expected bounding box.",
		"qc_outliers",
		map[string]any{
			"limit":            "int? (1-5000, default 200)",
			"expected_min_lon": "float?", "expected_min_lat": "float?",
			"expected_max_lon": "float?", "expected_max_lat": "float?",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			limit := normalize.ClampInt(args["limit"], 1, 5000, 200)
			var expected *occurrence.BBox
			minLat, minLon := normalize.ValidateLatLon(args["expected_min_lat"], args["expected_min_lon"])
			maxLat, maxLon := normalize.ValidateLatLon(args["expected_max_lat"], args["expected_max_lon"])
			if minLat != nil && minLon != nil && maxLat != nil && maxLon != nil {
				expected = &occurrence.BBox{MinLon: *minLon, MinLat: *minLat, MaxLon: *maxLon, MaxLat: *maxLat}
			}
			report, err := store.Outliers(ctx, limit, expected)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"qc_outliers": report},
				Summary:   fmt.Sprintf("qc_outliers found %d invalid rows", report.InvalidCount),
			}, nil
		})
}
