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

// ZonalStatsEntry 单次分区统计结果；zonal_stats artifact 是它们的列表
type ZonalStatsEntry struct {
	RasterID string                 `json:"raster_id"`
	Band     int                    `json:"band"`
	Stats    *occurrence.ZonalStats `json:"stats"`
}

// NewZonalStatsTool 栅格分区统计；zonal_stats artifact 按调用追加
func NewZonalStatsTool(raster occurrence.RasterStore) Tool {
	return newFuncTool("rasters_zonal_stats",
		"Zonal statistics (count/min/max/mean/std) of a raster band inside a geometry.",
		"zonal_stats",
		map[string]any{
			"raster_id": "str", "geometry": "GeoJSON geometry?",
			"geometry_ref": "str? ('uploaded')", "band": "int? (default 1)",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			rasterID := strArg(args, "raster_id")
			if rasterID == "" {
				return nil, fmt.Errorf("rasters_zonal_stats requires raster_id")
			}
			geomJSON, err := resolveGeometry(ctx, sess, args, "geometry")
			if err != nil {
				return nil, err
			}
			band := normalize.ClampInt(args["band"], 1, 1000, 1)
			stats, err := raster.ZonalStats(ctx, rasterID, geomJSON, band)
			if err != nil {
				return nil, err
			}
			entry := ZonalStatsEntry{RasterID: rasterID, Band: band, Stats: stats}
			return &Result{
				Artifacts: map[string]any{"zonal_stats": entry},
				Summary:   fmt.Sprintf("rasters_zonal_stats over %s band %d: %d cells", rasterID, band, stats.Count),
			}, nil
		})
}
