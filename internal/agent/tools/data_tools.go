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
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

// NewSearchTool 属性过滤检索
func NewSearchTool(store occurrence.Store) Tool {
	return newFuncTool("search_mods",
		"Search mineral occurrences by commodity, region, occurrence_type, exploration_status.",
		"",
		map[string]any{
			"commodity": "str?", "region": "str?", "occurrence_type": "str?",
			"exploration_status": "str?", "limit": "int? (1-200, default 25)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.Search(ctx, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Output:      rows,
				Occurrences: rows,
				Summary:     fmt.Sprintf("search_mods returned %d rows", len(rows)),
			}, nil
		})
}

// NewNearbyTool 半径检索（公里）
func NewNearbyTool(store occurrence.Store) Tool {
	return newFuncTool("nearby_mods",
		"Find occurrences within radius_km of a point.",
		"",
		map[string]any{
			"lat": "float", "lon": "float", "radius_km": "float? (0.1-1000, default 50)",
			"commodity": "str?", "limit": "int? (1-200, default 25)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			lat, lon := normalize.ValidateLatLon(args["lat"], args["lon"])
			if lat == nil || lon == nil {
				return nil, fmt.Errorf("nearby_mods requires valid lat and lon")
			}
			radius := normalize.ClampFloat(args["radius_km"], 0.1, 1000, 50)
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.Nearby(ctx, *lat, *lon, radius, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Output:      rows,
				Occurrences: rows,
				Summary:     fmt.Sprintf("nearby_mods returned %d rows within %.1f km", len(rows), radius),
			}, nil
		})
}

// NewBBoxTool 经纬度范围检索
func NewBBoxTool(store occurrence.Store) Tool {
	return newFuncTool("bbox_mods",
		"Find occurrences inside a lat/lon bounding box.",
		"",
		map[string]any{
			"min_lat": "float", "min_lon": "float", "max_lat": "float", "max_lon": "float",
			"commodity": "str?", "limit": "int? (1-200, default 25)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			minLat, minLon := normalize.ValidateLatLon(args["min_lat"], args["min_lon"])
			maxLat, maxLon := normalize.ValidateLatLon(args["max_lat"], args["max_lon"])
			if minLat == nil || minLon == nil || maxLat == nil || maxLon == nil {
				return nil, fmt.Errorf("bbox_mods requires valid min/max lat and lon")
			}
			box := occurrence.BBox{MinLon: *minLon, MinLat: *minLat, MaxLon: *maxLon, MaxLat: *maxLat}
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.BBox(ctx, box, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Output:      rows,
				Occurrences: rows,
				Summary:     fmt.Sprintf("bbox_mods returned %d rows", len(rows)),
			}, nil
		})
}

// NewNearestTool 最近邻检索
func NewNearestTool(store occurrence.Store) Tool {
	return newFuncTool("nearest_mods",
		"Find the nearest occurrences to a point, ordered by distance.",
		"nearest_results",
		map[string]any{
			"lat": "float", "lon": "float",
			"commodity": "str?", "limit": "int? (1-200, default 25)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			lat, lon := normalize.ValidateLatLon(args["lat"], args["lon"])
			if lat == nil || lon == nil {
				return nil, fmt.Errorf("nearest_mods requires valid lat and lon")
			}
			f := filterFromArgs(args, 1, 200, 25)
			rows, err := store.Nearest(ctx, *lat, *lon, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"nearest_results": rows},
				Summary:   fmt.Sprintf("nearest_mods returned %d rows", len(rows)),
			}, nil
		})
}

// exportRows 导出工具共用的行获取：带 lat/lon/radius_km 走半径查询，否则属性过滤
func exportRows(ctx context.Context, store occurrence.Store, args map[string]any, f occurrence.Filter) ([]occurrence.Occurrence, error) {
	lat, lon := normalize.ValidateLatLon(args["lat"], args["lon"])
	if lat != nil && lon != nil {
		radius := normalize.ClampFloat(args["radius_km"], 0.1, 1000, 50)
		return store.Nearby(ctx, *lat, *lon, radius, f)
	}
	return store.Search(ctx, f)
}

// NewGeoJSONExportTool GeoJSON 导出
func NewGeoJSONExportTool(store occurrence.Store) Tool {
	return newFuncTool("geojson_export",
		"Export matching occurrences as a GeoJSON FeatureCollection.",
		"geojson",
		map[string]any{
			"commodity": "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
			"lat": "float?", "lon": "float?", "radius_km": "float?", "limit": "int? (1-2000, default 200)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			f := filterFromArgs(args, 1, 2000, 200)
			rows, err := exportRows(ctx, store, args, f)
			if err != nil {
				return nil, err
			}
			fc := occurrencesToFC(rows)
			// 过滤条件随图层一并落为工件，回答合成时据此点名矿种与行政区
			artifacts := map[string]any{"geojson": fc}
			if f.Commodity != "" {
				artifacts["geojson_commodity"] = f.Commodity
			}
			if len(f.Regions) > 0 {
				artifacts["geojson_region"] = strings.Join(f.Regions, ", ")
			}
			return &Result{
				Artifacts: artifacts,
				Summary:   fmt.Sprintf("geojson_export produced %d features", len(fc.Features)),
			}, nil
		})
}

var csvHeader = []string{
	"mods_id", "english_name", "arabic_name", "major_commodity", "admin_region",
	"occurrence_type", "exploration_status", "occurrence_importance", "longitude", "latitude", "elevation",
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// NewCSVExportTool CSV 导出
func NewCSVExportTool(store occurrence.Store) Tool {
	return newFuncTool("csv_export",
		"Export matching occurrences as CSV text.",
		"csv",
		map[string]any{
			"commodity": "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
			"lat": "float?", "lon": "float?", "radius_km": "float?", "limit": "int? (1-5000, default 2000)",
		},
		func(ctx context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			f := filterFromArgs(args, 1, 5000, 2000)
			rows, err := exportRows(ctx, store, args, f)
			if err != nil {
				return nil, err
			}
			var sb strings.Builder
			w := csv.NewWriter(&sb)
			if err := w.Write(csvHeader); err != nil {
				return nil, err
			}
			for _, o := range rows {
				record := []string{
					o.ModsID, o.EnglishName, o.ArabicName, o.MajorCommodity, o.AdminRegion,
					o.OccurrenceType, o.ExplorationStatus, o.Importance,
					csvFloat(o.Longitude), csvFloat(o.Latitude), csvFloat(o.Elevation),
				}
				if err := w.Write(record); err != nil {
					return nil, err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"csv": sb.String()},
				Summary:   fmt.Sprintf("csv_export produced %d rows of CSV", len(rows)),
			}, nil
		})
}
