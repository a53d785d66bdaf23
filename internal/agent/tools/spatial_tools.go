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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
	"github.com/salsama1/twuiq-proj/internal/geojson"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

var overlayOps = map[string]bool{
	"union": true, "intersection": true, "difference": true, "symmetric_difference": true,
}

// NewSpatialQueryTool intersects/dwithin 空间过滤
func NewSpatialQueryTool(store occurrence.Store, spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_query",
		"Filter occurrences by a geometry: op=intersects or dwithin (distance_m).",
		"spatial_geojson",
		map[string]any{
			"op": "str ('intersects'|'dwithin')", "geometry": "GeoJSON geometry",
			"distance_m": "float? (0-2000000, default 50000)",
			"commodity":  "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
			"limit": "int? (1-5000, default 500)", "offset": "int? (0-500000)",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			geomJSON, err := resolveGeometry(ctx, sess, args, "geometry")
			if err != nil {
				return nil, err
			}
			op := strArg(args, "op")
			if op == "" {
				op = "intersects"
			}
			if op != "intersects" && op != "dwithin" {
				return nil, fmt.Errorf("spatial_query op must be intersects or dwithin, got %q", op)
			}
			distanceM := normalize.ClampFloat(args["distance_m"], 0, 2000000, 50000)
			f := filterFromArgs(args, 1, 5000, 500)
			f.Offset = normalize.ClampInt(args["offset"], 0, 500000, 0)

			total, rows, err := spatial.SpatialQuery(ctx, geomJSON, op, distanceM, f)
			if err != nil {
				return nil, err
			}
			fc := occurrencesToFC(rows)
			return &Result{
				Artifacts: map[string]any{
					"spatial_total":   total,
					"spatial_geojson": fc,
				},
				Occurrences: rows,
				Summary:     fmt.Sprintf("spatial_query (%s) matched %d rows, returned %d", op, total, len(rows)),
			}, nil
		})
}

// NewSpatialBufferTool 缓冲区
func NewSpatialBufferTool(spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_buffer",
		"Buffer a geometry by distance_m and return the buffered geometry.",
		"spatial_buffer_geometry",
		map[string]any{
			"geometry": "GeoJSON geometry", "distance_m": "float (0-2000000, default 50000)",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			geomJSON, err := resolveGeometry(ctx, sess, args, "geometry")
			if err != nil {
				return nil, err
			}
			distanceM := normalize.ClampFloat(args["distance_m"], 0, 2000000, 50000)
			buffered, err := spatial.Buffer(ctx, geomJSON, distanceM)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"spatial_buffer_geometry": json.RawMessage(buffered)},
				Summary:   fmt.Sprintf("spatial_buffer produced a %.0f m buffer", distanceM),
			}, nil
		})
}

// NewSpatialNearestTool 距几何最近的矿点
func NewSpatialNearestTool(spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_nearest",
		"Nearest occurrences to a geometry, ordered by distance.",
		"spatial_nearest",
		map[string]any{
			"geometry":  "GeoJSON geometry",
			"commodity": "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
			"limit": "int? (1-500, default 25)",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			geomJSON, err := resolveGeometry(ctx, sess, args, "geometry")
			if err != nil {
				return nil, err
			}
			f := filterFromArgs(args, 1, 500, 25)
			rows, err := spatial.SpatialNearest(ctx, geomJSON, f)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"spatial_nearest": rows},
				Summary:   fmt.Sprintf("spatial_nearest returned %d rows", len(rows)),
			}, nil
		})
}

// overlayOperand 叠加运算的操作数：显式几何优先，否则取上传集合的第 idx 个要素
func overlayOperand(ctx context.Context, sess *session.Session, args map[string]any, key string, idx int) (string, error) {
	if v, ok := args[key]; ok && v != nil {
		return geojson.GeometryJSON(v)
	}
	fc, err := resolveFeatureCollection(ctx, sess, args)
	if err != nil {
		return "", fmt.Errorf("overlay operand %q: %w", key, err)
	}
	if idx < 0 || idx >= len(fc.Features) {
		return "", fmt.Errorf("overlay operand %q: feature index %d out of range (%d features)", key, idx, len(fc.Features))
	}
	return geojson.GeometryJSON(fc.Features[idx].Geometry)
}

// NewSpatialOverlayTool 两几何布尔叠加
func NewSpatialOverlayTool(spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_overlay",
		"Boolean overlay of two geometries: union, intersection, difference, symmetric_difference.",
		"overlay_geometry",
		map[string]any{
			"op": "str ('union'|'intersection'|'difference'|'symmetric_difference')",
			"a":  "GeoJSON geometry?", "b": "GeoJSON geometry?",
			"feature_collection_ref": "str? ('uploaded')",
			"a_index":                "int? (default 0)", "b_index": "int? (default 1)",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			op := strArg(args, "op")
			if !overlayOps[op] {
				return nil, fmt.Errorf("spatial_overlay op must be one of union/intersection/difference/symmetric_difference, got %q", op)
			}
			aIdx := normalize.ClampInt(args["a_index"], 0, 100000, 0)
			bIdx := normalize.ClampInt(args["b_index"], 0, 100000, 1)
			aJSON, err := overlayOperand(ctx, sess, args, "a", aIdx)
			if err != nil {
				return nil, err
			}
			bJSON, err := overlayOperand(ctx, sess, args, "b", bIdx)
			if err != nil {
				return nil, err
			}
			out, err := spatial.Overlay(ctx, op, aJSON, bJSON)
			if err != nil {
				return nil, err
			}
			return &Result{
				Artifacts: map[string]any{"overlay_geometry": json.RawMessage(out)},
				Summary:   fmt.Sprintf("spatial_overlay (%s) produced a geometry", op),
			}, nil
		})
}

// NewSpatialDissolveTool 按属性分组合并要素
func NewSpatialDissolveTool(spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_dissolve",
		"Merge features sharing the same property value into one geometry per group.",
		"dissolved_feature_collection",
		map[string]any{
			"feature_collection":     "GeoJSON FeatureCollection?",
			"feature_collection_ref": "str? ('uploaded')",
			"by_property":            "str",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			byProp := strArg(args, "by_property")
			if byProp == "" {
				return nil, fmt.Errorf("spatial_dissolve requires by_property")
			}
			fc, err := resolveFeatureCollection(ctx, sess, args)
			if err != nil {
				return nil, err
			}

			groups := make(map[string][]string)
			for _, feat := range fc.Features {
				key := fmt.Sprintf("%v", feat.Properties[byProp])
				groups[key] = append(groups[key], string(feat.Geometry))
			}
			keys := make([]string, 0, len(groups))
			for k := range groups {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := geojson.NewFeatureCollection()
			for _, key := range keys {
				merged, err := spatial.UnionAll(ctx, groups[key])
				if err != nil {
					return nil, fmt.Errorf("dissolve group %q: %w", key, err)
				}
				out.Add(json.RawMessage(merged), map[string]any{
					byProp:  key,
					"count": len(groups[key]),
				})
			}
			return &Result{
				Artifacts: map[string]any{"dissolved_feature_collection": out},
				Summary:   fmt.Sprintf("spatial_dissolve merged %d features into %d groups", len(fc.Features), len(out.Features)),
			}, nil
		})
}

// featureID 连接结果的要素标识：id_property 的值，缺省用序号
func featureID(feat geojson.Feature, idProperty string, idx int) any {
	if idProperty != "" {
		if v, ok := feat.Properties[idProperty]; ok {
			return v
		}
	}
	return idx
}

// NewSpatialJoinCountsTool 面内矿点计数连接
func NewSpatialJoinCountsTool(spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_join_mods_counts",
		"Per-feature occurrence counts for a polygon collection.",
		"join_counts_feature_collection",
		map[string]any{
			"feature_collection":     "GeoJSON FeatureCollection?",
			"feature_collection_ref": "str? ('uploaded')",
			"predicate":              "str? ('intersects'|'contains', default intersects)",
			"id_property":            "str?",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			fc, err := resolveFeatureCollection(ctx, sess, args)
			if err != nil {
				return nil, err
			}
			predicate := strArg(args, "predicate")
			if predicate == "" {
				predicate = "intersects"
			}
			if predicate != "intersects" && predicate != "contains" {
				return nil, fmt.Errorf("spatial_join_mods_counts predicate must be intersects or contains, got %q", predicate)
			}
			idProp := strArg(args, "id_property")

			out := geojson.NewFeatureCollection()
			for i, feat := range fc.Features {
				count, err := spatial.CountInGeometry(ctx, string(feat.Geometry), predicate)
				if err != nil {
					return nil, fmt.Errorf("join counts feature %d: %w", i, err)
				}
				props := make(map[string]any, len(feat.Properties)+2)
				for k, v := range feat.Properties {
					props[k] = v
				}
				props["feature_id"] = featureID(feat, idProp, i)
				props["mods_count"] = count
				out.Add(feat.Geometry, props)
			}
			return &Result{
				Artifacts: map[string]any{"join_counts_feature_collection": out},
				Summary:   fmt.Sprintf("spatial_join_mods_counts annotated %d features", len(out.Features)),
			}, nil
		})
}

// NewSpatialJoinNearestTool 每要素最近矿点连接
func NewSpatialJoinNearestTool(spatial occurrence.SpatialStore) Tool {
	return newFuncTool("spatial_join_mods_nearest",
		"Nearest occurrence for each feature in a collection.",
		"join_nearest_results",
		map[string]any{
			"feature_collection":     "GeoJSON FeatureCollection?",
			"feature_collection_ref": "str? ('uploaded')",
			"id_property":            "str?",
		},
		func(ctx context.Context, sess *session.Session, args map[string]any) (*Result, error) {
			fc, err := resolveFeatureCollection(ctx, sess, args)
			if err != nil {
				return nil, err
			}
			idProp := strArg(args, "id_property")

			rows := make([]occurrence.JoinNearestRow, 0, len(fc.Features))
			for i, feat := range fc.Features {
				near, err := spatial.NearestToGeometry(ctx, string(feat.Geometry))
				if err != nil {
					return nil, fmt.Errorf("join nearest feature %d: %w", i, err)
				}
				row := occurrence.JoinNearestRow{FeatureID: featureID(feat, idProp, i)}
				if near != nil {
					row.DistanceM = near.DistanceM
					occ := near.Occurrence
					row.Nearest = &occ
				}
				rows = append(rows, row)
			}
			return &Result{
				Artifacts: map[string]any{"join_nearest_results": rows},
				Summary:   fmt.Sprintf("spatial_join_mods_nearest matched %d features", len(rows)),
			}, nil
		})
}
