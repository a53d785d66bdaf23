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
	"strings"

	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
	"github.com/salsama1/twuiq-proj/internal/geojson"
	"github.com/salsama1/twuiq-proj/internal/requestctx"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

func strArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// filterFromArgs 从工具参数构造属性过滤；limit 按各工具的范围钳制
func filterFromArgs(args map[string]any, lo, hi, def int) occurrence.Filter {
	f := occurrence.Filter{
		Commodity:         strArg(args, "commodity"),
		ExplorationStatus: strArg(args, "exploration_status"),
		OccurrenceType:    normalize.OccurrenceType(args["occurrence_type"]),
		Limit:             normalize.ClampInt(args["limit"], lo, hi, def),
	}
	if region := normalize.RegionValue(args["region"]); region != "" {
		f.Regions = normalize.SplitMulti(region)
	}
	return f
}

// resolveGeometry 解析几何入参：args[key] 优先，其次本次请求上传的几何，
// 最后是会话里记住的 AOI
func resolveGeometry(ctx context.Context, sess *session.Session, args map[string]any, key string) (string, error) {
	if v, ok := args[key]; ok && v != nil {
		return geojson.GeometryJSON(v)
	}
	if uploaded := requestctx.UploadedGeometry(ctx); uploaded != "" {
		return uploaded, nil
	}
	if sess != nil {
		if v, ok := sess.StateGet(session.StateKeyUploadedGeometry); ok && v != nil {
			return geojson.GeometryJSON(v)
		}
	}
	return "", fmt.Errorf("geometry required: pass %q or upload one first", key)
}

// resolveFeatureCollection 解析要素集合入参：显式 feature_collection 优先，
// feature_collection_ref=uploaded 时取会话里上传的集合
func resolveFeatureCollection(ctx context.Context, sess *session.Session, args map[string]any) (*geojson.FeatureCollection, error) {
	if v, ok := args["feature_collection"]; ok && v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal feature collection: %w", err)
		}
		return geojson.ParseFeatureCollection(raw)
	}
	if sess != nil {
		if v, ok := sess.StateGet(session.StateKeyUploadedFC); ok && v != nil {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal uploaded feature collection: %w", err)
			}
			return geojson.ParseFeatureCollection(raw)
		}
	}
	return nil, fmt.Errorf("feature collection required: pass one or upload it first")
}

// occurrenceProperties 导出时写入要素属性的字段
func occurrenceProperties(o occurrence.Occurrence) map[string]any {
	return map[string]any{
		"mods_id":               o.ModsID,
		"english_name":          o.EnglishName,
		"arabic_name":           o.ArabicName,
		"major_commodity":       o.MajorCommodity,
		"admin_region":          o.AdminRegion,
		"occurrence_type":       o.OccurrenceType,
		"exploration_status":    o.ExplorationStatus,
		"occurrence_importance": o.Importance,
	}
}

// occurrencesToFC 带坐标的矿点行转 FeatureCollection；无坐标的行跳过
func occurrencesToFC(rows []occurrence.Occurrence) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, o := range rows {
		if o.Longitude == nil || o.Latitude == nil {
			continue
		}
		fc.Add(geojson.PointGeometry(*o.Longitude, *o.Latitude), occurrenceProperties(o))
	}
	return fc
}
