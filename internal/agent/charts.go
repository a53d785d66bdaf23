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

package agent

import (
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

const vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// BuildCharts 从聚合工件派生 Vega-Lite 图表规格，前端直接渲染。
// 没有可画的工件时返回 nil
func BuildCharts(artifacts map[string]any) map[string]any {
	charts := make(map[string]any)

	if rows, ok := artifacts["stats_by_region"].([]occurrence.RegionCount); ok && len(rows) > 0 {
		values := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			values = append(values, map[string]any{"region": r.AdminRegion, "count": r.Count})
		}
		charts["stats_by_region"] = barChart("Occurrences by region", values, "region")
	}

	if rows, ok := artifacts["commodity_stats"].([]occurrence.CommodityCount); ok && len(rows) > 0 {
		values := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			values = append(values, map[string]any{"commodity": r.MajorCommodity, "count": r.Count})
		}
		charts["commodity_stats"] = barChart("Occurrences by commodity", values, "commodity")
	}

	if rows, ok := artifacts["importance_breakdown"].([]occurrence.ImportanceCount); ok && len(rows) > 0 {
		values := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			label := r.Importance
			if label == "" {
				label = "(unspecified)"
			}
			values = append(values, map[string]any{"importance": label, "count": r.Count})
		}
		charts["importance_breakdown"] = barChart("Occurrences by importance", values, "importance")
	}

	if bins, ok := artifacts["heatmap_bins"].([]occurrence.HeatBin); ok && len(bins) > 0 {
		charts["heatmap_bins"] = heatmapChart(bins)
	}

	if len(charts) == 0 {
		return nil
	}
	return charts
}

func barChart(title string, values []map[string]any, category string) map[string]any {
	return map[string]any{
		"$schema": vegaLiteSchema,
		"title":   title,
		"data":    map[string]any{"values": values},
		"mark":    "bar",
		"encoding": map[string]any{
			"x": map[string]any{"field": category, "type": "nominal", "sort": "-y"},
			"y": map[string]any{"field": "count", "type": "quantitative"},
			"tooltip": []map[string]any{
				{"field": category, "type": "nominal"},
				{"field": "count", "type": "quantitative"},
			},
		},
	}
}

// heatmapChart 用圆点尺寸表示格网密度，坐标轴即经纬度
func heatmapChart(bins []occurrence.HeatBin) map[string]any {
	values := make([]map[string]any, 0, len(bins))
	for _, b := range bins {
		values = append(values, map[string]any{"lon": b.Lon, "lat": b.Lat, "count": b.Count})
	}
	return map[string]any{
		"$schema": vegaLiteSchema,
		"title":   "Occurrence density grid",
		"data":    map[string]any{"values": values},
		"mark":    "circle",
		"encoding": map[string]any{
			"x":    map[string]any{"field": "lon", "type": "quantitative", "scale": map[string]any{"zero": false}},
			"y":    map[string]any{"field": "lat", "type": "quantitative", "scale": map[string]any{"zero": false}},
			"size": map[string]any{"field": "count", "type": "quantitative"},
			"tooltip": []map[string]any{
				{"field": "count", "type": "quantitative"},
			},
		},
	}
}
