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
	"fmt"
	"strings"
	"unicode"

	"github.com/salsama1/twuiq-proj/internal/geojson"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
)

// Synthesize 按固定优先级从工件生成事实性回答，空串表示没有可叙述内容。
// 回答只引用工件里实际存在的数字，杜绝模型自由发挥
func Synthesize(query string, artifacts map[string]any, occurrences []occurrence.Occurrence, trace []TraceEntry) string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	add(synthGeoJSON(artifacts))
	add(synthCSV(artifacts))
	add(synthRegionStats(artifacts))
	add(synthCommodityStats(artifacts))
	add(synthImportance(artifacts))
	add(synthHeatmap(artifacts))
	add(synthNearest(artifacts))
	add(synthQC(artifacts))
	add(synthSpatial(artifacts))
	add(synthZonal(artifacts))
	add(synthLinks(artifacts))

	if len(parts) == 0 && len(occurrences) > 0 {
		add(synthOccurrences(occurrences))
	}
	if len(parts) == 0 {
		return synthErrors(trace)
	}
	return strings.Join(parts, "\n\n")
}

func synthGeoJSON(artifacts map[string]any) string {
	v, ok := artifacts["geojson"]
	if !ok {
		return ""
	}
	var b strings.Builder
	commodity, _ := artifacts["geojson_commodity"].(string)
	region, _ := artifacts["geojson_region"].(string)
	switch {
	case commodity != "" && region != "":
		fmt.Fprintf(&b, "Mapped %s occurrences in %s. ", titleCase(commodity), region)
	case commodity != "":
		fmt.Fprintf(&b, "Mapped %s occurrences. ", titleCase(commodity))
	case region != "":
		fmt.Fprintf(&b, "Mapped occurrences in %s. ", region)
	}
	if fc, ok := v.(*geojson.FeatureCollection); ok {
		fmt.Fprintf(&b, "Prepared a GeoJSON layer with %d features, ready to render on the map.", len(fc.Features))
	} else {
		b.WriteString("Prepared a GeoJSON layer, ready to render on the map.")
	}
	return b.String()
}

// titleCase 矿种过滤值是小写的，回答里点名时还原首字母大写
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func synthCSV(artifacts map[string]any) string {
	v, ok := artifacts["csv"].(string)
	if !ok {
		return ""
	}
	rows := strings.Count(v, "\n")
	if rows > 0 {
		rows-- // header
	}
	return fmt.Sprintf("Exported a CSV with %d data rows (%d bytes).", rows, len(v))
}

func synthRegionStats(artifacts map[string]any) string {
	rows, ok := artifacts["stats_by_region"].([]occurrence.RegionCount)
	if !ok || len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Occurrence counts by region:")
	for i, r := range rows {
		if i >= 5 {
			fmt.Fprintf(&b, "\n- ... and %d more regions", len(rows)-5)
			break
		}
		fmt.Fprintf(&b, "\n- %s: %d", r.AdminRegion, r.Count)
	}
	return b.String()
}

func synthCommodityStats(artifacts map[string]any) string {
	rows, ok := artifacts["commodity_stats"].([]occurrence.CommodityCount)
	if !ok || len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Top commodities by occurrence count:")
	for i, r := range rows {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n- %s: %d", r.MajorCommodity, r.Count)
	}
	return b.String()
}

func synthImportance(artifacts map[string]any) string {
	rows, ok := artifacts["importance_breakdown"].([]occurrence.ImportanceCount)
	if !ok || len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Breakdown by occurrence importance:")
	for _, r := range rows {
		label := r.Importance
		if label == "" {
			label = "(unspecified)"
		}
		fmt.Fprintf(&b, "\n- %s: %d", label, r.Count)
	}
	return b.String()
}

func synthHeatmap(artifacts map[string]any) string {
	bins, ok := artifacts["heatmap_bins"].([]occurrence.HeatBin)
	if !ok || len(bins) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Computed %d density grid cells. Densest cells:", len(bins))
	for i, bin := range bins {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n- cell at (%.2f, %.2f): %d occurrences", bin.Lon, bin.Lat, bin.Count)
	}
	return b.String()
}

func synthNearest(artifacts map[string]any) string {
	rows, ok := artifacts["nearest_results"].([]occurrence.Near)
	if !ok || len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Nearest occurrences:")
	for i, r := range rows {
		if i >= 5 {
			break
		}
		name := r.Occurrence.EnglishName
		if name == "" {
			name = r.Occurrence.ModsID
		}
		if r.DistanceM != nil {
			fmt.Fprintf(&b, "\n- %s (%s), %.1f km away", name, r.Occurrence.MajorCommodity, *r.DistanceM/1000)
		} else {
			fmt.Fprintf(&b, "\n- %s (%s)", name, r.Occurrence.MajorCommodity)
		}
	}
	return b.String()
}

func synthQC(artifacts map[string]any) string {
	var parts []string
	// qc 工具存入的是 store 返回的指针
	if s, ok := artifacts["qc_summary"].(*occurrence.QCSummary); ok {
		parts = append(parts, fmt.Sprintf(
			"QC summary over %d rows: %d null latitudes, %d null longitudes, %d zero coordinates, %d out of range, %d duplicate mods_id groups, %d duplicate coordinate groups.",
			s.TotalRows, s.NullLatitudeRows, s.NullLongitudeRows, s.ZeroCoordRows,
			s.OutOfRangeRows, s.DuplicateModsIDGroups, s.DuplicateCoordGroups))
	}
	if rows, ok := artifacts["qc_duplicates_mods_id"].([]occurrence.DupModsID); ok {
		parts = append(parts, fmt.Sprintf("Found %d duplicated mods_id groups.", len(rows)))
	}
	if rows, ok := artifacts["qc_duplicates_coords"].([]occurrence.DupCoord); ok {
		parts = append(parts, fmt.Sprintf("Found %d coordinate-sharing groups.", len(rows)))
	}
	if r, ok := artifacts["qc_outliers"].(*occurrence.OutlierReport); ok {
		s := fmt.Sprintf("Coordinate outlier check: %d invalid coordinates", r.InvalidCount)
		if r.OutsideBBoxCount != nil {
			s += fmt.Sprintf(", %d outside the expected bounding box", *r.OutsideBBoxCount)
		}
		parts = append(parts, s+".")
	}
	return strings.Join(parts, "\n")
}

func synthSpatial(artifacts map[string]any) string {
	var parts []string
	if total, ok := artifacts["spatial_total"].(int); ok {
		parts = append(parts, fmt.Sprintf("Spatial query matched %d occurrences inside the area of interest.", total))
	}
	if _, ok := artifacts["spatial_buffer_geometry"]; ok {
		parts = append(parts, "Buffered the uploaded geometry; the buffer polygon is attached as an artifact.")
	}
	if rows, ok := artifacts["spatial_nearest"].([]occurrence.Near); ok {
		parts = append(parts, fmt.Sprintf("Found the %d occurrences nearest to the uploaded geometry.", len(rows)))
	}
	if _, ok := artifacts["overlay_geometry"]; ok {
		parts = append(parts, "Computed the requested overlay geometry.")
	}
	if fc, ok := artifacts["dissolved_feature_collection"].(*geojson.FeatureCollection); ok {
		parts = append(parts, fmt.Sprintf("Dissolved the uploaded features into %d groups.", len(fc.Features)))
	}
	if fc, ok := artifacts["join_counts_feature_collection"].(*geojson.FeatureCollection); ok {
		parts = append(parts, fmt.Sprintf("Attached occurrence counts to %d features.", len(fc.Features)))
	}
	if rows, ok := artifacts["join_nearest_results"].([]occurrence.JoinNearestRow); ok {
		parts = append(parts, fmt.Sprintf("Linked %d features to their nearest occurrence.", len(rows)))
	}
	return strings.Join(parts, "\n")
}

func synthZonal(artifacts map[string]any) string {
	list, ok := artifacts[zonalStatsKey].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	return fmt.Sprintf("Computed zonal statistics for %d raster/band combinations.", len(list))
}

func synthLinks(artifacts map[string]any) string {
	var parts []string
	if u, ok := artifacts["ogc_items_url"].(string); ok && u != "" {
		parts = append(parts, "OGC API Features link: "+u)
	}
	if s, ok := artifacts["qgis_instructions"].(string); ok && s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n\n")
}

func synthOccurrences(rows []occurrence.Occurrence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d occurrences.", len(rows))
	for i, o := range rows {
		if i >= 5 {
			fmt.Fprintf(&b, "\n- ... and %d more", len(rows)-5)
			break
		}
		name := o.EnglishName
		if name == "" {
			name = o.ModsID
		}
		fmt.Fprintf(&b, "\n- %s (%s, %s)", name, o.MajorCommodity, o.AdminRegion)
	}
	return b.String()
}

// synthErrors 所有工具都失败时至少把失败事实告诉用户
func synthErrors(trace []TraceEntry) string {
	var failed []string
	for _, t := range trace {
		if t.Error != "" {
			failed = append(failed, t.Tool)
		}
	}
	if len(failed) == 0 {
		return ""
	}
	return fmt.Sprintf("The following steps failed and produced no results: %s.", strings.Join(failed, ", "))
}
