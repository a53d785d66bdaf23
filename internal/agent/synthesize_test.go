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
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/geojson"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

func TestSynthesizePriorityOrder(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Add(geojson.PointGeometry(40.0, 24.0), map[string]any{"mods_id": "M1"})
	artifacts := map[string]any{
		"geojson": fc,
		"csv":     "mods_id,english_name\nM1,Mahd adh Dhahab\n",
		"stats_by_region": []occurrence.RegionCount{
			{AdminRegion: "Madinah Region", Count: 12},
			{AdminRegion: "Makkah Region", Count: 7},
		},
	}

	answer := Synthesize("anything", artifacts, nil, nil)

	geoIdx := strings.Index(answer, "GeoJSON layer")
	csvIdx := strings.Index(answer, "CSV with")
	regionIdx := strings.Index(answer, "counts by region")
	require.True(t, geoIdx >= 0 && csvIdx >= 0 && regionIdx >= 0)
	assert.Less(t, geoIdx, csvIdx)
	assert.Less(t, csvIdx, regionIdx)
	assert.Contains(t, answer, "1 features")
	assert.Contains(t, answer, "1 data rows")
	assert.Contains(t, answer, "Madinah Region: 12")
}

func TestSynthesizeNearestDistances(t *testing.T) {
	d := 2500.0
	artifacts := map[string]any{
		"nearest_results": []occurrence.Near{
			{DistanceM: &d, Occurrence: occurrence.Occurrence{EnglishName: "Jabal Sayid", MajorCommodity: "Copper"}},
		},
	}
	answer := Synthesize("", artifacts, nil, nil)
	assert.Contains(t, answer, "Jabal Sayid")
	assert.Contains(t, answer, "2.5 km")
}

func TestSynthesizeQCSummary(t *testing.T) {
	artifacts := map[string]any{
		"qc_summary": &occurrence.QCSummary{
			TotalRows:             1200,
			NullLatitudeRows:      3,
			DuplicateModsIDGroups: 2,
		},
	}
	answer := Synthesize("", artifacts, nil, nil)
	assert.Contains(t, answer, "QC summary")
	assert.Contains(t, answer, "1200 rows")
	assert.Contains(t, answer, "3 null latitudes")
	assert.Contains(t, answer, "2 duplicate mods_id groups")
}

// 工件必须按 qc 工具真实存入的形态（store 指针）被接住，
// 这里走完整工具层而不是手工造工件
func TestSynthesizeQCThroughToolLayer(t *testing.T) {
	reg := tools.NewRegistry()
	tools.RegisterBuiltin(reg, testStore(), nil, nil, nil, config.OGCConfig{})
	executor := tools.NewExecutor(reg, nil, nil, nil, nil)

	st := newRunState()
	for _, name := range []string{"qc_summary", "qc_outliers"} {
		stop := executeCall(context.Background(), executor, nil, ToolCall{Name: name}, "", st)
		require.False(t, stop)
	}

	answer := Synthesize("run a qc check", st.artifacts, nil, st.trace)
	assert.Contains(t, answer, "QC summary")
	assert.Contains(t, answer, "Coordinate outlier check")
}

func TestSynthesizeGeoJSONNamesFilter(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	artifacts := map[string]any{
		"geojson":           fc,
		"geojson_commodity": "gold",
		"geojson_region":    "Riyadh Region",
	}
	answer := Synthesize("show gold mines in riyadh", artifacts, nil, nil)
	assert.Contains(t, answer, "Gold")
	assert.Contains(t, answer, "Riyadh Region")
	assert.Contains(t, answer, "GeoJSON layer")
}

func TestSynthesizeZonalList(t *testing.T) {
	artifacts := map[string]any{
		zonalStatsKey: []any{map[string]any{"raster_id": 1}, map[string]any{"raster_id": 2}},
	}
	answer := Synthesize("", artifacts, nil, nil)
	assert.Contains(t, answer, "2 raster/band combinations")
}

func TestSynthesizeEmpty(t *testing.T) {
	assert.Empty(t, Synthesize("", map[string]any{}, nil, nil))
}

func TestSynthesizeFailuresOnly(t *testing.T) {
	trace := []TraceEntry{{Tool: "spatial_buffer", Error: "geometry required"}}
	answer := Synthesize("", map[string]any{}, nil, trace)
	assert.Contains(t, answer, "spatial_buffer")
}

func TestBuildCharts(t *testing.T) {
	artifacts := map[string]any{
		"commodity_stats": []occurrence.CommodityCount{{MajorCommodity: "Gold", Count: 40}},
		"heatmap_bins":    []occurrence.HeatBin{{Lon: 40.0, Lat: 24.0, Count: 9}},
	}
	charts := BuildCharts(artifacts)
	require.NotNil(t, charts)

	bar, ok := charts["commodity_stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bar", bar["mark"])

	heat, ok := charts["heatmap_bins"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "circle", heat["mark"])
}

func TestBuildChartsNilWhenNothingToPlot(t *testing.T) {
	assert.Nil(t, BuildCharts(map[string]any{"csv": "a,b\n"}))
}
