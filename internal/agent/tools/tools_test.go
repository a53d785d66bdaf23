package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsama1/twuiq-proj/internal/geojson"
	"github.com/salsama1/twuiq-proj/internal/governance"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

func f64(v float64) *float64 { return &v }

func testStore() *occurrence.MemoryStore {
	return occurrence.NewMemoryStore([]occurrence.Occurrence{
		{ID: 1, ModsID: "M1", EnglishName: "Mahd adh Dhahab", MajorCommodity: "Gold", AdminRegion: "Madinah Region", ExplorationStatus: "Mine", Importance: "High", Longitude: f64(40.86), Latitude: f64(23.50)},
		{ID: 2, ModsID: "M2", EnglishName: "Jabal Sayid", MajorCommodity: "Copper", AdminRegion: "Madinah Region", ExplorationStatus: "Mine", Importance: "High", Longitude: f64(40.93), Latitude: f64(23.85)},
		{ID: 3, ModsID: "M3", EnglishName: "Ad Duwayhi", MajorCommodity: "Gold", AdminRegion: "Makkah Region", ExplorationStatus: "Prospect", Importance: "Medium", Longitude: f64(42.10), Latitude: f64(20.90)},
		{ID: 4, ModsID: "M4", EnglishName: "Broken row", MajorCommodity: "Zinc", AdminRegion: "Riyadh Region", Importance: "Low"},
	})
}

func TestSearchToolClampsLimit(t *testing.T) {
	tool := NewSearchTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{"limit": "abc"})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 4) // 解析失败落到默认 25，仍返回全部 4 行
	assert.Contains(t, res.Summary, "4 rows")
}

func TestSearchToolIgnoresPlaceholderType(t *testing.T) {
	tool := NewSearchTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{
		"commodity": "gold", "occurrence_type": "Occurrences",
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 2)
}

func TestNearbyToolRequiresPoint(t *testing.T) {
	tool := NewNearbyTool(testStore())
	_, err := tool.Execute(context.Background(), nil, map[string]any{"lat": 23.5})
	require.Error(t, err)

	res, err := tool.Execute(context.Background(), nil, map[string]any{
		"lat": 23.5, "lon": 40.86, "radius_km": 60.0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Occurrences)
}

func TestNearestToolArtifact(t *testing.T) {
	tool := NewNearestTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{
		"lat": 23.5, "lon": 40.86, "limit": 2,
	})
	require.NoError(t, err)
	rows, ok := res.Artifacts["nearest_results"].([]occurrence.Near)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "M1", rows[0].Occurrence.ModsID)
}

func TestGeoJSONExportSkipsMissingCoords(t *testing.T) {
	tool := NewGeoJSONExportTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{})
	require.NoError(t, err)
	fc, ok := res.Artifacts["geojson"].(*geojson.FeatureCollection)
	require.True(t, ok)
	assert.Len(t, fc.Features, 3) // Zinc 行没有坐标
}

func TestGeoJSONExportRecordsFilter(t *testing.T) {
	tool := NewGeoJSONExportTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{
		"commodity": "gold", "region": "Riyadh Region",
	})
	require.NoError(t, err)
	assert.Equal(t, "gold", res.Artifacts["geojson_commodity"])
	assert.Equal(t, "Riyadh Region", res.Artifacts["geojson_region"])
}

func TestCSVExport(t *testing.T) {
	tool := NewCSVExportTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{"commodity": "gold"})
	require.NoError(t, err)
	text, ok := res.Artifacts["csv"].(string)
	require.True(t, ok)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Len(t, lines, 3) // header + 2 行
	assert.True(t, strings.HasPrefix(lines[0], "mods_id,english_name"))
	assert.Contains(t, text, "Mahd adh Dhahab")
}

func TestQCSummaryTool(t *testing.T) {
	tool := NewQCSummaryTool(testStore())
	res, err := tool.Execute(context.Background(), nil, map[string]any{})
	require.NoError(t, err)
	summary, ok := res.Artifacts["qc_summary"].(*occurrence.QCSummary)
	require.True(t, ok)
	assert.Equal(t, 4, summary.TotalRows)
	assert.Equal(t, 1, summary.NullLatitudeRows)
}

func TestOGCLinkBuilder(t *testing.T) {
	builder := NewLinkBuilder(config.OGCConfig{BaseURL: "https://geo.example.com/"})
	url := builder.ItemsURL(map[string]any{
		"commodity": "gold",
		"limit":     10,
		"bbox":      []any{34.0, 16.0, 56.0, 33.0},
	})
	assert.Equal(t, "https://geo.example.com/ogc/collections/mods_occurrences/items?commodity=gold&limit=10&bbox=34,16,56,33", url)

	bare := builder.ItemsURL(map[string]any{})
	assert.Equal(t, "https://geo.example.com/ogc/collections/mods_occurrences/items", bare)
}

func TestPublishInstructionsFallsBackToDefaultURL(t *testing.T) {
	builder := NewLinkBuilder(config.OGCConfig{})
	tool := NewPublishInstructionsTool(builder)
	res, err := tool.Execute(context.Background(), nil, map[string]any{})
	require.NoError(t, err)
	text, ok := res.Artifacts["qgis_instructions"].(string)
	require.True(t, ok)
	assert.Contains(t, text, "http://127.0.0.1:8000/ogc/collections/mods_occurrences/items")
	assert.Contains(t, text, "QGIS")
}

func newTestExecutor(mode string, features map[string]bool) *Executor {
	reg := NewRegistry()
	RegisterBuiltin(reg, testStore(), nil, nil, nil, config.OGCConfig{})
	policy := governance.NewPolicy(config.GovernanceConfig{Mode: mode, Features: features})
	return NewExecutor(reg, policy, nil, nil, nil)
}

func TestExecutorUnknownTool(t *testing.T) {
	e := newTestExecutor("", nil)
	_, err := e.Execute(context.Background(), nil, "no_such_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestExecutorStrictGovernance(t *testing.T) {
	e := newTestExecutor("strict", map[string]bool{"qc_summary": true})

	_, err := e.Execute(context.Background(), nil, "qc_duplicates_coords", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), governance.DeniedMessage)

	res, err := e.Execute(context.Background(), nil, "qc_summary", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Artifacts, "qc_summary")

	// 非门禁前缀工具不受 strict 影响
	if _, err := e.Execute(context.Background(), nil, "search_mods", map[string]any{}); err != nil {
		t.Errorf("search_mods should pass in strict mode: %v", err)
	}
}

func TestResolveGeometryFromSessionState(t *testing.T) {
	sess := session.New("s1")
	sess.StateSet(session.StateKeyUploadedGeometry, map[string]any{
		"type": "Point", "coordinates": []any{40.0, 23.0},
	})
	got, err := resolveGeometry(context.Background(), sess, map[string]any{}, "geometry")
	require.NoError(t, err)
	assert.Contains(t, got, `"Point"`)

	_, err = resolveGeometry(context.Background(), nil, map[string]any{}, "geometry")
	require.Error(t, err)
}
