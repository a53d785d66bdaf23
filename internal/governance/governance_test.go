package governance

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsama1/twuiq-proj/pkg/config"
)

func TestFeatureEnabledDisabledMode(t *testing.T) {
	p := NewPolicy(config.GovernanceConfig{})
	assert.True(t, p.FeatureEnabled("search_mods"))
	assert.True(t, p.FeatureEnabled("qc_summary"))
	assert.True(t, p.FeatureEnabled("spatial_query"))
}

func TestFeatureEnabledExplicitFalse(t *testing.T) {
	p := NewPolicy(config.GovernanceConfig{
		Features: map[string]bool{"csv_export": false},
	})
	assert.False(t, p.FeatureEnabled("csv_export"))
	assert.True(t, p.FeatureEnabled("search_mods"))
}

func TestFeatureEnabledStrictMode(t *testing.T) {
	p := NewPolicy(config.GovernanceConfig{
		Mode:     "strict",
		Features: map[string]bool{"qc_summary": true},
	})
	// 门禁前缀默认拒绝，显式 true 放行
	assert.True(t, p.FeatureEnabled("qc_summary"))
	assert.False(t, p.FeatureEnabled("qc_outliers"))
	assert.False(t, p.FeatureEnabled("spatial_buffer"))
	assert.False(t, p.FeatureEnabled("rasters_zonal_stats"))
	assert.False(t, p.FeatureEnabled("ogc_items_link"))
	// 非门禁工具不受 strict 影响
	assert.True(t, p.FeatureEnabled("search_mods"))
}

func TestFeatureEnabledNilPolicy(t *testing.T) {
	var p *Policy
	assert.True(t, p.FeatureEnabled("anything"))
}

func TestAuditorWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	a := NewAuditor(path, 0, nil)
	require.NotNil(t, a)
	a.Log(Event{Kind: "tool", Tool: "search_mods", SessionID: "s1", Status: "ok"})
	a.Log(Event{Kind: "denied", Tool: "qc_summary", Detail: DeniedMessage})
	require.NoError(t, a.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "search_mods", events[0].Tool)
	assert.False(t, events[0].Time.IsZero())
	assert.Equal(t, DeniedMessage, events[1].Detail)
}

func TestAuditorRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	a := NewAuditor(path, 200, nil)
	for i := 0; i < 20; i++ {
		a.Log(Event{Kind: "tool", Tool: "nearby_mods", Detail: strings.Repeat("x", 40)})
	}
	require.NoError(t, a.Close())

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated file, got %v", err)
	}
}

func TestAuditorNilAndEmptyPath(t *testing.T) {
	assert.Nil(t, NewAuditor("", 0, nil))
	var a *Auditor
	a.Log(Event{Kind: "tool"}) // nil 安全
	assert.NoError(t, a.Close())
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in       string
		leaked   string
		expected string
	}{
		{"Authorization: Bearer abc.def-123", "abc.def", "Bearer [redacted]"},
		{"api_key=sk_live_998877 sent", "998877", "[redacted]"},
		{"password: hunter2", "hunter2", "password: [redacted]"},
		{"token=deadbeef", "deadbeef", "token=[redacted]"},
		{"key sk-proj-abcdef123456 in body", "abcdef123456", "[redacted]"},
	}
	for _, tt := range tests {
		got := SanitizeText(tt.in)
		assert.NotContains(t, got, tt.leaked, "input %q", tt.in)
		assert.Contains(t, got, tt.expected, "input %q", tt.in)
	}
	assert.Equal(t, "gold near Medina", SanitizeText("gold near Medina"))
	assert.Equal(t, "", SanitizeText(""))
}
