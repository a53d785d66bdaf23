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

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRegions = []string{"Madinah Region", "Makkah Region", "Riyadh Region", "Eastern Province"}

func TestRouteAutoVisualize(t *testing.T) {
	r := New(testRegions, 0)
	call := r.Route("show gold mines in riyadh", false)
	require.NotNil(t, call)
	assert.Equal(t, "geojson_export", call.Tool)
	assert.Equal(t, "gold", call.Args["commodity"])
	assert.Equal(t, "Riyadh Region", call.Args["region"])
	assert.Equal(t, "mine", call.Args["exploration_status"])
}

func TestRouteMedinaAlias(t *testing.T) {
	r := New(testRegions, 0)
	regions := r.InferRegions("copper deposits near medina")
	require.Len(t, regions, 1)
	assert.Equal(t, "Madinah Region", regions[0])
}

func TestRouteQCBeforeVisualize(t *testing.T) {
	// qc 规则优先级高于可视化组合
	r := New(testRegions, 0)
	call := r.Route("run a qc check on gold mines in riyadh", false)
	require.NotNil(t, call)
	assert.Equal(t, "qc_summary", call.Tool)
}

func TestRouteAOIRequiresGeometry(t *testing.T) {
	r := New(testRegions, 0)
	assert.Nil(t, r.Route("buffer the area by 50km", false))

	call := r.Route("buffer the area by 50km", true)
	require.NotNil(t, call)
	assert.Equal(t, "spatial_buffer", call.Tool)
	assert.Equal(t, 50000, call.Args["distance_m"])
}

func TestRouteArabicAllPoints(t *testing.T) {
	r := New(testRegions, 300)
	call := r.Route("اعرض جميع نقاط التواجد المعدني", false)
	require.NotNil(t, call)
	assert.Equal(t, "geojson_export", call.Tool)
	assert.Equal(t, 300, call.Args["limit"])
}

func TestRouteArabicCommodity(t *testing.T) {
	r := New(testRegions, 0)
	assert.Equal(t, "gold", r.InferCommodity("مواقع الذهب في السعودية"))
}

func TestRouteNoMatch(t *testing.T) {
	r := New(testRegions, 0)
	assert.Nil(t, r.Route("tell me about the geology of the arabian shield", false))
}

func TestPlanAccumulatesCategories(t *testing.T) {
	r := New(testRegions, 0)
	plan := r.Plan("qc check plus a density heatmap by region breakdown", false, false, 6)
	require.Len(t, plan, 3)
	assert.Equal(t, "qc_summary", plan[0].Tool)
	assert.Equal(t, "stats_by_region", plan[1].Tool)
	assert.Equal(t, "heatmap_bins", plan[2].Tool)
	for _, step := range plan {
		assert.NotEmpty(t, step.Why)
	}
}

func TestPlanRespectsMaxSteps(t *testing.T) {
	r := New(testRegions, 0)
	plan := r.Plan("qc check plus a density heatmap by region breakdown", false, false, 2)
	assert.Len(t, plan, 2)
}

func TestPlanFeatureCollectionRules(t *testing.T) {
	r := New(testRegions, 0)
	plan := r.Plan("dissolve the uploaded districts", false, true, 6)
	require.Len(t, plan, 1)
	assert.Equal(t, "spatial_dissolve", plan[0].Tool)

	plan = r.Plan("count occurrences inside each district", false, true, 6)
	require.Len(t, plan, 1)
	assert.Equal(t, "spatial_join_mods_counts", plan[0].Tool)
}

func TestArabicDiacriticsStripped(t *testing.T) {
	r := New(testRegions, 0)
	// ذَهَب 带 harakat，规范化后仍应命中词表
	if got := r.InferCommodity("أين يوجد الذَهَب"); got != "gold" {
		t.Errorf("expected gold, got %q", got)
	}
}
