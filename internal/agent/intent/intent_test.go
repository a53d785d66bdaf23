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

package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuickClassify(t *testing.T) {
	c := NewClassifier(nil)
	cases := []struct {
		query string
		want  Type
	}{
		{"hello", General},
		{"what can you do", General},
		{"مرحبا", General},
		{"show all gold occurrences on the map please", Visualize2D},
		{"render the terrain in 3d with cesium please", Visualize3D},
		{"download all copper occurrences as a shapefile", Export},
		{"اعرض على الخريطة مواقع الذهب", Visualize2D},
		{"اظهر جميع نقاط التواجد المعدني", SQLQuery},
		{"compute the spatial distribution statistics of silver deposits", Analyze},
	}
	for _, tc := range cases {
		got := c.Quick(tc.query)
		require.NotNil(t, got, "query %q should hit the keyword path", tc.query)
		assert.Equal(t, tc.want, got.Intent, "query %q", tc.query)
		assert.Equal(t, "keyword", got.Source)
	}
}

func TestQuickClassifyShortQueryIsGeneral(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Quick("ummm")
	require.NotNil(t, got)
	assert.Equal(t, General, got.Intent)
}

func TestQuickClassifyNoHit(t *testing.T) {
	c := NewClassifier(nil)
	assert.Nil(t, c.Quick("which commodities co-occur most often with zinc deposits"))
}

func TestClassifyFallsBackWithoutModel(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "which commodities co-occur most often with zinc deposits")
	assert.Equal(t, SQLQuery, got.Intent)
	assert.Equal(t, "fallback", got.Source)
	assert.InDelta(t, 0.7, got.Confidence, 0.001)
}
