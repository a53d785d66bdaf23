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

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccurrenceType(t *testing.T) {
	assert.Nil(t, OccurrenceType("occurrence"))
	assert.Nil(t, OccurrenceType("  ALL "))
	assert.Nil(t, OccurrenceType("null"))
	assert.Nil(t, OccurrenceType(""))
	assert.Nil(t, OccurrenceType(nil))
	assert.Nil(t, OccurrenceType(42))

	// 原有大小写必须原样保留，只做去空白
	got := OccurrenceType("  Mine ")
	if assert.NotNil(t, got) {
		assert.Equal(t, "Mine", *got)
	}
	metallic := OccurrenceType("Metallic")
	if assert.NotNil(t, metallic) {
		assert.Equal(t, "Metallic", *metallic)
	}

	// 幂等：清洗结果再清洗不变
	again := OccurrenceType(*got)
	if assert.NotNil(t, again) {
		assert.Equal(t, *got, *again)
	}
}

func TestSplitMulti(t *testing.T) {
	assert.Equal(t, []string{"gold", "copper"}, SplitMulti("gold, copper"))
	assert.Equal(t, []string{"gold", "copper"}, SplitMulti("gold,copper"))
	assert.Equal(t, []string{"gold", "copper"}, SplitMulti("gold and copper"))
	assert.Equal(t, []string{"gold", "copper"}, SplitMulti("gold AND copper"))
	assert.Equal(t, []string{"gold", "copper", "zinc"}, SplitMulti("gold, copper and zinc"))
	assert.Equal(t, []string{"gold"}, SplitMulti("gold"))
	assert.Nil(t, SplitMulti("   "))
}

func TestRegionValue(t *testing.T) {
	assert.Equal(t, "Riyadh", RegionValue("Riyadh"))
	assert.Equal(t, "Riyadh, Asir", RegionValue([]any{"Riyadh", "Asir"}))
	assert.Equal(t, "Riyadh", RegionValue([]any{"Riyadh", 7}))
	assert.Equal(t, "", RegionValue(12))
	assert.Equal(t, "", RegionValue(nil))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 5, ClampInt("abc", 1, 10, 5))
	assert.Equal(t, 1, ClampInt(0, 1, 10, 5))
	assert.Equal(t, 10, ClampInt(9999, 1, 10, 5))
	assert.Equal(t, 1, ClampInt(1, 1, 10, 5))
	assert.Equal(t, 10, ClampInt(10, 1, 10, 5))
	assert.Equal(t, 7, ClampInt("7", 1, 10, 5))
	assert.Equal(t, 7, ClampInt(7.9, 1, 10, 5))
	assert.Equal(t, 5, ClampInt(nil, 1, 10, 5))
}

func TestClampFloat(t *testing.T) {
	assert.Equal(t, 50.0, ClampFloat("not a number", 0.1, 1000, 50))
	assert.Equal(t, 0.1, ClampFloat(-3, 0.1, 1000, 50))
	assert.Equal(t, 1000.0, ClampFloat("99999", 0.1, 1000, 50))
	assert.Equal(t, 25.5, ClampFloat("25.5", 0.1, 1000, 50))
}

func TestValidateLatLon(t *testing.T) {
	la, lo := ValidateLatLon(24.7, 46.7)
	if assert.NotNil(t, la) && assert.NotNil(t, lo) {
		assert.Equal(t, 24.7, *la)
		assert.Equal(t, 46.7, *lo)
	}

	la, lo = ValidateLatLon("24.7", "46.7")
	assert.NotNil(t, la)
	assert.NotNil(t, lo)

	la, lo = ValidateLatLon(91, 0)
	assert.Nil(t, la)
	assert.Nil(t, lo)

	la, lo = ValidateLatLon(0, -181)
	assert.Nil(t, la)
	assert.Nil(t, lo)

	la, lo = ValidateLatLon("x", 10)
	assert.Nil(t, la)
	assert.Nil(t, lo)
}

func TestStripArabicDiacritics(t *testing.T) {
	// ذَهَب مع حركات → ذهب
	assert.Equal(t, "ذهب", StripArabicDiacritics("ذَهَبٌ"))
	assert.Equal(t, "ذهب", StripArabicDiacritics("ذـهـب"))
	// 幂等
	assert.Equal(t, "ذهب", StripArabicDiacritics(StripArabicDiacritics("ذَهَبٌ")))
	assert.Equal(t, "gold", StripArabicDiacritics("gold"))
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "show gold mines", NormalizeQuery("  Show   GOLD mines "))
	assert.Equal(t, NormalizeQuery("خريطة الذهب"), NormalizeQuery(NormalizeQuery("خريطة الذهب")))
}
