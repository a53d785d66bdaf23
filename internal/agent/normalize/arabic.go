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

import "strings"

// StripArabicDiacritics 去除阿拉伯语变音符号（harakat U+064B..U+0652）与
// 拉长符 tatweel（U+0640），否则带符号的查询词无法命中关键词表
func StripArabicDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x064B && r <= 0x0652 {
			continue
		}
		if r == 0x0640 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasArabic 判断字符串是否包含阿拉伯字符
func HasArabic(s string) bool {
	for _, r := range s {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}

// NormalizeQuery 统一查询文本：去阿拉伯变音符、小写、折叠空白
func NormalizeQuery(s string) string {
	s = StripArabicDiacritics(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
