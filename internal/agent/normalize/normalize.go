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

// Package normalize 提供工具参数的容错清洗：LLM 产出的参数形态不可信，
// 这里统一做占位值剔除、数值钳制与坐标校验，全部函数不返回错误。
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// 占位值集合：LLM 常把 "all"/"any" 之类当作 exploration_status 传入
var placeholderValues = map[string]struct{}{
	"occurrence":  {},
	"occurrences": {},
	"all":         {},
	"any":         {},
	"none":        {},
	"null":        {},
	"":            {},
}

// OccurrenceType 清洗 exploration_status 类参数，占位值返回 nil。
// 占位判断不区分大小写，但保留入参原有大小写（库里按原样存储）
func OccurrenceType(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if _, ok := placeholderValues[strings.ToLower(s)]; ok {
		return nil
	}
	return &s
}

var multiSep = regexp.MustCompile(`(?i),\s*|\s+and\s+`)

// SplitMulti 拆分多值字符串，分隔符为逗号（后随空白可选）与不区分大小写的 " and "
func SplitMulti(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range multiSep.Split(s, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RegionValue 把 region 参数统一为字符串：列表形态 join 为 ", "
func RegionValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var parts []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return ""
	}
}

// ClampInt 容错解析整数并钳制在 [lo, hi]，解析失败返回 def 再钳制
func ClampInt(v any, lo, hi, def int) int {
	n := def
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		n = int(t)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			n = parsed
		} else if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			n = int(f)
		}
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// ClampFloat 容错解析浮点数并钳制在 [lo, hi]，解析失败返回 def 再钳制
func ClampFloat(v any, lo, hi, def float64) float64 {
	f := def
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			f = parsed
		}
	}
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// ValidateLatLon 校验坐标对：两者都可解析且在 ±90/±180 内才返回，否则双 nil
func ValidateLatLon(lat, lon any) (*float64, *float64) {
	la, ok1 := toFloat(lat)
	lo, ok2 := toFloat(lon)
	if !ok1 || !ok2 {
		return nil, nil
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, nil
	}
	return &la, &lo
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
