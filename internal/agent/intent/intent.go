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

// Package intent 把用户话语分到粗粒度意图桶，供前端决定渲染面板。
// 先走关键词快速通道（零 LLM 开销），兜不住的再问一次模型。
package intent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/salsama1/twuiq-proj/internal/agent"
	"github.com/salsama1/twuiq-proj/internal/agent/normalize"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
)

// Type 意图类别
type Type string

const (
	General     Type = "general"
	SQLQuery    Type = "sql_query"
	Visualize2D Type = "visualize_2d"
	Visualize3D Type = "visualize_3d"
	Export      Type = "export"
	Analyze     Type = "analyze"
)

var validTypes = map[Type]struct{}{
	General:     {},
	SQLQuery:    {},
	Visualize2D: {},
	Visualize3D: {},
	Export:      {},
	Analyze:     {},
}

// Classification 分类结果；Source 为 keyword/llm/fallback
type Classification struct {
	Intent     Type    `json:"intent"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

var (
	// 单词按词边界匹配，短语按子串匹配，避免 "which" 误触 "hi"
	greetingWords   = []string{"hello", "hi", "hey", "help", "مرحبا", "السلام"}
	greetingPhrases = []string{"what can you do"}

	arabicMapWords = []string{"خريطة", "على الخريطة", "اعرض على", "ارسم"}

	arabicDataWords = []string{
		"نقاط", "مواقع", "تواجد", "السعود", "المملكة",
		"ذهب", "نحاس", "فضة", "حديد", "فوسفات",
		"اظهر", "اعرض", "جميع", "كل",
	}

	threeDWords  = []string{"3d", "cesium", "terrain", "globe"}
	mapWords     = []string{"map", "show on map", "plot", "visualize", "visualise"}
	exportWords  = []string{"export", "download", "shapefile", "geojson", "csv", "shp"}
	analyzeWords = []string{
		"analyze", "analyse", "cluster", "pattern", "statistics",
		"correlation", "buffer", "density", "distribution",
	}
)

// Classifier 意图分类器；guard 可为 nil，此时只有关键词通道
type Classifier struct {
	guard *llm.Guard
}

func NewClassifier(guard *llm.Guard) *Classifier {
	return &Classifier{guard: guard}
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func isGreeting(q string) bool {
	if containsAny(q, greetingPhrases) {
		return true
	}
	for _, field := range strings.Fields(q) {
		for _, g := range greetingWords {
			if field == g {
				return true
			}
		}
	}
	return false
}

// Quick 关键词快速分类，未命中返回 nil
func (c *Classifier) Quick(query string) *Classification {
	q := normalize.NormalizeQuery(query)
	hit := func(t Type, conf float64) *Classification {
		return &Classification{Intent: t, Confidence: conf, Source: "keyword"}
	}
	if isGreeting(q) || utf8.RuneCountInString(q) < 10 {
		return hit(General, 0.9)
	}
	if containsAny(q, arabicMapWords) {
		return hit(Visualize2D, 0.9)
	}
	if containsAny(q, arabicDataWords) {
		return hit(SQLQuery, 0.85)
	}
	if containsAny(q, threeDWords) {
		return hit(Visualize3D, 0.9)
	}
	if containsAny(q, mapWords) {
		return hit(Visualize2D, 0.85)
	}
	if containsAny(q, exportWords) {
		return hit(Export, 0.85)
	}
	if containsAny(q, analyzeWords) {
		return hit(Analyze, 0.85)
	}
	return nil
}

const classifyPrompt = `Classify the user's request about a mineral-occurrence database into exactly one intent:
general, sql_query, visualize_2d, visualize_3d, export, analyze.
Reply with JSON only: {"intent": "<one of the above>", "confidence": <0..1>}.
User request: %s`

// Classify 先走关键词，未命中再问一次 LLM；模型不可用或回复
// 无法解析时退回 sql_query
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	if hit := c.Quick(query); hit != nil {
		return *hit
	}
	fallback := Classification{Intent: SQLQuery, Confidence: 0.7, Source: "fallback"}
	if c.guard == nil || !c.guard.Available() {
		return fallback
	}
	reply := c.guard.Generate(ctx, fmt.Sprintf(classifyPrompt, query))
	if llm.IsSentinel(reply) {
		return fallback
	}
	obj := agent.ExtractJSONObject(reply)
	if obj == nil {
		return fallback
	}
	name, _ := obj["intent"].(string)
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := validTypes[t]; !ok {
		return fallback
	}
	conf := 0.7
	if v, ok := obj["confidence"].(float64); ok && v > 0 && v <= 1 {
		conf = v
	}
	return Classification{Intent: t, Confidence: conf, Source: "llm"}
}
