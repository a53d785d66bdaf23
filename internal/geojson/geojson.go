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

// Package geojson 提供最小的 GeoJSON 容器；几何体保持原始 JSON，
// 空间运算全部交给 PostGIS。
package geojson

import (
	"encoding/json"
	"fmt"
)

// Feature GeoJSON 要素
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties,omitempty"`
}

// FeatureCollection GeoJSON 要素集合
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection 创建空集合
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// Add 追加要素
func (fc *FeatureCollection) Add(geometry json.RawMessage, props map[string]any) {
	fc.Features = append(fc.Features, Feature{Type: "Feature", Geometry: geometry, Properties: props})
}

// PointGeometry 构造点几何
func PointGeometry(lon, lat float64) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"type":        "Point",
		"coordinates": []float64{lon, lat},
	})
	return raw
}

// ParseFeatureCollection 解析并校验 FeatureCollection
func ParseFeatureCollection(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	return &fc, nil
}

// GeometryJSON 把任意入参（map、RawMessage、字符串）规整为几何 JSON 文本
func GeometryJSON(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("geometry required")
	case string:
		if t == "" {
			return "", fmt.Errorf("geometry required")
		}
		if !json.Valid([]byte(t)) {
			return "", fmt.Errorf("invalid geometry JSON")
		}
		return t, nil
	case json.RawMessage:
		if len(t) == 0 {
			return "", fmt.Errorf("geometry required")
		}
		return string(t), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal geometry: %w", err)
		}
		return string(raw), nil
	}
}
