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

package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

// LinkBuilder 构造 OGC API Features items 链接
type LinkBuilder struct {
	baseURL    string
	collection string
}

// NewLinkBuilder 创建链接构造器；空配置使用本地默认
func NewLinkBuilder(cfg config.OGCConfig) *LinkBuilder {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "http://127.0.0.1:8000"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "mods_occurrences"
	}
	return &LinkBuilder{baseURL: base, collection: collection}
}

// Collection 返回集合名
func (b *LinkBuilder) Collection() string {
	return b.collection
}

// ItemsURL 按过滤参数拼 items URL
func (b *LinkBuilder) ItemsURL(args map[string]any) string {
	var params []string
	for _, k := range []string{"commodity", "region", "occurrence_type", "exploration_status"} {
		if v := strArg(args, k); v != "" {
			params = append(params, k+"="+v)
		}
	}
	if v, ok := args["limit"]; ok {
		if n, okf := toInt(v); okf {
			params = append(params, "limit="+strconv.Itoa(n))
		}
	}
	if v, ok := args["offset"]; ok {
		if n, okf := toInt(v); okf {
			params = append(params, "offset="+strconv.Itoa(n))
		}
	}
	if bbox := bboxParam(args["bbox"]); bbox != "" {
		params = append(params, "bbox="+bbox)
	}
	url := fmt.Sprintf("%s/ogc/collections/%s/items", b.baseURL, b.collection)
	if len(params) > 0 {
		url += "?" + strings.Join(params, "&")
	}
	return url
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

// bboxParam bbox 参数既接受 [minLon,minLat,maxLon,maxLat] 也接受现成的字符串
func bboxParam(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) < 4 {
			return ""
		}
		parts := make([]string, 0, 4)
		for _, item := range t[:4] {
			f, ok := item.(float64)
			if !ok {
				return ""
			}
			parts = append(parts, strconv.FormatFloat(f, 'f', -1, 64))
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// NewOGCItemsLinkTool OGC items 链接
func NewOGCItemsLinkTool(builder *LinkBuilder) Tool {
	return newFuncTool("ogc_items_link",
		"Ready-to-use OGC API Features items URL for QGIS or any OGC client.",
		"ogc_items_url",
		map[string]any{
			"bbox":      "[minLon,minLat,maxLon,maxLat] or str?",
			"commodity": "str?", "region": "str?", "occurrence_type": "str?", "exploration_status": "str?",
			"limit": "int?", "offset": "int?",
		},
		func(_ context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			url := builder.ItemsURL(args)
			return &Result{
				Artifacts: map[string]any{"ogc_items_url": url},
				Summary:   "ogc_items_link built " + url,
			}, nil
		})
}

// NewPublishInstructionsTool QGIS 加载说明
func NewPublishInstructionsTool(builder *LinkBuilder) Tool {
	return newFuncTool("publish_layer_instructions",
		"Step-by-step instructions for adding the occurrences layer to QGIS.",
		"qgis_instructions",
		map[string]any{"ogc_items_url": "str?"},
		func(_ context.Context, _ *session.Session, args map[string]any) (*Result, error) {
			url := strArg(args, "ogc_items_url")
			if url == "" {
				url = builder.ItemsURL(map[string]any{})
			}
			instructions := "QGIS (OGC API Features) quick add:\n" +
				"1) Open QGIS -> Data Source Manager\n" +
				"2) Find 'OGC API - Features'\n" +
				fmt.Sprintf("3) New connection -> URL: %s\n", url) +
				fmt.Sprintf("4) Connect -> choose '%s' -> Add\n", builder.Collection())
			return &Result{
				Artifacts: map[string]any{"qgis_instructions": instructions},
				Summary:   fmt.Sprintf("publish_layer_instructions generated %d chars", len(instructions)),
			}, nil
		})
}
