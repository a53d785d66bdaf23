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

package occurrence

import "context"

// Store 属性查询与统计
type Store interface {
	// Search 按属性过滤
	Search(ctx context.Context, f Filter) ([]Occurrence, error)

	// Nearby 半径查询（公里），距离基于 geography
	Nearby(ctx context.Context, lat, lon, radiusKM float64, f Filter) ([]Occurrence, error)

	// BBox 经纬度范围查询（数值列，非 PostGIS）
	BBox(ctx context.Context, box BBox, f Filter) ([]Occurrence, error)

	// Nearest 按距离升序返回最近矿点
	Nearest(ctx context.Context, lat, lon float64, f Filter) ([]Near, error)

	// Regions 返回去重后的行政区名列表（供关键词推断）
	Regions(ctx context.Context) ([]string, error)

	// StatsByRegion 按行政区计数，降序
	StatsByRegion(ctx context.Context, f Filter) ([]RegionCount, error)

	// CommodityStats 按矿种计数，降序
	CommodityStats(ctx context.Context, f Filter) ([]CommodityCount, error)

	// ImportanceBreakdown 按重要性计数，降序
	ImportanceBreakdown(ctx context.Context, f Filter) ([]ImportanceCount, error)

	// HeatmapBins 固定格网密度统计；binDeg 为格网边长（度）
	HeatmapBins(ctx context.Context, binDeg float64, limit int, f Filter) ([]HeatBin, error)

	// QCSummary 数据质量概览
	QCSummary(ctx context.Context) (*QCSummary, error)

	// DuplicateModsIDs mods_id 重复组，按组内数量降序
	DuplicateModsIDs(ctx context.Context, limit int) ([]DupModsID, error)

	// DuplicateCoords 坐标重复组，按组内数量降序
	DuplicateCoords(ctx context.Context, limit int) ([]DupCoord, error)

	// Outliers 异常坐标报告；expected 为 nil 时只查非法坐标
	Outliers(ctx context.Context, limit int, expected *BBox) (*OutlierReport, error)
}

// SpatialStore PostGIS 空间运算
type SpatialStore interface {
	// SpatialQuery intersects / dwithin（米，3857 投影）过滤，返回总数与命中行
	SpatialQuery(ctx context.Context, geomJSON, predicate string, distanceM float64, f Filter) (int, []Occurrence, error)

	// Buffer 对输入几何做缓冲（米），返回 4326 GeoJSON geometry
	Buffer(ctx context.Context, geomJSON string, distanceM float64) (string, error)

	// SpatialNearest 距输入几何最近的矿点
	SpatialNearest(ctx context.Context, geomJSON string, f Filter) ([]Near, error)

	// Overlay 两几何叠加：union | intersection | difference | symmetric_difference
	Overlay(ctx context.Context, op, aJSON, bJSON string) (string, error)

	// UnionAll 多几何合并（dissolve 的分组合并步骤）
	UnionAll(ctx context.Context, geomJSONs []string) (string, error)

	// CountInGeometry 几何内矿点计数；predicate 为 intersects 或 contains
	CountInGeometry(ctx context.Context, geomJSON, predicate string) (int, error)

	// NearestToGeometry 距几何最近的一个矿点
	NearestToGeometry(ctx context.Context, geomJSON string) (*Near, error)
}

// RasterStore 栅格分区统计（PostGIS raster）
type RasterStore interface {
	// ZonalStats 对 rasterID 对应栅格在给定几何内做 band 波段统计
	ZonalStats(ctx context.Context, rasterID string, geomJSON string, band int) (*ZonalStats, error)
}
