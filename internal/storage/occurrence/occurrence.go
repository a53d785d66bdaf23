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

// Package occurrence 定义矿点数据模型与存储接口（MODS 数据集）
package occurrence

// Occurrence 单条矿点记录
type Occurrence struct {
	ID                int64    `json:"id"`
	ModsID            string   `json:"mods_id"`
	EnglishName       string   `json:"english_name"`
	ArabicName        string   `json:"arabic_name"`
	MajorCommodity    string   `json:"major_commodity"`
	AdminRegion       string   `json:"admin_region"`
	OccurrenceType    string   `json:"occurrence_type"`
	ExplorationStatus string   `json:"exploration_status"`
	Importance        string   `json:"occurrence_importance"`
	Elevation         *float64 `json:"elevation,omitempty"`
	Longitude         *float64 `json:"longitude"`
	Latitude          *float64 `json:"latitude"`
}

// Near 带距离的矿点（米）
type Near struct {
	DistanceM  *float64   `json:"distance_m"`
	Occurrence Occurrence `json:"occurrence"`
}

// Filter 属性过滤条件；字符串匹配为大小写不敏感的子串匹配
type Filter struct {
	Commodity         string
	Regions           []string // 多区域 OR
	OccurrenceType    *string  // 已经过 normalize.OccurrenceType 清洗
	ExplorationStatus string
	Limit             int
	Offset            int
}

// RegionCount 按行政区计数
type RegionCount struct {
	AdminRegion string `json:"admin_region"`
	Count       int    `json:"count"`
}

// CommodityCount 按矿种计数
type CommodityCount struct {
	MajorCommodity string `json:"major_commodity"`
	Count          int    `json:"count"`
}

// ImportanceCount 按重要性计数
type ImportanceCount struct {
	Importance string `json:"occurrence_importance"`
	Count      int    `json:"count"`
}

// HeatBin 空间密度格网单元，lon/lat 为格网左下角
type HeatBin struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Count int     `json:"count"`
}

// QCSummary 数据质量概览
type QCSummary struct {
	TotalRows             int `json:"total_rows"`
	NullLatitudeRows      int `json:"null_latitude_rows"`
	NullLongitudeRows     int `json:"null_longitude_rows"`
	ZeroCoordRows         int `json:"zero_coord_rows"`
	OutOfRangeRows        int `json:"out_of_range_rows"`
	MissingGeomRows       int `json:"missing_geom_rows"`
	DuplicateModsIDGroups int `json:"duplicate_mods_id_groups"`
	DuplicateCoordGroups  int `json:"duplicate_coord_groups"`
}

// DupModsID mods_id 重复组
type DupModsID struct {
	ModsID string `json:"mods_id"`
	Count  int    `json:"count"`
}

// DupCoord 坐标重复组
type DupCoord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int     `json:"count"`
}

// OutlierRow 异常坐标样本
type OutlierRow struct {
	ID          int64    `json:"id"`
	ModsID      string   `json:"mods_id"`
	EnglishName string   `json:"english_name"`
	AdminRegion string   `json:"admin_region"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Reason      string   `json:"reason"` // invalid_coords | outside_expected_bbox
}

// BBox 经纬度范围
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// OutlierReport 异常坐标报告
type OutlierReport struct {
	InvalidCount     int          `json:"invalid_coords"`
	OutsideBBoxCount *int         `json:"outside_expected_bbox"`
	ExpectedBBox     *BBox        `json:"expected_bbox,omitempty"`
	Sample           []OutlierRow `json:"sample"`
}

// JoinNearestRow 面要素到最近矿点的连接结果
type JoinNearestRow struct {
	FeatureID any         `json:"feature_id"`
	DistanceM *float64    `json:"distance_m"`
	Nearest   *Occurrence `json:"nearest"`
}

// ZonalStats 栅格分区统计
type ZonalStats struct {
	Count int      `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
}
