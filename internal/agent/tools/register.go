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
	"github.com/salsama1/twuiq-proj/internal/rag"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

// RegisterBuiltin 注册全部内置工具；spatial/raster/ragSvc 为 nil 时跳过对应工具
func RegisterBuiltin(reg *Registry, store occurrence.Store, spatial occurrence.SpatialStore, raster occurrence.RasterStore, ragSvc *rag.Service, ogcCfg config.OGCConfig) {
	reg.Register(NewSearchTool(store))
	reg.Register(NewNearbyTool(store))
	reg.Register(NewBBoxTool(store))
	reg.Register(NewNearestTool(store))
	reg.Register(NewGeoJSONExportTool(store))
	reg.Register(NewCSVExportTool(store))
	reg.Register(NewStatsByRegionTool(store))
	reg.Register(NewCommodityStatsTool(store))
	reg.Register(NewImportanceBreakdownTool(store))
	reg.Register(NewHeatmapBinsTool(store))
	reg.Register(NewQCSummaryTool(store))
	reg.Register(NewQCDuplicateModsIDsTool(store))
	reg.Register(NewQCDuplicateCoordsTool(store))
	reg.Register(NewQCOutliersTool(store))

	builder := NewLinkBuilder(ogcCfg)
	reg.Register(NewOGCItemsLinkTool(builder))
	reg.Register(NewPublishInstructionsTool(builder))

	if spatial != nil {
		reg.Register(NewSpatialQueryTool(store, spatial))
		reg.Register(NewSpatialBufferTool(spatial))
		reg.Register(NewSpatialNearestTool(spatial))
		reg.Register(NewSpatialOverlayTool(spatial))
		reg.Register(NewSpatialDissolveTool(spatial))
		reg.Register(NewSpatialJoinCountsTool(spatial))
		reg.Register(NewSpatialJoinNearestTool(spatial))
	}
	if raster != nil {
		reg.Register(NewZonalStatsTool(raster))
	}
	if ragSvc != nil {
		reg.Register(NewRAGTool(ragSvc))
	}
}
