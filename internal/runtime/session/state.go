package session

import (
	"time"
)

// ToolCallRecord 单次工具调用记录
type ToolCallRecord struct {
	Tool   string         `json:"tool"`
	Input  map[string]any `json:"input,omitempty"`
	Output string         `json:"output"`
	Err    string         `json:"error,omitempty"`
	At     time.Time      `json:"at"`
}

// State 的键约定
const (
	// StateKeyUploadedGeometry 上传的 AOI GeoJSON geometry（map 形态）
	StateKeyUploadedGeometry = "uploaded_geometry"
	// StateKeyUploadedFC 上传的 GeoJSON FeatureCollection（map 形态）
	StateKeyUploadedFC = "uploaded_feature_collection"
)
