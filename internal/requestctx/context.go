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

package requestctx

import (
	"context"
)

type contextKey string

const (
	requestIDKey contextKey = "request.id"
	geometryKey  contextKey = "request.uploaded_geometry"
)

// WithRequestID 将请求 ID 注入 context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 从 context 获取请求 ID
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUploadedGeometry 将本次请求随附的 GeoJSON 几何注入 context
func WithUploadedGeometry(ctx context.Context, geojson string) context.Context {
	return context.WithValue(ctx, geometryKey, geojson)
}

// UploadedGeometry 从 context 获取随附几何，未上传返回空串
func UploadedGeometry(ctx context.Context) string {
	if v, ok := ctx.Value(geometryKey).(string); ok {
		return v
	}
	return ""
}
