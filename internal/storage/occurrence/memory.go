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

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryStore 内存实现，供测试与本地开发；并发安全
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Occurrence
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(rows []Occurrence) *MemoryStore {
	return &MemoryStore{rows: rows}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (m *MemoryStore) match(o Occurrence, f Filter) bool {
	if f.Commodity != "" && !containsFold(o.MajorCommodity, f.Commodity) {
		return false
	}
	if len(f.Regions) > 0 {
		hit := false
		for _, r := range f.Regions {
			if containsFold(o.AdminRegion, r) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.OccurrenceType != nil && *f.OccurrenceType != "" && !containsFold(o.OccurrenceType, *f.OccurrenceType) {
		return false
	}
	if f.ExplorationStatus != "" && !containsFold(o.ExplorationStatus, f.ExplorationStatus) {
		return false
	}
	return true
}

func (m *MemoryStore) filtered(f Filter) []Occurrence {
	var out []Occurrence
	for _, o := range m.rows {
		if m.match(o, f) {
			out = append(out, o)
		}
	}
	return out
}

func capSlice[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

func (m *MemoryStore) Search(ctx context.Context, f Filter) ([]Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return capSlice(m.filtered(f), f.Offset, f.Limit), nil
}

// haversineM 两点球面距离（米）
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371000.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * r * math.Asin(math.Sqrt(a))
}

func (m *MemoryStore) Nearby(ctx context.Context, lat, lon, radiusKM float64, f Filter) ([]Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Occurrence
	for _, o := range m.filtered(f) {
		if o.Latitude == nil || o.Longitude == nil {
			continue
		}
		if haversineM(lat, lon, *o.Latitude, *o.Longitude) <= radiusKM*1000 {
			out = append(out, o)
		}
	}
	return capSlice(out, 0, f.Limit), nil
}

func (m *MemoryStore) BBox(ctx context.Context, box BBox, f Filter) ([]Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Occurrence
	for _, o := range m.filtered(f) {
		if o.Latitude == nil || o.Longitude == nil {
			continue
		}
		if *o.Latitude >= box.MinLat && *o.Latitude <= box.MaxLat &&
			*o.Longitude >= box.MinLon && *o.Longitude <= box.MaxLon {
			out = append(out, o)
		}
	}
	return capSlice(out, 0, f.Limit), nil
}

func (m *MemoryStore) Nearest(ctx context.Context, lat, lon float64, f Filter) ([]Near, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Near
	for _, o := range m.filtered(f) {
		if o.Latitude == nil || o.Longitude == nil {
			continue
		}
		d := haversineM(lat, lon, *o.Latitude, *o.Longitude)
		out = append(out, Near{DistanceM: &d, Occurrence: o})
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].DistanceM < *out[j].DistanceM })
	return capSlice(out, 0, f.Limit), nil
}

func (m *MemoryStore) Regions(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, o := range m.rows {
		if o.AdminRegion == "" {
			continue
		}
		if _, ok := seen[o.AdminRegion]; ok {
			continue
		}
		seen[o.AdminRegion] = struct{}{}
		out = append(out, o.AdminRegion)
	}
	sort.Strings(out)
	return out, nil
}

func countsDesc[K comparable](counts map[K]int) []K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	return keys
}

func (m *MemoryStore) StatsByRegion(ctx context.Context, f Filter) ([]RegionCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{}
	for _, o := range m.filtered(f) {
		counts[o.AdminRegion]++
	}
	var out []RegionCount
	for _, k := range countsDesc(counts) {
		out = append(out, RegionCount{AdminRegion: k, Count: counts[k]})
	}
	return capSlice(out, 0, f.Limit), nil
}

func (m *MemoryStore) CommodityStats(ctx context.Context, f Filter) ([]CommodityCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{}
	for _, o := range m.filtered(f) {
		counts[o.MajorCommodity]++
	}
	var out []CommodityCount
	for _, k := range countsDesc(counts) {
		out = append(out, CommodityCount{MajorCommodity: k, Count: counts[k]})
	}
	return capSlice(out, 0, f.Limit), nil
}

func (m *MemoryStore) ImportanceBreakdown(ctx context.Context, f Filter) ([]ImportanceCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{}
	for _, o := range m.filtered(f) {
		counts[o.Importance]++
	}
	var out []ImportanceCount
	for _, k := range countsDesc(counts) {
		out = append(out, ImportanceCount{Importance: k, Count: counts[k]})
	}
	return capSlice(out, 0, f.Limit), nil
}

func (m *MemoryStore) HeatmapBins(ctx context.Context, binDeg float64, limit int, f Filter) ([]HeatBin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type cell struct{ lon, lat float64 }
	counts := map[cell]int{}
	for _, o := range m.filtered(f) {
		if o.Latitude == nil || o.Longitude == nil {
			continue
		}
		c := cell{
			lon: math.Floor(*o.Longitude/binDeg) * binDeg,
			lat: math.Floor(*o.Latitude/binDeg) * binDeg,
		}
		counts[c]++
	}
	var out []HeatBin
	for _, k := range countsDesc(counts) {
		out = append(out, HeatBin{Lon: k.lon, Lat: k.lat, Count: counts[k]})
	}
	return capSlice(out, 0, limit), nil
}

func (m *MemoryStore) QCSummary(ctx context.Context) (*QCSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := &QCSummary{TotalRows: len(m.rows)}
	modsCounts := map[string]int{}
	type coord struct{ lat, lon float64 }
	coordCounts := map[coord]int{}
	for _, o := range m.rows {
		if o.Latitude == nil {
			q.NullLatitudeRows++
		}
		if o.Longitude == nil {
			q.NullLongitudeRows++
		}
		if o.Latitude != nil && o.Longitude != nil {
			if *o.Latitude == 0 && *o.Longitude == 0 {
				q.ZeroCoordRows++
			}
			if math.Abs(*o.Latitude) > 90 || math.Abs(*o.Longitude) > 180 {
				q.OutOfRangeRows++
			}
			coordCounts[coord{*o.Latitude, *o.Longitude}]++
		} else {
			q.MissingGeomRows++
		}
		if o.ModsID != "" {
			modsCounts[o.ModsID]++
		}
	}
	for _, c := range modsCounts {
		if c > 1 {
			q.DuplicateModsIDGroups++
		}
	}
	for _, c := range coordCounts {
		if c > 1 {
			q.DuplicateCoordGroups++
		}
	}
	return q, nil
}

func (m *MemoryStore) DuplicateModsIDs(ctx context.Context, limit int) ([]DupModsID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{}
	for _, o := range m.rows {
		if o.ModsID != "" {
			counts[o.ModsID]++
		}
	}
	for k, c := range counts {
		if c <= 1 {
			delete(counts, k)
		}
	}
	var out []DupModsID
	for _, k := range countsDesc(counts) {
		out = append(out, DupModsID{ModsID: k, Count: counts[k]})
	}
	return capSlice(out, 0, limit), nil
}

func (m *MemoryStore) DuplicateCoords(ctx context.Context, limit int) ([]DupCoord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type coord struct{ lat, lon float64 }
	counts := map[coord]int{}
	for _, o := range m.rows {
		if o.Latitude != nil && o.Longitude != nil {
			counts[coord{*o.Latitude, *o.Longitude}]++
		}
	}
	for k, c := range counts {
		if c <= 1 {
			delete(counts, k)
		}
	}
	var out []DupCoord
	for _, k := range countsDesc(counts) {
		out = append(out, DupCoord{Latitude: k.lat, Longitude: k.lon, Count: counts[k]})
	}
	return capSlice(out, 0, limit), nil
}

func (m *MemoryStore) Outliers(ctx context.Context, limit int, expected *BBox) (*OutlierReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep := &OutlierReport{}
	invalid := func(o Occurrence) bool {
		if o.Latitude == nil || o.Longitude == nil {
			return true
		}
		if *o.Latitude == 0 && *o.Longitude == 0 {
			return true
		}
		return math.Abs(*o.Latitude) > 90 || math.Abs(*o.Longitude) > 180
	}
	for _, o := range m.rows {
		if invalid(o) {
			rep.InvalidCount++
			if len(rep.Sample) < limit {
				rep.Sample = append(rep.Sample, OutlierRow{
					ID: o.ID, ModsID: o.ModsID, EnglishName: o.EnglishName,
					AdminRegion: o.AdminRegion, Latitude: o.Latitude, Longitude: o.Longitude,
					Reason: "invalid_coords",
				})
			}
		}
	}
	if expected != nil {
		rep.ExpectedBBox = expected
		outside := 0
		for _, o := range m.rows {
			if o.Latitude == nil || o.Longitude == nil {
				continue
			}
			inside := *o.Longitude >= expected.MinLon && *o.Longitude <= expected.MaxLon &&
				*o.Latitude >= expected.MinLat && *o.Latitude <= expected.MaxLat
			if inside {
				continue
			}
			outside++
			if len(rep.Sample) < limit {
				rep.Sample = append(rep.Sample, OutlierRow{
					ID: o.ID, ModsID: o.ModsID, EnglishName: o.EnglishName,
					AdminRegion: o.AdminRegion, Latitude: o.Latitude, Longitude: o.Longitude,
					Reason: "outside_expected_bbox",
				})
			}
		}
		rep.OutsideBBoxCount = &outside
	}
	return rep, nil
}
