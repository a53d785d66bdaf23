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
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "github.com/salsama1/twuiq-proj/pkg/errors"
)

// PGStore PostGIS 存储；同时实现 Store / SpatialStore / RasterStore
type PGStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGStore 创建 PostGIS 存储，table 为空使用 mods_occurrences
func NewPGStore(ctx context.Context, dsn, table string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if table == "" {
		table = "mods_occurrences"
	}
	return &PGStore{pool: pool, table: table}, nil
}

// Close 关闭连接池
func (s *PGStore) Close() {
	s.pool.Close()
}

const occurrenceCols = `id, COALESCE(mods_id,''), COALESCE(english_name,''), COALESCE(arabic_name,''),
 COALESCE(major_commodity,''), COALESCE(admin_region,''), COALESCE(occurrence_type,''),
 COALESCE(exploration_status,''), COALESCE(occurrence_importance,''), elevation, longitude, latitude`

// filterSQL 把 Filter 转成 WHERE 片段；匹配统一为 ILIKE 子串
func filterSQL(f Filter, args *[]any) []string {
	var conds []string
	add := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}
	if f.Commodity != "" {
		conds = append(conds, fmt.Sprintf("major_commodity ILIKE %s", add("%"+f.Commodity+"%")))
	}
	if len(f.Regions) > 0 {
		var ors []string
		for _, r := range f.Regions {
			ors = append(ors, fmt.Sprintf("admin_region ILIKE %s", add("%"+r+"%")))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if f.OccurrenceType != nil && *f.OccurrenceType != "" {
		conds = append(conds, fmt.Sprintf("occurrence_type ILIKE %s", add("%"+*f.OccurrenceType+"%")))
	}
	if f.ExplorationStatus != "" {
		conds = append(conds, fmt.Sprintf("exploration_status ILIKE %s", add("%"+f.ExplorationStatus+"%")))
	}
	return conds
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func scanOccurrence(row pgx.Rows) (Occurrence, error) {
	var o Occurrence
	err := row.Scan(&o.ID, &o.ModsID, &o.EnglishName, &o.ArabicName,
		&o.MajorCommodity, &o.AdminRegion, &o.OccurrenceType,
		&o.ExplorationStatus, &o.Importance, &o.Elevation, &o.Longitude, &o.Latitude)
	return o, err
}

func (s *PGStore) queryOccurrences(ctx context.Context, sql string, args []any) ([]Occurrence, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PGStore) Search(ctx context.Context, f Filter) ([]Occurrence, error) {
	var args []any
	conds := filterSQL(f, &args)
	sql := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d OFFSET %d",
		occurrenceCols, s.table, whereClause(conds), f.Limit, f.Offset)
	return s.queryOccurrences(ctx, sql, args)
}

func (s *PGStore) Nearby(ctx context.Context, lat, lon, radiusKM float64, f Filter) ([]Occurrence, error) {
	var args []any
	conds := filterSQL(f, &args)
	args = append(args, lon, lat, radiusKM*1000.0)
	n := len(args)
	conds = append(conds, fmt.Sprintf(
		"ST_DWithin(geom, ST_SetSRID(ST_MakePoint($%d,$%d),4326)::geography, $%d)", n-2, n-1, n))
	sql := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d",
		occurrenceCols, s.table, whereClause(conds), f.Limit)
	return s.queryOccurrences(ctx, sql, args)
}

func (s *PGStore) BBox(ctx context.Context, box BBox, f Filter) ([]Occurrence, error) {
	var args []any
	conds := filterSQL(f, &args)
	args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	n := len(args)
	conds = append(conds, fmt.Sprintf(
		"latitude >= $%d AND latitude <= $%d AND longitude >= $%d AND longitude <= $%d",
		n-3, n-2, n-1, n))
	sql := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d",
		occurrenceCols, s.table, whereClause(conds), f.Limit)
	return s.queryOccurrences(ctx, sql, args)
}

func (s *PGStore) Nearest(ctx context.Context, lat, lon float64, f Filter) ([]Near, error) {
	var args []any
	conds := filterSQL(f, &args)
	args = append(args, lon, lat)
	n := len(args)
	dist := fmt.Sprintf("ST_Distance(geom, ST_SetSRID(ST_MakePoint($%d,$%d),4326)::geography)", n-1, n)
	sql := fmt.Sprintf("SELECT %s, %s AS distance_m FROM %s%s ORDER BY distance_m ASC LIMIT %d",
		occurrenceCols, dist, s.table, whereClause(conds), f.Limit)
	return s.queryNear(ctx, sql, args)
}

func (s *PGStore) queryNear(ctx context.Context, sql string, args []any) ([]Near, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Near
	for rows.Next() {
		var o Occurrence
		var d *float64
		err := rows.Scan(&o.ID, &o.ModsID, &o.EnglishName, &o.ArabicName,
			&o.MajorCommodity, &o.AdminRegion, &o.OccurrenceType,
			&o.ExplorationStatus, &o.Importance, &o.Elevation, &o.Longitude, &o.Latitude, &d)
		if err != nil {
			return nil, err
		}
		out = append(out, Near{DistanceM: d, Occurrence: o})
	}
	return out, rows.Err()
}

func (s *PGStore) Regions(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf(
		"SELECT DISTINCT admin_region FROM %s WHERE admin_region IS NOT NULL AND admin_region <> '' ORDER BY admin_region",
		s.table)
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) StatsByRegion(ctx context.Context, f Filter) ([]RegionCount, error) {
	var args []any
	conds := filterSQL(f, &args)
	sql := fmt.Sprintf(
		"SELECT COALESCE(admin_region,''), COUNT(id) AS cnt FROM %s%s GROUP BY admin_region ORDER BY cnt DESC LIMIT %d",
		s.table, whereClause(conds), f.Limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegionCount
	for rows.Next() {
		var rc RegionCount
		if err := rows.Scan(&rc.AdminRegion, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *PGStore) CommodityStats(ctx context.Context, f Filter) ([]CommodityCount, error) {
	var args []any
	conds := filterSQL(f, &args)
	sql := fmt.Sprintf(
		"SELECT COALESCE(major_commodity,''), COUNT(id) AS cnt FROM %s%s GROUP BY major_commodity ORDER BY cnt DESC LIMIT %d",
		s.table, whereClause(conds), f.Limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommodityCount
	for rows.Next() {
		var cc CommodityCount
		if err := rows.Scan(&cc.MajorCommodity, &cc.Count); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (s *PGStore) ImportanceBreakdown(ctx context.Context, f Filter) ([]ImportanceCount, error) {
	var args []any
	conds := filterSQL(f, &args)
	sql := fmt.Sprintf(
		"SELECT COALESCE(occurrence_importance,''), COUNT(id) AS cnt FROM %s%s GROUP BY occurrence_importance ORDER BY cnt DESC LIMIT %d",
		s.table, whereClause(conds), f.Limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportanceCount
	for rows.Next() {
		var ic ImportanceCount
		if err := rows.Scan(&ic.Importance, &ic.Count); err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

func (s *PGStore) HeatmapBins(ctx context.Context, binDeg float64, limit int, f Filter) ([]HeatBin, error) {
	var args []any
	conds := filterSQL(f, &args)
	conds = append(conds, "longitude IS NOT NULL AND latitude IS NOT NULL")
	args = append(args, binDeg)
	n := len(args)
	sql := fmt.Sprintf(
		`SELECT floor(longitude/$%d)*$%d AS lon_bin, floor(latitude/$%d)*$%d AS lat_bin, COUNT(id) AS cnt
		 FROM %s%s GROUP BY lon_bin, lat_bin ORDER BY cnt DESC LIMIT %d`,
		n, n, n, n, s.table, whereClause(conds), limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HeatBin
	for rows.Next() {
		var hb HeatBin
		if err := rows.Scan(&hb.Lon, &hb.Lat, &hb.Count); err != nil {
			return nil, err
		}
		out = append(out, hb)
	}
	return out, rows.Err()
}

func (s *PGStore) QCSummary(ctx context.Context) (*QCSummary, error) {
	sql := fmt.Sprintf(`SELECT
 COUNT(id),
 COUNT(id) FILTER (WHERE latitude IS NULL),
 COUNT(id) FILTER (WHERE longitude IS NULL),
 COUNT(id) FILTER (WHERE latitude = 0 AND longitude = 0),
 COUNT(id) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL AND (abs(latitude) > 90 OR abs(longitude) > 180)),
 COUNT(id) FILTER (WHERE geom IS NULL),
 (SELECT COUNT(*) FROM (SELECT mods_id FROM %[1]s WHERE mods_id IS NOT NULL AND mods_id <> '' GROUP BY mods_id HAVING COUNT(id) > 1) d),
 (SELECT COUNT(*) FROM (SELECT latitude, longitude FROM %[1]s WHERE latitude IS NOT NULL AND longitude IS NOT NULL GROUP BY latitude, longitude HAVING COUNT(id) > 1) d)
 FROM %[1]s`, s.table)
	var q QCSummary
	err := s.pool.QueryRow(ctx, sql).Scan(
		&q.TotalRows, &q.NullLatitudeRows, &q.NullLongitudeRows, &q.ZeroCoordRows,
		&q.OutOfRangeRows, &q.MissingGeomRows, &q.DuplicateModsIDGroups, &q.DuplicateCoordGroups)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PGStore) DuplicateModsIDs(ctx context.Context, limit int) ([]DupModsID, error) {
	sql := fmt.Sprintf(
		`SELECT mods_id, COUNT(id) AS cnt FROM %s WHERE mods_id IS NOT NULL AND mods_id <> ''
		 GROUP BY mods_id HAVING COUNT(id) > 1 ORDER BY cnt DESC LIMIT %d`, s.table, limit)
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DupModsID
	for rows.Next() {
		var d DupModsID
		if err := rows.Scan(&d.ModsID, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) DuplicateCoords(ctx context.Context, limit int) ([]DupCoord, error) {
	sql := fmt.Sprintf(
		`SELECT latitude, longitude, COUNT(id) AS cnt FROM %s WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		 GROUP BY latitude, longitude HAVING COUNT(id) > 1 ORDER BY cnt DESC LIMIT %d`, s.table, limit)
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DupCoord
	for rows.Next() {
		var d DupCoord
		if err := rows.Scan(&d.Latitude, &d.Longitude, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const invalidCoordsCond = `(latitude IS NULL OR longitude IS NULL
 OR (latitude = 0 AND longitude = 0) OR abs(latitude) > 90 OR abs(longitude) > 180)`

func (s *PGStore) Outliers(ctx context.Context, limit int, expected *BBox) (*OutlierReport, error) {
	rep := &OutlierReport{}

	var invalid int
	if err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(id) FROM %s WHERE %s", s.table, invalidCoordsCond)).Scan(&invalid); err != nil {
		return nil, err
	}
	rep.InvalidCount = invalid

	outlierCols := `id, COALESCE(mods_id,''), COALESCE(english_name,''), COALESCE(admin_region,''), latitude, longitude`
	scanSample := func(rows pgx.Rows, reason string) error {
		defer rows.Close()
		for rows.Next() {
			var r OutlierRow
			if err := rows.Scan(&r.ID, &r.ModsID, &r.EnglishName, &r.AdminRegion, &r.Latitude, &r.Longitude); err != nil {
				return err
			}
			r.Reason = reason
			rep.Sample = append(rep.Sample, r)
		}
		return rows.Err()
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT %d", outlierCols, s.table, invalidCoordsCond, limit))
	if err != nil {
		return nil, err
	}
	if err := scanSample(rows, "invalid_coords"); err != nil {
		return nil, err
	}

	if expected != nil {
		rep.ExpectedBBox = expected
		cond := "latitude IS NOT NULL AND longitude IS NOT NULL AND NOT (longitude >= $1 AND longitude <= $2 AND latitude >= $3 AND latitude <= $4)"
		var outside int
		if err := s.pool.QueryRow(ctx,
			fmt.Sprintf("SELECT COUNT(id) FROM %s WHERE %s", s.table, cond),
			expected.MinLon, expected.MaxLon, expected.MinLat, expected.MaxLat).Scan(&outside); err != nil {
			return nil, err
		}
		rep.OutsideBBoxCount = &outside

		if remaining := limit - len(rep.Sample); remaining > 0 {
			rows, err := s.pool.Query(ctx,
				fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT %d", outlierCols, s.table, cond, remaining),
				expected.MinLon, expected.MaxLon, expected.MinLat, expected.MaxLat)
			if err != nil {
				return nil, err
			}
			if err := scanSample(rows, "outside_expected_bbox"); err != nil {
				return nil, err
			}
		}
	}
	return rep, nil
}

// geomExpr 把 GeoJSON 参数解析为 4326 geometry 的 SQL 表达式
func geomExpr(placeholder string) string {
	return fmt.Sprintf("ST_SetSRID(ST_GeomFromGeoJSON(%s),4326)", placeholder)
}

func (s *PGStore) SpatialQuery(ctx context.Context, geomJSON, predicate string, distanceM float64, f Filter) (int, []Occurrence, error) {
	var args []any
	conds := filterSQL(f, &args)
	args = append(args, geomJSON)
	g := geomExpr(fmt.Sprintf("$%d", len(args)))

	switch predicate {
	case "intersects":
		conds = append(conds, fmt.Sprintf("ST_Intersects(geom::geometry, %s)", g))
	case "dwithin":
		args = append(args, distanceM)
		conds = append(conds, fmt.Sprintf(
			"ST_DWithin(ST_Transform(geom::geometry,3857), ST_Transform(%s,3857), $%d)", g, len(args)))
	default:
		return 0, nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg, "unsupported predicate %q", predicate)
	}

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(id) FROM %s%s", s.table, whereClause(conds))
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return 0, nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d OFFSET %d",
		occurrenceCols, s.table, whereClause(conds), f.Limit, f.Offset)
	rows, err := s.queryOccurrences(ctx, sql, args)
	if err != nil {
		return 0, nil, err
	}
	return total, rows, nil
}

func (s *PGStore) Buffer(ctx context.Context, geomJSON string, distanceM float64) (string, error) {
	var out *string
	err := s.pool.QueryRow(ctx,
		"SELECT ST_AsGeoJSON(ST_Transform(ST_Buffer(ST_Transform(ST_SetSRID(ST_GeomFromGeoJSON($1),4326),3857), $2), 4326))",
		geomJSON, distanceM).Scan(&out)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "buffer produced no geometry")
	}
	return *out, nil
}

func (s *PGStore) SpatialNearest(ctx context.Context, geomJSON string, f Filter) ([]Near, error) {
	var args []any
	conds := filterSQL(f, &args)
	args = append(args, geomJSON)
	g := geomExpr(fmt.Sprintf("$%d", len(args)))
	dist := fmt.Sprintf("ST_Distance(ST_Transform(geom::geometry,3857), ST_Transform(%s,3857))", g)
	sql := fmt.Sprintf("SELECT %s, %s AS distance_m FROM %s%s ORDER BY distance_m ASC LIMIT %d",
		occurrenceCols, dist, s.table, whereClause(conds), f.Limit)
	return s.queryNear(ctx, sql, args)
}

func (s *PGStore) Overlay(ctx context.Context, op, aJSON, bJSON string) (string, error) {
	var fn string
	switch op {
	case "union":
		fn = "ST_Union"
	case "intersection":
		fn = "ST_Intersection"
	case "difference":
		fn = "ST_Difference"
	case "symmetric_difference":
		fn = "ST_SymDifference"
	default:
		return "", pkgerrors.Wrapf(pkgerrors.ErrInvalidArg, "unsupported overlay op %q", op)
	}
	var out *string
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT ST_AsGeoJSON(%s(%s, %s))", fn, geomExpr("$1"), geomExpr("$2")),
		aJSON, bJSON).Scan(&out)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "overlay produced no geometry")
	}
	return *out, nil
}

func (s *PGStore) UnionAll(ctx context.Context, geomJSONs []string) (string, error) {
	if len(geomJSONs) == 0 {
		return "", pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "no geometries to merge")
	}
	var out *string
	err := s.pool.QueryRow(ctx,
		"SELECT ST_AsGeoJSON(ST_Union(ST_SetSRID(ST_GeomFromGeoJSON(g),4326))) FROM unnest($1::text[]) AS g",
		geomJSONs).Scan(&out)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "union produced no geometry")
	}
	return *out, nil
}

func (s *PGStore) CountInGeometry(ctx context.Context, geomJSON, predicate string) (int, error) {
	var cond string
	switch predicate {
	case "contains":
		cond = fmt.Sprintf("ST_Contains(%s, geom::geometry)", geomExpr("$1"))
	default:
		cond = fmt.Sprintf("ST_Intersects(geom::geometry, %s)", geomExpr("$1"))
	}
	var count int
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(id) FROM %s WHERE %s", s.table, cond), geomJSON).Scan(&count)
	return count, err
}

func (s *PGStore) NearestToGeometry(ctx context.Context, geomJSON string) (*Near, error) {
	rows, err := s.SpatialNearest(ctx, geomJSON, Filter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *PGStore) ZonalStats(ctx context.Context, rasterID string, geomJSON string, band int) (*ZonalStats, error) {
	sql := `SELECT (st).count, (st).min, (st).max, (st).mean, (st).stddev FROM (
 SELECT ST_SummaryStatsAgg(ST_Clip(rast, ` + geomExpr("$2") + `), $3, true) AS st
 FROM rasters WHERE raster_id = $1 AND ST_Intersects(rast::geometry, ` + geomExpr("$2") + `)
) q`
	var count *int64
	var min, max, mean, std *float64
	err := s.pool.QueryRow(ctx, sql, rasterID, geomJSON, band).Scan(&count, &min, &max, &mean, &std)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "raster %s", rasterID)
		}
		return nil, err
	}
	if count == nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "raster %s", rasterID)
	}
	return &ZonalStats{Count: int(*count), Min: min, Max: max, Mean: mean, Std: std}, nil
}
