package streets

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapas-livres/cnefe-reconciler/internal/db"
)

// Attribute names by shapefile vintage. The IBGE sector mesh renamed its
// code column between the 2010 and 2022 releases; OSM extracts are stable.
var (
	sectorCodeAttrs = []string{"cd_setor", "cd_geocodi"}
	sectorStateAttr = []string{"sigla_uf", "uf"}
	sectorCityAttr  = []string{"nm_mun", "nm_municip"}

	streetIDAttr     = []string{"osm_id"}
	streetNameAttr   = []string{"name"}
	streetFclassAttr = []string{"fclass", "highway"}
)

var (
	sectorColumns = []string{"sector_code", "state", "city_name", "geom"}
	streetColumns = []string{"osm_id", "name", "fclass", "geom"}
)

// LoadSectors ingests IBGE census-sector mesh shapefiles into
// geo.census_sectors, up to concurrency files in flight.
func LoadSectors(ctx context.Context, pool db.Pool, paths []string, concurrency int) (int64, error) {
	return loadFiles(ctx, pool, paths, concurrency, "census_sectors", sectorColumns, parseSectorFile)
}

// LoadStreets ingests OSM street extract shapefiles into geo.streets.
func LoadStreets(ctx context.Context, pool db.Pool, paths []string, concurrency int) (int64, error) {
	return loadFiles(ctx, pool, paths, concurrency, "streets", streetColumns, parseStreetFile)
}

func loadFiles(
	ctx context.Context,
	pool db.Pool,
	paths []string,
	concurrency int,
	table string,
	columns []string,
	parse func(path string) ([][]any, error),
) (int64, error) {
	if concurrency <= 0 {
		concurrency = 2
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range paths {
		g.Go(func() error {
			rows, err := parse(path)
			if err != nil {
				return err
			}
			n, err := db.CopyInto(gctx, pool, "geo", table, columns, rows)
			if err != nil {
				return eris.Wrapf(err, "streets: load %s", path)
			}
			total.Add(n)
			zap.L().Info("shapefile loaded",
				zap.String("file", path),
				zap.String("table", table),
				zap.Int64("rows", n),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return total.Load(), err
	}
	return total.Load(), nil
}

func parseSectorFile(path string) ([][]any, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "streets: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader.Fields())
	var rows [][]any
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		geomBytes, err := encodeSectorGeom(poly)
		if err != nil || geomBytes == nil {
			skipped++
			continue
		}

		code := attribute(reader, idx, sectorCodeAttrs)
		if code == "" {
			skipped++
			continue
		}

		rows = append(rows, []any{
			code,
			attribute(reader, idx, sectorStateAttr),
			attribute(reader, idx, sectorCityAttr),
			geomBytes,
		})
	}

	logSkipped(path, skipped)
	return rows, nil
}

func parseStreetFile(path string) ([][]any, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "streets: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader.Fields())
	var rows [][]any
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		line, ok := shape.(*shp.PolyLine)
		if !ok {
			skipped++
			continue
		}

		geomBytes, err := encodeStreetGeom(line)
		if err != nil || geomBytes == nil {
			skipped++
			continue
		}

		id := attribute(reader, idx, streetIDAttr)
		if id == "" {
			skipped++
			continue
		}

		rows = append(rows, []any{
			id,
			attribute(reader, idx, streetNameAttr),
			attribute(reader, idx, streetFclassAttr),
			geomBytes,
		})
	}

	logSkipped(path, skipped)
	return rows, nil
}

// fieldIndex maps lowercased attribute names to their column index.
func fieldIndex(fields []shp.Field) map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		idx[strings.ToLower(name)] = i
	}
	return idx
}

// attribute returns the first present, non-empty attribute among names.
func attribute(reader *shp.Reader, idx map[string]int, names []string) string {
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			continue
		}
		val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		if val != "" {
			return val
		}
	}
	return ""
}

func logSkipped(path string, skipped int) {
	if skipped > 0 {
		zap.L().Debug("streets: skipped shapefile records",
			zap.String("file", path),
			zap.Int("skipped", skipped),
		)
	}
}
