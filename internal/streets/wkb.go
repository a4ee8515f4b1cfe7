package streets

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// The loaders only meet two shapefile geometries: streets are polylines,
// census sectors are polygons. Both are encoded as multi-geometries so a
// single column type covers single- and multi-part shapes.

// encodeStreetGeom converts a shapefile PolyLine to EWKB (SRID 4326)
// MultiLineString bytes. Returns nil, nil for empty or unusable shapes.
func encodeStreetGeom(pl *shp.PolyLine) ([]byte, error) {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil, nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i := int32(0); i < pl.NumParts; i++ {
		flat := partCoords(pl.Points, pl.Parts, i)
		if len(flat) < 4 { // a line needs at least two points
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			continue
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil, nil
	}

	data, err := ewkb.Marshal(mls, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "streets: encode street geometry")
	}
	return data, nil
}

// encodeSectorGeom converts a shapefile Polygon to EWKB (SRID 4326)
// MultiPolygon bytes. Returns nil, nil for empty or unusable shapes.
func encodeSectorGeom(p *shp.Polygon) ([]byte, error) {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		flat := partCoords(p.Points, p.Parts, i)
		if len(flat) < 8 { // a closed ring needs at least four points
			continue
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	if mp.NumPolygons() == 0 {
		return nil, nil
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "streets: encode sector geometry")
	}
	return data, nil
}

// partCoords flattens part i of a multi-part shape into go-geom flat
// coordinate pairs.
func partCoords(points []shp.Point, parts []int32, i int32) []float64 {
	start := parts[i]
	end := int32(len(points))
	if int(i)+1 < len(parts) {
		end = parts[i+1]
	}

	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}
