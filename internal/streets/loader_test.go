package streets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jonas-p/go-shp"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStreetShapefile builds a two-feature OSM-style street extract.
func writeStreetShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roads.shp")

	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("osm_id", 20),
		shp.StringField("name", 60),
		shp.StringField("fclass", 20),
	}
	require.NoError(t, w.SetFields(fields))

	line := func(x float64) *shp.PolyLine {
		return &shp.PolyLine{
			NumParts:  1,
			NumPoints: 2,
			Parts:     []int32{0},
			Points: []shp.Point{
				{X: x, Y: -23.55},
				{X: x + 0.01, Y: -23.56},
			},
		}
	}

	w.Write(line(-46.63))
	require.NoError(t, w.WriteAttribute(0, 0, "way/111"))
	require.NoError(t, w.WriteAttribute(0, 1, "RUA 10"))
	require.NoError(t, w.WriteAttribute(0, 2, "residential"))

	w.Write(line(-46.70))
	require.NoError(t, w.WriteAttribute(1, 0, "way/222"))
	require.NoError(t, w.WriteAttribute(1, 1, "RUA DAS FLORES"))
	require.NoError(t, w.WriteAttribute(1, 2, "residential"))

	w.Close()
	return path
}

func TestParseStreetFile(t *testing.T) {
	path := writeStreetShapefile(t)

	rows, err := parseStreetFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "way/111", rows[0][0])
	assert.Equal(t, "RUA 10", rows[0][1])
	assert.Equal(t, "residential", rows[0][2])
	assert.NotEmpty(t, rows[0][3]) // EWKB geometry
}

func TestParseStreetFile_MissingFile(t *testing.T) {
	_, err := parseStreetFile(filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
}

func TestLoadStreets_CopiesRows(t *testing.T) {
	path := writeStreetShapefile(t)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"geo", "streets"}, streetColumns).
		WillReturnResult(2)

	n, err := LoadStreets(context.Background(), mock, []string{path}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

// The 2010 sector mesh names its code column cd_geocodi, the 2022 mesh
// cd_setor; the parser must accept either vintage.
func TestParseSectorFile_LegacyAttributeNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("CD_GEOCODI", 15),
		shp.StringField("UF", 2),
		shp.StringField("NM_MUNICIP", 60),
	}
	require.NoError(t, w.SetFields(fields))

	w.Write(&shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: -46.0, Y: -23.0},
			{X: -46.0, Y: -24.0},
			{X: -45.0, Y: -24.0},
			{X: -45.0, Y: -23.0},
			{X: -46.0, Y: -23.0},
		},
	})
	require.NoError(t, w.WriteAttribute(0, 0, "355030805000001"))
	require.NoError(t, w.WriteAttribute(0, 1, "SP"))
	require.NoError(t, w.WriteAttribute(0, 2, "SAO PAULO"))
	w.Close()

	rows, err := parseSectorFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "355030805000001", rows[0][0])
	assert.Equal(t, "SP", rows[0][1])
	assert.Equal(t, "SAO PAULO", rows[0][2])
	assert.NotEmpty(t, rows[0][3])
}
