package cnefe

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLine builds a full-width CNEFE line with the given fields placed at
// their fixed rune offsets and spaces everywhere else.
func testLine(fields map[int]string) string {
	buf := []rune(strings.Repeat(" ", minLineWidth))
	for start, val := range fields {
		copy(buf[start:], []rune(val))
	}
	return string(buf)
}

func defaultFields() map[int]string {
	return map[int]string{
		0:   "35",       // state
		2:   "50308",    // city
		7:   "05",       // district
		9:   "00",       // subdistrict
		11:  "0001",     // sector
		15:  "1",        // sector type
		16:  "RUA",      // address type
		36:  "",         // address title
		66:  "10",       // address name
		351: "CENTRO",   // neighborhood
		550: "01001000", // zipcode
	}
}

func TestParseLine_Fields(t *testing.T) {
	rec, err := ParseLine(testLine(defaultFields()))
	require.NoError(t, err)

	assert.Equal(t, "35", rec.State)
	assert.Equal(t, "50308", rec.City)
	assert.Equal(t, "05", rec.District)
	assert.Equal(t, "00", rec.Subdistrict)
	assert.Equal(t, "0001", rec.Sector)
	assert.Equal(t, "1", rec.SectorType)
	assert.Equal(t, "CENTRO", rec.Neighborhood)
	assert.Equal(t, "01001000", rec.Zipcode)
	assert.Nil(t, rec.OSMID)
	assert.False(t, rec.OnOSM)
}

func TestParseLine_AddressComposedAndNormalized(t *testing.T) {
	rec, err := ParseLine(testLine(defaultFields()))
	require.NoError(t, err)

	// "RUA" + "10" composed, then 10 spelled out.
	assert.Equal(t, "RUA DEZ", rec.Address)
}

func TestParseLine_AddressWithTitle(t *testing.T) {
	f := defaultFields()
	f[16] = "AVENIDA"
	f[36] = "DOUTOR"
	f[66] = "VIEIRA DE CARVALHO"

	rec, err := ParseLine(testLine(f))
	require.NoError(t, err)
	assert.Equal(t, "AVENIDA DOUTOR VIEIRA DE CARVALHO", rec.Address)
}

func TestParseLine_WhitespaceCollapsed(t *testing.T) {
	f := defaultFields()
	f[66] = "DAS   FLORES"

	rec, err := ParseLine(testLine(f))
	require.NoError(t, err)
	assert.Equal(t, "RUA DAS FLORES", rec.Address)
}

func TestParseLine_DerivedCensusSector(t *testing.T) {
	rec, err := ParseLine(testLine(defaultFields()))
	require.NoError(t, err)

	assert.Equal(t, "355030805000001", rec.IBGECensusSector)
	assert.Len(t, rec.IBGECensusSector, 15)
}

func TestParseLine_CensusSectorZeroPadded(t *testing.T) {
	f := defaultFields()
	f[0] = " 5"   // trims to "5", pads to "05"
	f[2] = "  12" // trims to "12", pads to "00012"

	rec, err := ParseLine(testLine(f))
	require.NoError(t, err)
	assert.Equal(t, "05", rec.IBGECensusSector[:2])
	assert.Equal(t, "00012", rec.IBGECensusSector[2:7])
	assert.Len(t, rec.IBGECensusSector, 15)
}

func TestParseLine_TooShort(t *testing.T) {
	_, err := ParseLine("3550308")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedRecord))
}

func TestParseLine_TrailingNewlineTolerated(t *testing.T) {
	rec, err := ParseLine(testLine(defaultFields()) + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, "01001000", rec.Zipcode)
}
