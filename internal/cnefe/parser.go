package cnefe

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Fixed-width field positions (rune offsets) in a CNEFE record line.
const (
	posStateStart        = 0
	posStateEnd          = 2
	posCityEnd           = 7
	posDistrictEnd       = 9
	posSubdistrictEnd    = 11
	posSectorEnd         = 15
	posSectorTypeEnd     = 16
	posAddressTypeEnd    = 36
	posAddressTitleEnd   = 66
	posAddressNameEnd    = 126
	posNeighborhoodStart = 351
	posNeighborhoodEnd   = 411
	posZipcodeStart      = 550
	posZipcodeEnd        = 558

	// minLineWidth is the narrowest line that still contains every field.
	minLineWidth = posZipcodeEnd
)

// ErrMalformedRecord reports an input line too short to hold all fields.
// Callers skip the record; it never aborts a file.
var ErrMalformedRecord = eris.New("cnefe: malformed record")

// ParseLine decodes one fixed-width CNEFE line into an AddressRecord.
// A trailing newline is tolerated. The composed address is normalized so
// the dedup key, the cache key and all match comparisons see the same
// canonical form.
func ParseLine(line string) (*AddressRecord, error) {
	runes := []rune(strings.TrimRight(line, "\r\n"))
	if len(runes) < minLineWidth {
		return nil, eris.Wrapf(ErrMalformedRecord, "line width %d, need %d", len(runes), minLineWidth)
	}

	field := func(start, end int) string {
		return strings.TrimSpace(string(runes[start:end]))
	}

	state := field(posStateStart, posStateEnd)
	city := field(posStateEnd, posCityEnd)
	district := field(posCityEnd, posDistrictEnd)
	subdistrict := field(posDistrictEnd, posSubdistrictEnd)
	sector := field(posSubdistrictEnd, posSectorEnd)

	addrType := field(posSectorTypeEnd, posAddressTypeEnd)
	addrTitle := field(posAddressTypeEnd, posAddressTitleEnd)
	addrName := field(posAddressTitleEnd, posAddressNameEnd)

	parts := []string{addrType}
	if addrTitle != "" {
		parts = append(parts, addrTitle)
	}
	parts = append(parts, addrName)
	address := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")

	return &AddressRecord{
		State:            state,
		City:             city,
		District:         district,
		Subdistrict:      subdistrict,
		Sector:           sector,
		SectorType:       field(posSectorEnd, posSectorTypeEnd),
		Address:          Normalize(address),
		Neighborhood:     field(posNeighborhoodStart, posNeighborhoodEnd),
		Zipcode:          field(posZipcodeStart, posZipcodeEnd),
		IBGECensusSector: deriveSector(state, city, district, subdistrict, sector),
	}, nil
}
