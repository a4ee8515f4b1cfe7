// Package cnefe parses and prepares CNEFE census address records for
// reconciliation against the OSM street network.
package cnefe

import "strings"

// AddressRecord is one census address, the unit of work for the pipeline.
type AddressRecord struct {
	State       string `json:"state"`
	City        string `json:"city"`
	District    string `json:"district"`
	Subdistrict string `json:"subdistrict"`
	Sector      string `json:"sector"`
	SectorType  string `json:"sector_type"`

	// Address is the normalized composition of type, title and name.
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood"`
	Zipcode      string `json:"zipcode"`

	// IBGECensusSector is derived from the administrative codes and is
	// always exactly 15 characters: state(2)+city(5)+district(2)+
	// subdistrict(2)+sector(4), each zero-padded.
	IBGECensusSector string `json:"ibge_census_sector"`

	// OSMID and OnOSM are set once by the matcher and never reset.
	OSMID *string `json:"osm_id,omitempty"`
	OnOSM bool    `json:"on_osm"`
}

// sectorTypeSpecial marks non-permanent/special sectors, which are
// discarded before matching.
const sectorTypeSpecial = "2"

// DedupKey identifies a logical address within one input batch. Note that
// the persisted cache is keyed by Address alone; two records with the same
// address in different sectors are distinct here but collide in the cache.
type DedupKey struct {
	Sector  string
	Address string
	Zipcode string
}

// Key returns the record's batch-level identity.
func (r *AddressRecord) Key() DedupKey {
	return DedupKey{Sector: r.IBGECensusSector, Address: r.Address, Zipcode: r.Zipcode}
}

// padCode left-pads an administrative code with zeros to width n.
func padCode(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// deriveSector builds the 15-character IBGE census sector code.
func deriveSector(state, city, district, subdistrict, sector string) string {
	return padCode(state, 2) + padCode(city, 5) + padCode(district, 2) +
		padCode(subdistrict, 2) + padCode(sector, 4)
}
