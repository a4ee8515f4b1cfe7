// Package streets is the spatial data provider: given a census-sector code
// it returns the named street geometries intersecting that sector's
// bounding envelope, and it loads the underlying sector and street layers
// from shapefiles into PostGIS.
package streets

import "context"

// Candidate is a named street entity, immutable from the engine's point of
// view. Name comes back raw from storage; callers normalize it themselves.
type Candidate struct {
	ID   string
	Name string
}

// Provider answers spatial candidate queries for the matcher.
// An empty slice is a valid, non-error response.
type Provider interface {
	StreetsInSector(ctx context.Context, sectorCode string) ([]Candidate, error)
}
