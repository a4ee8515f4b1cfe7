// Package matcher decides, for one census address, whether it exists in the
// street network, is a likely typo of an existing street, or is missing.
package matcher

import (
	"context"

	"github.com/agnivade/levenshtein"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/cnefe"
	"github.com/mapas-livres/cnefe-reconciler/internal/streets"
)

// DefaultFuzzyThreshold is the similarity ratio above which a candidate is
// treated as a likely single-sided typo.
const DefaultFuzzyThreshold = 0.9

// ResolutionCache is the read side of the reconciliation cache: a prior
// entry means the record was already resolved in an earlier run.
type ResolutionCache interface {
	Lookup(ctx context.Context, address string) (*cnefe.AddressRecord, error)
}

// Matcher resolves records against spatially-scoped street candidates.
type Matcher struct {
	cache     ResolutionCache
	provider  streets.Provider
	threshold float64
}

// New builds a Matcher. threshold <= 0 selects DefaultFuzzyThreshold.
func New(cache ResolutionCache, provider streets.Provider, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Matcher{cache: cache, provider: provider, threshold: threshold}
}

// Resolve decides the record's fate. A nil record with nil error means the
// address was already cached and there is nothing new to persist; the
// provider is not consulted at all in that case. Provider failures
// propagate so the orchestrator can dead-letter the record.
func (m *Matcher) Resolve(ctx context.Context, rec *cnefe.AddressRecord) (*cnefe.AddressRecord, error) {
	cached, err := m.cache.Lookup(ctx, rec.Address)
	if err != nil {
		return nil, eris.Wrapf(err, "matcher: cache lookup %q", rec.Address)
	}
	if cached != nil {
		return nil, nil
	}

	candidates, err := m.provider.StreetsInSector(ctx, rec.IBGECensusSector)
	if err != nil {
		return nil, eris.Wrapf(err, "matcher: candidates for sector %s", rec.IBGECensusSector)
	}

	// Exact match on normalized names.
	for _, c := range candidates {
		if cnefe.Normalize(c.Name) == rec.Address {
			id := c.ID
			rec.OSMID = &id
			rec.OnOSM = true
			return rec, nil
		}
	}

	// Fuzzy match: the first candidate above the threshold is recorded as a
	// suggestion. The address keeps its original census value.
	for _, c := range candidates {
		ratio := Similarity(rec.Address, cnefe.Normalize(c.Name))
		if ratio > m.threshold {
			id := c.ID
			rec.OSMID = &id
			rec.OnOSM = false
			zap.L().Debug("fuzzy match suggested",
				zap.String("address", rec.Address),
				zap.String("candidate", c.Name),
				zap.Float64("ratio", ratio),
			)
			return rec, nil
		}
	}

	// No match: resolution fields stay at their defaults.
	return rec, nil
}

// Similarity is a normalized Levenshtein ratio in [0,1], 1.0 = identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
