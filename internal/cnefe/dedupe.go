package cnefe

import "math/rand/v2"

// Dedupe collapses one file's parsed records to a single record per
// DedupKey, dropping special-sector records first. The first occurrence of
// each key wins. The survivors come back in randomized order: workers
// querying the provider per sector are then unlikely to hit the same sector
// simultaneously. Best-effort load spreading, not a correctness requirement.
func Dedupe(recs []*AddressRecord) []*AddressRecord {
	seen := make(map[DedupKey]struct{}, len(recs))
	out := make([]*AddressRecord, 0, len(recs))

	for _, r := range recs {
		if r.SectorType == sectorTypeSpecial {
			continue
		}
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
