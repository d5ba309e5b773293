package extraction

import "github.com/vietddude/placefinder/internal/core/domain"

const (
	nameDuplicateThreshold    = 0.8
	nameNearThreshold         = 0.6
	addressDuplicateThreshold = 0.7
)

// IsDuplicate reports whether two places describe the same venue. The result
// does not depend on argument order.
func IsDuplicate(a, b domain.ExtractedPlace) bool {
	name := symmetricRatio(a.Name, b.Name)
	if name > nameDuplicateThreshold {
		return true
	}
	if name <= nameNearThreshold {
		return false
	}
	return symmetricRatio(a.Address.FullAddress, b.Address.FullAddress) > addressDuplicateThreshold
}

// symmetricRatio orders its inputs so tie-breaking inside the matcher cannot
// make ratio(a, b) differ from ratio(b, a).
func symmetricRatio(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	return SimilarityRatio(a, b)
}

// dedupe keeps one place per duplicate group, preferring the higher quality
// score and, on a tie, the earlier place. It returns the survivors in input
// order and the number of places dropped.
func dedupe(places []domain.ExtractedPlace) ([]domain.ExtractedPlace, int) {
	kept := make([]domain.ExtractedPlace, 0, len(places))
	removed := 0

	for _, p := range places {
		dup := -1
		for i := range kept {
			if IsDuplicate(kept[i], p) {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, p)
			continue
		}
		removed++
		if p.DataQualityScore > kept[dup].DataQualityScore {
			kept[dup] = p
		}
	}

	return kept, removed
}
