package extraction

import (
	"unicode/utf8"

	"github.com/vietddude/placefinder/internal/core/domain"
)

const (
	nameWeight        = 0.3
	addressWeight     = 0.4
	descriptionWeight = 0.2
	tierWeight        = 0.1

	nameSaturation        = 20
	descriptionSaturation = 100

	// emptyResultQuality applies when nothing survived extraction.
	emptyResultQuality = 0.9
)

func qualityTierScore(t domain.ConfidenceTier) float64 {
	switch t {
	case domain.ConfidenceHigh:
		return 1.0
	case domain.ConfidenceLow:
		return 0.3
	default:
		return 0.7
	}
}

func placeTierScore(t domain.ConfidenceTier) float64 {
	switch t {
	case domain.ConfidenceHigh:
		return 1.0
	case domain.ConfidenceLow:
		return 0.4
	default:
		return 0.7
	}
}

func inferenceConfidenceScore(t domain.ConfidenceTier) float64 {
	switch t {
	case domain.ConfidenceHigh:
		return 0.8
	case domain.ConfidenceLow:
		return 0.4
	default:
		return 0.6
	}
}

// placeQuality blends name length, address completeness, description length
// and confidence tier into a score in [0,1].
func placeQuality(name string, addr domain.StructuredAddress, description string, tier domain.ConfidenceTier) float64 {
	nameScore := saturate(utf8.RuneCountInString(name), nameSaturation)
	descScore := saturate(utf8.RuneCountInString(description), descriptionSaturation)

	q := nameWeight*nameScore +
		addressWeight*clamp01(addr.Completeness) +
		descriptionWeight*descScore +
		tierWeight*qualityTierScore(tier)
	return clamp01(q)
}

// resultConfidence combines the model's overall confidence with the tiers of
// the surviving places.
func resultConfidence(inference domain.ConfidenceTier, places []domain.ExtractedPlace) float64 {
	if len(places) == 0 {
		if inference == domain.ConfidenceHigh {
			return 0.9
		}
		return 0.5
	}

	var sum float64
	for _, p := range places {
		sum += placeTierScore(p.ConfidenceTier)
	}
	avg := sum / float64(len(places))
	return clamp01(0.6*inferenceConfidenceScore(inference) + 0.4*avg)
}

func resultQuality(places []domain.ExtractedPlace) float64 {
	if len(places) == 0 {
		return emptyResultQuality
	}
	var sum float64
	for _, p := range places {
		sum += p.DataQualityScore
	}
	return clamp01(sum / float64(len(places)))
}

func saturate(n, limit int) float64 {
	if n >= limit {
		return 1
	}
	return float64(n) / float64(limit)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
