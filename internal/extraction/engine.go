// Package extraction turns raw inference candidates into validated,
// deduplicated and scored places.
package extraction

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/metrics"
)

// ErrNilResponse is returned when Extract is given no inference response.
var ErrNilResponse = errors.New("extraction: nil inference response")

const lowCompletenessThreshold = 0.4

// Engine runs the extraction pipeline. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an extraction engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Extract validates, structures, scores and deduplicates the candidates in
// resp. Invalid candidates are dropped and reported in ValidationErrors.
func (e *Engine) Extract(resp *domain.InferenceResponse, snapshot domain.ContentSnapshot) (*domain.PlaceExtractionResult, error) {
	if resp == nil {
		return nil, ErrNilResponse
	}
	start := e.now()

	result := &domain.PlaceExtractionResult{
		Places:               []domain.ExtractedPlace{},
		TotalCandidatesFound: len(resp.Candidates),
		ValidationErrors:     []string{},
	}

	valid := make([]domain.ExtractedPlace, 0, len(resp.Candidates))
	for i, c := range resp.Candidates {
		p, err := buildPlace(c, snapshot)
		if err != nil {
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("candidate %d: %v", i, err))
			metrics.CandidatesProcessed.WithLabelValues("invalid").Inc()
			continue
		}
		valid = append(valid, p)
	}

	places, removed := dedupe(valid)
	metrics.CandidatesProcessed.WithLabelValues("duplicate").Add(float64(removed))
	metrics.CandidatesProcessed.WithLabelValues("accepted").Add(float64(len(places)))

	result.Places = places
	result.DuplicatesRemoved = removed
	result.ConfidenceScore = resultConfidence(resp.Confidence, places)
	result.DataQualityScore = resultQuality(places)
	result.ProcessingTimeMs = float64(e.now().Sub(start).Microseconds()) / 1000

	slog.Debug("Extraction completed",
		"url", snapshot.SourceURL,
		"candidates", result.TotalCandidatesFound,
		"places", len(places),
		"duplicates", removed,
		"invalid", len(result.ValidationErrors),
		"confidence", result.ConfidenceScore,
	)
	return result, nil
}

func buildPlace(c domain.RawCandidate, snapshot domain.ContentSnapshot) (domain.ExtractedPlace, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return domain.ExtractedPlace{}, errors.New("empty name")
	}

	category := NormalizeCategory(c.CategoryText)
	tier := domain.ParseConfidenceTier(string(c.Confidence))
	addr := ParseAddress(c.AddressText)
	description := strings.TrimSpace(c.Description)

	p := domain.ExtractedPlace{
		Name:                 name,
		Category:             category,
		ConfidenceTier:       tier,
		Address:              addr,
		Description:          description,
		Keywords:             extractKeywords(category, snapshot.Hashtags, description, c.Keywords),
		DataQualityScore:     placeQuality(name, addr, description, tier),
		OriginalCategoryText: c.CategoryText,
		RecommendationScore:  c.Score,
		Phone:                c.Phone,
		Website:              c.Website,
		Hours:                c.Hours,
		PriceRange:           c.PriceRange,
	}
	p.Warnings = placeWarnings(p)
	return p, nil
}

func placeWarnings(p domain.ExtractedPlace) []string {
	var w []string
	switch {
	case p.Address.FullAddress == "":
		w = append(w, "address not provided")
	case p.Address.Completeness < lowCompletenessThreshold:
		w = append(w, "address is incomplete")
	}
	if p.Category == domain.CategoryOther {
		w = append(w, fmt.Sprintf("category %q could not be mapped", p.OriginalCategoryText))
	}
	if p.ConfidenceTier == domain.ConfidenceLow {
		w = append(w, "low confidence")
	}
	return w
}
