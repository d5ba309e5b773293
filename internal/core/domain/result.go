package domain

// PlaceExtractionResult is the unit that gets cached.
type PlaceExtractionResult struct {
	Places               []ExtractedPlace `json:"places"`
	TotalCandidatesFound int              `json:"total_candidates_found"`
	DuplicatesRemoved    int              `json:"duplicates_removed"`
	ValidationErrors     []string         `json:"validation_errors"`
	ConfidenceScore      float64          `json:"confidence_score"`
	DataQualityScore     float64          `json:"data_quality_score"`
	ProcessingTimeMs     float64          `json:"processing_time_ms"`
}
