package domain

import "time"

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// AnalysisRecord tracks one analysis run for a source URL.
type AnalysisRecord struct {
	ID              string         `json:"id"              db:"id"`
	SourceURL       string         `json:"source_url"      db:"source_url"`
	Status          AnalysisStatus `json:"status"          db:"status"`
	ConfidenceScore float64        `json:"confidence_score" db:"confidence_score"`
	PlaceCount      int            `json:"place_count"     db:"place_count"`
	ServedFromCache bool           `json:"served_from_cache" db:"served_from_cache"`
	Error           string         `json:"error,omitempty" db:"error"`
	CreatedAt       time.Time      `json:"created_at"      db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"      db:"updated_at"`
}
