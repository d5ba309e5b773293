package domain

type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// ParseConfidenceTier maps free text onto a tier. Unknown values become medium.
func ParseConfidenceTier(s string) ConfidenceTier {
	switch ConfidenceTier(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return ConfidenceTier(s)
	}
	return ConfidenceMedium
}

// RawCandidate is one place mention as returned by the model, after the
// inference boundary has validated its shape.
type RawCandidate struct {
	Name         string
	AddressText  string
	CategoryText string
	Description  string
	Keywords     []string
	Score        int // recommendation score, 1..10
	Phone        string
	Website      string
	Hours        string
	PriceRange   string
	Confidence   ConfidenceTier
}

// InferenceResponse is the typed result of one inference call.
type InferenceResponse struct {
	Candidates []RawCandidate
	Confidence ConfidenceTier // model's confidence in the whole answer
}
