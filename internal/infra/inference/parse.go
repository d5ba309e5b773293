package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vietddude/placefinder/internal/core/domain"
)

// rawPlace mirrors one place object in the model reply. Required fields are
// pointers so absence can be told apart from zero values.
type rawPlace struct {
	Name                *string   `json:"name"`
	Address             string    `json:"address"`
	Category            *string   `json:"category"`
	Description         string    `json:"description"`
	Keywords            *[]string `json:"keywords"`
	RecommendationScore *float64  `json:"recommendation_score"`
	Confidence          string    `json:"confidence"`
	Phone               string    `json:"phone"`
	Website             string    `json:"website"`
	Hours               string    `json:"hours"`
	PriceRange          string    `json:"price_range"`
}

// rawEnvelope is the preferred reply shape.
type rawEnvelope struct {
	Confidence string      `json:"confidence"`
	Places     *[]rawPlace `json:"places"`
}

// cleanJSON strips markdown code fences and surrounding whitespace.
// Handles ```json\n{...}\n```, ```\n{...}\n``` and bare JSON.
func cleanJSON(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}

	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = bytes.TrimLeft(s, "`")
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}

	return s
}

// ParseResponse validates the model's text reply and converts it to typed
// candidates. Any shape or schema problem yields ErrInvalidResponse.
func ParseResponse(text string) (*domain.InferenceResponse, error) {
	data := cleanJSON([]byte(text))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}

	var (
		places     []rawPlace
		confidence string
	)

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &places); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	case '{':
		var env rawEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		confidence = env.Confidence
		if env.Places != nil {
			places = *env.Places
			break
		}
		var single rawPlace
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		places = []rawPlace{single}
	default:
		return nil, fmt.Errorf("%w: reply is not a JSON object", ErrInvalidResponse)
	}

	resp := &domain.InferenceResponse{
		Candidates: make([]domain.RawCandidate, 0, len(places)),
		Confidence: domain.ParseConfidenceTier(strings.ToLower(strings.TrimSpace(confidence))),
	}

	for i, p := range places {
		c, err := p.toCandidate()
		if err != nil {
			return nil, fmt.Errorf("%w: place %d: %v", ErrInvalidResponse, i, err)
		}
		resp.Candidates = append(resp.Candidates, c)
	}

	// Single-object replies carry no top-level confidence of their own
	if confidence == "" && len(resp.Candidates) == 1 {
		resp.Confidence = resp.Candidates[0].Confidence
	}

	return resp, nil
}

func (p rawPlace) toCandidate() (domain.RawCandidate, error) {
	switch {
	case p.Name == nil:
		return domain.RawCandidate{}, errors.New("missing name")
	case p.Category == nil:
		return domain.RawCandidate{}, errors.New("missing category")
	case p.RecommendationScore == nil:
		return domain.RawCandidate{}, errors.New("missing recommendation_score")
	case p.Keywords == nil:
		return domain.RawCandidate{}, errors.New("missing keywords")
	}

	keywords := make([]string, 0, len(*p.Keywords))
	for _, k := range *p.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	return domain.RawCandidate{
		Name:         strings.TrimSpace(*p.Name),
		AddressText:  strings.TrimSpace(p.Address),
		CategoryText: strings.ToLower(strings.TrimSpace(*p.Category)),
		Description:  strings.TrimSpace(p.Description),
		Keywords:     keywords,
		Score:        clampScore(*p.RecommendationScore),
		Confidence:   domain.ParseConfidenceTier(strings.ToLower(strings.TrimSpace(p.Confidence))),
		Phone:        strings.TrimSpace(p.Phone),
		Website:      strings.TrimSpace(p.Website),
		Hours:        strings.TrimSpace(p.Hours),
		PriceRange:   strings.TrimSpace(p.PriceRange),
	}, nil
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 1
	}
	return int(math.Round(math.Max(1, math.Min(v, 10))))
}
