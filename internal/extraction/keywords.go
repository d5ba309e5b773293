package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vietddude/placefinder/internal/core/domain"
)

const (
	maxKeywords            = 10
	maxDescriptionKeywords = 5
	minHashtagLen          = 3
	minDescriptionWordLen  = 4
)

// extractKeywords merges category keywords, hashtags and description words,
// in that order of priority. Model-supplied keywords fill any remaining room.
func extractKeywords(category domain.Category, hashtags []string, description string, modelKeywords []string) []string {
	out := make([]string, 0, maxKeywords)
	seen := make(map[string]struct{}, maxKeywords)

	add := func(k string) bool {
		if len(out) >= maxKeywords {
			return false
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return true
		}
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
		out = append(out, k)
		return true
	}

	for _, k := range categoryKeywords[category] {
		add(k)
	}

	for _, h := range hashtags {
		tag := strings.TrimLeft(strings.TrimSpace(h), "#")
		if utf8.RuneCountInString(tag) < minHashtagLen {
			continue
		}
		if !add(tag) {
			return out
		}
	}

	taken := 0
	for _, w := range strings.FieldsFunc(description, isWordSeparator) {
		if taken >= maxDescriptionKeywords {
			break
		}
		if utf8.RuneCountInString(w) < minDescriptionWordLen {
			continue
		}
		before := len(out)
		if !add(w) {
			return out
		}
		if len(out) > before {
			taken++
		}
	}

	for _, k := range modelKeywords {
		if !add(k) {
			break
		}
	}

	return out
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
}
