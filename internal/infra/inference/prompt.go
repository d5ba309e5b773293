package inference

import (
	"fmt"
	"strings"

	"github.com/vietddude/placefinder/internal/core/domain"
)

// Prompt is the request sent to the model.
type Prompt struct {
	System    string
	Text      string
	ImageURLs []string
}

const systemPrompt = `You extract physical places (restaurants, cafes, bars, attractions, shops, hotels, venues) mentioned in social media posts.
Reply with a single JSON object and nothing else, using this shape:
{
  "confidence": "high" | "medium" | "low",
  "places": [
    {
      "name": string,
      "address": string,
      "category": string,
      "description": string,
      "keywords": [string],
      "recommendation_score": number from 1 to 10,
      "confidence": "high" | "medium" | "low",
      "phone": string,
      "website": string,
      "hours": string,
      "price_range": string
    }
  ]
}
Use an empty "places" array when the post does not mention a place. "confidence" at the top level is how sure you are about the whole answer.`

// maxPromptImages bounds the image payload per request.
const maxPromptImages = 4

// BuildPrompt formats a snapshot into a model prompt.
func BuildPrompt(s domain.ContentSnapshot) Prompt {
	var b strings.Builder
	b.WriteString("Find the place mentioned in this post.\n\n")
	fmt.Fprintf(&b, "URL: %s\n", s.SourceURL)
	if t := strings.TrimSpace(s.Title); t != "" {
		fmt.Fprintf(&b, "Title: %s\n", t)
	}
	if d := strings.TrimSpace(s.Description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	if len(s.Hashtags) > 0 {
		tags := make([]string, 0, len(s.Hashtags))
		for _, h := range s.Hashtags {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			if !strings.HasPrefix(h, "#") {
				h = "#" + h
			}
			tags = append(tags, h)
		}
		if len(tags) > 0 {
			fmt.Fprintf(&b, "Hashtags: %s\n", strings.Join(tags, " "))
		}
	}

	images := s.ImageURLs
	if len(images) > maxPromptImages {
		images = images[:maxPromptImages]
	}

	return Prompt{
		System:    systemPrompt,
		Text:      b.String(),
		ImageURLs: images,
	}
}
