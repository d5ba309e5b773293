package domain

// ContentSnapshot is the post content handed to inference. It is owned by the
// caller and never mutated by the core.
type ContentSnapshot struct {
	SourceURL   string   `json:"source_url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`
	Hashtags    []string `json:"hashtags"`
}
