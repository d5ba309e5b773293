package domain

type Category string

const (
	CategoryRestaurant        Category = "restaurant"
	CategoryCafe              Category = "cafe"
	CategoryBar               Category = "bar"
	CategoryTouristAttraction Category = "tourist_attraction"
	CategoryShopping          Category = "shopping"
	CategoryAccommodation     Category = "accommodation"
	CategoryEntertainment     Category = "entertainment"
	CategoryOther             Category = "other"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryRestaurant,
	CategoryCafe,
	CategoryBar,
	CategoryTouristAttraction,
	CategoryShopping,
	CategoryAccommodation,
	CategoryEntertainment,
	CategoryOther,
}

// StructuredAddress is a free-text address split into components.
type StructuredAddress struct {
	FullAddress   string  `json:"full_address"`
	StreetAddress string  `json:"street_address,omitempty"`
	District      string  `json:"district,omitempty"`
	City          string  `json:"city,omitempty"`
	Country       string  `json:"country,omitempty"`
	PostalCode    string  `json:"postal_code,omitempty"`
	Completeness  float64 `json:"completeness"`
}

// ExtractedPlace is a validated, deduplicated place entity.
type ExtractedPlace struct {
	Name                 string            `json:"name"`
	Category             Category          `json:"category"`
	ConfidenceTier       ConfidenceTier    `json:"confidence_tier"`
	Address              StructuredAddress `json:"address"`
	Description          string            `json:"description,omitempty"`
	Keywords             []string          `json:"keywords"`
	DataQualityScore     float64           `json:"data_quality_score"`
	OriginalCategoryText string            `json:"original_category_text"`
	Warnings             []string          `json:"warnings,omitempty"`
	RecommendationScore  int               `json:"recommendation_score"`
	Phone                string            `json:"phone,omitempty"`
	Website              string            `json:"website,omitempty"`
	Hours                string            `json:"hours,omitempty"`
	PriceRange           string            `json:"price_range,omitempty"`
}
