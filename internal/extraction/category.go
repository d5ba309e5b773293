package extraction

import (
	"sort"
	"strings"

	"github.com/vietddude/placefinder/internal/core/domain"
)

// categorySynonyms maps common free-text categories onto known categories.
var categorySynonyms = map[string]domain.Category{
	"korean bbq":         domain.CategoryRestaurant,
	"korean restaurant":  domain.CategoryRestaurant,
	"bbq":                domain.CategoryRestaurant,
	"barbecue":           domain.CategoryRestaurant,
	"food":               domain.CategoryRestaurant,
	"dining":             domain.CategoryRestaurant,
	"eatery":             domain.CategoryRestaurant,
	"bistro":             domain.CategoryRestaurant,
	"diner":              domain.CategoryRestaurant,
	"steakhouse":         domain.CategoryRestaurant,
	"noodle":             domain.CategoryRestaurant,
	"ramen":              domain.CategoryRestaurant,
	"sushi":              domain.CategoryRestaurant,
	"pizza":              domain.CategoryRestaurant,
	"street food":        domain.CategoryRestaurant,
	"food stall":         domain.CategoryRestaurant,
	"coffee shop":        domain.CategoryCafe,
	"coffee":             domain.CategoryCafe,
	"coffeehouse":        domain.CategoryCafe,
	"bakery":             domain.CategoryCafe,
	"dessert":            domain.CategoryCafe,
	"tea house":          domain.CategoryCafe,
	"teahouse":           domain.CategoryCafe,
	"brunch":             domain.CategoryCafe,
	"pub":                domain.CategoryBar,
	"cocktail":           domain.CategoryBar,
	"wine bar":           domain.CategoryBar,
	"brewery":            domain.CategoryBar,
	"izakaya":            domain.CategoryBar,
	"pocha":              domain.CategoryBar,
	"lounge":             domain.CategoryBar,
	"museum":             domain.CategoryTouristAttraction,
	"palace":             domain.CategoryTouristAttraction,
	"temple":             domain.CategoryTouristAttraction,
	"park":               domain.CategoryTouristAttraction,
	"landmark":           domain.CategoryTouristAttraction,
	"attraction":         domain.CategoryTouristAttraction,
	"tourist attraction": domain.CategoryTouristAttraction,
	"observatory":        domain.CategoryTouristAttraction,
	"beach":              domain.CategoryTouristAttraction,
	"gallery":            domain.CategoryTouristAttraction,
	"market":             domain.CategoryShopping,
	"mall":               domain.CategoryShopping,
	"shop":               domain.CategoryShopping,
	"store":              domain.CategoryShopping,
	"boutique":           domain.CategoryShopping,
	"department store":   domain.CategoryShopping,
	"hotel":              domain.CategoryAccommodation,
	"hostel":             domain.CategoryAccommodation,
	"guesthouse":         domain.CategoryAccommodation,
	"resort":             domain.CategoryAccommodation,
	"hanok stay":         domain.CategoryAccommodation,
	"motel":              domain.CategoryAccommodation,
	"cinema":             domain.CategoryEntertainment,
	"theater":            domain.CategoryEntertainment,
	"theatre":            domain.CategoryEntertainment,
	"karaoke":            domain.CategoryEntertainment,
	"noraebang":          domain.CategoryEntertainment,
	"arcade":             domain.CategoryEntertainment,
	"club":               domain.CategoryEntertainment,
	"concert hall":       domain.CategoryEntertainment,
	"amusement park":     domain.CategoryEntertainment,
	"escape room":        domain.CategoryEntertainment,
}

// synonymKeys holds the synonym table keys, longest first, so substring
// matching prefers the most specific key.
var synonymKeys = func() []string {
	keys := make([]string, 0, len(categorySynonyms))
	for k := range categorySynonyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// NormalizeCategory maps free text onto a known category. Exact matches win,
// then the synonym table, then a substring match on synonym keys. Anything
// else is CategoryOther. Known category names map to themselves.
func NormalizeCategory(text string) domain.Category {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return domain.CategoryOther
	}

	for _, c := range domain.Categories {
		if s == string(c) {
			return c
		}
	}
	// "tourist attraction" and friends
	if c, ok := knownCategory(strings.ReplaceAll(s, " ", "_")); ok {
		return c
	}

	if c, ok := categorySynonyms[s]; ok {
		return c
	}

	for _, k := range synonymKeys {
		if strings.Contains(s, k) {
			return categorySynonyms[k]
		}
	}
	// "korean restaurant" style texts that name a category outright
	for _, c := range domain.Categories {
		if c != domain.CategoryOther && strings.Contains(s, string(c)) {
			return c
		}
	}

	return domain.CategoryOther
}

func knownCategory(s string) (domain.Category, bool) {
	for _, c := range domain.Categories {
		if s == string(c) {
			return c, true
		}
	}
	return "", false
}

// categoryKeywords are the keywords implied by each category.
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryRestaurant:        {"restaurant", "food", "dining"},
	domain.CategoryCafe:              {"cafe", "coffee", "dessert"},
	domain.CategoryBar:               {"bar", "drinks", "nightlife"},
	domain.CategoryTouristAttraction: {"attraction", "sightseeing", "travel"},
	domain.CategoryShopping:          {"shopping", "store"},
	domain.CategoryAccommodation:     {"hotel", "stay", "travel"},
	domain.CategoryEntertainment:     {"entertainment", "fun"},
	domain.CategoryOther:             {"place"},
}
