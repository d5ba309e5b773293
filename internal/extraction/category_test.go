package extraction

import (
	"testing"

	"github.com/vietddude/placefinder/internal/core/domain"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Category
	}{
		{"restaurant", domain.CategoryRestaurant},
		{"RESTAURANT", domain.CategoryRestaurant},
		{"  Cafe ", domain.CategoryCafe},
		{"tourist attraction", domain.CategoryTouristAttraction},
		{"Korean Restaurant", domain.CategoryRestaurant},
		{"korean bbq", domain.CategoryRestaurant},
		{"coffee shop", domain.CategoryCafe},
		{"hotel", domain.CategoryAccommodation},
		{"capsule hotel", domain.CategoryAccommodation},
		{"rooftop cocktail bar", domain.CategoryBar},
		{"traditional market", domain.CategoryShopping},
		{"spaceship", domain.CategoryOther},
		{"", domain.CategoryOther},
	}

	for _, tt := range tests {
		if got := NormalizeCategory(tt.input); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeCategory_Idempotent(t *testing.T) {
	for _, c := range domain.Categories {
		if got := NormalizeCategory(string(c)); got != c {
			t.Errorf("NormalizeCategory(%q) = %s, want itself", c, got)
		}
	}

	inputs := []string{"Korean BBQ", "dessert cafe", "karaoke room", "spaceship", "museum of art", "wine bar"}
	for _, in := range inputs {
		once := NormalizeCategory(in)
		if twice := NormalizeCategory(string(once)); twice != once {
			t.Errorf("NormalizeCategory not idempotent for %q: %s then %s", in, once, twice)
		}
	}
}
