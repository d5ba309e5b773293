package extraction

import (
	"regexp"
	"strings"

	"github.com/vietddude/placefinder/internal/core/domain"
)

var (
	// "8 Achasan-ro 9-gil", "Teheran-ro 152", "세종대로 172", "123 Main Street"
	streetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+(?:-\d+)?\s+[a-z0-9]+(?:-[a-z0-9]+)*-(?:ro|gil|daero)(?:\s+\d+(?:-\d+)?-gil)?(?:\s+\d+(?:-\d+)?\b)?`),
		regexp.MustCompile(`(?i)\b[a-z0-9]+(?:-[a-z0-9]+)*-(?:ro|gil|daero)(?:\s+\d+-gil)?\s+\d+(?:-\d+)?\b`),
		regexp.MustCompile(`[가-힣0-9]+(?:대로|로|길)(?:\s*\d+(?:번)?길)?\s*\d+(?:-\d+)?`),
		regexp.MustCompile(`(?i)\b\d+(?:-\d+)?\s+(?:[a-z0-9.]+\s+){1,4}(?:street|st|road|rd|avenue|ave|boulevard|blvd|lane|ln|way|drive|dr|place|pl)\b\.?`),
	}

	postalPattern = regexp.MustCompile(`(?:^|[^\d-])(\d{5})(?:$|[^\d-])`)
)

// koreanCities lists metropolitan cities and their Hangul names.
var koreanCities = []struct {
	name    string
	aliases []string
}{
	{"Seoul", []string{"seoul", "서울"}},
	{"Busan", []string{"busan", "부산"}},
	{"Incheon", []string{"incheon", "인천"}},
	{"Daegu", []string{"daegu", "대구"}},
	{"Daejeon", []string{"daejeon", "대전"}},
	{"Gwangju", []string{"gwangju", "광주"}},
	{"Ulsan", []string{"ulsan", "울산"}},
	{"Sejong", []string{"sejong", "세종"}},
	{"Jeju", []string{"jeju", "제주"}},
	{"Suwon", []string{"suwon", "수원"}},
	{"Gyeongju", []string{"gyeongju", "경주"}},
	{"Jeonju", []string{"jeonju", "전주"}},
	{"Sokcho", []string{"sokcho", "속초"}},
	{"Gangneung", []string{"gangneung", "강릉"}},
}

// koreanNeighborhoods are districts commonly written without a -gu/-dong suffix.
var koreanNeighborhoods = map[string]string{
	"gangnam":    "Gangnam",
	"hongdae":    "Hongdae",
	"itaewon":    "Itaewon",
	"myeongdong": "Myeongdong",
	"insadong":   "Insadong",
	"seongsu":    "Seongsu",
	"jongno":     "Jongno",
	"mapo":       "Mapo",
	"yeonnam":    "Yeonnam",
	"hapjeong":   "Hapjeong",
	"sinsa":      "Sinsa",
	"apgujeong":  "Apgujeong",
	"haeundae":   "Haeundae",
	"seomyeon":   "Seomyeon",
	"jamsil":     "Jamsil",
	"yeouido":    "Yeouido",
	"euljiro":    "Euljiro",
	"bukchon":    "Bukchon",
}

var countryAliases = []struct {
	name    string
	aliases []string
}{
	{"South Korea", []string{"south korea", "republic of korea", "korea", "대한민국", "한국"}},
	{"Japan", []string{"japan", "日本"}},
	{"United States", []string{"united states", "usa", "u.s.a."}},
}

// ParseAddress splits free text into address components.
// Districts follow Korean conventions (-gu, -dong, -eup, 구, 동) and a set of
// well-known neighborhoods. Cities are matched by name or by a -si suffix.
// The country is inferred as South Korea when a Korean city was found.
func ParseAddress(text string) domain.StructuredAddress {
	full := strings.TrimSpace(text)
	addr := domain.StructuredAddress{FullAddress: full}
	if full == "" {
		return addr
	}

	rest := full
	for _, re := range streetPatterns {
		if m := re.FindString(rest); m != "" {
			addr.StreetAddress = strings.TrimSpace(m)
			rest = strings.Replace(rest, m, " ", 1)
			break
		}
	}

	if m := postalPattern.FindStringSubmatch(rest); m != nil {
		addr.PostalCode = m[1]
	}

	koreanCity := false
	for _, tok := range addressTokens(rest) {
		lower := strings.ToLower(tok)

		if addr.Country == "" {
			if c := matchCountry(lower); c != "" {
				addr.Country = c
				continue
			}
		}
		if addr.City == "" {
			if c := matchCity(lower); c != "" {
				addr.City = c
				koreanCity = true
				continue
			}
			if hasAnySuffix(lower, "-si", " city", "시") {
				addr.City = tok
				continue
			}
		}
		if addr.District == "" {
			if d, ok := matchDistrict(tok); ok {
				addr.District = d
			}
		}
	}

	if addr.Country == "" {
		lower := strings.ToLower(rest)
		if c := matchCountry(lower); c != "" {
			addr.Country = c
		} else if koreanCity {
			addr.Country = "South Korea"
		}
	}

	addr.Completeness = completeness(addr)
	return addr
}

// addressTokens splits on commas first, then on whitespace when a segment has
// several words, so "Gangnam-gu Seoul" yields both parts.
func addressTokens(s string) []string {
	var out []string
	for _, seg := range strings.Split(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		out = append(out, seg)
		fields := strings.Fields(seg)
		if len(fields) > 1 {
			for _, f := range fields {
				out = append(out, strings.Trim(f, ".;()"))
			}
		}
	}
	return out
}

func matchCity(lower string) string {
	for _, c := range koreanCities {
		for _, a := range c.aliases {
			if lower == a || strings.HasPrefix(lower, a+"-si") || strings.HasPrefix(lower, a+" city") ||
				(isHangul(a) && strings.HasPrefix(lower, a) && hasAnySuffix(lower, "시", "특별시", "광역시", "특별자치시")) {
				return c.name
			}
		}
	}
	return ""
}

func matchCountry(lower string) string {
	for _, c := range countryAliases {
		for _, a := range c.aliases {
			if lower == a || strings.HasSuffix(lower, " "+a) || strings.Contains(lower, ", "+a) {
				return c.name
			}
		}
	}
	return ""
}

func matchDistrict(tok string) (string, bool) {
	lower := strings.ToLower(tok)
	if strings.Contains(lower, " ") {
		return "", false
	}
	if hasAnySuffix(lower, "-gu", "-dong", "-eup", "-myeon", "-gun", "구", "동", "읍", "면", "군") {
		return tok, true
	}
	name, ok := koreanNeighborhoods[lower]
	return name, ok
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func isHangul(s string) bool {
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
	}
	return false
}

func completeness(a domain.StructuredAddress) float64 {
	n := 0
	for _, v := range []string{a.StreetAddress, a.District, a.City, a.Country, a.PostalCode} {
		if v != "" {
			n++
		}
	}
	return float64(n) / 5
}
