package bulk

import "strings"

const defaultCategory = "other"

// categorySynonyms maps free-text model categories onto store categories.
var categorySynonyms = map[string]string{
	"tshirt":        "t-shirts",
	"tshirts":       "t-shirts",
	"t-shirt":       "t-shirts",
	"t-shirts":      "t-shirts",
	"tee":           "t-shirts",
	"tees":          "t-shirts",
	"shirt":         "shirts",
	"shirts":        "shirts",
	"blouse":        "shirts",
	"blouses":       "shirts",
	"top":           "tops",
	"tops":          "tops",
	"tank-top":      "tops",
	"hoodie":        "hoodies",
	"hoodies":       "hoodies",
	"sweatshirt":    "hoodies",
	"sweatshirts":   "hoodies",
	"sweater":       "knitwear",
	"sweaters":      "knitwear",
	"knitwear":      "knitwear",
	"jacket":        "outerwear",
	"jackets":       "outerwear",
	"coat":          "outerwear",
	"coats":         "outerwear",
	"outerwear":     "outerwear",
	"pant":          "pants",
	"pants":         "pants",
	"trousers":      "pants",
	"jeans":         "pants",
	"shorts":        "shorts",
	"skirt":         "skirts",
	"skirts":        "skirts",
	"dress":         "dresses",
	"dresses":       "dresses",
	"shoe":          "shoes",
	"shoes":         "shoes",
	"sneakers":      "shoes",
	"footwear":      "shoes",
	"boots":         "shoes",
	"bag":           "accessories",
	"bags":          "accessories",
	"hat":           "accessories",
	"hats":          "accessories",
	"cap":           "accessories",
	"caps":          "accessories",
	"accessory":     "accessories",
	"accessories":   "accessories",
	"jewelry":       "accessories",
	"jewellery":     "accessories",
	"uncategorized": defaultCategory,
}

// MapCategory normalizes a category and maps it through the synonym table.
// Unknown categories are kept in normalized form.
func MapCategory(raw string) string {
	normalized := normalizeCategory(raw)
	if normalized == "" {
		return defaultCategory
	}
	if mapped, ok := categorySynonyms[normalized]; ok {
		return mapped
	}
	if mapped, ok := categorySynonyms[strings.ReplaceAll(normalized, "-", "")]; ok {
		return mapped
	}
	return normalized
}

func normalizeCategory(raw string) string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '/'
	})
	return strings.Join(fields, "-")
}
