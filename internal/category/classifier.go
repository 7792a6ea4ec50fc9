package category

import (
	"strings"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
)

// Grocery aisles used by the keyword classifier.
const (
	Bakery     catalog.Category = "Bakery"
	Dairy      catalog.Category = "Dairy & Eggs"
	FruitVeg   catalog.Category = "Fruit & Veg"
	MeatFish   catalog.Category = "Meat & Fish"
	Frozen     catalog.Category = "Frozen"
	Drinks     catalog.Category = "Drinks"
	Snacks     catalog.Category = "Snacks & Sweets"
	Cupboard   catalog.Category = "Food Cupboard"
	Household  catalog.Category = "Household"
	Toiletries catalog.Category = "Health & Beauty"
	Baby       catalog.Category = "Baby & Toddler"
	Pets       catalog.Category = "Pets"
)

// Classifier assigns a category to a product from its name and description.
type Classifier interface {
	Classify(name, description string) catalog.Category
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(name, description string) catalog.Category

// Classify calls f.
func (f ClassifierFunc) Classify(name, description string) catalog.Category {
	return f(name, description)
}

type keyword struct {
	term     string
	category catalog.Category
}

// KeywordClassifier matches product text against a keyword table: exact name match first,
// then substring matches on the name, then on the description. Unmatched products are Other.
type KeywordClassifier struct {
	exact     map[string]catalog.Category
	substring []keyword
}

// NewKeywordClassifier returns a classifier over the built-in grocery table.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{exact: exactTerms, substring: substringTerms}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(name, description string) catalog.Category {
	normalizedName := normalize(name)
	if normalizedName != "" {
		if category, ok := c.exact[normalizedName]; ok {
			return category
		}
		if category, ok := c.matchSubstring(normalizedName); ok {
			return category
		}
	}
	if normalizedDescription := normalize(description); normalizedDescription != "" {
		if category, ok := c.matchSubstring(normalizedDescription); ok {
			return category
		}
	}
	return catalog.CategoryOther
}

func (c *KeywordClassifier) matchSubstring(text string) (catalog.Category, bool) {
	for _, entry := range c.substring {
		if strings.Contains(text, entry.term) {
			return entry.category, true
		}
	}
	return "", false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
