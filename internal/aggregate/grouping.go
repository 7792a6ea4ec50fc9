package aggregate

import (
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
)

const (
	// CompletedSectionID identifies the bucket of checked shopping list lines.
	CompletedSectionID = "completed"
	// CompletedSectionTitle is the display title of the completed bucket.
	CompletedSectionTitle = "Completed"

	categorySectionPrefix = "category/"
)

// CategorySectionID returns the stable section id of a category bucket.
func CategorySectionID(category catalog.Category) string {
	return categorySectionPrefix + strings.ToLower(category.String())
}

// GroupByCategory partitions items into one section per category, sections ordered by
// case-insensitive title. Items keep their input order unless less is provided.
func GroupByCategory[T any](items []T, categoryOf func(T) catalog.Category, less func(a, b T) bool) []diff.Section[T] {
	byID := make(map[string]int)
	sections := make([]diff.Section[T], 0)
	for _, item := range items {
		category := categoryOf(item)
		if category == "" {
			category = catalog.CategoryOther
		}
		id := CategorySectionID(category)
		position, ok := byID[id]
		if !ok {
			position = len(sections)
			byID[id] = position
			sections = append(sections, diff.Section[T]{ID: id, Title: category.String()})
		}
		sections[position].Items = append(sections[position].Items, item)
	}
	sortSections(sections)
	if less != nil {
		for index := range sections {
			items := sections[index].Items
			sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
		}
	}
	return sections
}

// GroupShoppingList splits an enriched list into unchecked lines per product category and a
// trailing Completed section holding every checked line. Empty buckets are omitted.
func GroupShoppingList(products []catalog.ShoppingListProduct) []diff.Section[catalog.ShoppingListProduct] {
	pending := make([]catalog.ShoppingListProduct, 0, len(products))
	completed := make([]catalog.ShoppingListProduct, 0)
	for _, product := range products {
		if product.IsChecked {
			completed = append(completed, product)
			continue
		}
		pending = append(pending, product)
	}
	sections := GroupByCategory(pending, func(product catalog.ShoppingListProduct) catalog.Category {
		return product.Product.Product.Category
	}, nil)
	if len(completed) > 0 {
		sections = append(sections, diff.Section[catalog.ShoppingListProduct]{
			ID:    CompletedSectionID,
			Title: CompletedSectionTitle,
			Items: completed,
		})
	}
	return sections
}

func sortSections[T any](sections []diff.Section[T]) {
	sort.SliceStable(sections, func(i, j int) bool {
		left, right := sections[i], sections[j]
		if left.ID == CompletedSectionID || right.ID == CompletedSectionID {
			return right.ID == CompletedSectionID && left.ID != CompletedSectionID
		}
		leftTitle, rightTitle := strings.ToLower(left.Title), strings.ToLower(right.Title)
		if leftTitle != rightTitle {
			return leftTitle < rightTitle
		}
		return left.ID < right.ID
	})
}
