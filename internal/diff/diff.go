package diff

// Section is an identified, ordered group of items.
type Section[T any] struct {
	ID    string
	Title string
	Items []T
}

// IndexPath addresses a row inside a section.
type IndexPath struct {
	Section int
	Row     int
}

// Result lists the primitive edits that turn one sectioned list into another.
// Deleted coordinates refer to the old list; inserted and updated coordinates refer to the new one.
// Moves are not detected: a reordered section or row is reported as unchanged.
type Result struct {
	InsertedSections []int
	DeletedSections  []int
	InsertedRows     []IndexPath
	DeletedRows      []IndexPath
	UpdatedRows      []IndexPath
}

// IsEmpty reports whether the two lists were equivalent.
func (r Result) IsEmpty() bool {
	return len(r.InsertedSections) == 0 &&
		len(r.DeletedSections) == 0 &&
		len(r.InsertedRows) == 0 &&
		len(r.DeletedRows) == 0 &&
		len(r.UpdatedRows) == 0
}

// Calculate computes the edits between oldSections and newSections. Sections match by ID and
// rows match by key within a matched section. Only the first occurrence of a repeated ID or key
// takes part in matching; later occurrences are reported as deleted or inserted.
func Calculate[T any, K comparable](oldSections, newSections []Section[T], key func(T) K, equal func(a, b T) bool) Result {
	result := Result{}
	oldIndex := indexSections(oldSections)
	newIndex := indexSections(newSections)

	for index, section := range oldSections {
		if _, ok := newIndex[section.ID]; !ok || oldIndex[section.ID] != index {
			result.DeletedSections = append(result.DeletedSections, index)
		}
	}
	for index, section := range newSections {
		if _, ok := oldIndex[section.ID]; !ok || newIndex[section.ID] != index {
			result.InsertedSections = append(result.InsertedSections, index)
		}
	}

	for newPosition, section := range newSections {
		if newIndex[section.ID] != newPosition {
			continue
		}
		oldPosition, ok := oldIndex[section.ID]
		if !ok {
			continue
		}
		diffRows(&result, oldPosition, oldSections[oldPosition].Items, newPosition, section.Items, key, equal)
	}
	return result
}

func diffRows[T any, K comparable](result *Result, oldSection int, oldItems []T, newSection int, newItems []T, key func(T) K, equal func(a, b T) bool) {
	oldRows := indexItems(oldItems, key)
	newRows := indexItems(newItems, key)

	for row, item := range oldItems {
		itemKey := key(item)
		if _, ok := newRows[itemKey]; !ok || oldRows[itemKey] != row {
			result.DeletedRows = append(result.DeletedRows, IndexPath{Section: oldSection, Row: row})
		}
	}
	for row, item := range newItems {
		itemKey := key(item)
		previous, ok := oldRows[itemKey]
		if !ok || newRows[itemKey] != row {
			result.InsertedRows = append(result.InsertedRows, IndexPath{Section: newSection, Row: row})
			continue
		}
		if !equal(oldItems[previous], item) {
			result.UpdatedRows = append(result.UpdatedRows, IndexPath{Section: newSection, Row: row})
		}
	}
}

func indexSections[T any](sections []Section[T]) map[string]int {
	index := make(map[string]int, len(sections))
	for position, section := range sections {
		if _, exists := index[section.ID]; !exists {
			index[section.ID] = position
		}
	}
	return index
}

func indexItems[T any, K comparable](items []T, key func(T) K) map[K]int {
	index := make(map[K]int, len(items))
	for position, item := range items {
		itemKey := key(item)
		if _, exists := index[itemKey]; !exists {
			index[itemKey] = position
		}
	}
	return index
}
