package views

import (
	"reflect"
	"testing"

	"github.com/MarcoPoloResearchLab/basket/internal/aggregate"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
)

func line(product catalog.ProductWithPrices, checked bool) catalog.ShoppingListProduct {
	return catalog.ShoppingListProduct{Product: product, IsChecked: checked}
}

func TestShoppingListReportsAbsence(t *testing.T) {
	source := newFakeSource()
	var updates []ShoppingListUpdate
	view := NewShoppingList(source, func(update ShoppingListUpdate) { updates = append(updates, update) })
	view.Start()
	defer view.Stop()

	source.emitList(nil)
	if len(updates) != 1 || !updates[0].Absent {
		t.Fatalf("expected an absent update, got %+v", updates)
	}
	source.emitList(nil)
	if len(updates) != 1 {
		t.Fatalf("expected repeated absence to be absorbed, got %d updates", len(updates))
	}

	source.emitList(&catalog.EnrichedShoppingList{ID: "list-1", Products: []catalog.ShoppingListProduct{}})
	if len(updates) != 2 || updates[1].Absent || updates[1].ListID != "list-1" || len(updates[1].Sections) != 0 {
		t.Fatalf("expected an empty present list, got %+v", updates)
	}
}

func TestShoppingListMovesCheckedLinesToCompleted(t *testing.T) {
	source := newFakeSource()
	var latest ShoppingListUpdate
	view := NewShoppingList(source, func(update ShoppingListUpdate) { latest = update })
	view.Start()
	defer view.Stop()

	milk := productWithPrices("p-milk", "Milk", "Dairy", priceEntry("a", "shop-a", 1, 1))
	bread := productWithPrices("p-bread", "Bread", "Bakery")
	eggs := productWithPrices("p-eggs", "Eggs", "Dairy")

	source.emitList(&catalog.EnrichedShoppingList{ID: "list-1", Products: []catalog.ShoppingListProduct{
		line(milk, false), line(bread, false), line(eggs, false),
	}})
	if latest.Remaining != 3 || latest.Completed != 0 {
		t.Fatalf("unexpected counts %+v", latest)
	}
	if latest.Sections[1].Items[0].Cheapest == nil {
		t.Fatalf("expected cheapest price on milk row")
	}

	source.emitList(&catalog.EnrichedShoppingList{ID: "list-1", Products: []catalog.ShoppingListProduct{
		line(milk, true), line(bread, false), line(eggs, false),
	}})

	titles := make([]string, 0, len(latest.Sections))
	for _, section := range latest.Sections {
		titles = append(titles, section.Title)
	}
	if !reflect.DeepEqual(titles, []string{"Bakery", "Dairy", aggregate.CompletedSectionTitle}) {
		t.Fatalf("unexpected sections %v", titles)
	}
	expected := diff.Result{
		InsertedSections: []int{2},
		DeletedRows:      []diff.IndexPath{{Section: 1, Row: 0}},
	}
	if !reflect.DeepEqual(latest.Diff, expected) {
		t.Fatalf("unexpected diff %+v", latest.Diff)
	}
	if latest.Remaining != 2 || latest.Completed != 1 {
		t.Fatalf("unexpected counts %+v", latest)
	}
	if current := view.Current(); !reflect.DeepEqual(current, latest) {
		t.Fatalf("expected current state to match the last update")
	}
}
