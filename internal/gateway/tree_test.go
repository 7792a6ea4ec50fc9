package gateway

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFlattenAndAssembleRoundTrip(t *testing.T) {
	value := map[string]any{
		"id": "l-1",
		"items": []any{
			map[string]any{"productId": "p-1", "isChecked": true},
			map[string]any{"productId": "p-2", "isChecked": false, "quantity": json.Number("2")},
		},
	}
	leaves := make(map[Path]string)
	if err := flatten(NewPath("shoppingList", "d-1"), value, leaves); err != nil {
		t.Fatalf("flatten failed: %v", err)
	}
	if leaves[NewPath("shoppingList", "d-1", "items", "1", "quantity")] != "2" {
		t.Fatalf("expected indexed leaf, got %v", leaves)
	}

	nodes := make([]Node, 0, len(leaves))
	for path, encoded := range leaves {
		nodes = append(nodes, Node{Path: path.String(), Value: encoded})
	}
	rebuilt, err := assemble(NewPath("shoppingList", "d-1"), nodes)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if !reflect.DeepEqual(rebuilt, value) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", rebuilt, value)
	}
}

func TestFlattenDropsEmptyContainers(t *testing.T) {
	leaves := make(map[Path]string)
	value := map[string]any{"id": "l-1", "items": []any{}, "members": map[string]any{}, "note": nil}
	if err := flatten(NewPath("lists", "l-1"), value, leaves); err != nil {
		t.Fatalf("flatten failed: %v", err)
	}
	if len(leaves) != 1 {
		t.Fatalf("expected only the id leaf, got %v", leaves)
	}
}

func TestAssembleKeepsSparseIndexesAsObject(t *testing.T) {
	nodes := []Node{
		{Path: "lists/l-1/0", Value: `"a"`},
		{Path: "lists/l-1/2", Value: `"c"`},
	}
	rebuilt, err := assemble(NewPath("lists", "l-1"), nodes)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if !reflect.DeepEqual(rebuilt, map[string]any{"0": "a", "2": "c"}) {
		t.Fatalf("expected object for sparse keys, got %#v", rebuilt)
	}
}

func TestPathRelations(t *testing.T) {
	root := NewPath("prices", "d-1")
	child := root.Child("p-1")
	if !root.IsAncestorOf(child) || child.IsAncestorOf(root) {
		t.Fatalf("unexpected ancestry for %q and %q", root, child)
	}
	if NewPath("prices", "d-10").Overlaps(root) {
		t.Fatalf("sibling with shared prefix must not overlap")
	}
	if child.Parent() != root || root.Root() != "prices" {
		t.Fatalf("unexpected parent/root")
	}
}
