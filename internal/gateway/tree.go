package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotEncodable indicates a value that cannot be represented in the tree.
var ErrNotEncodable = errors.New("gateway: value not encodable")

// normalize converts an arbitrary Go value into the generic JSON shape
// (map[string]any, []any, json.Number, string, bool, nil).
func normalize(value any) (any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEncodable, err)
	}
	generic, err := decodeJSON(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEncodable, err)
	}
	return generic, nil
}

func decodeJSON(encoded []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// flatten writes one leaf per scalar below base. Nil values and empty containers produce nothing.
func flatten(base Path, value any, leaves map[Path]string) error {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		for key, child := range typed {
			if err := validateSegment(key); err != nil {
				return fmt.Errorf("%w: key %q", ErrNotEncodable, key)
			}
			if err := flatten(base.Child(key), child, leaves); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for index, child := range typed {
			if err := flatten(base.Child(strconv.Itoa(index)), child, leaves); err != nil {
				return err
			}
		}
		return nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotEncodable, err)
		}
		leaves[base] = string(encoded)
		return nil
	}
}

// assemble rebuilds the value at root from the leaves stored at or below it.
func assemble(root Path, nodes []Node) (any, error) {
	var tree map[string]any
	prefix := string(root) + separator
	for _, node := range nodes {
		leaf, err := decodeJSON([]byte(node.Value))
		if err != nil {
			return nil, fmt.Errorf("decode leaf %q: %w", node.Path, err)
		}
		if node.Path == string(root) {
			return leaf, nil
		}
		segments := strings.Split(strings.TrimPrefix(node.Path, prefix), separator)
		if tree == nil {
			tree = make(map[string]any)
		}
		cursor := tree
		for _, segment := range segments[:len(segments)-1] {
			next, ok := cursor[segment].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cursor[segment] = next
			}
			cursor = next
		}
		cursor[segments[len(segments)-1]] = leaf
	}
	if tree == nil {
		return nil, nil
	}
	return arrayify(tree), nil
}

// arrayify turns objects keyed exactly 0..n-1 back into arrays.
func arrayify(value any) any {
	object, ok := value.(map[string]any)
	if !ok {
		return value
	}
	for key, child := range object {
		object[key] = arrayify(child)
	}
	if items, ok := asArray(object); ok {
		return items
	}
	return object
}

func asArray(object map[string]any) ([]any, bool) {
	items := make([]any, len(object))
	for key, child := range object {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(object) || strconv.Itoa(index) != key {
			return nil, false
		}
		items[index] = child
	}
	return items, true
}
