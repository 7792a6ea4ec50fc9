package gateway

import (
	"context"
	"encoding/json"
	"sort"

	"go.uber.org/zap"
)

// Observe delivers the value at path decoded as T, or nil while it is absent or undecodable.
func Observe[T any](g *Gateway, path Path, onChange func(*T)) *Subscription {
	return g.Subscribe(path, func(raw any) {
		onChange(decodeValue[T](g.logger, path, raw))
	})
}

// ObserveList delivers the direct children of path decoded as T, ordered by key.
// Children that fail to decode are skipped. An absent path delivers an empty slice.
func ObserveList[T any](g *Gateway, path Path, onChange func([]T)) *Subscription {
	return g.Subscribe(path, func(raw any) {
		onChange(decodeList[T](g.logger, path, raw))
	})
}

// ObserveNestedUnkeyedList delivers the grandchildren of path decoded as T, flattened in
// (child key, grandchild key) order.
func ObserveNestedUnkeyedList[T any](g *Gateway, path Path, onChange func([]T)) *Subscription {
	return g.Subscribe(path, func(raw any) {
		onChange(decodeNestedList[T](g.logger, path, raw))
	})
}

// GetValue reads path once and decodes it as T; nil when absent.
func GetValue[T any](ctx context.Context, g *Gateway, path Path) (*T, error) {
	raw, err := g.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var value T
	if err := decodeInto(raw, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

// GetList reads the direct children of path once.
func GetList[T any](ctx context.Context, g *Gateway, path Path) ([]T, error) {
	raw, err := g.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeList[T](g.logger, path, raw), nil
}

// GetNestedUnkeyedList reads the grandchildren of path once.
func GetNestedUnkeyedList[T any](ctx context.Context, g *Gateway, path Path) ([]T, error) {
	raw, err := g.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeNestedList[T](g.logger, path, raw), nil
}

func decodeValue[T any](logger *zap.Logger, path Path, raw any) *T {
	if raw == nil {
		return nil
	}
	var value T
	if err := decodeInto(raw, &value); err != nil {
		logger.Warn("gateway value not decodable", zap.String("path", path.String()), zap.Error(err))
		return nil
	}
	return &value
}

func decodeList[T any](logger *zap.Logger, path Path, raw any) []T {
	children := orderedChildren(raw)
	result := make([]T, 0, len(children))
	for _, child := range children {
		var value T
		if err := decodeInto(child, &value); err != nil {
			logger.Warn("gateway child not decodable", zap.String("path", path.String()), zap.Error(err))
			continue
		}
		result = append(result, value)
	}
	return result
}

func decodeNestedList[T any](logger *zap.Logger, path Path, raw any) []T {
	var result []T
	for _, group := range orderedChildren(raw) {
		result = append(result, decodeList[T](logger, path, group)...)
	}
	if result == nil {
		result = make([]T, 0)
	}
	return result
}

// orderedChildren returns the children of an object by ascending key, or the elements of an array.
func orderedChildren(raw any) []any {
	switch typed := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		children := make([]any, 0, len(keys))
		for _, key := range keys {
			children = append(children, typed[key])
		}
		return children
	case []any:
		children := make([]any, 0, len(typed))
		for _, child := range typed {
			if child != nil {
				children = append(children, child)
			}
		}
		return children
	default:
		return nil
	}
}

func decodeInto(raw any, target any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, target)
}
