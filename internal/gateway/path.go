package gateway

import (
	"errors"
	"fmt"
	"strings"
)

const separator = "/"

// ErrInvalidPath indicates an empty path or a path with an empty or malformed segment.
var ErrInvalidPath = errors.New("gateway: invalid path")

// Path addresses a node in the tree as "/"-joined segments, e.g. "shops/ds-1/shop-9".
type Path string

// NewPath joins segments into a Path. Validation happens when the path is used.
func NewPath(segments ...string) Path {
	return Path(strings.Join(segments, separator))
}

// Child returns the path of a direct child.
func (p Path) Child(segment string) Path {
	return Path(string(p) + separator + segment)
}

// Parent returns the enclosing path, or "" for a root segment.
func (p Path) Parent() Path {
	index := strings.LastIndex(string(p), separator)
	if index < 0 {
		return ""
	}
	return p[:index]
}

// Segments splits the path into its segments.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), separator)
}

// Root returns the first segment.
func (p Path) Root() string {
	segments := p.Segments()
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

// String returns the raw path.
func (p Path) String() string {
	return string(p)
}

// Validate rejects empty paths, empty segments and reserved characters.
func (p Path) Validate() error {
	if p == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, segment := range p.Segments() {
		if err := validateSegment(segment); err != nil {
			return fmt.Errorf("%w: %q", err, p)
		}
	}
	return nil
}

// IsAncestorOf reports whether other lies strictly below p.
func (p Path) IsAncestorOf(other Path) bool {
	return strings.HasPrefix(string(other), string(p)+separator)
}

// Overlaps reports whether a write at one path can change the value observed at the other.
func (p Path) Overlaps(other Path) bool {
	return p == other || p.IsAncestorOf(other) || other.IsAncestorOf(p)
}

// ancestors lists every strict ancestor, nearest first.
func (p Path) ancestors() []Path {
	var result []Path
	for parent := p.Parent(); parent != ""; parent = parent.Parent() {
		result = append(result, parent)
	}
	return result
}

// subtreeBounds returns the half-open key range holding every strict descendant of p.
// '0' is the byte following '/', so [p/, p0) covers exactly the p/ prefix.
func (p Path) subtreeBounds() (string, string) {
	return string(p) + separator, string(p) + "0"
}

func validateSegment(segment string) error {
	if strings.TrimSpace(segment) == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	}
	if strings.ContainsAny(segment, ".#$[]") {
		return fmt.Errorf("%w: reserved character in segment %q", ErrInvalidPath, segment)
	}
	return nil
}
