package gateway

import "fmt"

// Update is one entry of a multi-path write: either a value to store or a deletion.
type Update struct {
	value  any
	delete bool
}

// Set stores value at the path, replacing whatever subtree was there.
func Set(value any) Update {
	return Update{value: value}
}

// Delete removes the path and its subtree.
func Delete() Update {
	return Update{delete: true}
}

// IsDelete reports whether the update removes its path.
func (u Update) IsDelete() bool {
	return u.delete
}

// Value returns the value stored by a Set update.
func (u Update) Value() any {
	return u.value
}

// Condition guards a multi-path write; every condition is checked in the write's transaction.
type Condition struct {
	path   Path
	exists bool
}

// Exists requires a value at path.
func Exists(path Path) Condition {
	return Condition{path: path, exists: true}
}

// Missing requires no value at path.
func Missing(path Path) Condition {
	return Condition{path: path, exists: false}
}

// Path returns the guarded path.
func (c Condition) Path() Path {
	return c.path
}

// ConditionError names the guard that rejected a multi-path write. It matches ErrConditionFailed.
type ConditionError struct {
	Path   Path
	Exists bool
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConditionFailed, e.Path)
}

func (e *ConditionError) Unwrap() error {
	return ErrConditionFailed
}
