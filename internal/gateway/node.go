package gateway

// Node stores one scalar leaf of the tree, JSON-encoded.
type Node struct {
	Path  string `gorm:"column:path;primaryKey;size:512;not null"`
	Value string `gorm:"column:value_json;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Node) TableName() string {
	return "tree_nodes"
}
