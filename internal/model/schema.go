package model

// SourceSchema is the full introspection result for a data source, covering
// the tables and views available to dashboard builders.
type SourceSchema struct {
	Tables []TableSchema `json:"tables"`
	Views  []TableSchema `json:"views"`
}

// TableSchema describes the structure of a single table or view.
type TableSchema struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"` // "table" or "view"
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Indexes     []Index      `json:"indexes"`
	RowCount    *int64       `json:"row_count,omitempty"`
}

// Column describes a single column within a table or view.
type Column struct {
	Name            string  `json:"name"`
	Position        int     `json:"position"`
	Type            string  `json:"db_type"`
	JsonType        string  `json:"json_type"`
	Nullable        bool    `json:"nullable"`
	Default         *string `json:"default,omitempty"`
	MaxLength       *int64  `json:"max_length,omitempty"`
	IsPrimaryKey    bool    `json:"is_primary_key"`
	IsAutoIncrement bool    `json:"is_auto_increment"`
}

// ForeignKey describes a foreign key constraint between two tables.
type ForeignKey struct {
	Name             string `json:"name"`
	ColumnName       string `json:"column_name"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty"`
	OnUpdate         string `json:"on_update,omitempty"`
}

// Index describes a secondary index on a table.
type Index struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	IsUnique bool     `json:"is_unique"`
}
