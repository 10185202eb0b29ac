package schema

// ColumnType represents the SQL type of a table column.
type ColumnType string

const (
	VARCHAR   ColumnType = "VARCHAR"
	TEXT      ColumnType = "TEXT"
	INTEGER   ColumnType = "INTEGER"
	BIGINT    ColumnType = "BIGINT"
	DOUBLE    ColumnType = "DOUBLE PRECISION"
	NUMERIC   ColumnType = "NUMERIC"
	BOOLEAN   ColumnType = "BOOLEAN"
	TIMESTAMP ColumnType = "TIMESTAMP"
	DATE      ColumnType = "DATE"
	JSONB     ColumnType = "JSONB"
	UUID      ColumnType = "UUID"
)

// IndexType represents the type of index.
type IndexType string

const (
	HASH  IndexType = "hash"
	BTREE IndexType = "btree"
)

// ColumnDefinition defines a single column within a table.
type ColumnDefinition struct {
	Name       string      `json:"name"`
	Type       ColumnType  `json:"type"`
	NotNull    bool        `json:"notNull"`
	Unique     bool        `json:"unique"`
	PrimaryKey bool        `json:"primaryKey,omitempty"`
	Default    interface{} `json:"default,omitempty"`
}

// IndexDefinition defines an index on a table.
type IndexDefinition struct {
	Name    string    `json:"name"`
	Type    IndexType `json:"type"`
	Columns []string  `json:"columns"`
	Unique  bool      `json:"unique,omitempty"`
}

// ForeignKeyDefinition defines a foreign key constraint between tables.
type ForeignKeyDefinition struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	RefTable   string   `json:"refTable"`
	RefColumns []string `json:"refColumns"`
	OnDelete   string   `json:"onDelete,omitempty"` // "CASCADE", "SET NULL", "RESTRICT"
}

// TableDefinition defines the structure of a table.
type TableDefinition struct {
	Name        string                 `json:"name"`
	Columns     []ColumnDefinition     `json:"columns"`
	Indexes     []IndexDefinition      `json:"indexes"`
	ForeignKeys []ForeignKeyDefinition `json:"foreignKeys"`
}

// SchemaDefinition represents the complete database schema.
type SchemaDefinition struct {
	Tables []TableDefinition `json:"tables"`
}

// ColumnChange represents a change to a column in a table.
type ColumnChange struct {
	Type       string            `json:"type"` // "add", "remove", "modify"
	ColumnName string            `json:"columnName"`
	OldColumn  *ColumnDefinition `json:"oldColumn,omitempty"`
	NewColumn  *ColumnDefinition `json:"newColumn,omitempty"`
}

// IndexChange represents a change to an index.
type IndexChange struct {
	Type     string           `json:"type"` // "add", "remove", "modify"
	OldIndex *IndexDefinition `json:"oldIndex,omitempty"`
	NewIndex *IndexDefinition `json:"newIndex,omitempty"`
}

// TableChange represents a change to a table.
type TableChange struct {
	Type          string           `json:"type"` // "create", "delete", "modify"
	TableName     string           `json:"tableName"`
	OldDefinition *TableDefinition `json:"oldDefinition,omitempty"`
	NewDefinition *TableDefinition `json:"newDefinition,omitempty"`
	ColumnChanges []ColumnChange   `json:"columnChanges,omitempty"`
	IndexChanges  []IndexChange    `json:"indexChanges,omitempty"`
}

// ForeignKeyChange represents a change to a foreign key constraint.
type ForeignKeyChange struct {
	Type          string                `json:"type"` // "add", "remove"
	TableName     string                `json:"tableName"`
	OldForeignKey *ForeignKeyDefinition `json:"oldForeignKey,omitempty"`
	NewForeignKey *ForeignKeyDefinition `json:"newForeignKey,omitempty"`
}

// SchemaDiff represents the differences between two schemas.
type SchemaDiff struct {
	TableChanges      []TableChange      `json:"tableChanges"`
	IndexChanges      []IndexChange      `json:"indexChanges"`
	ForeignKeyChanges []ForeignKeyChange `json:"foreignKeyChanges"`
	HasChanges        bool               `json:"hasChanges"`
}
