package schema

import (
	"encoding/json"
	"fmt"
)

// ParseSchemaFile parses a schema definition kept in a local JSON file.
// The file format mirrors SchemaDefinition: {"tables": [{...}, {...}]}.
func ParseSchemaFile(data []byte) (*SchemaDefinition, error) {
	var schema SchemaDefinition
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	for i, table := range schema.Tables {
		if table.Name == "" {
			return nil, fmt.Errorf("table %d has no name", i)
		}
		for j, column := range table.Columns {
			if column.Name == "" {
				return nil, fmt.Errorf("table %q column %d has no name", table.Name, j)
			}
			if column.Type == "" {
				return nil, fmt.Errorf("table %q column %q has no type", table.Name, column.Name)
			}
		}
	}

	return &schema, nil
}

// CompareSchemas compares a local schema against the server's to
// generate a diff. The local schema is treated as the desired state:
// tables present locally but not on the server come out as creates,
// tables only on the server come out as deletes.
func CompareSchemas(local, server *SchemaDefinition) *SchemaDiff {
	diff := &SchemaDiff{
		TableChanges:      make([]TableChange, 0),
		IndexChanges:      make([]IndexChange, 0),
		ForeignKeyChanges: make([]ForeignKeyChange, 0),
		HasChanges:        false,
	}

	// Create maps for efficient lookup
	localTables := make(map[string]*TableDefinition)
	serverTables := make(map[string]*TableDefinition)

	for i := range local.Tables {
		localTables[local.Tables[i].Name] = &local.Tables[i]
	}
	for i := range server.Tables {
		serverTables[server.Tables[i].Name] = &server.Tables[i]
	}

	// Find added and modified tables
	for name, localTable := range localTables {
		serverTable, exists := serverTables[name]
		if !exists {
			// Table created
			diff.TableChanges = append(diff.TableChanges, TableChange{
				Type:          "create",
				TableName:     name,
				NewDefinition: localTable,
			})
			diff.HasChanges = true
		} else {
			// Check for modifications
			columnChanges := compareColumns(localTable.Columns, serverTable.Columns)
			indexChanges := compareIndexes(localTable.Indexes, serverTable.Indexes)

			if len(columnChanges) > 0 || len(indexChanges) > 0 {
				diff.TableChanges = append(diff.TableChanges, TableChange{
					Type:          "modify",
					TableName:     name,
					OldDefinition: serverTable,
					NewDefinition: localTable,
					ColumnChanges: columnChanges,
					IndexChanges:  indexChanges,
				})
				diff.HasChanges = true
			}
		}
	}

	// Find removed tables
	for name, serverTable := range serverTables {
		if _, exists := localTables[name]; !exists {
			diff.TableChanges = append(diff.TableChanges, TableChange{
				Type:          "delete",
				TableName:     name,
				OldDefinition: serverTable,
			})
			diff.HasChanges = true
		}
	}

	// Compare foreign keys (only between tables that exist on each side)
	diff.ForeignKeyChanges = compareForeignKeys(local, server, localTables, serverTables)
	if len(diff.ForeignKeyChanges) > 0 {
		diff.HasChanges = true
	}

	return diff
}

// compareColumns compares two column lists and returns the changes.
func compareColumns(localColumns, serverColumns []ColumnDefinition) []ColumnChange {
	changes := make([]ColumnChange, 0)

	localMap := make(map[string]*ColumnDefinition)
	serverMap := make(map[string]*ColumnDefinition)

	for i := range localColumns {
		localMap[localColumns[i].Name] = &localColumns[i]
	}
	for i := range serverColumns {
		serverMap[serverColumns[i].Name] = &serverColumns[i]
	}

	// Find added and modified columns
	for name, localColumn := range localMap {
		serverColumn, exists := serverMap[name]
		if !exists {
			changes = append(changes, ColumnChange{
				Type:       "add",
				ColumnName: name,
				NewColumn:  localColumn,
			})
		} else if !columnsEqual(localColumn, serverColumn) {
			changes = append(changes, ColumnChange{
				Type:       "modify",
				ColumnName: name,
				OldColumn:  serverColumn,
				NewColumn:  localColumn,
			})
		}
	}

	// Find removed columns
	for name, serverColumn := range serverMap {
		if _, exists := localMap[name]; !exists {
			changes = append(changes, ColumnChange{
				Type:       "remove",
				ColumnName: name,
				OldColumn:  serverColumn,
			})
		}
	}

	return changes
}

// columnsEqual compares two columns for equality.
func columnsEqual(a, b *ColumnDefinition) bool {
	return a.Type == b.Type &&
		a.NotNull == b.NotNull &&
		a.Unique == b.Unique &&
		a.PrimaryKey == b.PrimaryKey &&
		fmt.Sprintf("%v", a.Default) == fmt.Sprintf("%v", b.Default)
}

// compareIndexes compares two index lists and returns the changes.
func compareIndexes(localIndexes, serverIndexes []IndexDefinition) []IndexChange {
	changes := make([]IndexChange, 0)

	localMap := make(map[string]*IndexDefinition)
	serverMap := make(map[string]*IndexDefinition)

	for i := range localIndexes {
		localMap[localIndexes[i].Name] = &localIndexes[i]
	}
	for i := range serverIndexes {
		serverMap[serverIndexes[i].Name] = &serverIndexes[i]
	}

	// Find added and modified indexes
	for name, localIndex := range localMap {
		serverIndex, exists := serverMap[name]
		if !exists {
			changes = append(changes, IndexChange{
				Type:     "add",
				NewIndex: localIndex,
			})
		} else if !indexesEqual(localIndex, serverIndex) {
			changes = append(changes, IndexChange{
				Type:     "modify",
				OldIndex: serverIndex,
				NewIndex: localIndex,
			})
		}
	}

	// Find removed indexes
	for name, serverIndex := range serverMap {
		if _, exists := localMap[name]; !exists {
			changes = append(changes, IndexChange{
				Type:     "remove",
				OldIndex: serverIndex,
			})
		}
	}

	return changes
}

// indexesEqual compares two indexes for equality.
func indexesEqual(a, b *IndexDefinition) bool {
	if a.Type != b.Type || a.Unique != b.Unique || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

// compareForeignKeys compares foreign keys between schemas.
// Only includes constraints where both referencing and referenced
// tables exist on that side.
func compareForeignKeys(local, server *SchemaDefinition, localTables, serverTables map[string]*TableDefinition) []ForeignKeyChange {
	changes := make([]ForeignKeyChange, 0)

	localFKs := make(map[string]*ForeignKeyDefinition)
	localFKTables := make(map[string]string)
	serverFKs := make(map[string]*ForeignKeyDefinition)
	serverFKTables := make(map[string]string)

	for _, table := range local.Tables {
		for i := range table.ForeignKeys {
			fk := &table.ForeignKeys[i]
			if _, refExists := localTables[fk.RefTable]; refExists {
				key := fmt.Sprintf("%s.%s", table.Name, fk.Name)
				localFKs[key] = fk
				localFKTables[key] = table.Name
			}
		}
	}

	for _, table := range server.Tables {
		for i := range table.ForeignKeys {
			fk := &table.ForeignKeys[i]
			if _, refExists := serverTables[fk.RefTable]; refExists {
				key := fmt.Sprintf("%s.%s", table.Name, fk.Name)
				serverFKs[key] = fk
				serverFKTables[key] = table.Name
			}
		}
	}

	// Find added foreign keys
	for key, localFK := range localFKs {
		if _, exists := serverFKs[key]; !exists {
			changes = append(changes, ForeignKeyChange{
				Type:          "add",
				TableName:     localFKTables[key],
				NewForeignKey: localFK,
			})
		}
	}

	// Find removed foreign keys
	for key, serverFK := range serverFKs {
		if _, exists := localFKs[key]; !exists {
			changes = append(changes, ForeignKeyChange{
				Type:          "remove",
				TableName:     serverFKTables[key],
				OldForeignKey: serverFK,
			})
		}
	}

	return changes
}
