package schema

import (
	"fmt"
	"strings"
)

// SerializeCreateTable generates a CREATE TABLE statement.
func SerializeCreateTable(table *TableDefinition) string {
	var columns []string
	for _, column := range table.Columns {
		columns = append(columns, "    "+serializeColumn(&column))
	}

	if pk := primaryKeyColumns(table); len(pk) > 0 {
		columns = append(columns, fmt.Sprintf("    PRIMARY KEY (%s)", joinQuoted(pk)))
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n%s\n);",
		quoteIdent(table.Name),
		strings.Join(columns, ",\n"),
	)
}

// SerializeAlterTable generates a single ALTER TABLE statement covering
// every column change in the given table change. Returns "" when there
// is nothing to alter.
func SerializeAlterTable(tableName string, changes *TableChange) string {
	var actions []string

	for _, columnChange := range changes.ColumnChanges {
		switch columnChange.Type {
		case "add":
			actions = append(actions, fmt.Sprintf(
				"    ADD COLUMN %s", serializeColumn(columnChange.NewColumn)))

		case "remove":
			actions = append(actions, fmt.Sprintf(
				"    DROP COLUMN %s", quoteIdent(columnChange.ColumnName)))

		case "modify":
			old := columnChange.OldColumn
			updated := columnChange.NewColumn
			col := quoteIdent(columnChange.ColumnName)

			if old == nil || old.Type != updated.Type {
				actions = append(actions, fmt.Sprintf(
					"    ALTER COLUMN %s TYPE %s", col, updated.Type))
			}
			if old == nil || old.NotNull != updated.NotNull {
				if updated.NotNull {
					actions = append(actions, fmt.Sprintf("    ALTER COLUMN %s SET NOT NULL", col))
				} else {
					actions = append(actions, fmt.Sprintf("    ALTER COLUMN %s DROP NOT NULL", col))
				}
			}
			if old == nil || !defaultsEqual(old.Default, updated.Default) {
				if updated.Default == nil {
					actions = append(actions, fmt.Sprintf("    ALTER COLUMN %s DROP DEFAULT", col))
				} else {
					actions = append(actions, fmt.Sprintf(
						"    ALTER COLUMN %s SET DEFAULT %s", col, serializeDefaultValue(updated.Default)))
				}
			}
		}
	}

	if len(actions) == 0 {
		return ""
	}

	return fmt.Sprintf(
		"ALTER TABLE %s\n%s;",
		quoteIdent(tableName),
		strings.Join(actions, ",\n"),
	)
}

// SerializeCreateIndex generates a CREATE INDEX statement.
func SerializeCreateIndex(index *IndexDefinition, tableName string) string {
	unique := ""
	if index.Unique {
		unique = "UNIQUE "
	}

	method := "btree"
	if index.Type == HASH {
		method = "hash"
	}

	return fmt.Sprintf(
		"CREATE %sINDEX %s ON %s USING %s (%s);",
		unique,
		quoteIdent(index.Name),
		quoteIdent(tableName),
		method,
		joinQuoted(index.Columns),
	)
}

// SerializeDropIndex generates a DROP INDEX statement.
func SerializeDropIndex(indexName string) string {
	return fmt.Sprintf("DROP INDEX %s;", quoteIdent(indexName))
}

// SerializeAddForeignKey generates an ALTER TABLE ADD CONSTRAINT statement.
func SerializeAddForeignKey(tableName string, fk *ForeignKeyDefinition) string {
	stmt := fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteIdent(tableName),
		quoteIdent(fk.Name),
		joinQuoted(fk.Columns),
		quoteIdent(fk.RefTable),
		joinQuoted(fk.RefColumns),
	)
	if fk.OnDelete != "" {
		stmt += " ON DELETE " + fk.OnDelete
	}
	return stmt + ";"
}

// SerializeDropForeignKey generates an ALTER TABLE DROP CONSTRAINT statement.
func SerializeDropForeignKey(tableName string, constraintName string) string {
	return fmt.Sprintf(
		"ALTER TABLE %s DROP CONSTRAINT %s;",
		quoteIdent(tableName),
		quoteIdent(constraintName),
	)
}

// SerializeDropTable generates a DROP TABLE statement.
func SerializeDropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE %s;", quoteIdent(tableName))
}

// serializeColumn renders one column clause of a CREATE TABLE or ADD
// COLUMN action. Primary key columns are declared through the table
// level PRIMARY KEY clause, not here.
func serializeColumn(column *ColumnDefinition) string {
	parts := []string{quoteIdent(column.Name), string(column.Type)}

	if column.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if column.Unique {
		parts = append(parts, "UNIQUE")
	}
	if column.Default != nil {
		parts = append(parts, "DEFAULT "+serializeDefaultValue(column.Default))
	}

	return strings.Join(parts, " ")
}

func primaryKeyColumns(table *TableDefinition) []string {
	var pk []string
	for _, column := range table.Columns {
		if column.PrimaryKey {
			pk = append(pk, column.Name)
		}
	}
	return pk
}

// quoteIdent double-quotes an identifier, doubling embedded quotes so a
// hostile name cannot break out of the quoted region.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func joinQuoted(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}

func defaultsEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// serializeDefaultValue converts a default value to its SQL literal
// representation. String values have single quotes doubled.
func serializeDefaultValue(val interface{}) string {
	if val == nil {
		return "NULL"
	}

	switch v := val.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "NULL"
	}
}
