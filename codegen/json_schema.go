package codegen

import (
	"encoding/json"
	"fmt"

	"github.com/querywire/querywire-go/schema"
)

// JSONSchemaGenerator generates JSON Schema for the row objects of each
// table in a schema definition.
type JSONSchemaGenerator struct {
	registry *TypeRegistry
}

// NewJSONSchemaGenerator creates a new JSON Schema generator.
func NewJSONSchemaGenerator() *JSONSchemaGenerator {
	return &JSONSchemaGenerator{
		registry: NewTypeRegistry(),
	}
}

// GenerateSingle generates a single JSON Schema file containing all table definitions.
func (g *JSONSchemaGenerator) GenerateSingle(schemaDef *schema.SchemaDefinition) (string, error) {
	definitions := make(map[string]interface{})

	for i := range schemaDef.Tables {
		table := &schemaDef.Tables[i]
		definitions[table.Name] = g.generateTableSchema(table)
	}

	rootSchema := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "Database Schema",
		"type":        "object",
		"definitions": definitions,
	}

	data, err := json.MarshalIndent(rootSchema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}

	return string(data), nil
}

// GenerateMulti generates separate JSON Schema files for each table.
// Returns a map of table name to JSON Schema content.
func (g *JSONSchemaGenerator) GenerateMulti(schemaDef *schema.SchemaDefinition) (map[string]string, error) {
	schemas := make(map[string]string)

	for i := range schemaDef.Tables {
		table := &schemaDef.Tables[i]
		tableSchema := g.generateTableSchema(table)

		rootSchema := map[string]interface{}{
			"$schema":     "http://json-schema.org/draft-07/schema#",
			"title":       table.Name,
			"type":        "object",
			"description": fmt.Sprintf("Schema for rows of table %s", table.Name),
			"properties":  tableSchema["properties"],
			"required":    tableSchema["required"],
		}

		data, err := json.MarshalIndent(rootSchema, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for table %s: %w", table.Name, err)
		}

		schemas[table.Name] = string(data)
	}

	return schemas, nil
}

// generateTableSchema creates a JSON Schema object for one table's rows.
func (g *JSONSchemaGenerator) generateTableSchema(table *schema.TableDefinition) map[string]interface{} {
	properties := make(map[string]interface{})
	required := make([]string, 0)

	for i := range table.Columns {
		column := &table.Columns[i]
		properties[column.Name] = g.generateColumnSchema(table, column)

		// A column the database refuses NULL for must be present in a
		// valid row object.
		if column.NotNull || column.PrimaryKey {
			required = append(required, column.Name)
		}
	}

	tableSchema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		tableSchema["required"] = required
	}

	return tableSchema
}

// generateColumnSchema creates a JSON Schema type definition for a column.
func (g *JSONSchemaGenerator) generateColumnSchema(table *schema.TableDefinition, column *schema.ColumnDefinition) map[string]interface{} {
	columnSchema := make(map[string]interface{})

	switch column.Type {
	case schema.VARCHAR, schema.TEXT:
		columnSchema["type"] = "string"
	case schema.INTEGER, schema.BIGINT:
		columnSchema["type"] = "integer"
	case schema.DOUBLE, schema.NUMERIC:
		columnSchema["type"] = "number"
	case schema.BOOLEAN:
		columnSchema["type"] = "boolean"
	case schema.TIMESTAMP:
		columnSchema["type"] = "string"
		columnSchema["format"] = "date-time"
	case schema.DATE:
		columnSchema["type"] = "string"
		columnSchema["format"] = "date"
	case schema.UUID:
		columnSchema["type"] = "string"
		columnSchema["format"] = "uuid"
	case schema.JSONB:
		columnSchema["type"] = "object"
	default:
		columnSchema["type"] = "string"
	}

	if ref := foreignKeyTarget(table, column.Name); ref != "" {
		columnSchema["description"] = "references " + ref
	}

	if column.Default != nil {
		columnSchema["default"] = column.Default
	}

	return columnSchema
}

// foreignKeyTarget returns "table(column)" for a column covered by a
// foreign key, or "" when the column references nothing.
func foreignKeyTarget(table *schema.TableDefinition, columnName string) string {
	for _, fk := range table.ForeignKeys {
		for i, col := range fk.Columns {
			if col != columnName {
				continue
			}
			refColumn := ""
			if i < len(fk.RefColumns) {
				refColumn = fk.RefColumns[i]
			}
			return fmt.Sprintf("%s(%s)", fk.RefTable, refColumn)
		}
	}
	return ""
}

// GetTypeRegistry returns the type registry used by this generator.
func (g *JSONSchemaGenerator) GetTypeRegistry() *TypeRegistry {
	return g.registry
}
