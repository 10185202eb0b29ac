package codegen

import (
	"fmt"
	"strings"

	"github.com/querywire/querywire-go/schema"
)

// GraphQLSchemaGenerator generates GraphQL SDL from table definitions.
type GraphQLSchemaGenerator struct {
	registry *TypeRegistry
}

// NewGraphQLSchemaGenerator creates a new GraphQL schema generator.
func NewGraphQLSchemaGenerator() *GraphQLSchemaGenerator {
	return &GraphQLSchemaGenerator{
		registry: NewTypeRegistry(),
	}
}

// Generate creates a complete GraphQL SDL schema.
func (g *GraphQLSchemaGenerator) Generate(schemaDef *schema.SchemaDefinition) (string, error) {
	var builder strings.Builder

	// Write schema header
	builder.WriteString("# GraphQL schema generated from database tables\n\n")

	// Generate type definitions for each table
	for i := range schemaDef.Tables {
		g.generateType(&builder, &schemaDef.Tables[i])
		builder.WriteString("\n")
	}

	// Generate input types for mutations
	for i := range schemaDef.Tables {
		g.generateInputType(&builder, &schemaDef.Tables[i])
		builder.WriteString("\n")
	}

	// Generate root Query type
	g.generateQueryType(&builder, schemaDef)
	builder.WriteString("\n")

	// Generate root Mutation type
	g.generateMutationType(&builder, schemaDef)

	return builder.String(), nil
}

// generateType creates a GraphQL type definition for a table.
func (g *GraphQLSchemaGenerator) generateType(builder *strings.Builder, table *schema.TableDefinition) {
	builder.WriteString(fmt.Sprintf("type %s {\n", typeName(table.Name)))

	for i := range table.Columns {
		column := &table.Columns[i]
		graphqlType := g.mapToGraphQLType(column)
		required := ""
		if column.NotNull || column.PrimaryKey {
			required = "!"
		}
		builder.WriteString(fmt.Sprintf("  %s: %s%s\n", column.Name, graphqlType, required))
	}

	// Foreign keys become navigable object fields alongside the raw
	// key columns.
	for _, fk := range table.ForeignKeys {
		g.generateRelationshipField(builder, &fk)
	}

	builder.WriteString("}\n")
}

// generateRelationshipField creates an object field for a foreign key.
func (g *GraphQLSchemaGenerator) generateRelationshipField(builder *strings.Builder, fk *schema.ForeignKeyDefinition) {
	if fk.RefTable == "" {
		return
	}
	builder.WriteString(fmt.Sprintf("  %s: %s\n", singular(fk.RefTable), typeName(fk.RefTable)))
}

// generateInputType creates GraphQL input types for mutations.
func (g *GraphQLSchemaGenerator) generateInputType(builder *strings.Builder, table *schema.TableDefinition) {
	name := typeName(table.Name)

	// Create input: non-null columns without defaults are mandatory
	builder.WriteString(fmt.Sprintf("input %sInput {\n", name))
	for i := range table.Columns {
		column := &table.Columns[i]
		graphqlType := g.mapToGraphQLType(column)
		required := ""
		if (column.NotNull || column.PrimaryKey) && column.Default == nil {
			required = "!"
		}
		builder.WriteString(fmt.Sprintf("  %s: %s%s\n", column.Name, graphqlType, required))
	}
	builder.WriteString("}\n")

	// Update input: all columns optional
	builder.WriteString(fmt.Sprintf("input %sUpdateInput {\n", name))
	for i := range table.Columns {
		column := &table.Columns[i]
		builder.WriteString(fmt.Sprintf("  %s: %s\n", column.Name, g.mapToGraphQLType(column)))
	}
	builder.WriteString("}\n")
}

// generateQueryType creates the root Query type.
func (g *GraphQLSchemaGenerator) generateQueryType(builder *strings.Builder, schemaDef *schema.SchemaDefinition) {
	builder.WriteString("type Query {\n")

	for i := range schemaDef.Tables {
		table := &schemaDef.Tables[i]
		name := typeName(table.Name)

		// Single row query
		builder.WriteString(fmt.Sprintf("  %s(id: ID!): %s\n", singular(table.Name), name))

		// List query
		builder.WriteString(fmt.Sprintf("  %s(limit: Int, offset: Int): [%s!]!\n", table.Name, name))
	}

	builder.WriteString("}\n")
}

// generateMutationType creates the root Mutation type.
func (g *GraphQLSchemaGenerator) generateMutationType(builder *strings.Builder, schemaDef *schema.SchemaDefinition) {
	builder.WriteString("type Mutation {\n")

	for i := range schemaDef.Tables {
		table := &schemaDef.Tables[i]
		name := typeName(table.Name)

		builder.WriteString(fmt.Sprintf("  create%s(input: %sInput!): %s!\n", name, name, name))
		builder.WriteString(fmt.Sprintf("  update%s(id: ID!, input: %sUpdateInput!): %s!\n", name, name, name))
		builder.WriteString(fmt.Sprintf("  delete%s(id: ID!): Boolean!\n", name))
	}

	builder.WriteString("}\n")
}

// mapToGraphQLType maps column types to GraphQL types. Primary key
// columns map to ID regardless of their SQL type.
func (g *GraphQLSchemaGenerator) mapToGraphQLType(column *schema.ColumnDefinition) string {
	if column.PrimaryKey {
		return "ID"
	}

	switch column.Type {
	case schema.VARCHAR, schema.TEXT, schema.TIMESTAMP, schema.DATE, schema.UUID:
		return "String"
	case schema.INTEGER, schema.BIGINT:
		return "Int"
	case schema.DOUBLE, schema.NUMERIC:
		return "Float"
	case schema.BOOLEAN:
		return "Boolean"
	case schema.JSONB:
		return "JSON" // Assumes JSON scalar is defined
	default:
		return "String"
	}
}

// typeName converts a snake_case table name to a PascalCase GraphQL
// type name: "user_accounts" becomes "UserAccounts".
func typeName(tableName string) string {
	parts := strings.Split(tableName, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// singular strips a trailing plural suffix for single-row field names:
// "users" becomes "user", "categories" becomes "category".
func singular(s string) string {
	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "ses") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}

// GetTypeRegistry returns the type registry used by this generator.
func (g *GraphQLSchemaGenerator) GetTypeRegistry() *TypeRegistry {
	return g.registry
}
