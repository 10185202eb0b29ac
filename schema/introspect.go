package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/querywire/querywire-go/mapper"
)

// Executor runs a statement against the translator and returns the raw
// response body. *client.Client satisfies this.
type Executor interface {
	Query(ctx context.Context, query string) ([]byte, error)
}

// Introspector reads the server's schema through the translator's
// MySQL-style introspection statements (SHOW DATABASES, SHOW TABLES,
// DESCRIBE), which the translator rewrites onto the catalog of the
// backing database.
type Introspector struct {
	exec Executor
}

// NewIntrospector creates an introspector over the given executor.
func NewIntrospector(exec Executor) *Introspector {
	return &Introspector{exec: exec}
}

// identPattern matches the bare identifiers the translator's DESCRIBE
// rewrite accepts. Anything else is rejected before it reaches the wire.
var identPattern = regexp.MustCompile(`^\w+$`)

// Databases lists the databases visible to the translator's backing
// connection.
func (in *Introspector) Databases(ctx context.Context) ([]string, error) {
	rs, err := in.query(ctx, "SHOW DATABASES;")
	if err != nil {
		return nil, err
	}
	return rs.StringColumn(0)
}

// Tables lists the tables in the translator's default schema.
func (in *Introspector) Tables(ctx context.Context) ([]string, error) {
	rs, err := in.query(ctx, "SHOW TABLES;")
	if err != nil {
		return nil, err
	}
	return rs.StringColumn(0)
}

// DescribeTable returns the column structure of one table. The
// translator's DESCRIBE projection carries name and type only, so
// constraints and indexes come back empty.
func (in *Introspector) DescribeTable(ctx context.Context, tableName string) (*TableDefinition, error) {
	if !identPattern.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}

	rs, err := in.query(ctx, fmt.Sprintf("DESCRIBE %s;", tableName))
	if err != nil {
		return nil, err
	}
	if rs.Len() == 0 {
		return nil, fmt.Errorf("table %q has no columns or does not exist", tableName)
	}

	table := &TableDefinition{
		Name:        tableName,
		Columns:     make([]ColumnDefinition, 0, rs.Len()),
		Indexes:     make([]IndexDefinition, 0),
		ForeignKeys: make([]ForeignKeyDefinition, 0),
	}

	for i := 0; i < rs.Len(); i++ {
		name, err := rs.StringAt(i, 0)
		if err != nil {
			return nil, err
		}
		rawType, err := rs.StringAt(i, 1)
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, ColumnDefinition{
			Name: name,
			Type: mapDataType(rawType),
		})
	}

	return table, nil
}

// Snapshot introspects every table and assembles a full schema
// definition.
func (in *Introspector) Snapshot(ctx context.Context) (*SchemaDefinition, error) {
	tables, err := in.Tables(ctx)
	if err != nil {
		return nil, err
	}

	schema := &SchemaDefinition{Tables: make([]TableDefinition, 0, len(tables))}
	for _, name := range tables {
		table, err := in.DescribeTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to describe table %q: %w", name, err)
		}
		schema.Tables = append(schema.Tables, *table)
	}

	return schema, nil
}

func (in *Introspector) query(ctx context.Context, stmt string) (*mapper.ResultSet, error) {
	body, err := in.exec.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	rs, err := mapper.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("introspection statement %q: %w", stmt, err)
	}
	return rs, nil
}

// mapDataType maps the catalog's type names onto ColumnType values.
// Unrecognized names pass through uppercased so the diff still has
// something comparable.
func mapDataType(raw string) ColumnType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "character varying", "varchar":
		return VARCHAR
	case "text":
		return TEXT
	case "integer", "int", "int4":
		return INTEGER
	case "bigint", "int8":
		return BIGINT
	case "double precision", "float8", "real":
		return DOUBLE
	case "numeric", "decimal":
		return NUMERIC
	case "boolean", "bool":
		return BOOLEAN
	case "timestamp without time zone", "timestamp with time zone", "timestamp":
		return TIMESTAMP
	case "date":
		return DATE
	case "json", "jsonb":
		return JSONB
	case "uuid":
		return UUID
	default:
		return ColumnType(strings.ToUpper(raw))
	}
}
