package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/querywire/querywire-go/codegen"
	"github.com/querywire/querywire-go/schema"
)

func handleCodegen(args []string) {
	if len(args) == 0 {
		printCodegenUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	switch subcommand {
	case "generate":
		handleCodegenGenerate(args[1:])
	case "help", "-h", "--help":
		printCodegenUsage()
	default:
		printError(fmt.Sprintf("Unknown codegen subcommand: %s", subcommand))
		printCodegenUsage()
		os.Exit(1)
	}
}

func printCodegenUsage() {
	printHeader("Code Generation Commands")
	fmt.Println("Usage:")
	fmt.Println("  querywire codegen " + colorYellow("generate") + " [options]\n")
	fmt.Println("Examples:")
	fmt.Println("  " + colorDim("# Generate Go types from the schema file"))
	fmt.Println("  querywire codegen generate --format types --language go")
	fmt.Println()
	fmt.Println("  " + colorDim("# Generate TypeScript types from the live server schema"))
	fmt.Println("  querywire codegen generate --url http://localhost:8080 --language typescript")
	fmt.Println()
	fmt.Println("  " + colorDim("# Generate JSON Schema"))
	fmt.Println("  querywire codegen generate --format json-schema")
	fmt.Println()
	fmt.Println("  " + colorDim("# Generate GraphQL Schema"))
	fmt.Println("  querywire codegen generate --format graphql")
	fmt.Println()
	fmt.Println("To save the server schema to a file first, use " + colorCyan("querywire schema fetch") + ".")
}

// handleCodegenGenerate generates code from a schema, read either from
// the local schema file or introspected live from the server.
func handleCodegenGenerate(args []string) {
	fs := flag.NewFlagSet("codegen generate", flag.ExitOnError)
	schemaFile := fs.String("schema", getDefaultSchemaFile(), "Schema file path")
	baseURL := fs.StringP("url", "u", "", "Translator base URL (introspect live instead of reading the schema file)")
	output := fs.String("output", "", "Output file path (default: stdout)")
	formatType := fs.String("format", "types", "Output format: types, json-schema, graphql")
	language := fs.String("language", "go", "Language for types: go, typescript")
	packageName := fs.String("package", "models", "Package name for generated Go code")
	timeoutMs := fs.Int("timeout", 0, "Request timeout in milliseconds")
	fs.Parse(args)

	printHeader("Generate Code from Schema")

	printStep(1, 3, "Loading schema...")
	var schemaDef *schema.SchemaDefinition
	if *baseURL != "" {
		schemaDef = snapshotServerSchema(*baseURL, *timeoutMs)
	} else {
		data, err := os.ReadFile(*schemaFile)
		if err != nil {
			printError(fmt.Sprintf("Failed to read schema file: %v", err))
			printInfo("Run " + colorCyan("querywire schema fetch") + " to create one, or pass --url to introspect live")
			os.Exit(1)
		}
		schemaDef, err = schema.ParseSchemaFile(data)
		if err != nil {
			printError(fmt.Sprintf("Failed to parse schema: %v", err))
			os.Exit(1)
		}
	}
	printSuccess(fmt.Sprintf("Loaded schema with %d table(s)", len(schemaDef.Tables)))

	printStep(2, 3, "Processing schema...")
	registry := codegen.NewTypeRegistry()
	registry.LoadFromSchema(schemaDef)
	printSuccess("Schema loaded into registry")

	printStep(3, 3, "Generating code...")

	var outputData string
	var err error
	switch *formatType {
	case "types":
		switch *language {
		case "typescript":
			outputData, err = generateTypeScriptTypes(registry)
		case "go":
			outputData, err = generateGoTypes(registry, *packageName)
		default:
			printError(fmt.Sprintf("Unknown language: %s", *language))
			os.Exit(1)
		}
	case "json-schema":
		outputData, err = codegen.NewJSONSchemaGenerator().GenerateSingle(schemaDef)
	case "graphql":
		outputData, err = codegen.NewGraphQLSchemaGenerator().Generate(schemaDef)
	default:
		printError(fmt.Sprintf("Unknown format: %s", *formatType))
		os.Exit(1)
	}

	if err != nil {
		printError(fmt.Sprintf("Code generation failed: %v", err))
		os.Exit(1)
	}

	if *output == "" {
		fmt.Println(outputData)
		return
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		printError(fmt.Sprintf("Failed to create directory: %v", err))
		os.Exit(1)
	}
	if err := os.WriteFile(*output, []byte(outputData), 0644); err != nil {
		printError(fmt.Sprintf("Failed to write file: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Code generated: %s", colorCyan(*output)))
}

// snapshotServerSchema introspects the live server schema.
func snapshotServerSchema(baseURL string, timeoutMs int) *schema.SchemaDefinition {
	c, err := connectClient(baseURL, timeoutMs, false)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	introspector := schema.NewIntrospector(c)
	schemaDef, err := introspector.Snapshot(context.Background())
	if err != nil {
		printError(fmt.Sprintf("Failed to introspect schema: %v", err))
		os.Exit(1)
	}
	return schemaDef
}

// Code generation helper functions

func generateGoTypes(registry *codegen.TypeRegistry, packageName string) (string, error) {
	tables := registry.GetAll()
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables found in registry")
	}

	// Only import what the columns actually need.
	imports := make(map[string]bool)
	for _, table := range tables {
		for _, column := range table.Columns {
			switch column.Type {
			case schema.TIMESTAMP, schema.DATE:
				imports["time"] = true
			case schema.JSONB:
				imports["encoding/json"] = true
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("// Code generated by querywire codegen. DO NOT EDIT.\n\n")
	sb.WriteString(fmt.Sprintf("package %s\n\n", packageName))

	if len(imports) > 0 {
		names := make([]string, 0, len(imports))
		for name := range imports {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 1 {
			sb.WriteString(fmt.Sprintf("import %q\n\n", names[0]))
		} else {
			sb.WriteString("import (\n")
			for _, name := range names {
				sb.WriteString(fmt.Sprintf("\t%q\n", name))
			}
			sb.WriteString(")\n\n")
		}
	}

	for _, table := range tables {
		structName := toPascalCase(table.Name)
		sb.WriteString(fmt.Sprintf("type %s struct {\n", structName))

		for _, column := range table.Columns {
			fieldName := toPascalCase(column.Name)
			goType := columnToGoType(column.Type)

			// Nullable columns become pointers so NULL survives decoding.
			jsonTag := column.Name
			if !column.NotNull {
				goType = "*" + goType
				jsonTag += ",omitempty"
			}

			sb.WriteString(fmt.Sprintf("\t%s %s `json:\"%s\"`\n", fieldName, goType, jsonTag))
		}

		sb.WriteString("}\n\n")
	}

	return sb.String(), nil
}

func generateTypeScriptTypes(registry *codegen.TypeRegistry) (string, error) {
	tables := registry.GetAll()
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables found in registry")
	}

	var sb strings.Builder
	sb.WriteString("// Code generated by querywire codegen. DO NOT EDIT.\n\n")

	for _, table := range tables {
		interfaceName := toPascalCase(table.Name)
		sb.WriteString(fmt.Sprintf("export interface %s {\n", interfaceName))

		for _, column := range table.Columns {
			tsType := columnToTypeScriptType(column.Type)
			optional := ""
			if !column.NotNull {
				optional = "?"
			}

			sb.WriteString(fmt.Sprintf("  %s%s: %s;\n", column.Name, optional, tsType))
		}

		sb.WriteString("}\n\n")
	}

	return sb.String(), nil
}

// Type conversion helpers

func columnToGoType(columnType schema.ColumnType) string {
	switch columnType {
	case schema.VARCHAR, schema.TEXT, schema.UUID:
		return "string"
	case schema.INTEGER:
		return "int32"
	case schema.BIGINT:
		return "int64"
	case schema.DOUBLE, schema.NUMERIC:
		return "float64"
	case schema.BOOLEAN:
		return "bool"
	case schema.TIMESTAMP, schema.DATE:
		return "time.Time"
	case schema.JSONB:
		return "json.RawMessage"
	default:
		return "interface{}"
	}
}

// columnToTypeScriptType maps to the JSON the server actually sends:
// timestamps arrive as ISO strings, not Date objects.
func columnToTypeScriptType(columnType schema.ColumnType) string {
	switch columnType {
	case schema.VARCHAR, schema.TEXT, schema.UUID, schema.TIMESTAMP, schema.DATE:
		return "string"
	case schema.INTEGER, schema.BIGINT, schema.DOUBLE, schema.NUMERIC:
		return "number"
	case schema.BOOLEAN:
		return "boolean"
	case schema.JSONB:
		return "unknown"
	default:
		return "unknown"
	}
}

func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}
