package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/querywire/querywire-go/schema"
)

func handleSchema(args []string) {
	if len(args) == 0 {
		printSchemaUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	switch subcommand {
	case "tables":
		handleSchemaTables(args[1:])
	case "fetch":
		handleSchemaFetch(args[1:])
	case "diff":
		handleSchemaDiff(args[1:])
	case "help", "-h", "--help":
		printSchemaUsage()
	default:
		printError(fmt.Sprintf("Unknown schema subcommand: %s", subcommand))
		printSchemaUsage()
		os.Exit(1)
	}
}

func printSchemaUsage() {
	printHeader("Schema Commands")
	fmt.Println("Usage:")
	fmt.Println("  querywire schema " + colorYellow("<command>") + " [options]\n")
	fmt.Println("Commands:")
	fmt.Println("  " + colorGreen("tables") + "   List the tables visible through the translator")
	fmt.Println("  " + colorGreen("fetch") + "    Introspect the server schema and save it to a file")
	fmt.Println("  " + colorGreen("diff") + "     Compare a local schema file against the server")
	fmt.Println("\nExamples:")
	fmt.Println("  " + colorDim("# List tables"))
	fmt.Println("  querywire schema tables")
	fmt.Println()
	fmt.Println("  " + colorDim("# Snapshot the server schema"))
	fmt.Println("  querywire schema fetch --output ./schema.json")
	fmt.Println()
	fmt.Println("  " + colorDim("# Show what a local schema would change, with DDL"))
	fmt.Println("  querywire schema diff --schema ./schema.json --sql")
}

// handleSchemaTables lists table names.
func handleSchemaTables(args []string) {
	fs := flag.NewFlagSet("schema tables", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	requireBaseURL(*baseURL)

	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	introspector := schema.NewIntrospector(c)
	tables, err := introspector.Tables(context.Background())
	if err != nil {
		printError(fmt.Sprintf("Failed to list tables: %v", err))
		os.Exit(1)
	}

	if len(tables) == 0 {
		printWarning("No tables found")
		return
	}
	for _, name := range tables {
		fmt.Println(name)
	}
}

// handleSchemaFetch introspects the full server schema and writes it
// to a local JSON file.
func handleSchemaFetch(args []string) {
	fs := flag.NewFlagSet("schema fetch", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	output := fs.StringP("output", "o", getDefaultSchemaFile(), "Output file path")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	requireBaseURL(*baseURL)

	printHeader("Fetch Schema from Server")

	printStep(1, 3, "Connecting to translator...")
	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()
	printSuccess("Connected")

	printStep(2, 3, "Introspecting schema...")
	introspector := schema.NewIntrospector(c)
	schemaDef, err := introspector.Snapshot(context.Background())
	if err != nil {
		printError(fmt.Sprintf("Failed to introspect schema: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Found %d table(s)", len(schemaDef.Tables)))

	printStep(3, 3, "Writing schema file...")
	dir := filepath.Dir(*output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create directory: %v", err))
		os.Exit(1)
	}

	data, err := json.MarshalIndent(schemaDef, "", "  ")
	if err != nil {
		printError(fmt.Sprintf("Failed to marshal schema: %v", err))
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		printError(fmt.Sprintf("Failed to write file: %v", err))
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Schema saved to: %s", colorCyan(*output)))

	fmt.Println()
	printInfo("Schema Summary:")
	for _, table := range schemaDef.Tables {
		fmt.Printf("  • %s (%d columns, %d indexes)\n",
			colorBold(table.Name),
			len(table.Columns),
			len(table.Indexes))
	}
}

// handleSchemaDiff compares a local schema file (the desired state)
// against the server's current schema.
func handleSchemaDiff(args []string) {
	fs := flag.NewFlagSet("schema diff", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	schemaFile := fs.String("schema", getDefaultSchemaFile(), "Local schema file (desired state)")
	sql := fs.Bool("sql", false, "Print the DDL statements that would reconcile the diff")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	requireBaseURL(*baseURL)

	data, err := os.ReadFile(*schemaFile)
	if err != nil {
		printError(fmt.Sprintf("Failed to read schema file: %v", err))
		printInfo("Run " + colorCyan("querywire schema fetch") + " to create one")
		os.Exit(1)
	}
	local, err := schema.ParseSchemaFile(data)
	if err != nil {
		printError(fmt.Sprintf("Failed to parse schema: %v", err))
		os.Exit(1)
	}

	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	introspector := schema.NewIntrospector(c)
	server, err := introspector.Snapshot(context.Background())
	if err != nil {
		printError(fmt.Sprintf("Failed to introspect schema: %v", err))
		os.Exit(1)
	}

	diff := schema.CompareSchemas(local, server)
	if !diff.HasChanges {
		printSuccess("Schema is in sync with the server")
		return
	}

	printHeader("Schema Diff")
	for _, tc := range diff.TableChanges {
		switch tc.Type {
		case "create":
			fmt.Println(colorGreen("+ table "+tc.TableName) +
				colorDim(fmt.Sprintf(" (%d columns)", len(tc.NewDefinition.Columns))))
		case "delete":
			fmt.Println(colorRed("- table " + tc.TableName))
		case "modify":
			fmt.Println(colorYellow("~ table " + tc.TableName))
			for _, cc := range tc.ColumnChanges {
				switch cc.Type {
				case "add":
					fmt.Println("    " + colorGreen("+ column "+cc.ColumnName))
				case "remove":
					fmt.Println("    " + colorRed("- column "+cc.ColumnName))
				case "modify":
					fmt.Println("    " + colorYellow("~ column "+cc.ColumnName))
				}
			}
			for _, ic := range tc.IndexChanges {
				switch ic.Type {
				case "add":
					fmt.Println("    " + colorGreen("+ index "+ic.NewIndex.Name))
				case "remove":
					fmt.Println("    " + colorRed("- index "+ic.OldIndex.Name))
				case "modify":
					fmt.Println("    " + colorYellow("~ index "+ic.NewIndex.Name))
				}
			}
		}
	}
	for _, fc := range diff.ForeignKeyChanges {
		switch fc.Type {
		case "add":
			fmt.Println(colorGreen(fmt.Sprintf("+ foreign key %s.%s", fc.TableName, fc.NewForeignKey.Name)))
		case "remove":
			fmt.Println(colorRed(fmt.Sprintf("- foreign key %s.%s", fc.TableName, fc.OldForeignKey.Name)))
		}
	}

	if *sql {
		fmt.Println()
		printInfo("Reconciling DDL:")
		for _, stmt := range diffStatements(diff) {
			fmt.Println()
			fmt.Println(stmt)
		}
	} else {
		fmt.Println()
		printInfo("Run with " + colorCyan("--sql") + " to see the DDL")
	}
}

// diffStatements turns a schema diff into the DDL that would apply it,
// tables first so index and constraint statements have something to
// reference.
func diffStatements(diff *schema.SchemaDiff) []string {
	statements := make([]string, 0)

	for i := range diff.TableChanges {
		tc := &diff.TableChanges[i]
		switch tc.Type {
		case "create":
			statements = append(statements, schema.SerializeCreateTable(tc.NewDefinition))
			for j := range tc.NewDefinition.Indexes {
				statements = append(statements,
					schema.SerializeCreateIndex(&tc.NewDefinition.Indexes[j], tc.TableName))
			}
		case "delete":
			statements = append(statements, schema.SerializeDropTable(tc.TableName))
		case "modify":
			if stmt := schema.SerializeAlterTable(tc.TableName, tc); stmt != "" {
				statements = append(statements, stmt)
			}
			for j := range tc.IndexChanges {
				ic := &tc.IndexChanges[j]
				switch ic.Type {
				case "add":
					statements = append(statements, schema.SerializeCreateIndex(ic.NewIndex, tc.TableName))
				case "remove":
					statements = append(statements, schema.SerializeDropIndex(ic.OldIndex.Name))
				case "modify":
					statements = append(statements,
						schema.SerializeDropIndex(ic.OldIndex.Name),
						schema.SerializeCreateIndex(ic.NewIndex, tc.TableName))
				}
			}
		}
	}

	for i := range diff.ForeignKeyChanges {
		fc := &diff.ForeignKeyChanges[i]
		switch fc.Type {
		case "add":
			statements = append(statements, schema.SerializeAddForeignKey(fc.TableName, fc.NewForeignKey))
		case "remove":
			statements = append(statements, schema.SerializeDropForeignKey(fc.TableName, fc.OldForeignKey.Name))
		}
	}

	return statements
}
