package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/querywire/querywire-go/migration"
	"github.com/querywire/querywire-go/schema"
)

// historyFileName is the local record of applied migrations, kept next
// to the migration files. ListMigrationFiles skips dotfiles, so it
// never gets picked up as a migration itself.
const historyFileName = ".querywire_history.json"

func handleMigrate(args []string) {
	if len(args) == 0 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	switch subcommand {
	case "init":
		handleMigrateInit(args[1:])
	case "generate":
		handleMigrateGenerate(args[1:])
	case "up":
		handleMigrateUp(args[1:])
	case "down":
		handleMigrateDown(args[1:])
	case "status":
		handleMigrateStatus(args[1:])
	case "validate":
		handleMigrateValidate(args[1:])
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		printError(fmt.Sprintf("Unknown migrate subcommand: %s", subcommand))
		printMigrateUsage()
		os.Exit(1)
	}
}

func printMigrateUsage() {
	printHeader("Migration Commands")
	fmt.Println("Usage:")
	fmt.Println("  querywire migrate " + colorYellow("<command>") + " [options]\n")
	fmt.Println("Commands:")
	fmt.Println("  " + colorGreen("init") + "       Initialize migration directory and sample schema")
	fmt.Println("  " + colorGreen("generate") + "   Generate a new migration from the schema file")
	fmt.Println("  " + colorGreen("up") + "         Apply pending migrations")
	fmt.Println("  " + colorGreen("down") + "       Rollback the last applied migration")
	fmt.Println("  " + colorGreen("status") + "     Show migration status")
	fmt.Println("  " + colorGreen("validate") + "   Validate migration files")
	fmt.Println("\nExamples:")
	fmt.Println("  " + colorDim("# Initialize project"))
	fmt.Println("  querywire migrate init")
	fmt.Println()
	fmt.Println("  " + colorDim("# Create a new migration"))
	fmt.Println("  querywire migrate generate --name add_users_table")
	fmt.Println()
	fmt.Println("  " + colorDim("# Apply migrations (with preview)"))
	fmt.Println("  querywire migrate up --dry-run")
	fmt.Println("  querywire migrate up")
	fmt.Println()
	fmt.Println("  " + colorDim("# Check status"))
	fmt.Println("  querywire migrate status")
}

// handleMigrateInit initializes a new migration project
func handleMigrateInit(args []string) {
	fs := flag.NewFlagSet("migrate init", flag.ExitOnError)
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	schemaFile := fs.String("schema", getDefaultSchemaFile(), "Schema file path")
	force := fs.Bool("force", false, "Overwrite existing files")
	fs.Parse(args)

	printHeader("Initialize Migration Project")

	if _, err := os.Stat(*dir); err == nil && !*force {
		printError(fmt.Sprintf("Directory %s already exists. Use --force to overwrite.", *dir))
		os.Exit(1)
	}

	if err := os.MkdirAll(*dir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create directory: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Created migration directory: %s", colorCyan(*dir)))

	sampleSchema := schema.SchemaDefinition{
		Tables: []schema.TableDefinition{
			{
				Name: "users",
				Columns: []schema.ColumnDefinition{
					{Name: "id", Type: schema.INTEGER, NotNull: true, PrimaryKey: true},
					{Name: "email", Type: schema.VARCHAR, NotNull: true, Unique: true},
					{Name: "name", Type: schema.VARCHAR, NotNull: true},
					{Name: "created_at", Type: schema.TIMESTAMP, NotNull: true},
				},
				Indexes: []schema.IndexDefinition{
					{Name: "idx_users_email", Type: schema.BTREE, Columns: []string{"email"}},
				},
			},
		},
	}

	schemaDir := filepath.Dir(*schemaFile)
	if err := os.MkdirAll(schemaDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create schema directory: %v", err))
		os.Exit(1)
	}

	data, _ := json.MarshalIndent(sampleSchema, "", "  ")
	if err := os.WriteFile(*schemaFile, data, 0644); err != nil {
		printError(fmt.Sprintf("Failed to write schema file: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Created sample schema: %s", colorCyan(*schemaFile)))

	readmePath := filepath.Join(*dir, "README.md")
	readme := `# Database Migrations

This directory contains schema migrations applied through the query
translator.

## Workflow

1. Edit your schema in ` + "`schema.json`" + `
2. Generate a migration: ` + "`querywire migrate generate --name <description>`" + `
3. Review the generated migration file
4. Apply migrations: ` + "`querywire migrate up`" + `

## Commands

- ` + "`querywire migrate status`" + ` - View migration status
- ` + "`querywire migrate up --dry-run`" + ` - Preview changes
- ` + "`querywire migrate down`" + ` - Rollback the last applied migration
- ` + "`querywire migrate validate`" + ` - Validate migration files

Applied-migration history is tracked in ` + "`" + historyFileName + "`" + `
in this directory. Commit it alongside the migration files.
`
	if err := os.WriteFile(readmePath, []byte(readme), 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to create README: %v", err))
	} else {
		printSuccess(fmt.Sprintf("Created README: %s", colorCyan(readmePath)))
	}

	fmt.Println()
	printInfo("Next steps:")
	fmt.Println("  1. Edit " + colorCyan(*schemaFile) + " to define your schema")
	fmt.Println("  2. Run " + colorCyan("querywire migrate generate --name initial_schema"))
	fmt.Println("  3. Run " + colorCyan("querywire migrate up") + " to apply migrations")
}

// handleMigrateGenerate creates a new migration from the schema file
func handleMigrateGenerate(args []string) {
	fs := flag.NewFlagSet("migrate generate", flag.ExitOnError)
	name := fs.String("name", "", "Migration name (required)")
	schemaFile := fs.String("schema", getDefaultSchemaFile(), "Schema file path")
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	fs.Parse(args)

	if *name == "" {
		printError("Migration name is required")
		fmt.Println("\nUsage: querywire migrate generate --name <name>")
		os.Exit(1)
	}

	printHeader(fmt.Sprintf("Generate Migration: %s", *name))

	data, err := os.ReadFile(*schemaFile)
	if err != nil {
		printError(fmt.Sprintf("Failed to read schema file: %v", err))
		printInfo("Run " + colorCyan("querywire migrate init") + " to create a schema file")
		os.Exit(1)
	}

	schemaDef, err := schema.ParseSchemaFile(data)
	if err != nil {
		printError(fmt.Sprintf("Failed to parse schema: %v", err))
		os.Exit(1)
	}

	printInfo(fmt.Sprintf("Found %d table(s) in schema", len(schemaDef.Tables)))

	upCommands := schemaStatements(schemaDef)

	// DOWN statements come from reversing the UP statements; anything
	// irreversible (foreign keys, data statements) leaves them empty.
	rollbackGen := migration.NewRollbackGenerator()
	downCommands, err := rollbackGen.GenerateDown(upCommands)
	if err != nil {
		printWarning(fmt.Sprintf("Could not auto-generate down statements: %v", err))
		downCommands = []string{}
	}

	existing, err := migration.ListMigrationFiles(*dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to list migrations: %v", err))
		os.Exit(1)
	}

	mig := &migration.Migration{
		ID:           nextMigrationID(existing, *name),
		Name:         *name,
		Up:           upCommands,
		Down:         downCommands,
		Dependencies: []string{},
		Timestamp:    time.Now(),
	}

	filePath, err := migration.WriteMigrationFile(mig, *dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to write migration file: %v", err))
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Created migration: %s", colorCyan(filepath.Base(filePath))))
	fmt.Println()
	printInfo("Migration preview:")
	fmt.Println(colorDim(fmt.Sprintf("  UP statements:   %d", len(upCommands))))
	fmt.Println(colorDim(fmt.Sprintf("  DOWN statements: %d", len(downCommands))))
	fmt.Println()
	printInfo("Next steps:")
	fmt.Println("  1. Review the migration file: " + colorCyan(filePath))
	fmt.Println("  2. Run " + colorCyan("querywire migrate up --dry-run") + " to preview")
	fmt.Println("  3. Run " + colorCyan("querywire migrate up") + " to apply")
}

// handleMigrateUp applies pending migrations
func handleMigrateUp(args []string) {
	fs := flag.NewFlagSet("migrate up", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	dryRun := fs.Bool("dry-run", false, "Show what would be applied without executing")
	steps := fs.Int("steps", 0, "Number of migrations to apply (0 = all)")
	force := fs.Bool("force", false, "Skip confirmation prompt")
	noLock := fs.Bool("no-lock", false, "Skip file-based locking of the migration directory")
	fs.Parse(args)

	requireBaseURL(*baseURL)

	printHeader("Apply Migrations")

	migrations, err := migration.ListMigrationFiles(*dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to list migrations: %v", err))
		os.Exit(1)
	}

	if len(migrations) == 0 {
		printWarning("No migration files found in " + *dir)
		printInfo("Run " + colorCyan("querywire migrate generate") + " to create a migration")
		return
	}

	printInfo(fmt.Sprintf("Found %d migration(s)", len(migrations)))

	c, err := connectClient(*baseURL, 0, false)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	migrationClient := migration.NewClient(c)
	if data := readHistoryFile(*dir); data != nil {
		if err := migrationClient.LoadHistory(data); err != nil {
			printError(fmt.Sprintf("Failed to load migration history: %v", err))
			os.Exit(1)
		}
	}
	if !*noLock {
		if err := migrationClient.WithLocking(*dir, 0); err != nil {
			printError(fmt.Sprintf("Failed to configure locking: %v", err))
			os.Exit(1)
		}
	}

	plan, err := migrationClient.Plan(migrations)
	if err != nil {
		printError(fmt.Sprintf("Failed to create migration plan: %v", err))
		os.Exit(1)
	}

	if len(plan.Migrations) == 0 {
		printSuccess("All migrations are up to date!")
		return
	}

	if *steps > 0 && len(plan.Migrations) > *steps {
		plan.Migrations = plan.Migrations[:*steps]
		plan.TotalCount = *steps
	}

	fmt.Println()
	printInfo(fmt.Sprintf("Pending migrations: %d", plan.TotalCount))
	for i, mig := range plan.Migrations {
		fmt.Printf("  %d. %s [%s]\n", i+1, colorBold(mig.Name), colorYellow("pending"))
		fmt.Printf("     %s (%d up, %d down)\n", colorDim(mig.ID), len(mig.Up), len(mig.Down))
	}

	if *dryRun {
		fmt.Println()
		fmt.Println(migration.FormatPreview(plan))
		printInfo(colorYellow("DRY RUN") + " - no changes were applied")
		return
	}

	if !*force {
		fmt.Println()
		if !promptConfirm(fmt.Sprintf("Apply %d migration(s)?", plan.TotalCount)) {
			printInfo("Cancelled")
			return
		}
	}

	fmt.Println()
	printHeader("Applying Migrations")

	applyErr := migrationClient.Apply(context.Background(), plan)

	// Failures are recorded in history too, so persist either way.
	writeHistoryFile(migrationClient, *dir)

	if applyErr != nil {
		printError(fmt.Sprintf("Migration failed: %v", applyErr))
		os.Exit(1)
	}

	printSuccess("All migrations applied successfully!")
}

// handleMigrateDown rolls back the last applied migration
func handleMigrateDown(args []string) {
	fs := flag.NewFlagSet("migrate down", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	dryRun := fs.Bool("dry-run", false, "Show what would be rolled back without executing")
	force := fs.Bool("force", false, "Skip confirmation prompt")
	fs.Parse(args)

	printHeader("Rollback Migration")

	migrations, err := migration.ListMigrationFiles(*dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to list migrations: %v", err))
		os.Exit(1)
	}

	historyData := readHistoryFile(*dir)
	if historyData == nil {
		printWarning("No migration history found in " + *dir)
		printInfo("Nothing has been applied through this directory yet")
		return
	}

	history := migration.NewMigrationHistory()
	if err := history.LoadFromJSON(historyData); err != nil {
		printError(fmt.Sprintf("Failed to load migration history: %v", err))
		os.Exit(1)
	}

	applied := history.GetAppliedMigrations()
	if len(applied) == 0 {
		printWarning("No applied migrations to roll back")
		return
	}
	lastID := applied[len(applied)-1]

	var lastMigration *migration.Migration
	for _, mig := range migrations {
		if mig.ID == lastID {
			lastMigration = mig
			break
		}
	}
	if lastMigration == nil {
		printError(fmt.Sprintf("Migration file for applied migration '%s' not found in %s", lastID, *dir))
		os.Exit(1)
	}

	printInfo(fmt.Sprintf("Rolling back: %s", colorBold(lastMigration.Name)))
	fmt.Println(colorDim("  ID: " + lastMigration.ID))
	if len(lastMigration.Down) > 0 {
		fmt.Println(colorDim(fmt.Sprintf("  DOWN statements: %d", len(lastMigration.Down))))
	} else {
		fmt.Println(colorDim("  DOWN statements: (auto-generated from UP)"))
	}

	if *dryRun {
		if len(lastMigration.Down) > 0 {
			fmt.Println()
			for i, stmt := range lastMigration.Down {
				fmt.Printf("  %d. %s\n", i+1, stmt)
			}
		}
		fmt.Println()
		printInfo(colorYellow("DRY RUN") + " - no changes were applied")
		return
	}

	if !*force {
		fmt.Println()
		if !promptConfirm("Rollback this migration?") {
			printInfo("Cancelled")
			return
		}
	}

	requireBaseURL(*baseURL)

	c, err := connectClient(*baseURL, 0, false)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	migrationClient := migration.NewClient(c)
	if err := migrationClient.LoadHistory(historyData); err != nil {
		printError(fmt.Sprintf("Failed to load migration history: %v", err))
		os.Exit(1)
	}

	fmt.Println()
	printHeader("Rolling Back")

	if err := migrationClient.Rollback(context.Background(), lastMigration.ID, migrations); err != nil {
		printError(fmt.Sprintf("Rollback failed: %v", err))
		os.Exit(1)
	}

	writeHistoryFile(migrationClient, *dir)
	printSuccess("Migration rolled back successfully!")
}

// handleMigrateStatus shows the status of migrations
func handleMigrateStatus(args []string) {
	fs := flag.NewFlagSet("migrate status", flag.ExitOnError)
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	fs.Parse(args)

	printHeader("Migration Status")

	migrations, err := migration.ListMigrationFiles(*dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to list migrations: %v", err))
		os.Exit(1)
	}

	if len(migrations) == 0 {
		printWarning("No migration files found in " + *dir)
		printInfo("Run " + colorCyan("querywire migrate generate") + " to create a migration")
		return
	}

	history := migration.NewMigrationHistory()
	if data := readHistoryFile(*dir); data != nil {
		if err := history.LoadFromJSON(data); err != nil {
			printWarning(fmt.Sprintf("Ignoring unreadable history: %v", err))
		}
	}

	applied := 0
	fmt.Println()
	rows := make([][]string, 0, len(migrations))
	for _, mig := range migrations {
		status := colorYellow("pending")
		when := mig.Timestamp.Format("2006-01-02 15:04")
		if record, ok := history.GetRecord(mig.ID); ok {
			switch record.Status {
			case migration.Applied:
				status = colorGreen("applied")
				when = record.AppliedAt.Format("2006-01-02 15:04")
				applied++
			case migration.Failed:
				status = colorRed("failed")
			case migration.RolledBack:
				status = colorDim("rolled back")
			}
		}
		rows = append(rows, []string{mig.ID, mig.Name, status, when})
	}

	printTable([]string{"ID", "Name", "Status", "When"}, rows)

	fmt.Println()
	printInfo(fmt.Sprintf("Total: %d, applied: %d, pending: %d",
		len(migrations), applied, len(migrations)-applied))
}

// handleMigrateValidate validates migration files
func handleMigrateValidate(args []string) {
	fs := flag.NewFlagSet("migrate validate", flag.ExitOnError)
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	fs.Parse(args)

	printHeader("Validate Migrations")

	migrations, err := migration.ListMigrationFiles(*dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to list migrations: %v", err))
		os.Exit(1)
	}

	if len(migrations) == 0 {
		printWarning("No migration files found")
		return
	}

	printInfo(fmt.Sprintf("Validating %d migration(s)...", len(migrations)))
	fmt.Println()

	// Validation runs against recorded history so checksum drift in
	// already-applied files is caught.
	history := migration.NewMigrationHistory()
	if data := readHistoryFile(*dir); data != nil {
		if err := history.LoadFromJSON(data); err != nil {
			printWarning(fmt.Sprintf("Ignoring unreadable history: %v", err))
		}
	}

	validator := migration.NewMigrationValidator(history)
	validation := validator.Validate(migrations)

	if validation.Valid {
		printSuccess("All migrations are valid!")
		return
	}

	printError("Validation failed!")
	fmt.Println()
	for _, conflict := range validation.Conflicts {
		fmt.Println(colorRed("✗") + " " + conflict.Message)
	}

	os.Exit(1)
}

// Helper functions

func getDefaultMigrationsDir() string {
	if dir := os.Getenv("QUERYWIRE_MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "./migrations"
}

func getDefaultSchemaFile() string {
	if file := os.Getenv("QUERYWIRE_SCHEMA_FILE"); file != "" {
		return file
	}
	return "./schema.json"
}

func promptConfirm(message string) bool {
	fmt.Printf("%s [y/N]: ", message)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// nextMigrationID builds a serial, lexicographically sortable ID like
// "003_add_users_table". Ordering validation compares IDs as strings,
// so the numeric prefix matters.
func nextMigrationID(existing []*migration.Migration, name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.ReplaceAll(id, "-", "_")
	return fmt.Sprintf("%03d_%s", len(existing)+1, id)
}

// schemaStatements generates the CREATE statements for a full schema,
// tables before indexes before foreign keys so references resolve.
func schemaStatements(schemaDef *schema.SchemaDefinition) []string {
	statements := make([]string, 0, len(schemaDef.Tables))

	for i := range schemaDef.Tables {
		table := &schemaDef.Tables[i]
		statements = append(statements, schema.SerializeCreateTable(table))
		for j := range table.Indexes {
			statements = append(statements, schema.SerializeCreateIndex(&table.Indexes[j], table.Name))
		}
	}

	for i := range schemaDef.Tables {
		table := &schemaDef.Tables[i]
		for j := range table.ForeignKeys {
			statements = append(statements, schema.SerializeAddForeignKey(table.Name, &table.ForeignKeys[j]))
		}
	}

	return statements
}

// readHistoryFile returns the raw history JSON, or nil when no history
// exists yet. Read failures other than absence are surfaced as
// warnings; treating them as "no history" would re-apply everything.
func readHistoryFile(dir string) []byte {
	data, err := os.ReadFile(filepath.Join(dir, historyFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			printWarning(fmt.Sprintf("Failed to read migration history: %v", err))
		}
		return nil
	}
	return data
}

func writeHistoryFile(migrationClient *migration.Client, dir string) {
	data, err := migrationClient.GetHistory()
	if err != nil {
		printWarning(fmt.Sprintf("Failed to serialize migration history: %v", err))
		return
	}
	if err := os.WriteFile(filepath.Join(dir, historyFileName), data, 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to write migration history: %v", err))
	}
}
