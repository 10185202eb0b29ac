package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/querywire/querywire-go/client"
	"github.com/querywire/querywire-go/migration"
)

func handleCheck(args []string) {
	if len(args) == 0 {
		printCheckUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	switch subcommand {
	case "connection":
		handleCheckConnection(args[1:])
	case "migrations":
		handleCheckMigrations(args[1:])
	case "all":
		handleCheckAll(args[1:])
	case "help", "-h", "--help":
		printCheckUsage()
	default:
		printError(fmt.Sprintf("Unknown check subcommand: %s", subcommand))
		printCheckUsage()
		os.Exit(1)
	}
}

func printCheckUsage() {
	printHeader("Check Commands")
	fmt.Println("Usage:")
	fmt.Println("  querywire check " + colorYellow("<command>") + " [options]\n")
	fmt.Println("Commands:")
	fmt.Println("  " + colorGreen("connection") + "   Check translator connection and health")
	fmt.Println("  " + colorGreen("migrations") + "  Validate migration files")
	fmt.Println("  " + colorGreen("all") + "         Run all checks")
	fmt.Println("\nExamples:")
	fmt.Println("  " + colorDim("# Check connection"))
	fmt.Println("  querywire check connection --url http://localhost:8080")
	fmt.Println()
	fmt.Println("  " + colorDim("# Validate migrations"))
	fmt.Println("  querywire check migrations --dir ./migrations")
	fmt.Println()
	fmt.Println("  " + colorDim("# Run all checks"))
	fmt.Println("  querywire check all")
}

// handleCheckConnection checks translator connectivity and health
func handleCheckConnection(args []string) {
	fs := flag.NewFlagSet("check connection", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	verbose := fs.Bool("verbose", false, "Show detailed connection info")
	fs.Parse(args)

	requireBaseURL(*baseURL)

	printHeader("Check Translator Connection")

	checksPassed := 0
	checksTotal := 4

	fmt.Println()
	fmt.Print("  1. Parse base URL... ")
	parsed, err := url.Parse(*baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Invalid base URL %q: expected http:// or https://", *baseURL))
		os.Exit(1)
	}
	printSuccess("OK")
	checksPassed++
	if *verbose {
		// Redacted strips any password from the userinfo.
		fmt.Println(colorDim("     URL: " + parsed.Redacted()))
	}

	fmt.Print("  2. Connect to translator... ")
	c, err := connectClient(*baseURL, 0, false)
	if err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Connection failed: %v", err))
		os.Exit(1)
	}
	defer c.Close()
	printSuccess("OK")
	checksPassed++

	fmt.Print("  3. Ping server... ")
	ctx := context.Background()
	pingStart := time.Now()
	if err := c.Ping(ctx); err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Ping failed: %v", err))
		os.Exit(1)
	}
	pingDuration := time.Since(pingStart)
	printSuccess(fmt.Sprintf("OK (%s)", formatElapsed(pingDuration)))
	checksPassed++

	fmt.Print("  4. Check connection state... ")
	state := c.GetState()
	if state != client.CONNECTED {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Expected state CONNECTED, got %s", state))
		os.Exit(1)
	}
	printSuccess("OK")
	checksPassed++

	fmt.Println()
	printSuccess(fmt.Sprintf("All checks passed! (%d/%d)", checksPassed, checksTotal))

	if *verbose {
		metrics := c.GetMetrics()
		fmt.Println()
		printInfo("Connection Details:")
		fmt.Println(colorDim(fmt.Sprintf("  State: %s", state)))
		fmt.Println(colorDim(fmt.Sprintf("  Ping latency: %s", formatElapsed(pingDuration))))
		fmt.Println(colorDim(fmt.Sprintf("  Requests: %d (%d errors)", metrics.TotalRequests, metrics.TotalErrors)))
		fmt.Println(colorDim(fmt.Sprintf("  Health checks: %d passed, %d failed",
			metrics.HealthChecksPassed, metrics.HealthChecksFailed)))
	}
}

// handleCheckMigrations validates migration files
func handleCheckMigrations(args []string) {
	fs := flag.NewFlagSet("check migrations", flag.ExitOnError)
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	verbose := fs.Bool("verbose", false, "Show detailed validation info")
	fs.Parse(args)

	printHeader("Check Migration Files")

	fmt.Println()
	fmt.Print("  1. Check migrations directory... ")
	if _, err := os.Stat(*dir); os.IsNotExist(err) {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Directory not found: %s", *dir))
		printInfo("Run " + colorCyan("querywire migrate init") + " to initialize")
		os.Exit(1)
	}
	printSuccess("OK")

	fmt.Print("  2. Load migration files... ")
	migrations, err := migration.ListMigrationFiles(*dir)
	if err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Failed to load migrations: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("OK (%d found)", len(migrations)))

	if len(migrations) == 0 {
		printWarning("No migration files found")
		fmt.Println()
		printInfo("Run " + colorCyan("querywire migrate generate") + " to create migrations")
		return
	}

	fmt.Print("  3. Validate migration structure... ")
	history := migration.NewMigrationHistory()
	if data := readHistoryFile(*dir); data != nil {
		if err := history.LoadFromJSON(data); err != nil {
			printWarning(fmt.Sprintf("Ignoring unreadable history: %v", err))
		}
	}
	validator := migration.NewMigrationValidator(history)
	validation := validator.Validate(migrations)

	if !validation.Valid {
		fmt.Println(colorRed("FAIL"))
		printError("Validation errors found:")
		for _, conflict := range validation.Conflicts {
			fmt.Println("  " + colorRed("•") + " " + conflict.Message)
		}
		os.Exit(1)
	}
	printSuccess("OK")

	fmt.Print("  4. Check for common issues... ")
	issues := checkMigrationIssues(migrations)
	if len(issues) > 0 {
		fmt.Println(colorYellow("WARN"))
		for _, issue := range issues {
			printWarning(issue)
		}
	} else {
		printSuccess("OK")
	}

	fmt.Println()
	printSuccess("All migration checks passed!")

	if *verbose {
		fmt.Println()
		printInfo("Migration Summary:")
		for i, mig := range migrations {
			fmt.Printf("  %d. %s\n", i+1, colorBold(mig.Name))
			fmt.Println(colorDim(fmt.Sprintf("     ID: %s", mig.ID)))
			fmt.Println(colorDim(fmt.Sprintf("     Up statements: %d", len(mig.Up))))
			fmt.Println(colorDim(fmt.Sprintf("     Down statements: %d", len(mig.Down))))
			fmt.Println(colorDim(fmt.Sprintf("     Created: %s", mig.Timestamp.Format("2006-01-02 15:04"))))
		}
	}
}

// handleCheckAll runs all checks
func handleCheckAll(args []string) {
	fs := flag.NewFlagSet("check all", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	dir := fs.String("dir", getDefaultMigrationsDir(), "Migration directory")
	fs.Parse(args)

	printHeader("Run All Checks")

	checksRun := 0
	checksPassed := 0

	fmt.Println()
	fmt.Println(colorBold("Connection Checks"))
	fmt.Println(colorDim("────────────────────────────────────────"))
	checksRun++
	if runConnectionChecks(*baseURL) {
		checksPassed++
	}

	fmt.Println()
	fmt.Println(colorBold("Migration Checks"))
	fmt.Println(colorDim("────────────────────────────────────────"))
	checksRun++
	if runMigrationChecks(*dir) {
		checksPassed++
	}

	fmt.Println()
	fmt.Println(colorBold("Check Summary"))
	fmt.Println(colorDim("────────────────────────────────────────"))
	if checksPassed == checksRun {
		printSuccess(fmt.Sprintf("All check suites passed! (%d/%d)", checksPassed, checksRun))
	} else {
		printError(fmt.Sprintf("Some check suites failed (%d/%d passed)", checksPassed, checksRun))
		os.Exit(1)
	}
}

// Helper functions

func runConnectionChecks(baseURL string) bool {
	if baseURL == "" {
		printWarning("Skipping connection checks (no base URL)")
		return true
	}

	c, err := connectClient(baseURL, 0, false)
	if err != nil {
		printError(fmt.Sprintf("Connection failed: %v", err))
		return false
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		printError(fmt.Sprintf("Ping failed: %v", err))
		return false
	}

	printSuccess("Connection checks passed")
	return true
}

func runMigrationChecks(dir string) bool {
	migrations, err := migration.ListMigrationFiles(dir)
	if err != nil {
		printError(fmt.Sprintf("Failed to load migrations: %v", err))
		return false
	}

	if len(migrations) == 0 {
		printWarning("No migration files found")
		return true
	}

	validator := migration.NewMigrationValidator(migration.NewMigrationHistory())
	validation := validator.Validate(migrations)

	if !validation.Valid {
		printError("Migration validation failed")
		for _, conflict := range validation.Conflicts {
			fmt.Println("  " + colorRed("•") + " " + conflict.Message)
		}
		return false
	}

	printSuccess(fmt.Sprintf("Migration checks passed (%d files)", len(migrations)))
	return true
}

func checkMigrationIssues(migrations []*migration.Migration) []string {
	issues := make([]string, 0)

	for _, mig := range migrations {
		if len(mig.Up) == 0 {
			issues = append(issues, fmt.Sprintf("Migration %s has no UP statements", mig.ID))
		}

		if len(mig.Down) == 0 {
			issues = append(issues, fmt.Sprintf("Migration %s has no DOWN statements (rollback may not work)", mig.ID))
		}

		if time.Since(mig.Timestamp) > 365*24*time.Hour {
			issues = append(issues, fmt.Sprintf("Migration %s is very old (%s)", mig.ID, mig.Timestamp.Format("2006-01-02")))
		}
	}

	return issues
}
