package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/querywire/querywire-go/client"
)

func main() {
	loadEnvFiles()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "query":
		handleQuery(os.Args[2:])
	case "exec":
		handleExec(os.Args[2:])
	case "batch":
		handleBatch(os.Args[2:])
	case "convert":
		handleConvert(os.Args[2:])
	case "schema":
		handleSchema(os.Args[2:])
	case "migrate":
		handleMigrate(os.Args[2:])
	case "codegen":
		handleCodegen(os.Args[2:])
	case "check":
		handleCheck(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("querywire %s\n", client.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		printError(fmt.Sprintf("Unknown command: %s", command))
		printUsage()
		os.Exit(1)
	}
}

// loadEnvFiles loads .env files before any flag defaults are read.
// Present files are loaded in order, missing ones are skipped.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			printWarning(fmt.Sprintf("Failed to load %s: %v", name, err))
		}
	}
}

func printUsage() {
	fmt.Println(colorBold(colorCyan("querywire CLI")) + " - SQL over the query translator wire\n")
	fmt.Println("Usage:")
	fmt.Println("  querywire " + colorYellow("<command>") + " [options]\n")
	fmt.Println("Commands:")
	fmt.Println("  " + colorGreen("query") + "     Run a statement and print the result rows")
	fmt.Println("  " + colorGreen("exec") + "      Run a DDL/DML statement")
	fmt.Println("  " + colorGreen("batch") + "     Run several statements sequentially")
	fmt.Println("  " + colorGreen("convert") + "   Convert a statement between SQL dialects")
	fmt.Println("  " + colorGreen("schema") + "    Introspect and diff the server schema")
	fmt.Println("  " + colorGreen("migrate") + "   Manage schema migrations")
	fmt.Println("  " + colorGreen("codegen") + "   Generate code from schema")
	fmt.Println("  " + colorGreen("check") + "     Check connectivity and migration health")
	fmt.Println("  " + colorGreen("version") + "   Show version information")
	fmt.Println("  " + colorGreen("help") + "      Show this help message\n")
	fmt.Println("Run '" + colorCyan("querywire <command> --help") + "' for more information on a command.\n")
	fmt.Println("Environment Variables:")
	fmt.Println("  QUERYWIRE_URL              Translator base URL (e.g. http://localhost:8080)")
	fmt.Println("  QUERYWIRE_MIGRATIONS_DIR   Directory for migration files (default: ./migrations)")
	fmt.Println("  QUERYWIRE_SCHEMA_FILE      Path to schema file (default: ./schema.json)")
	fmt.Println("  QUERYWIRE_LOCK_TIMEOUT     Stale migration lock timeout (default: 1h)")
}

func getDefaultBaseURL() string {
	return os.Getenv("QUERYWIRE_URL")
}

// requireBaseURL exits with usage help when no base URL was supplied.
func requireBaseURL(baseURL string) {
	if baseURL != "" {
		return
	}
	printError("Translator URL is required")
	fmt.Println("\nProvide via --url flag or QUERYWIRE_URL environment variable")
	os.Exit(1)
}

// connectClient builds a client from the common CLI flags and connects
// it. The caller owns the returned client and must Close it.
func connectClient(baseURL string, timeoutMs int, debug bool) (*client.Client, error) {
	opts := client.DefaultOptions()
	opts.DefaultTimeoutMs = timeoutMs
	opts.DebugMode = debug
	if debug {
		opts.LogLevel = "DEBUG"
	} else {
		// Keep the wire log out of command output.
		opts.LogLevel = "ERROR"
	}

	c := client.NewClient(&opts)
	if err := c.Connect(context.Background(), baseURL); err != nil {
		return nil, err
	}
	return c, nil
}
