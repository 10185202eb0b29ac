package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/querywire/querywire-go/client"
)

// handleConvert rewrites a statement from one SQL dialect to another
// through the translator's conversion endpoints. Only the converted
// text goes to stdout so the output can be piped.
func handleConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	from := fs.String("from", "", "Source dialect: mysql, postgres, oracle, mssql")
	to := fs.String("to", "", "Target dialect: mysql, postgres, oracle, mssql")
	engine := fs.String("engine", string(client.EngineSQLGlot), "Conversion engine: sqlglot, gen-ai")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() == 0 {
		printError("A statement is required")
		fmt.Println("\nUsage: querywire convert --from mysql --to postgres \"SELECT ...\"")
		os.Exit(1)
	}
	statement := strings.Join(fs.Args(), " ")

	if *from == "" || *to == "" {
		printError("Both --from and --to dialects are required")
		fmt.Println("\nDialects: " + strings.Join([]string{
			client.DialectMySQL, client.DialectPostgres, client.DialectOracle, client.DialectMSSQL,
		}, ", "))
		os.Exit(1)
	}

	requireBaseURL(*baseURL)

	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	converted, err := c.Convert(context.Background(), *from, *to, statement, client.Engine(*engine))
	if err != nil {
		printError(fmt.Sprintf("Conversion failed: %v", err))
		os.Exit(1)
	}

	fmt.Println(converted)
}
