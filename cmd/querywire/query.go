package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/querywire/querywire-go/mapper"
)

// handleQuery runs a single statement and renders the decoded rows.
func handleQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	raw := fs.Bool("raw", false, "Print the raw response body instead of a table")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() == 0 {
		printError("A statement is required")
		fmt.Println("\nUsage: querywire query [options] \"SELECT ...\"")
		os.Exit(1)
	}
	statement := strings.Join(fs.Args(), " ")

	requireBaseURL(*baseURL)

	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	start := time.Now()
	body, err := c.Query(context.Background(), statement)
	if err != nil {
		printError(fmt.Sprintf("Query failed: %v", err))
		os.Exit(1)
	}

	if *raw {
		fmt.Println(string(body))
		return
	}
	printResultBody(body, time.Since(start))
}

// handleExec runs a DDL/DML statement.
func handleExec(args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	raw := fs.Bool("raw", false, "Print the raw response body")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() == 0 {
		printError("A statement is required")
		fmt.Println("\nUsage: querywire exec [options] \"CREATE TABLE ...\"")
		os.Exit(1)
	}
	statement := strings.Join(fs.Args(), " ")

	requireBaseURL(*baseURL)

	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	start := time.Now()
	body, err := c.Exec(context.Background(), statement)
	if err != nil {
		printError(fmt.Sprintf("Statement failed: %v", err))
		os.Exit(1)
	}

	if *raw {
		fmt.Println(string(body))
		return
	}
	printResultBody(body, time.Since(start))
}

// handleBatch runs statements from a file (or positional arguments)
// sequentially over one handle.
func handleBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	baseURL := fs.StringP("url", "u", getDefaultBaseURL(), "Translator base URL")
	file := fs.StringP("file", "f", "", "File of semicolon-terminated statements (- for stdin)")
	failFast := fs.Bool("fail-fast", false, "Stop at the first failed statement")
	timeoutMs := fs.Int("timeout", 0, "Per-request timeout in milliseconds (0 = none)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	requireBaseURL(*baseURL)

	var statements []string
	switch {
	case *file != "":
		var data []byte
		var err error
		if *file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(*file)
		}
		if err != nil {
			printError(fmt.Sprintf("Failed to read statements: %v", err))
			os.Exit(1)
		}
		statements = splitStatements(string(data))
	case fs.NArg() > 0:
		statements = fs.Args()
	default:
		printError("Statements are required")
		fmt.Println("\nUsage: querywire batch --file statements.sql")
		fmt.Println("       querywire batch \"stmt one;\" \"stmt two;\"")
		os.Exit(1)
	}

	if len(statements) == 0 {
		printWarning("No statements found")
		return
	}

	c, err := connectClient(*baseURL, *timeoutMs, *debug)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		os.Exit(1)
	}
	defer c.Close()

	batch := c.NewBatch()
	for _, stmt := range statements {
		batch.Add(stmt)
	}
	if *failFast {
		batch.FailFast()
	}

	printInfo(fmt.Sprintf("Running %d statement(s)", batch.Len()))
	fmt.Println()

	results, execErr := batch.Execute(context.Background())

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := colorGreen("ok")
		elapsed := formatElapsed(res.Duration)
		switch {
		case res.Skipped:
			status = colorYellow("skipped")
			elapsed = "-"
		case res.Err != nil:
			status = colorRed("failed")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", res.Index+1),
			truncateStatement(res.Query, 48),
			status,
			elapsed,
		})
	}
	printTable([]string{"#", "Statement", "Status", "Time"}, rows)
	fmt.Println()

	if execErr != nil {
		printError(fmt.Sprintf("Batch finished with failures: %v", execErr))
		os.Exit(1)
	}
	printSuccess("Batch complete")
}

// printResultBody decodes a response body and renders it. Bodies that
// are not result envelopes are printed verbatim; the wire hands bytes
// through and so does the CLI.
func printResultBody(body []byte, elapsed time.Duration) {
	rs, err := mapper.Decode(body)
	if err != nil {
		var srvErr *mapper.ServerError
		if errors.As(err, &srvErr) {
			printError(fmt.Sprintf("Server error: %s", srvErr.Message))
			os.Exit(1)
		}
		fmt.Println(string(body))
		return
	}

	if rs.Len() == 0 {
		printSuccess(fmt.Sprintf("OK, 0 rows (%s)", formatElapsed(elapsed)))
		return
	}

	// The wire carries no column names, so headers are positional.
	cols := 0
	for _, row := range rs.Rows() {
		if len(row) > cols {
			cols = len(row)
		}
	}
	headers := make([]string, cols)
	for i := range headers {
		headers[i] = fmt.Sprintf("col%d", i)
	}

	m := mapper.NewResponseMapper()
	tableRows := make([][]string, 0, rs.Len())
	for _, row := range rs.Rows() {
		cells := make([]string, cols)
		for i := 0; i < cols; i++ {
			if i >= len(row) || row[i] == nil {
				cells[i] = colorDim("NULL")
				continue
			}
			cells[i] = m.ToString(row[i])
		}
		tableRows = append(tableRows, cells)
	}

	printTable(headers, tableRows)
	fmt.Println()
	printInfo(fmt.Sprintf("%d row(s) in %s", rs.Len(), formatElapsed(elapsed)))
}

func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}

// splitStatements splits a script on semicolons, dropping blank entries
// and full-line comments. Semicolons inside string literals are not
// handled; scripts that need them should run through query one at a
// time.
func splitStatements(script string) []string {
	kept := make([]string, 0)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	statements := make([]string, 0)
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt+";")
	}
	return statements
}

// truncateStatement collapses whitespace and shortens a statement for
// table display.
func truncateStatement(stmt string, max int) string {
	collapsed := strings.Join(strings.Fields(stmt), " ")
	runes := []rune(collapsed)
	if len(runes) <= max {
		return collapsed
	}
	return string(runes[:max-1]) + "…"
}
