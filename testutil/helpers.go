// Package testutil provides helpers for testing code that talks to a
// query translator: client constructors wired to test doubles, data
// factories and an in-process wire server.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/querywire/querywire-go/client"
	"github.com/querywire/querywire-go/transport"
	"github.com/querywire/querywire-go/transport/mock"
)

var testNameCounter uint64

// NewMockedClient creates a connected client backed by a mock transport.
// Nothing leaves the process; requests and canned responses flow through
// the returned MockTransport.
//
// Example:
//
//	c, mt := testutil.NewMockedClient(t)
//	mt.WithResponse([]byte(`{"result": [[1]]}`))
//	data, err := c.Query(ctx, "SELECT 1")
func NewMockedClient(t *testing.T) (*client.Client, *mock.MockTransport) {
	t.Helper()

	mt := mock.NewMockTransport()
	opts := client.DefaultOptions()
	opts.LogLevel = "ERROR"
	opts.DebugMode = testing.Verbose()
	opts.TransportFactory = func(ctx context.Context) (transport.Transport, error) {
		return mt, nil
	}

	c := client.NewClient(&opts)
	if err := c.Connect(context.Background(), "http://mock.test:9000"); err != nil {
		t.Fatalf("failed to connect mocked client: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("warning: failed to close mocked client: %v", err)
		}
	})

	return c, mt
}

// NewTestClient creates a client connected to a real translator for
// integration tests. It reads the base URL from the QUERYWIRE_TEST_URL
// environment variable and skips the test when unset.
//
// Example:
//
//	export QUERYWIRE_TEST_URL="http://localhost:9000"
//	c, cleanup := testutil.NewTestClient(t)
//	defer cleanup()
func NewTestClient(t *testing.T) (*client.Client, func()) {
	t.Helper()

	baseURL := os.Getenv("QUERYWIRE_TEST_URL")
	if baseURL == "" {
		t.Skip("QUERYWIRE_TEST_URL not set, skipping integration test")
		return nil, func() {}
	}

	opts := client.DefaultOptions()
	opts.DebugMode = testing.Verbose()

	c := client.NewClient(&opts)
	if err := c.Connect(context.Background(), baseURL); err != nil {
		t.Fatalf("failed to connect to test translator: %v", err)
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			t.Logf("warning: failed to close: %v", err)
		}
	}

	return c, cleanup
}

// TestTableName generates a unique table name for testing.
// Format: <prefix>_<timestamp>_<counter>
func TestTableName(prefix string) string {
	if prefix == "" {
		prefix = "test"
	}
	n := atomic.AddUint64(&testNameCounter, 1)
	timestamp := time.Now().Unix()
	return fmt.Sprintf("%s_%d_%d", prefix, timestamp, n)
}

// WithTimeout creates a context with timeout for tests.
// Default timeout is 10 seconds.
func WithTimeout(t *testing.T, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	duration := 10 * time.Second
	if len(timeout) > 0 {
		duration = timeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx, cancel
}

// RequireNoError fails the test if err is not nil.
func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("Unexpected error: %v - %v", err, msgAndArgs)
		} else {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
}

// RequireError fails the test if err is nil.
func RequireError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("Expected error but got nil - %v", msgAndArgs)
		} else {
			t.Fatal("Expected error but got nil")
		}
	}
}

// AssertEqual checks if two values are equal.
func AssertEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if expected != actual {
		if len(msgAndArgs) > 0 {
			t.Errorf("Not equal: expected=%v, actual=%v - %v", expected, actual, msgAndArgs)
		} else {
			t.Errorf("Not equal: expected=%v, actual=%v", expected, actual)
		}
	}
}

// AssertNotEqual checks if two values are not equal.
func AssertNotEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if expected == actual {
		if len(msgAndArgs) > 0 {
			t.Errorf("Should not be equal: value=%v - %v", actual, msgAndArgs)
		} else {
			t.Errorf("Should not be equal: value=%v", actual)
		}
	}
}

// AssertContains checks if a string contains a substring.
func AssertContains(t *testing.T, str, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(str, substr) {
		if len(msgAndArgs) > 0 {
			t.Errorf("String does not contain substring: str=%q, substr=%q - %v", str, substr, msgAndArgs)
		} else {
			t.Errorf("String does not contain substring: str=%q, substr=%q", str, substr)
		}
	}
}

// SetupTestTable creates a test table and returns a cleanup function
// that drops it.
//
// Example:
//
//	cleanup := testutil.SetupTestTable(t, c, "users", []string{
//	    "id INTEGER PRIMARY KEY",
//	    "name VARCHAR NOT NULL",
//	})
//	defer cleanup()
func SetupTestTable(t *testing.T, c *client.Client, tableName string, columns []string) func() {
	t.Helper()

	createCmd := fmt.Sprintf("CREATE TABLE %s (%s);", tableName, strings.Join(columns, ", "))
	_, err := c.Exec(context.Background(), createCmd)
	RequireNoError(t, err, "failed to create test table")

	return func() {
		dropCmd := fmt.Sprintf("DROP TABLE %s;", tableName)
		if _, err := c.Exec(context.Background(), dropCmd); err != nil {
			t.Logf("warning: failed to drop test table %s: %v", tableName, err)
		}
	}
}

// InsertTestData inserts rows into a table and returns them. Values are
// rendered as SQL literals; strings have embedded quotes doubled.
//
// Example:
//
//	data := testutil.InsertTestData(t, c, "users", []map[string]interface{}{
//	    {"id": 1, "name": "Alice"},
//	    {"id": 2, "name": "Bob"},
//	})
func InsertTestData(t *testing.T, c *client.Client, tableName string, records []map[string]interface{}) []map[string]interface{} {
	t.Helper()

	for _, record := range records {
		_, err := c.Exec(context.Background(), InsertStatement(tableName, record))
		RequireNoError(t, err, "failed to insert test data")
	}

	return records
}

// InsertStatement renders one record as an INSERT statement.
func InsertStatement(tableName string, record map[string]interface{}) string {
	columns := make([]string, 0, len(record))
	values := make([]string, 0, len(record))

	for k, v := range record {
		columns = append(columns, k)
		values = append(values, FormatSQLValue(v))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(values, ", "))
}

// CleanupTestData removes all rows from a table.
func CleanupTestData(t *testing.T, c *client.Client, tableName string) {
	t.Helper()

	deleteCmd := fmt.Sprintf("DELETE FROM %s;", tableName)
	if _, err := c.Exec(context.Background(), deleteCmd); err != nil {
		t.Logf("warning: failed to cleanup test data from %s: %v", tableName, err)
	}
}

// FormatSQLValue renders a Go value as a SQL literal. Embedded single
// quotes in strings are doubled; the wire has no parameter slots, so
// this is the only escaping layer test data gets.
func FormatSQLValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + val.Format("2006-01-02 15:04:05") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}

// WaitFor polls a condition until it returns true or times out.
// This is useful for testing eventual consistency.
//
// Example:
//
//	testutil.WaitFor(t, 5*time.Second, 100*time.Millisecond, func() bool {
//	    data, _ := c.Query(ctx, "SELECT * FROM users WHERE id = 1")
//	    return data != nil
//	})
func WaitFor(t *testing.T, timeout, interval time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}

	t.Errorf("condition not met within timeout %v", timeout)
	return false
}

// Eventually is an alias for WaitFor (Jest-style naming).
func Eventually(t *testing.T, timeout, interval time.Duration, condition func() bool) bool {
	return WaitFor(t, timeout, interval, condition)
}

// Parallel marks the test to run in parallel and returns the test instance.
// This is a convenience wrapper that returns t for chaining.
func Parallel(t *testing.T) *testing.T {
	t.Parallel()
	return t
}

// SkipIf skips the test if the condition is true.
func SkipIf(t *testing.T, condition bool, reason string) {
	t.Helper()
	if condition {
		t.Skip(reason)
	}
}

// SkipUnless skips the test unless the condition is true.
func SkipUnless(t *testing.T, condition bool, reason string) {
	t.Helper()
	if !condition {
		t.Skip(reason)
	}
}

// BenchmarkHelper provides a connected client for benchmark tests that
// run against a real translator.
type BenchmarkHelper struct {
	b *testing.B
	c *client.Client
}

// NewBenchmarkHelper creates a new benchmark helper. Skips the
// benchmark when QUERYWIRE_TEST_URL is unset.
func NewBenchmarkHelper(b *testing.B) *BenchmarkHelper {
	b.Helper()

	baseURL := os.Getenv("QUERYWIRE_TEST_URL")
	if baseURL == "" {
		b.Skip("QUERYWIRE_TEST_URL not set, skipping benchmark")
		return nil
	}

	opts := client.DefaultOptions()
	opts.LogLevel = "ERROR"
	c := client.NewClient(&opts)

	if err := c.Connect(context.Background(), baseURL); err != nil {
		b.Fatalf("failed to connect: %v", err)
	}

	b.Cleanup(func() {
		c.Close()
	})

	return &BenchmarkHelper{
		b: b,
		c: c,
	}
}

// Client returns the test client.
func (h *BenchmarkHelper) Client() *client.Client {
	return h.c
}

// ResetTimer resets the benchmark timer.
func (h *BenchmarkHelper) ResetTimer() {
	h.b.ResetTimer()
}

// RunParallel runs the benchmark in parallel.
func (h *BenchmarkHelper) RunParallel(body func(*testing.PB)) {
	h.b.RunParallel(body)
}
