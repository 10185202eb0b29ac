package testutil_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/querywire/querywire-go/testutil"
)

func TestTestTableName(t *testing.T) {
	name1 := testutil.TestTableName("test")
	name2 := testutil.TestTableName("test")
	if name1 == name2 {
		t.Error("expected unique names")
	}
	if !strings.HasPrefix(name1, "test_") {
		t.Errorf("expected prefix test_, got %q", name1)
	}
}

func TestTestTableName_DefaultPrefix(t *testing.T) {
	name := testutil.TestTableName("")
	if !strings.HasPrefix(name, "test_") {
		t.Errorf("expected default prefix test_, got %q", name)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, _ := testutil.WithTimeout(t, 100*time.Millisecond)
	select {
	case <-ctx.Done():
		t.Fatal("context canceled too early")
	default:
	}
}

func TestAssertEqual(t *testing.T) {
	testutil.AssertEqual(t, 42, 42, "values should be equal")
}

func TestAssertNotEqual(t *testing.T) {
	testutil.AssertNotEqual(t, 42, 43, "values should not be equal")
}

func TestAssertContains(t *testing.T) {
	testutil.AssertContains(t, "hello world", "world", "should contain substring")
}

func TestWaitFor(t *testing.T) {
	counter := 0
	condition := func() bool {
		counter++
		return counter >= 3
	}
	testutil.WaitFor(t, 1*time.Second, 10*time.Millisecond, condition)
	if counter < 3 {
		t.Errorf("expected counter >= 3, got %d", counter)
	}
}

func TestEventually(t *testing.T) {
	counter := 0
	condition := func() bool {
		counter++
		return counter >= 2
	}
	testutil.Eventually(t, 1*time.Second, 10*time.Millisecond, condition)
	if counter < 2 {
		t.Errorf("expected counter >= 2, got %d", counter)
	}
}

func TestParallel(t *testing.T) {
	result := testutil.Parallel(t)
	if result != t {
		t.Error("expected Parallel to return the test instance")
	}
}

func TestSkipIf(t *testing.T) {
	testutil.SkipIf(t, false, "should not skip")
}

func TestSkipUnless(t *testing.T) {
	testutil.SkipUnless(t, true, "should not skip")
}

func TestFormatSQLValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "Alice", "'Alice'"},
		{"string with quote", "O'Brien", "'O''Brien'"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"float", 3.5, "3.5"},
		{"bool true", true, "TRUE"},
		{"bool false", false, "FALSE"},
		{"time", time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), "'2025-06-01 12:30:00'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.FormatSQLValue(tt.in); got != tt.want {
				t.Errorf("FormatSQLValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInsertStatement(t *testing.T) {
	stmt := testutil.InsertStatement("users", map[string]interface{}{"name": "O'Brien"})
	want := "INSERT INTO users (name) VALUES ('O''Brien');"
	if stmt != want {
		t.Errorf("InsertStatement = %q, want %q", stmt, want)
	}
}

func TestInsertStatement_MultipleColumns(t *testing.T) {
	stmt := testutil.InsertStatement("users", map[string]interface{}{
		"id":     1,
		"active": true,
	})

	if !strings.HasPrefix(stmt, "INSERT INTO users (") {
		t.Errorf("unexpected statement prefix: %q", stmt)
	}
	if !strings.Contains(stmt, "id") || !strings.Contains(stmt, "active") {
		t.Errorf("statement missing columns: %q", stmt)
	}
	if !strings.Contains(stmt, "1") || !strings.Contains(stmt, "TRUE") {
		t.Errorf("statement missing values: %q", stmt)
	}
}

func TestNewMockedClient_Query(t *testing.T) {
	c, mt := testutil.NewMockedClient(t)
	mt.WithResponse([]byte(`{"result": [[1, "Alice"]]}`))

	data, err := c.Query(context.Background(), "SELECT * FROM users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "Alice") {
		t.Errorf("unexpected response: %s", data)
	}

	last := mt.LastRequest()
	if last == nil {
		t.Fatal("expected a recorded request")
	}
	if !strings.Contains(last.URL, "/execute_query") {
		t.Errorf("unexpected endpoint: %s", last.URL)
	}
	if !strings.Contains(string(last.Body), "SELECT * FROM users") {
		t.Errorf("request body missing statement: %s", last.Body)
	}
}

func TestSetupTestTable(t *testing.T) {
	c, mt := testutil.NewMockedClient(t)

	cleanup := testutil.SetupTestTable(t, c, "users", []string{
		"id INTEGER PRIMARY KEY",
		"name VARCHAR NOT NULL",
	})

	last := mt.LastRequest()
	if last == nil {
		t.Fatal("expected a recorded request")
	}
	if !strings.Contains(string(last.Body), "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR NOT NULL);") {
		t.Errorf("unexpected create statement: %s", last.Body)
	}

	cleanup()
	last = mt.LastRequest()
	if !strings.Contains(string(last.Body), "DROP TABLE users;") {
		t.Errorf("unexpected drop statement: %s", last.Body)
	}
}

func TestInsertAndCleanupTestData(t *testing.T) {
	c, mt := testutil.NewMockedClient(t)

	records := testutil.InsertTestData(t, c, "users", []map[string]interface{}{
		{"id": 1, "name": "Alice"},
		{"id": 2, "name": "Bob"},
	})
	if len(records) != 2 {
		t.Fatalf("expected 2 records back, got %d", len(records))
	}
	if mt.GetRoundTripCallCount() != 2 {
		t.Errorf("expected 2 round trips, got %d", mt.GetRoundTripCallCount())
	}

	testutil.CleanupTestData(t, c, "users")
	last := mt.LastRequest()
	if !strings.Contains(string(last.Body), "DELETE FROM users;") {
		t.Errorf("unexpected cleanup statement: %s", last.Body)
	}
}
