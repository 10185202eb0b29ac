package mapper

import (
	"errors"
	"testing"
	"time"
)

func TestDecode_ResultRows(t *testing.T) {
	body := []byte(`{"result": [["postgres", 1], ["template1", 2]]}`)

	rs, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rs.Len())
	}

	name, err := rs.StringAt(0, 0)
	if err != nil {
		t.Fatalf("StringAt(0,0) error = %v", err)
	}
	if name != "postgres" {
		t.Errorf("StringAt(0,0) = %q, want %q", name, "postgres")
	}

	id, err := rs.IntAt(1, 1)
	if err != nil {
		t.Fatalf("IntAt(1,1) error = %v", err)
	}
	if id != 2 {
		t.Errorf("IntAt(1,1) = %d, want 2", id)
	}
}

func TestDecode_ErrorEnvelope(t *testing.T) {
	body := []byte(`{"error": "relation \"missing\" does not exist"}`)

	_, err := Decode(body)
	if err == nil {
		t.Fatal("Decode() expected error for error envelope")
	}

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("Decode() error type = %T, want *ServerError", err)
	}
	if serverErr.Message != `relation "missing" does not exist` {
		t.Errorf("ServerError.Message = %q", serverErr.Message)
	}
}

func TestDecode_EmptyAndMessageBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty result", `{"result": []}`},
		{"no result key", `{"message": "Connection closed"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if rs.Len() != 0 {
				t.Errorf("Len() = %d, want 0", rs.Len())
			}
		})
	}
}

func TestDecode_InvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>502 Bad Gateway</html>`},
		{"rows not arrays", `{"result": [{"a": 1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.body)); err == nil {
				t.Error("Decode() expected error")
			}
		})
	}
}

func TestResultSet_OutOfRange(t *testing.T) {
	rs, err := Decode([]byte(`{"result": [["only", "row"]]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if _, err := rs.Row(1); err == nil {
		t.Error("Row(1) expected out of range error")
	}
	if _, err := rs.Row(-1); err == nil {
		t.Error("Row(-1) expected out of range error")
	}
	if _, err := rs.Value(0, 2); err == nil {
		t.Error("Value(0,2) expected out of range error")
	}
}

func TestResultSet_StringColumn(t *testing.T) {
	rs, err := Decode([]byte(`{"result": [["users"], ["orders"], ["events"]]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	names, err := rs.StringColumn(0)
	if err != nil {
		t.Fatalf("StringColumn(0) error = %v", err)
	}

	want := []string{"users", "orders", "events"}
	if len(names) != len(want) {
		t.Fatalf("StringColumn(0) len = %d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("StringColumn(0)[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestResponseMapper_ToString(t *testing.T) {
	mapper := NewResponseMapper()

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"string", "hello", "hello"},
		{"int", 42, "42"},
		{"float", 3.14, "3.14"},
		{"integral float", 42.0, "42"},
		{"bool", true, "true"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapper.ToString(tt.input)
			if got != tt.expected {
				t.Errorf("ToString() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResponseMapper_ToInt(t *testing.T) {
	mapper := NewResponseMapper()

	tests := []struct {
		name     string
		input    interface{}
		expected int64
		wantErr  bool
	}{
		{"int", 42, 42, false},
		{"int32", int32(42), 42, false},
		{"int64", int64(42), 42, false},
		{"float64", 42.0, 42, false},
		{"string valid", "42", 42, false},
		{"string invalid", "not a number", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapper.ToInt(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ToInt() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("ToInt() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResponseMapper_ToBool(t *testing.T) {
	mapper := NewResponseMapper()

	tests := []struct {
		name     string
		input    interface{}
		expected bool
		wantErr  bool
	}{
		{"bool true", true, true, false},
		{"bool false", false, false, false},
		{"string true", "true", true, false},
		{"string false", "false", false, false},
		{"string 1", "1", true, false},
		{"string 0", "0", false, false},
		{"nullable YES", "YES", true, false},
		{"nullable NO", "NO", false, false},
		{"int 1", 1, true, false},
		{"int 0", 0, false, false},
		{"json number 1", float64(1), true, false},
		{"json number 0", float64(0), false, false},
		{"int64 0", int64(0), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapper.ToBool(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ToBool() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("ToBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResponseMapper_ToDateTime(t *testing.T) {
	mapper := NewResponseMapper()

	t.Run("rfc3339", func(t *testing.T) {
		got, err := mapper.ToDateTime("2026-08-25T10:30:00Z")
		if err != nil {
			t.Fatalf("ToDateTime() error = %v", err)
		}
		want := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ToDateTime() = %v, want %v", got, want)
		}
	})

	t.Run("sql timestamp", func(t *testing.T) {
		got, err := mapper.ToDateTime("2026-08-25 10:30:00")
		if err != nil {
			t.Fatalf("ToDateTime() error = %v", err)
		}
		if got.Hour() != 10 || got.Minute() != 30 {
			t.Errorf("ToDateTime() = %v", got)
		}
	})

	t.Run("unix seconds from json number", func(t *testing.T) {
		got, err := mapper.ToDateTime(float64(1735689600))
		if err != nil {
			t.Fatalf("ToDateTime() error = %v", err)
		}
		if got.Unix() != 1735689600 {
			t.Errorf("ToDateTime().Unix() = %d", got.Unix())
		}
	})

	t.Run("unparseable", func(t *testing.T) {
		if _, err := mapper.ToDateTime("next tuesday"); err == nil {
			t.Error("ToDateTime() expected error")
		}
	})
}
