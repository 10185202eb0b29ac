package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/querywire/querywire-go/transport/mock"
)

func TestConvertWithSQLGlot(t *testing.T) {
	mt := mock.NewMockTransport().WithResponse(
		[]byte(`{"converted_query": "SELECT TOP 10 * FROM users"}`))
	c := newConnectedClient(t, mt, "http://localhost:9000")

	converted, err := c.Convert(context.Background(),
		DialectMySQL, DialectMSSQL, "SELECT * FROM users LIMIT 10", EngineSQLGlot)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if converted != "SELECT TOP 10 * FROM users" {
		t.Errorf("converted = %q, want the translated statement", converted)
	}

	req := mt.LastRequest()
	if req.URL != "http://localhost:9000/convert-query-sqlglot" {
		t.Errorf("URL = %q, want the sqlglot endpoint", req.URL)
	}
	if req.Method != "POST" {
		t.Errorf("method = %q, want POST", req.Method)
	}

	var body map[string]string
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if body["source_dialect"] != "mysql" || body["target_dialect"] != "mssql" {
		t.Errorf("dialects = %q -> %q, want mysql -> mssql",
			body["source_dialect"], body["target_dialect"])
	}
	if body["query"] != "SELECT * FROM users LIMIT 10" {
		t.Errorf("query = %q, want the original statement", body["query"])
	}
}

func TestConvertWithGenAI(t *testing.T) {
	mt := mock.NewMockTransport().WithResponse(
		[]byte(`{"converted_query": "SELECT * FROM users FETCH FIRST 10 ROWS ONLY"}`))
	c := newConnectedClient(t, mt, "http://localhost:9000")

	_, err := c.Convert(context.Background(),
		DialectMySQL, DialectOracle, "SELECT * FROM users LIMIT 10", EngineGenAI)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if got := mt.LastRequest().URL; got != "http://localhost:9000/convert-query-gen-ai" {
		t.Errorf("URL = %q, want the gen-ai endpoint", got)
	}
}

func TestConvertPreconditions(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		mt := mock.NewMockTransport()
		c := newTestClient(mt)

		_, err := c.Convert(context.Background(), DialectMySQL, DialectOracle, "SELECT 1", EngineSQLGlot)
		var preErr *PreconditionError
		if !errors.As(err, &preErr) || preErr.Code != "E_NOT_CONNECTED" {
			t.Errorf("error = %v, want E_NOT_CONNECTED precondition", err)
		}
		if mt.GetRoundTripCallCount() != 0 {
			t.Error("disconnected Convert reached the transport")
		}
	})

	t.Run("empty query", func(t *testing.T) {
		mt := mock.NewMockTransport()
		c := newConnectedClient(t, mt, "http://localhost:9000")

		_, err := c.Convert(context.Background(), DialectMySQL, DialectOracle, "  ", EngineSQLGlot)
		var preErr *PreconditionError
		if !errors.As(err, &preErr) || preErr.Code != "E_EMPTY_QUERY" {
			t.Errorf("error = %v, want E_EMPTY_QUERY precondition", err)
		}
		if mt.GetRoundTripCallCount() != 0 {
			t.Error("blank Convert reached the transport")
		}
	})

	t.Run("missing dialect", func(t *testing.T) {
		mt := mock.NewMockTransport()
		c := newConnectedClient(t, mt, "http://localhost:9000")

		_, err := c.Convert(context.Background(), "", DialectOracle, "SELECT 1", EngineSQLGlot)
		var preErr *PreconditionError
		if !errors.As(err, &preErr) || preErr.Code != "E_MISSING_DIALECT" {
			t.Errorf("error = %v, want E_MISSING_DIALECT precondition", err)
		}
		if mt.GetRoundTripCallCount() != 0 {
			t.Error("Convert without dialect reached the transport")
		}
	})

	t.Run("unknown engine", func(t *testing.T) {
		mt := mock.NewMockTransport()
		c := newConnectedClient(t, mt, "http://localhost:9000")

		_, err := c.Convert(context.Background(), DialectMySQL, DialectOracle, "SELECT 1", Engine("llamacpp"))
		if err == nil {
			t.Fatal("Convert with unknown engine succeeded, want error")
		}
		var preErr *PreconditionError
		if !errors.As(err, &preErr) || preErr.Code != "E_UNKNOWN_ENGINE" {
			t.Errorf("error = %v, want E_UNKNOWN_ENGINE precondition", err)
		}
		if mt.GetRoundTripCallCount() != 0 {
			t.Error("Convert with unknown engine reached the transport")
		}
	})
}

func TestConvertServerError(t *testing.T) {
	// Conversion endpoints differ from execute_query: a reported failure
	// becomes a Go error because there is no verbatim body contract, the
	// caller asked for a converted statement or nothing.
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "error field",
			body: `{"error": "unsupported dialect: cobol"}`,
			want: "unsupported dialect: cobol",
		},
		{
			name: "detail field",
			body: `{"detail": "An error occurred during conversion: invalid syntax"}`,
			want: "An error occurred during conversion: invalid syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := mock.NewMockTransport().WithStatus(400).WithResponse([]byte(tt.body))
			c := newConnectedClient(t, mt, "http://localhost:9000")

			_, err := c.Convert(context.Background(), DialectMySQL, DialectOracle, "SELECT 1", EngineSQLGlot)
			if err == nil {
				t.Fatal("Convert with error envelope succeeded, want error")
			}

			var qErr *QueryError
			if !errors.As(err, &qErr) {
				t.Fatalf("error type = %T, want *QueryError", err)
			}
			if qErr.Message != tt.want {
				t.Errorf("message = %q, want %q", qErr.Message, tt.want)
			}
		})
	}
}

func TestConvertEmptyResultIsNotAnError(t *testing.T) {
	// The sqlglot engine can legitimately produce an empty conversion.
	mt := mock.NewMockTransport().WithResponse([]byte(`{"converted_query": ""}`))
	c := newConnectedClient(t, mt, "http://localhost:9000")

	converted, err := c.Convert(context.Background(), DialectMySQL, DialectOracle, "SELECT 1", EngineSQLGlot)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if converted != "" {
		t.Errorf("converted = %q, want empty string", converted)
	}
}

func TestConvertTransportFailure(t *testing.T) {
	mt := mock.NewMockTransport().WithError(fmt.Errorf("connection refused"))
	c := newConnectedClient(t, mt, "http://localhost:9000")

	_, err := c.Convert(context.Background(), DialectMySQL, DialectOracle, "SELECT 1", EngineSQLGlot)
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
}
