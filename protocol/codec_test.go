package protocol

import (
	"encoding/json"
	"testing"
)

func TestWireCodecEncodeQuery(t *testing.T) {
	codec := NewWireCodec()

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "simple query",
			query:    "SELECT 1",
			expected: `{"query":"SELECT 1"}`,
		},
		{
			name:     "query with table",
			query:    "SELECT * FROM users",
			expected: `{"query":"SELECT * FROM users"}`,
		},
		{
			name:     "double quotes are escaped",
			query:    `SELECT "name" FROM users`,
			expected: `{"query":"SELECT \"name\" FROM users"}`,
		},
		{
			name:     "backslash is escaped",
			query:    `SELECT 'a\b'`,
			expected: `{"query":"SELECT 'a\\b'"}`,
		},
		{
			name:     "comparison operators are not HTML-escaped",
			query:    "SELECT * FROM t WHERE a < 5 AND b > 2",
			expected: `{"query":"SELECT * FROM t WHERE a < 5 AND b > 2"}`,
		},
		{
			name:     "newline is escaped",
			query:    "SELECT 1\nFROM dual",
			expected: `{"query":"SELECT 1\nFROM dual"}`,
		},
		{
			name:     "empty query still encodes",
			query:    "",
			expected: `{"query":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := codec.EncodeQuery(tt.query)
			if err != nil {
				t.Fatalf("EncodeQuery() error = %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("EncodeQuery() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}

// Whatever goes in must come back out once the server parses the body.
func TestWireCodecEncodeQueryRoundTrip(t *testing.T) {
	codec := NewWireCodec()

	queries := []string{
		"SELECT 1",
		`SELECT 'a"b'`,
		`INSERT INTO t VALUES ('it''s', "quoted", '\')`,
		"SELECT '\x00\x01\x02'",
		"SELECT 'héllo wörld'",
	}

	for _, q := range queries {
		result, err := codec.EncodeQuery(q)
		if err != nil {
			t.Fatalf("EncodeQuery(%q) error = %v", q, err)
		}

		var req QueryRequest
		if err := json.Unmarshal(result, &req); err != nil {
			t.Fatalf("encoded body for %q is not valid JSON: %v", q, err)
		}
		if req.Query != q {
			t.Errorf("round trip changed query: got %q, want %q", req.Query, q)
		}
	}
}

func TestWireCodecEncodeQueryNoTrailingNewline(t *testing.T) {
	codec := NewWireCodec()

	result, err := codec.EncodeQuery("SELECT 1")
	if err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}
	if result[len(result)-1] == '\n' {
		t.Error("encoded body should not end with a newline")
	}
}

func TestWireCodecEncodeConvert(t *testing.T) {
	codec := NewWireCodec()

	result, err := codec.EncodeConvert(ConvertRequest{
		SourceDialect: "mysql",
		TargetDialect: "postgres",
		Query:         "SHOW DATABASES",
	})
	if err != nil {
		t.Fatalf("EncodeConvert() error = %v", err)
	}

	expected := `{"source_dialect":"mysql","target_dialect":"postgres","query":"SHOW DATABASES"}`
	if string(result) != expected {
		t.Errorf("EncodeConvert() = %q, want %q", string(result), expected)
	}
}

func TestWireCodecEncodeConvertRequiresQuery(t *testing.T) {
	codec := NewWireCodec()

	_, err := codec.EncodeConvert(ConvertRequest{
		SourceDialect: "mysql",
		TargetDialect: "postgres",
	})
	if err == nil {
		t.Error("expected error for convert request without a query")
	}
}

func TestWireCodecEncodeEmpty(t *testing.T) {
	codec := NewWireCodec()

	if string(codec.EncodeEmpty()) != "{}" {
		t.Errorf("EncodeEmpty() = %q, want %q", codec.EncodeEmpty(), "{}")
	}
}

func TestWireCodecDecodeEnvelope(t *testing.T) {
	codec := NewWireCodec()

	tests := []struct {
		name        string
		data        string
		wantErr     bool
		wantError   string
		wantMessage string
		wantQuery   string
		wantResult  bool
	}{
		{
			name:       "result envelope",
			data:       `{"result": [["db1"], ["db2"]]}`,
			wantResult: true,
		},
		{
			name:      "error envelope",
			data:      `{"error": "relation \"t\" does not exist"}`,
			wantError: `relation "t" does not exist`,
		},
		{
			name:        "message envelope",
			data:        `{"message": "Connection closed"}`,
			wantMessage: "Connection closed",
		},
		{
			name:      "converted query envelope",
			data:      `{"converted_query": "SELECT datname FROM pg_database;"}`,
			wantQuery: "SELECT datname FROM pg_database;",
		},
		{
			name:    "plain text is not an envelope",
			data:    "Internal Server Error",
			wantErr: true,
		},
		{
			name:       "empty result",
			data:       `{"result": []}`,
			wantResult: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := codec.DecodeEnvelope([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected decode error, got nil")
				}
				terr, ok := err.(*TransportError)
				if !ok {
					t.Fatalf("expected *TransportError, got %T", err)
				}
				if terr.Code != ErrorCodeBadEnvelope {
					t.Errorf("expected code %d, got %d", ErrorCodeBadEnvelope, terr.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEnvelope() error = %v", err)
			}
			if env.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", env.Error, tt.wantError)
			}
			if env.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", env.Message, tt.wantMessage)
			}
			if env.ConvertedQuery != tt.wantQuery {
				t.Errorf("ConvertedQuery = %q, want %q", env.ConvertedQuery, tt.wantQuery)
			}
			if tt.wantResult && env.Result == nil {
				t.Error("expected Result to be populated")
			}
		})
	}
}

func TestTransportErrorFormat(t *testing.T) {
	err := NewTransportError(ErrorCodeConnectionRefused, "connection refused", map[string]interface{}{
		"host": "localhost:9000",
	})

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error string")
	}
	if !err.IsRetryable {
		t.Error("connection refused should be retryable")
	}

	data, jsonErr := err.ToJSON()
	if jsonErr != nil {
		t.Fatalf("ToJSON() error = %v", jsonErr)
	}

	parsed, jsonErr := FromJSON(data)
	if jsonErr != nil {
		t.Fatalf("FromJSON() error = %v", jsonErr)
	}
	if parsed.Code != ErrorCodeConnectionRefused {
		t.Errorf("expected code %d, got %d", ErrorCodeConnectionRefused, parsed.Code)
	}
}
