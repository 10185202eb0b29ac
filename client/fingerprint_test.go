package client

import (
	"strings"
	"testing"
)

func TestQueryFingerprintStable(t *testing.T) {
	a := QueryFingerprint("SELECT * FROM users")
	b := QueryFingerprint("SELECT * FROM users")

	if a != b {
		t.Errorf("same statement produced different fingerprints: %s vs %s", a, b)
	}
}

func TestQueryFingerprintIgnoresFormatting(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"extra spaces", "SELECT * FROM users", "SELECT   *   FROM   users"},
		{"newlines", "SELECT * FROM users", "SELECT *\nFROM users"},
		{"tabs and trailing space", "SELECT * FROM users", "\tSELECT * FROM users  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if QueryFingerprint(tt.a) != QueryFingerprint(tt.b) {
				t.Errorf("formatting variant changed the fingerprint")
			}
		})
	}
}

func TestQueryFingerprintDistinguishesStatements(t *testing.T) {
	a := QueryFingerprint("SELECT * FROM users")
	b := QueryFingerprint("SELECT * FROM orders")

	if a == b {
		t.Error("different statements collided")
	}
}

func TestQueryFingerprintShape(t *testing.T) {
	fp := QueryFingerprint("SELECT 1")

	if len(fp) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(fp))
	}
	if strings.ToLower(fp) != fp {
		t.Errorf("fingerprint should be lowercase hex: %s", fp)
	}
	for _, r := range fp {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("fingerprint contains non-hex character %q", r)
		}
	}
}

func TestNormalizeQueryCollapsesWhitespace(t *testing.T) {
	got := normalizeQuery("  SELECT\t1\n  FROM   dual  ")
	want := "SELECT 1 FROM dual"

	if got != want {
		t.Errorf("normalizeQuery = %q, want %q", got, want)
	}
}
