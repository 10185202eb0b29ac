package migration

import (
	"fmt"
	"regexp"
	"strings"
)

// RollbackGenerator generates Down statements from Up statements
// automatically. This enables safe rollback without manually writing
// reverse operations.
type RollbackGenerator struct{}

// NewRollbackGenerator creates a new rollback generator.
func NewRollbackGenerator() *RollbackGenerator {
	return &RollbackGenerator{}
}

// ident matches a SQL identifier: double-quoted, backtick-quoted, or
// bare, optionally schema-qualified. The quoting style is preserved in
// generated statements.
const ident = `("[^"]+"|` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_$.]*)`

var (
	createTableRe    = regexp.MustCompile(`(?i)^CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + ident)
	createIndexRe    = regexp.MustCompile(`(?i)^CREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:IF\s+NOT\s+EXISTS\s+)?` + ident)
	createViewRe     = regexp.MustCompile(`(?i)^CREATE\s+(?:OR\s+REPLACE\s+)?VIEW\s+` + ident)
	createDatabaseRe = regexp.MustCompile(`(?i)^CREATE\s+DATABASE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + ident)
	addColumnRe      = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+` + ident + `\s+ADD\s+(?:COLUMN\s+)?` + ident)
	renameTableRe    = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+` + ident + `\s+RENAME\s+TO\s+` + ident)
)

// GenerateDown automatically generates Down statements from Up statements.
// Returns the generated statements and any errors encountered.
func (g *RollbackGenerator) GenerateDown(upCommands []string) ([]string, error) {
	downCommands := make([]string, 0, len(upCommands))

	// Process in reverse order for proper rollback sequence
	for i := len(upCommands) - 1; i >= 0; i-- {
		down, err := g.generateSingleDown(upCommands[i])
		if err != nil {
			return nil, fmt.Errorf("failed to generate down statement for up[%d]: %w", i, err)
		}
		if down != "" {
			downCommands = append(downCommands, down)
		}
	}

	return downCommands, nil
}

// generateSingleDown generates the reverse operation for a single statement.
func (g *RollbackGenerator) generateSingleDown(upCommand string) (string, error) {
	normalized := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(upCommand), ";"))
	normalizedUpper := strings.ToUpper(normalized)

	// CREATE TABLE → DROP TABLE
	if m := createTableRe.FindStringSubmatch(normalized); m != nil {
		return fmt.Sprintf("DROP TABLE %s;", m[1]), nil
	}

	// CREATE INDEX → DROP INDEX
	if m := createIndexRe.FindStringSubmatch(normalized); m != nil {
		return fmt.Sprintf("DROP INDEX %s;", m[1]), nil
	}

	// CREATE VIEW → DROP VIEW
	if m := createViewRe.FindStringSubmatch(normalized); m != nil {
		return fmt.Sprintf("DROP VIEW %s;", m[1]), nil
	}

	// CREATE DATABASE → DROP DATABASE
	if m := createDatabaseRe.FindStringSubmatch(normalized); m != nil {
		return fmt.Sprintf("DROP DATABASE %s;", m[1]), nil
	}

	// ALTER TABLE RENAME → rename back. Checked before ADD COLUMN so
	// "RENAME TO" is not mistaken for a column definition.
	if m := renameTableRe.FindStringSubmatch(normalized); m != nil {
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", m[2], m[1]), nil
	}

	// ALTER TABLE ADD COLUMN → ALTER TABLE DROP COLUMN
	if m := addColumnRe.FindStringSubmatch(normalized); m != nil && !isConstraintKeyword(m[2]) {
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", m[1], m[2]), nil
	}

	// DROP statements → not reversible (would need the definition)
	if strings.HasPrefix(normalizedUpper, "DROP TABLE") {
		return "", fmt.Errorf("DROP TABLE cannot be automatically reversed (table definition required)")
	}
	if strings.HasPrefix(normalizedUpper, "DROP INDEX") {
		return "", fmt.Errorf("DROP INDEX cannot be automatically reversed (index definition required)")
	}
	if strings.HasPrefix(normalizedUpper, "DROP VIEW") {
		return "", fmt.Errorf("DROP VIEW cannot be automatically reversed (view definition required)")
	}

	// ALTER TABLE DROP COLUMN → not reversible (would need column definition)
	if strings.HasPrefix(normalizedUpper, "ALTER TABLE") && strings.Contains(normalizedUpper, "DROP COLUMN") {
		return "", fmt.Errorf("ALTER TABLE DROP COLUMN cannot be automatically reversed (column definition required)")
	}

	// INSERT → would need the generated keys to delete
	if strings.HasPrefix(normalizedUpper, "INSERT INTO") {
		return "", fmt.Errorf("INSERT cannot be automatically reversed without tracking inserted row keys")
	}

	// DELETE / UPDATE → would need the prior row data
	if strings.HasPrefix(normalizedUpper, "DELETE FROM") {
		return "", fmt.Errorf("DELETE FROM cannot be automatically reversed (deleted data required)")
	}
	if strings.HasPrefix(normalizedUpper, "UPDATE ") {
		return "", fmt.Errorf("UPDATE cannot be automatically reversed (original row data required)")
	}

	// Unknown statement type
	return "", fmt.Errorf("cannot automatically reverse statement type: %s", normalized)
}

// isConstraintKeyword reports whether a token after ADD is a
// constraint clause rather than a column name.
func isConstraintKeyword(token string) bool {
	switch strings.ToUpper(token) {
	case "CONSTRAINT", "PRIMARY", "FOREIGN", "UNIQUE", "CHECK":
		return true
	}
	return false
}

// CanGenerateDown checks if a statement can be automatically reversed.
func (g *RollbackGenerator) CanGenerateDown(upCommand string) bool {
	normalized := strings.TrimSpace(upCommand)

	if m := addColumnRe.FindStringSubmatch(normalized); m != nil {
		return !isConstraintKeyword(m[2])
	}

	return createTableRe.MatchString(normalized) ||
		createIndexRe.MatchString(normalized) ||
		createViewRe.MatchString(normalized) ||
		createDatabaseRe.MatchString(normalized) ||
		renameTableRe.MatchString(normalized)
}

// ValidateDownCommands checks if generated Down statements are valid reverses of Up statements.
func (g *RollbackGenerator) ValidateDownCommands(upCommands, downCommands []string) error {
	if len(downCommands) > len(upCommands) {
		return fmt.Errorf("more down statements (%d) than up statements (%d)", len(downCommands), len(upCommands))
	}

	// Basic validation: ensure we have reverses for reversible statements
	reversibleCount := 0
	for _, up := range upCommands {
		if g.CanGenerateDown(up) {
			reversibleCount++
		}
	}

	if len(downCommands) != reversibleCount {
		return fmt.Errorf("expected %d down statements for %d reversible up statements, got %d", reversibleCount, reversibleCount, len(downCommands))
	}

	return nil
}
