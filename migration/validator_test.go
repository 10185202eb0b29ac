package migration

import (
	"errors"
	"testing"
)

func TestMigrationValidator_Validate(t *testing.T) {
	history := NewMigrationHistory()
	validator := NewMigrationValidator(history)

	migrations := []*Migration{
		{
			ID:   "001_test",
			Name: "Test Migration",
			Up:   []string{`CREATE TABLE users (id INTEGER PRIMARY KEY);`},
			Down: []string{`DROP TABLE users;`},
		},
	}

	result := validator.Validate(migrations)

	if result == nil {
		t.Fatal("expected validation result, got nil")
	}

	// Should have pending migrations
	if len(result.PendingMigrations) == 0 {
		t.Error("expected pending migrations")
	}
}

func TestMigrationValidator_DetectChecksumMismatch(t *testing.T) {
	history := NewMigrationHistory()

	migration := &Migration{
		ID:   "001_test",
		Name: "Test Migration",
		Up:   []string{`CREATE TABLE users (id INTEGER PRIMARY KEY);`},
		Down: []string{`DROP TABLE users;`},
	}

	// Record with one checksum
	checksum := CalculateChecksum(migration)
	history.RecordMigration("001_test", Applied, 100, checksum, nil)

	// Modify migration
	migration.Up[0] = `CREATE TABLE modified (id INTEGER PRIMARY KEY);`

	validator := NewMigrationValidator(history)
	result := validator.Validate([]*Migration{migration})

	// Should detect checksum mismatch
	if len(result.Conflicts) == 0 {
		t.Fatal("expected conflicts for checksum mismatch")
	}

	foundMismatch := false
	for _, conflict := range result.Conflicts {
		if conflict.Type == ChecksumMismatch {
			foundMismatch = true
			if conflict.Expected == "" || conflict.Actual == "" {
				t.Error("expected checksum values in conflict")
			}
			break
		}
	}

	if !foundMismatch {
		t.Error("expected ChecksumMismatch conflict type")
	}
}

func TestMigrationValidator_ValidDependencies(t *testing.T) {
	history := NewMigrationHistory()

	migrations := []*Migration{
		{
			ID:           "001_first",
			Name:         "First Migration",
			Up:           []string{`CREATE TABLE users (id INTEGER PRIMARY KEY);`},
			Down:         []string{`DROP TABLE users;`},
			Dependencies: []string{},
		},
		{
			ID:           "002_second",
			Name:         "Second Migration",
			Up:           []string{`CREATE TABLE posts (id INTEGER PRIMARY KEY);`},
			Down:         []string{`DROP TABLE posts;`},
			Dependencies: []string{"001_first"},
		},
	}

	// Apply first migration with correct checksum
	checksum := CalculateChecksum(migrations[0])
	history.RecordMigration("001_first", Applied, 100, checksum, nil)

	validator := NewMigrationValidator(history)
	result := validator.Validate(migrations)

	// Should be valid with no conflicts (001 already applied with correct checksum, 002 pending with valid dep)
	if !result.Valid {
		t.Errorf("expected valid result, got conflicts: %v", result.Conflicts)
	}
}

func TestMigrationValidator_MissingDependency(t *testing.T) {
	history := NewMigrationHistory()
	validator := NewMigrationValidator(history)

	migrations := []*Migration{
		{
			ID:           "002_second",
			Name:         "Second Migration",
			Up:           []string{`CREATE TABLE posts (id INTEGER PRIMARY KEY);`},
			Down:         []string{`DROP TABLE posts;`},
			Dependencies: []string{"001_missing"},
		},
	}

	result := validator.Validate(migrations)

	// Should have dependency conflict
	if result.Valid {
		t.Error("expected invalid result for missing dependency")
	}

	foundDepConflict := false
	for _, conflict := range result.Conflicts {
		if conflict.Type == DependencyConflict {
			foundDepConflict = true
			break
		}
	}

	if !foundDepConflict {
		t.Error("expected DependencyConflict")
	}
}

func TestMigrationValidator_OutOfOrder(t *testing.T) {
	history := NewMigrationHistory()

	applied := &Migration{
		ID:   "002_second",
		Name: "Second Migration",
		Up:   []string{`CREATE TABLE posts (id INTEGER PRIMARY KEY);`},
	}
	history.RecordMigration(applied.ID, Applied, 100, CalculateChecksum(applied), nil)

	// A pending migration sorting before the last applied one is stale
	migrations := []*Migration{
		applied,
		{
			ID:   "001_first",
			Name: "Late Arrival",
			Up:   []string{`CREATE TABLE users (id INTEGER PRIMARY KEY);`},
		},
	}

	validator := NewMigrationValidator(history)
	result := validator.Validate(migrations)

	if result.Valid {
		t.Error("expected invalid result for out-of-order migration")
	}

	foundOrderConflict := false
	for _, conflict := range result.Conflicts {
		if conflict.Type == OrderConflict {
			foundOrderConflict = true
			break
		}
	}

	if !foundOrderConflict {
		t.Error("expected OrderConflict")
	}
}

func TestMigrationValidator_CanRollback(t *testing.T) {
	history := NewMigrationHistory()

	first := &Migration{
		ID:   "001_first",
		Name: "First Migration",
		Up:   []string{`CREATE TABLE users (id INTEGER PRIMARY KEY);`},
	}
	second := &Migration{
		ID:           "002_second",
		Name:         "Second Migration",
		Up:           []string{`CREATE TABLE posts (id INTEGER PRIMARY KEY);`},
		Dependencies: []string{"001_first"},
	}

	history.RecordMigration(first.ID, Applied, 100, CalculateChecksum(first), nil)
	history.RecordMigration(second.ID, Applied, 100, CalculateChecksum(second), nil)

	validator := NewMigrationValidator(history)
	all := []*Migration{first, second}

	// 001 has an applied dependent, so it must stay
	err := validator.CanRollback("001_first", all)
	if err == nil {
		t.Fatal("expected error rolling back migration with dependents")
	}

	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("expected MigrationError, got %T", err)
	}
	if migErr.Code != CodeCannotRollback {
		t.Errorf("expected code %s, got %s", CodeCannotRollback, migErr.Code)
	}

	// 002 has no dependents
	if err := validator.CanRollback("002_second", all); err != nil {
		t.Errorf("expected rollback of leaf migration to be allowed, got: %v", err)
	}

	// Unapplied migrations cannot be rolled back
	if err := validator.CanRollback("003_missing", all); err == nil {
		t.Error("expected error for unapplied migration")
	}
}
