package migration

import (
	"encoding/json"
	"fmt"
)

// Error codes carried by MigrationError. Exported so callers can
// switch on the failure kind without string literals.
const (
	CodeNotFound             = "MIGRATION_NOT_FOUND"
	CodeFailed               = "MIGRATION_FAILED"
	CodeChecksumMismatch     = "CHECKSUM_MISMATCH"
	CodeInvalidFile          = "INVALID_MIGRATION_FILE"
	CodeRollbackNotSupported = "ROLLBACK_NOT_SUPPORTED"
	CodeCannotRollback       = "CANNOT_ROLLBACK"
	CodeConflict             = "MIGRATION_CONFLICT"
)

const migrationErrorType = "MIGRATION_ERROR"

// MigrationError represents migration-specific errors. Error() renders
// as JSON so log lines stay machine-parseable.
type MigrationError struct {
	Code    string                 `json:"code"`
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
	Cause   error                  `json:"cause,omitempty"`
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	payload := map[string]interface{}{
		"code":    e.Code,
		"type":    e.Type,
		"message": e.Message,
		"details": e.Details,
	}
	if e.Cause != nil {
		payload["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	b, _ := json.Marshal(payload)
	return string(b)
}

// Unwrap returns the underlying cause error.
func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// ErrMigrationNotFound creates an error for when a migration doesn't exist.
func ErrMigrationNotFound(migrationID string) error {
	return &MigrationError{
		Code:    CodeNotFound,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("migration '%s' not found", migrationID),
		Details: map[string]interface{}{
			"migrationId": migrationID,
		},
	}
}

// ErrMigrationFailed creates an error for when a migration execution fails.
func ErrMigrationFailed(migrationID string, cause error) error {
	return &MigrationError{
		Code:    CodeFailed,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("migration '%s' failed to execute", migrationID),
		Details: map[string]interface{}{
			"migrationId": migrationID,
		},
		Cause: cause,
	}
}

// ErrChecksumMismatch creates an error for when migration checksums don't match.
func ErrChecksumMismatch(migrationID, expected, actual string) error {
	return &MigrationError{
		Code:    CodeChecksumMismatch,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("migration '%s' has been modified (checksum mismatch)", migrationID),
		Details: map[string]interface{}{
			"migrationId": migrationID,
			"expected":    expected,
			"actual":      actual,
		},
	}
}

// ErrInvalidMigrationFile creates an error for malformed migration files.
func ErrInvalidMigrationFile(filename string, cause error) error {
	return &MigrationError{
		Code:    CodeInvalidFile,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("migration file '%s' is invalid", filename),
		Details: map[string]interface{}{
			"filename": filename,
		},
		Cause: cause,
	}
}

// ErrRollbackNotSupported creates an error for migrations that cannot be rolled back.
func ErrRollbackNotSupported(migrationID string) error {
	return &MigrationError{
		Code:    CodeRollbackNotSupported,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("migration '%s' does not support rollback", migrationID),
		Details: map[string]interface{}{
			"migrationId": migrationID,
		},
	}
}

// ErrCannotRollback creates an error for when applied migrations still
// depend on the one being rolled back.
func ErrCannotRollback(migrationID string, dependents []string) error {
	return &MigrationError{
		Code:    CodeCannotRollback,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("migration '%s' cannot be rolled back - other migrations depend on it", migrationID),
		Details: map[string]interface{}{
			"migrationId": migrationID,
			"dependents":  dependents,
		},
	}
}

// ErrMigrationConflict creates an error for when validation detects conflicts.
func ErrMigrationConflict(conflicts []MigrationConflict) error {
	conflictDetails := make([]map[string]interface{}, len(conflicts))
	for i, c := range conflicts {
		conflictDetails[i] = map[string]interface{}{
			"type":        c.Type,
			"migrationId": c.MigrationID,
			"message":     c.Message,
			"expected":    c.Expected,
			"actual":      c.Actual,
		}
	}

	return &MigrationError{
		Code:    CodeConflict,
		Type:    migrationErrorType,
		Message: fmt.Sprintf("found %d migration conflict(s)", len(conflicts)),
		Details: map[string]interface{}{
			"conflicts": conflictDetails,
			"count":     len(conflicts),
		},
	}
}
