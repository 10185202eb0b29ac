package migration

import (
	"errors"
	"fmt"
)

// MigrationValidator validates migrations against history and dependencies.
type MigrationValidator struct {
	history *MigrationHistory
}

// NewMigrationValidator creates a new migration validator.
func NewMigrationValidator(history *MigrationHistory) *MigrationValidator {
	return &MigrationValidator{
		history: history,
	}
}

// Validate checks a set of migrations for checksum drift, unmet
// dependencies and ordering problems. It never executes anything.
func (v *MigrationValidator) Validate(migrations []*Migration) *ValidationResult {
	result := &ValidationResult{
		Valid:             true,
		Conflicts:         make([]MigrationConflict, 0),
		PendingMigrations: make([]string, 0),
		AppliedMigrations: v.history.GetAppliedMigrations(),
	}

	migrationMap := make(map[string]*Migration, len(migrations))
	for _, m := range migrations {
		migrationMap[m.ID] = m
	}

	for _, migration := range migrations {
		if v.history.IsApplied(migration.ID) {
			// Applied migrations must not have changed on disk
			if err := v.history.ValidateChecksum(migration); err != nil {
				var migErr *MigrationError
				if errors.As(err, &migErr) && migErr.Code == CodeChecksumMismatch {
					result.Valid = false
					result.Conflicts = append(result.Conflicts, MigrationConflict{
						Type:        ChecksumMismatch,
						MigrationID: migration.ID,
						Message:     migErr.Message,
						Expected:    stringDetail(migErr, "expected"),
						Actual:      stringDetail(migErr, "actual"),
					})
				}
			}
			continue
		}

		result.PendingMigrations = append(result.PendingMigrations, migration.ID)

		conflicts := v.validateDependencies(migration, migrationMap)
		if len(conflicts) > 0 {
			result.Valid = false
			result.Conflicts = append(result.Conflicts, conflicts...)
		}
	}

	orderConflicts := v.validateOrdering(migrations)
	if len(orderConflicts) > 0 {
		result.Valid = false
		result.Conflicts = append(result.Conflicts, orderConflicts...)
	}

	return result
}

// stringDetail pulls a string out of a MigrationError's details map.
func stringDetail(err *MigrationError, key string) string {
	if s, ok := err.Details[key].(string); ok {
		return s
	}
	return ""
}

// validateDependencies checks that every dependency of a pending
// migration exists and has already been applied.
func (v *MigrationValidator) validateDependencies(migration *Migration, allMigrations map[string]*Migration) []MigrationConflict {
	conflicts := make([]MigrationConflict, 0)

	for _, depID := range migration.Dependencies {
		if _, exists := allMigrations[depID]; !exists {
			conflicts = append(conflicts, MigrationConflict{
				Type:        DependencyConflict,
				MigrationID: migration.ID,
				Message:     fmt.Sprintf("dependency '%s' does not exist", depID),
				Expected:    depID,
				Actual:      "not_found",
			})
			continue
		}

		if !v.history.IsApplied(depID) {
			conflicts = append(conflicts, MigrationConflict{
				Type:        DependencyConflict,
				MigrationID: migration.ID,
				Message:     fmt.Sprintf("dependency '%s' has not been applied", depID),
				Expected:    "applied",
				Actual:      "pending",
			})
		}
	}

	return conflicts
}

// validateOrdering flags pending migrations whose IDs sort before the
// latest applied one. IDs are compared lexicographically, which is why
// the numeric prefix convention matters.
func (v *MigrationValidator) validateOrdering(migrations []*Migration) []MigrationConflict {
	conflicts := make([]MigrationConflict, 0)
	appliedMigrations := v.history.GetAppliedMigrations()

	if len(appliedMigrations) == 0 {
		return conflicts
	}

	lastApplied := appliedMigrations[len(appliedMigrations)-1]

	for _, migration := range migrations {
		if v.history.IsApplied(migration.ID) {
			continue
		}
		if migration.ID < lastApplied {
			conflicts = append(conflicts, MigrationConflict{
				Type:        OrderConflict,
				MigrationID: migration.ID,
				Message:     fmt.Sprintf("migration ID '%s' is out of order (last applied: '%s')", migration.ID, lastApplied),
				Expected:    fmt.Sprintf("> %s", lastApplied),
				Actual:      migration.ID,
			})
		}
	}

	return conflicts
}

// CanRollback checks if a migration can be safely rolled back. A
// migration with applied dependents must stay.
func (v *MigrationValidator) CanRollback(migrationID string, allMigrations []*Migration) error {
	if !v.history.IsApplied(migrationID) {
		return ErrMigrationNotFound(migrationID)
	}

	dependents := make([]string, 0)
	for _, migration := range allMigrations {
		if !v.history.IsApplied(migration.ID) {
			continue
		}
		for _, depID := range migration.Dependencies {
			if depID == migrationID {
				dependents = append(dependents, migration.ID)
				break
			}
		}
	}

	if len(dependents) > 0 {
		return ErrCannotRollback(migrationID, dependents)
	}

	return nil
}
