package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// formatVersion is stamped into every migration file so future layout
// changes can be detected on read.
const formatVersion = "1.0"

// filenameSanitizer strips characters that are unsafe in file names.
var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// MigrationFile represents the structure of a migration file on disk.
type MigrationFile struct {
	FormatVersion string     `json:"formatVersion"`
	Migration     *Migration `json:"migration"`
}

// WriteMigrationFile writes a migration to a timestamped JSON file.
// Files are created with 0644 permissions (readable by all, writable by owner).
func WriteMigrationFile(migration *Migration, dir string) (string, error) {
	if migration == nil {
		return "", fmt.Errorf("migration cannot be nil")
	}
	if dir == "" {
		return "", fmt.Errorf("directory path cannot be empty")
	}

	if err := InitMigrationDirectory(dir); err != nil {
		return "", fmt.Errorf("failed to initialize directory: %w", err)
	}

	// Filename is <timestamp>_<sanitized id>.json so a plain directory
	// listing shows application order
	timestamp := migration.Timestamp.Format("20060102150405")
	sanitized := filenameSanitizer.ReplaceAllString(migration.ID, "_")
	filename := fmt.Sprintf("%s_%s.json", timestamp, sanitized)
	filePath := filepath.Join(dir, filename)

	fileData := MigrationFile{
		FormatVersion: formatVersion,
		Migration:     migration,
	}

	data, err := json.MarshalIndent(fileData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal migration: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// ReadMigrationFile reads and validates a migration from a JSON file.
func ReadMigrationFile(path string) (*Migration, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var fileData MigrationFile
	if err := json.Unmarshal(data, &fileData); err != nil {
		return nil, ErrInvalidMigrationFile(path, err)
	}

	// Files written before format versions existed count as 1.0
	if fileData.FormatVersion == "" {
		fileData.FormatVersion = formatVersion
	}

	if fileData.FormatVersion != formatVersion {
		return nil, ErrInvalidMigrationFile(path,
			fmt.Errorf("unsupported migration format version: %s", fileData.FormatVersion))
	}

	if fileData.Migration == nil {
		return nil, ErrInvalidMigrationFile(path, fmt.Errorf("migration data is missing"))
	}

	return fileData.Migration, nil
}

// ListMigrationFiles scans a directory and returns migrations sorted by
// timestamp, with IDs breaking ties. Unreadable files are skipped with
// a warning so one corrupt file doesn't block the rest.
func ListMigrationFiles(dir string) ([]*Migration, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Migration{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var migrations []*Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		// Dotfiles hold lock state, not migrations
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		migration, err := ReadMigrationFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to read migration file %s: %v\n", entry.Name(), err)
			continue
		}

		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		if migrations[i].Timestamp.Equal(migrations[j].Timestamp) {
			return migrations[i].ID < migrations[j].ID
		}
		return migrations[i].Timestamp.Before(migrations[j].Timestamp)
	})

	return migrations, nil
}

// InitMigrationDirectory creates a migration directory if it doesn't exist.
// Warns if directory has world-writable permissions.
func InitMigrationDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory path cannot be empty")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	mode := info.Mode().Perm()
	if mode&0002 != 0 {
		fmt.Fprintf(os.Stderr, "Warning: migration directory %s has world-writable permissions (%s). This may be a security risk.\n", dir, mode)
	}

	return nil
}
