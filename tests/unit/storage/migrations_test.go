package storage_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/dshills/cardsift-mcp/internal/storage"
)

func TestApplyMigrations(t *testing.T) {
	// Create in-memory database for testing
	db, err := sql.Open(storage.DriverName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()

	// Apply migrations
	ctx := context.Background()
	if err := storage.ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	// Verify schema_version table exists
	var version string
	err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	if err != nil {
		t.Fatalf("Failed to query schema version: %v", err)
	}

	if version != storage.CurrentSchemaVersion {
		t.Errorf("Expected schema version %s, got %s", storage.CurrentSchemaVersion, version)
	}

	// Verify all tables exist
	tables := []string{"scans", "findings", "schema_version"}

	for _, table := range tables {
		var name string
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if err == sql.ErrNoRows {
			t.Errorf("Table %s does not exist", table)
		} else if err != nil {
			t.Errorf("Failed to check table %s: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	// Create in-memory database
	db, err := sql.Open(storage.DriverName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Apply migrations twice
	if err := storage.ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("First migration failed: %v", err)
	}

	if err := storage.ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("Second migration failed: %v", err)
	}

	// Should only have one version record
	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count versions: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 schema version record, got %d", count)
	}
}

func TestRollbackMigration(t *testing.T) {
	db, err := sql.Open(storage.DriverName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	if err := storage.RollbackMigration(ctx, db); err != nil {
		t.Fatalf("Failed to rollback migration: %v", err)
	}

	// The data tables are gone after rolling back the initial migration
	for _, table := range []string{"scans", "findings"} {
		var name string
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if err != sql.ErrNoRows {
			t.Errorf("Table %s still exists after rollback (err = %v)", table, err)
		}
	}

	// Rolling back again has nothing to remove
	if err := storage.RollbackMigration(ctx, db); err == nil {
		t.Error("Expected error rolling back with no applied migrations")
	}
}

// TestSemanticVersionComparison tests that migration ordering follows
// semantic versioning, not lexicographic string comparison
func TestSemanticVersionComparison(t *testing.T) {
	tests := []struct {
		name     string
		v1       string
		v2       string
		v1Higher bool // true if v1 > v2
	}{
		{
			name:     "Major version difference",
			v1:       "2.0.0",
			v2:       "1.9.9",
			v1Higher: true,
		},
		{
			name:     "Minor version difference - semantic ordering",
			v1:       "1.10.0",
			v2:       "1.2.0",
			v1Higher: true, // 1.10.0 > 1.2.0 even though "1.10.0" < "1.2.0" as strings
		},
		{
			name:     "Patch version difference",
			v1:       "1.0.10",
			v2:       "1.0.2",
			v1Higher: true,
		},
		{
			name:     "Equal versions",
			v1:       "1.0.0",
			v2:       "1.0.0",
			v1Higher: false,
		},
		{
			name:     "Pre-release version lower than release",
			v1:       "1.0.0-alpha",
			v2:       "1.0.0",
			v1Higher: false,
		},
		{
			name:     "Build metadata ignored in comparison",
			v1:       "1.0.0+build.1",
			v2:       "1.0.0+build.2",
			v1Higher: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create in-memory database for testing
			db, err := sql.Open(storage.DriverName, ":memory:")
			if err != nil {
				t.Fatalf("Failed to open database: %v", err)
			}
			defer db.Close()

			ctx := context.Background()

			// Create schema_version table
			_, err = db.ExecContext(ctx, `CREATE TABLE schema_version (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`)
			if err != nil {
				t.Fatalf("Failed to create schema_version table: %v", err)
			}

			// Insert first version
			_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", tt.v2)
			if err != nil {
				t.Fatalf("Failed to insert version: %v", err)
			}

			// Create a test migration with v1
			testMigration := storage.Migration{
				Version: tt.v1,
				Up:      "SELECT 1", // Dummy migration
				Down:    "SELECT 1",
			}

			// Save original migrations and replace temporarily
			originalMigrations := storage.AllMigrations
			storage.AllMigrations = []storage.Migration{testMigration}
			defer func() { storage.AllMigrations = originalMigrations }()

			// Apply migrations - should only run if v1 > v2
			err = storage.ApplyMigrations(ctx, db)
			if err != nil {
				t.Fatalf("ApplyMigrations failed: %v", err)
			}

			// Check how many version records exist
			var count int
			err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count)
			if err != nil {
				t.Fatalf("Failed to count versions: %v", err)
			}

			if tt.v1Higher {
				// If v1 > v2, migration should have run (2 records: v2 and v1)
				if count != 2 {
					t.Errorf("Expected 2 version records (v1 > v2), got %d", count)
				}
			} else {
				// If v1 <= v2, migration should NOT have run (1 record: v2 only)
				if count != 1 {
					t.Errorf("Expected 1 version record (v1 <= v2), got %d", count)
				}
			}
		})
	}
}

// TestMigrationErrorHandling tests that a missing or empty version table
// starts from 0.0.0 while a corrupt version is a hard error
func TestMigrationErrorHandling(t *testing.T) {
	tests := []struct {
		name          string
		setupDB       func(t *testing.T) *sql.DB
		expectError   bool
		expectVersion string
		errorContains string
	}{
		{
			name: "No schema_version table - starts from 0.0.0",
			setupDB: func(t *testing.T) *sql.DB {
				db, err := sql.Open(storage.DriverName, ":memory:")
				if err != nil {
					t.Fatalf("Failed to open database: %v", err)
				}
				// Don't create schema_version table
				return db
			},
			expectError:   false,
			expectVersion: storage.CurrentSchemaVersion,
		},
		{
			name: "Empty schema_version table - starts from 0.0.0",
			setupDB: func(t *testing.T) *sql.DB {
				db, err := sql.Open(storage.DriverName, ":memory:")
				if err != nil {
					t.Fatalf("Failed to open database: %v", err)
				}
				// Create empty schema_version table
				_, err = db.Exec(`CREATE TABLE schema_version (
					version TEXT PRIMARY KEY,
					applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				)`)
				if err != nil {
					t.Fatalf("Failed to create table: %v", err)
				}
				return db
			},
			expectError:   false,
			expectVersion: storage.CurrentSchemaVersion,
		},
		{
			name: "Invalid version in database",
			setupDB: func(t *testing.T) *sql.DB {
				db, err := sql.Open(storage.DriverName, ":memory:")
				if err != nil {
					t.Fatalf("Failed to open database: %v", err)
				}
				_, err = db.Exec(`CREATE TABLE schema_version (
					version TEXT PRIMARY KEY,
					applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				)`)
				if err != nil {
					t.Fatalf("Failed to create table: %v", err)
				}
				_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", "invalid-version")
				if err != nil {
					t.Fatalf("Failed to insert version: %v", err)
				}
				return db
			},
			expectError:   true,
			errorContains: "invalid current schema version",
		},
		{
			name: "Already at current version - no error",
			setupDB: func(t *testing.T) *sql.DB {
				db, err := sql.Open(storage.DriverName, ":memory:")
				if err != nil {
					t.Fatalf("Failed to open database: %v", err)
				}
				ctx := context.Background()
				if err := storage.ApplyMigrations(ctx, db); err != nil {
					t.Fatalf("Initial migration failed: %v", err)
				}
				return db
			},
			expectError:   false,
			expectVersion: storage.CurrentSchemaVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := tt.setupDB(t)
			defer db.Close()

			ctx := context.Background()
			err := storage.ApplyMigrations(ctx, db)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain %q, got %q", tt.errorContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			// Verify final version
			var version string
			err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
			if err != nil {
				t.Fatalf("Failed to query version: %v", err)
			}
			if version != tt.expectVersion {
				t.Errorf("Expected version %s, got %s", tt.expectVersion, version)
			}
		})
	}
}
