package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Scan operations

// createScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createScanWithQuerier(ctx context.Context, q querier, scan *Scan) error {
	query := `
		INSERT INTO scans (scan_uid, root_path, source, schema_version,
			include_no_cvv, include_trailing, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if scan.StartedAt.IsZero() {
		scan.StartedAt = now
	}
	result, err := q.ExecContext(ctx, query,
		scan.ScanUID, scan.RootPath, scan.Source, scan.SchemaVersion,
		scan.IncludeNoCVV, scan.IncludeTrailing, scan.StartedAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	scan.ID = id
	scan.CreatedAt = now
	scan.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateScan(ctx context.Context, scan *Scan) error {
	return s.createScanWithQuerier(ctx, s.querier(), scan)
}

// scanColumns is the shared SELECT list for scan rows
const scanColumns = `id, scan_uid, root_path, source, schema_version,
	       include_no_cvv, include_trailing,
	       files_scanned, files_skipped, files_failed, cards_found, bytes_scanned,
	       started_at, completed_at, created_at, updated_at`

// scanRowInto reads one scan row from a row scanner
func scanRowInto(scan *Scan, row interface{ Scan(...interface{}) error }) error {
	var completedAt sql.NullTime
	err := row.Scan(
		&scan.ID, &scan.ScanUID, &scan.RootPath, &scan.Source, &scan.SchemaVersion,
		&scan.IncludeNoCVV, &scan.IncludeTrailing,
		&scan.FilesScanned, &scan.FilesSkipped, &scan.FilesFailed,
		&scan.CardsFound, &scan.BytesScanned,
		&scan.StartedAt, &completedAt, &scan.CreatedAt, &scan.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if completedAt.Valid {
		scan.CompletedAt = completedAt.Time
	}
	return nil
}

// getScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getScanWithQuerier(ctx context.Context, q querier, scanUID string) (*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE scan_uid = ?`
	var scan Scan
	err := scanRowInto(&scan, q.QueryRowContext(ctx, query, scanUID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

func (s *SQLiteStorage) GetScan(ctx context.Context, scanUID string) (*Scan, error) {
	return s.getScanWithQuerier(ctx, s.querier(), scanUID)
}

// getScanByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getScanByIDWithQuerier(ctx context.Context, q querier, scanID int64) (*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ?`
	var scan Scan
	err := scanRowInto(&scan, q.QueryRowContext(ctx, query, scanID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

func (s *SQLiteStorage) GetScanByID(ctx context.Context, scanID int64) (*Scan, error) {
	return s.getScanByIDWithQuerier(ctx, s.querier(), scanID)
}

// updateScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateScanWithQuerier(ctx context.Context, q querier, scan *Scan) error {
	query := `
		UPDATE scans
		SET files_scanned = ?, files_skipped = ?, files_failed = ?,
		    cards_found = ?, bytes_scanned = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	var completedAt interface{}
	if !scan.CompletedAt.IsZero() {
		completedAt = scan.CompletedAt
	}
	_, err := q.ExecContext(ctx, query,
		scan.FilesScanned, scan.FilesSkipped, scan.FilesFailed,
		scan.CardsFound, scan.BytesScanned, completedAt, now, scan.ID)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	scan.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateScan(ctx context.Context, scan *Scan) error {
	return s.updateScanWithQuerier(ctx, s.querier(), scan)
}

// listScansWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listScansWithQuerier(ctx context.Context, q querier, limit int) ([]*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	scans := make([]*Scan, 0)
	for rows.Next() {
		var scan Scan
		if err := scanRowInto(&scan, rows); err != nil {
			return nil, err
		}
		scans = append(scans, &scan)
	}
	return scans, rows.Err()
}

func (s *SQLiteStorage) ListScans(ctx context.Context, limit int) ([]*Scan, error) {
	return s.listScansWithQuerier(ctx, s.querier(), limit)
}

// deleteScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteScanWithQuerier(ctx context.Context, q querier, scanID int64) error {
	query := `DELETE FROM scans WHERE id = ?`
	_, err := q.ExecContext(ctx, query, scanID)
	return err
}

func (s *SQLiteStorage) DeleteScan(ctx context.Context, scanID int64) error {
	return s.deleteScanWithQuerier(ctx, s.querier(), scanID)
}

// Finding operations

// upsertFindingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertFindingWithQuerier(ctx context.Context, q querier, finding *Finding) error {
	// A card identity re-observed in a later file of the same scan keeps
	// its first-discovery row. The no-op assignment makes RETURNING fire
	// on the conflict path.
	query := `
		INSERT INTO findings (
			scan_id, key_hash, masked_number, expiry_month, expiry_year,
			format, source_path, byte_offset, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scan_id, key_hash)
		DO UPDATE SET masked_number = excluded.masked_number
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		finding.ScanID, finding.KeyHash[:], finding.MaskedNumber,
		finding.ExpiryMonth, finding.ExpiryYear, finding.Format,
		finding.SourcePath, finding.ByteOffset, now,
	).Scan(&finding.ID, &finding.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert finding: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) UpsertFinding(ctx context.Context, finding *Finding) error {
	return s.upsertFindingWithQuerier(ctx, s.querier(), finding)
}

// findingColumns is the shared SELECT list for finding rows
const findingColumns = `id, scan_id, key_hash, masked_number, expiry_month, expiry_year,
	       format, source_path, byte_offset, created_at`

// findingRowInto reads one finding row from a row scanner
func findingRowInto(finding *Finding, row interface{ Scan(...interface{}) error }) error {
	var hash []byte
	err := row.Scan(
		&finding.ID, &finding.ScanID, &hash, &finding.MaskedNumber,
		&finding.ExpiryMonth, &finding.ExpiryYear, &finding.Format,
		&finding.SourcePath, &finding.ByteOffset, &finding.CreatedAt,
	)
	if err != nil {
		return err
	}
	copy(finding.KeyHash[:], hash)
	return nil
}

// listFindingsByScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFindingsByScanWithQuerier(ctx context.Context, q querier, scanID int64) ([]*Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE scan_id = ? ORDER BY id`
	rows, err := q.QueryContext(ctx, query, scanID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	findings := make([]*Finding, 0)
	for rows.Next() {
		var finding Finding
		if err := findingRowInto(&finding, rows); err != nil {
			return nil, err
		}
		findings = append(findings, &finding)
	}
	return findings, rows.Err()
}

func (s *SQLiteStorage) ListFindingsByScan(ctx context.Context, scanID int64) ([]*Finding, error) {
	return s.listFindingsByScanWithQuerier(ctx, s.querier(), scanID)
}

// countFindingsByScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countFindingsByScanWithQuerier(ctx context.Context, q querier, scanID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM findings WHERE scan_id = ?", scanID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStorage) CountFindingsByScan(ctx context.Context, scanID int64) (int, error) {
	return s.countFindingsByScanWithQuerier(ctx, s.querier(), scanID)
}

// searchFindingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) searchFindingsWithQuerier(ctx context.Context, q querier, keyHash [32]byte, limit int) ([]*Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE key_hash = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := q.QueryContext(ctx, query, keyHash[:], limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	findings := make([]*Finding, 0)
	for rows.Next() {
		var finding Finding
		if err := findingRowInto(&finding, rows); err != nil {
			return nil, err
		}
		findings = append(findings, &finding)
	}
	return findings, rows.Err()
}

func (s *SQLiteStorage) SearchFindings(ctx context.Context, keyHash [32]byte, limit int) ([]*Finding, error) {
	return s.searchFindingsWithQuerier(ctx, s.querier(), keyHash, limit)
}

// deleteFindingsByScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteFindingsByScanWithQuerier(ctx context.Context, q querier, scanID int64) error {
	query := `DELETE FROM findings WHERE scan_id = ?`
	_, err := q.ExecContext(ctx, query, scanID)
	return err
}

func (s *SQLiteStorage) DeleteFindingsByScan(ctx context.Context, scanID int64) error {
	return s.deleteFindingsByScanWithQuerier(ctx, s.querier(), scanID)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{}

	// Count scans
	var scanCount int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans").Scan(&scanCount)
	if err != nil {
		return nil, err
	}
	status.ScansCount = scanCount

	// Count findings
	var findingCount int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM findings").Scan(&findingCount)
	if err != nil {
		return nil, err
	}
	status.FindingsCount = findingCount

	// Count distinct card identities across all scans
	var distinctCards int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT key_hash) FROM findings").Scan(&distinctCards)
	if err != nil {
		return nil, err
	}
	status.DistinctCards = distinctCards

	// Findings per format family
	status.FormatCounts = make(map[string]int)
	rows, err := s.db.QueryContext(ctx, "SELECT format, COUNT(*) FROM findings GROUP BY format")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		status.FormatCounts[format] = count
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Most recent scan start. Selecting the column directly keeps its
	// declared type, which the driver needs to hand back a time.Time.
	var lastScanAt time.Time
	err = s.db.QueryRowContext(ctx,
		"SELECT started_at FROM scans ORDER BY started_at DESC, id DESC LIMIT 1").Scan(&lastScanAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		status.LastScanAt = lastScanAt
	}

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	// Check health status
	var schemaVersion string
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&schemaVersion)
	status.Health = HealthStatus{
		DatabaseAccessible: true,
		SchemaCurrent:      err == nil && schemaVersion == CurrentSchemaVersion,
	}

	return status, nil
}

// Transaction implementations - delegate to main storage

// Write operations use the internal helper that takes a querier; reads
// that only run outside batch writes go straight to the storage.

func (t *sqliteTx) CreateScan(ctx context.Context, scan *Scan) error {
	return t.storage.createScanWithQuerier(ctx, t.querier(), scan)
}

func (t *sqliteTx) GetScan(ctx context.Context, scanUID string) (*Scan, error) {
	return t.storage.getScanWithQuerier(ctx, t.querier(), scanUID)
}

func (t *sqliteTx) GetScanByID(ctx context.Context, scanID int64) (*Scan, error) {
	return t.storage.getScanByIDWithQuerier(ctx, t.querier(), scanID)
}

func (t *sqliteTx) UpdateScan(ctx context.Context, scan *Scan) error {
	return t.storage.updateScanWithQuerier(ctx, t.querier(), scan)
}

func (t *sqliteTx) ListScans(ctx context.Context, limit int) ([]*Scan, error) {
	return t.storage.listScansWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) DeleteScan(ctx context.Context, scanID int64) error {
	return t.storage.deleteScanWithQuerier(ctx, t.querier(), scanID)
}

func (t *sqliteTx) UpsertFinding(ctx context.Context, finding *Finding) error {
	return t.storage.upsertFindingWithQuerier(ctx, t.querier(), finding)
}

func (t *sqliteTx) ListFindingsByScan(ctx context.Context, scanID int64) ([]*Finding, error) {
	return t.storage.listFindingsByScanWithQuerier(ctx, t.querier(), scanID)
}

func (t *sqliteTx) CountFindingsByScan(ctx context.Context, scanID int64) (int, error) {
	return t.storage.countFindingsByScanWithQuerier(ctx, t.querier(), scanID)
}

func (t *sqliteTx) SearchFindings(ctx context.Context, keyHash [32]byte, limit int) ([]*Finding, error) {
	return t.storage.searchFindingsWithQuerier(ctx, t.querier(), keyHash, limit)
}

func (t *sqliteTx) DeleteFindingsByScan(ctx context.Context, scanID int64) error {
	return t.storage.deleteFindingsByScanWithQuerier(ctx, t.querier(), scanID)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*StoreStatus, error) {
	return t.storage.GetStatus(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	// We return an error to prevent accidental misuse
	// If savepoints are needed in the future, implement here
	return nil, errors.New("nested transactions not supported")
}
