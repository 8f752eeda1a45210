// Package storage provides SQLite-based persistence for scan results.
//
// The storage layer manages:
//   - Scan run metadata and counters
//   - Masked card findings with identity hashes
//   - Schema versioning and migrations
//
// # Database Schema
//
// Tables:
//   - scans: One row per scanning run (path walk or text buffer)
//   - findings: Masked card identities, unique per (scan, identity)
//   - schema_version: Applied migration versions
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.cardsift/findings.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	scan := &storage.Scan{
//	    ScanUID:       uuid.NewString(),
//	    RootPath:      "/var/dumps",
//	    Source:        "path",
//	    SchemaVersion: storage.CurrentSchemaVersion,
//	}
//	err = db.CreateScan(ctx, scan)
//
// # Transactions
//
// Batch finding writes into transactions:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, f := range findings {
//	    if err := tx.UpsertFinding(ctx, f); err != nil {
//	        return err
//	    }
//	}
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Masked Persistence
//
// Findings never hold raw card material. Each row stores the masked
// number (first six and last four digits), the expiry fields, and a
// SHA-256 hash of the identity key. The hash supports looking up past
// sightings of a card without the database ever containing the number:
//
//	hits, err := db.SearchFindings(ctx, record.KeyHash(), 20)
//
// Re-observing an identity within the same scan keeps the original
// row, so first-discovery offsets survive upserts.
//
// # Scan History
//
// Scans are listed most recent first:
//
//	scans, err := db.ListScans(ctx, 10)
//	for _, s := range scans {
//	    fmt.Printf("%s %s cards=%d\n", s.StartedAt, s.RootPath, s.CardsFound)
//	}
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (cgosqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Fastest bulk insert path
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "cgosqlite"
//
// Pure Go Build (purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// # Performance
//
// Typical operations:
//   - Create scan: <1ms
//   - Upsert findings (batch of 100 in one tx): <10ms
//   - List scans: <1ms
//   - Identity lookup by hash: <1ms
//
// The database stays small because only masked identities are kept,
// roughly 150 bytes per finding.
package storage
