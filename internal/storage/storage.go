package storage

import (
	"context"
	"time"

	"github.com/dshills/cardsift-mcp/pkg/types"
)

// Storage defines the interface for persisting and querying scan results
type Storage interface {
	// Scan operations
	CreateScan(ctx context.Context, scan *Scan) error
	GetScan(ctx context.Context, scanUID string) (*Scan, error)
	GetScanByID(ctx context.Context, scanID int64) (*Scan, error)
	UpdateScan(ctx context.Context, scan *Scan) error
	ListScans(ctx context.Context, limit int) ([]*Scan, error)
	DeleteScan(ctx context.Context, scanID int64) error

	// Finding operations
	UpsertFinding(ctx context.Context, finding *Finding) error
	ListFindingsByScan(ctx context.Context, scanID int64) ([]*Finding, error)
	CountFindingsByScan(ctx context.Context, scanID int64) (int, error)
	SearchFindings(ctx context.Context, keyHash [32]byte, limit int) ([]*Finding, error)
	DeleteFindingsByScan(ctx context.Context, scanID int64) error

	// Status operations
	GetStatus(ctx context.Context) (*StoreStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Scan represents one scanning run over a directory tree or a text buffer
type Scan struct {
	ID            int64
	ScanUID       string
	RootPath      string // Scanned path, empty for in-memory text
	Source        string // "path" or "text"
	SchemaVersion string

	// Flag snapshot: which optional families the run enabled
	IncludeNoCVV    bool
	IncludeTrailing bool

	FilesScanned int
	FilesSkipped int
	FilesFailed  int
	CardsFound   int // Distinct card identities persisted for this scan
	BytesScanned int64
	StartedAt    time.Time
	CompletedAt  time.Time // Zero until the run finishes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Finding is one distinct card identity observed during a scan.
//
// Only masked material reaches the database: the first six and last
// four digits of the number plus a SHA-256 hash of the identity key.
// Raw numbers, CVVs, and trailing text are never stored.
type Finding struct {
	ID           int64
	ScanID       int64
	KeyHash      [32]byte
	MaskedNumber string
	ExpiryMonth  string
	ExpiryYear   string
	Format       string
	SourcePath   string // Relative file path, empty for text scans
	ByteOffset   int64
	CreatedAt    time.Time
}

// StoreStatus contains statistics about the findings database
type StoreStatus struct {
	ScansCount     int
	FindingsCount  int
	DistinctCards  int
	FormatCounts   map[string]int // Findings per format family
	LastScanAt     time.Time
	DatabaseSizeMB float64
	Health         HealthStatus
}

// HealthStatus represents the health of the findings database
type HealthStatus struct {
	DatabaseAccessible bool
	SchemaCurrent      bool
}

// FromTypesFinding converts a live extraction finding into its masked
// storage form
func FromTypesFinding(f types.Finding, scanID int64, sourcePath string) *Finding {
	return &Finding{
		ScanID:       scanID,
		KeyHash:      f.Record.KeyHash(),
		MaskedNumber: f.Record.Masked(),
		ExpiryMonth:  f.Record.ExpiryMonth,
		ExpiryYear:   f.Record.ExpiryYear,
		Format:       string(f.Record.Format),
		SourcePath:   sourcePath,
		ByteOffset:   int64(f.StartByte),
	}
}

// Identity returns the masked identity string for display purposes
func (f *Finding) Identity() string {
	return f.MaskedNumber + "|" + f.ExpiryMonth + "|" + f.ExpiryYear
}
