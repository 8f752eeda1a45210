package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/cardsift-mcp/internal/chunker"
	"github.com/dshills/cardsift-mcp/internal/extractor"
	"github.com/dshills/cardsift-mcp/internal/storage"
	"github.com/dshills/cardsift-mcp/pkg/types"
)

// ErrScanInProgress is returned when a scan is started while another
// scan on the same Scanner is still running
var ErrScanInProgress = errors.New("scan already in progress")

// DefaultExtensions lists the file extensions scanned when the config
// does not name its own set
var DefaultExtensions = []string{".txt", ".log", ".csv", ".sql", ".json", ".dump"}

const (
	// DefaultBatchSize is the number of files committed per transaction
	DefaultBatchSize = 20

	// DefaultMaxFileBytes is the per-file size cap; larger files are
	// counted as skipped
	DefaultMaxFileBytes = 64 << 20
)

// ProgressFunc receives a callback after each file is scanned
type ProgressFunc func(path string, hits int)

// Scanner coordinates the scanning pipeline: walk -> extract -> mask -> store
type Scanner struct {
	extractor *extractor.Extractor
	storage   storage.Storage
	lock      ScanLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for a scan run
type Config struct {
	Workers             int          // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize           int          // Number of files to commit per transaction (default: 20)
	ChunkSize           int          // Window size handed to the extractor (default: 10000)
	IncludeNoCVV        bool         // Whether to capture records without a CVV
	IncludeTrailingInfo bool         // Whether to capture records with trailing free text
	IncludeHidden       bool         // Whether to descend into dot-directories (default: false)
	Extensions          []string     // File extensions to scan (default: DefaultExtensions)
	MaxFileBytes        int64        // Skip files larger than this (default: 64MB)
	Progress            ProgressFunc // Optional per-file progress callback
}

// Report contains statistics about a completed scan run
type Report struct {
	ScanUID       string        `json:"scan_uid"`
	RootPath      string        `json:"root_path,omitempty"`
	FilesScanned  int           `json:"files_scanned"`
	FilesSkipped  int           `json:"files_skipped"`
	FilesFailed   int           `json:"files_failed"`
	CardsFound    int           `json:"cards_found"`
	TotalHits     int           `json:"total_hits"`
	BytesScanned  int64         `json:"bytes_scanned"`
	Duration      time.Duration `json:"duration"`
	ErrorMessages []string      `json:"errors,omitempty"`
}

// MBPerSecond returns the scan throughput in megabytes per second
func (r *Report) MBPerSecond() float64 {
	seconds := r.Duration.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(r.BytesScanned) / (1 << 20) / seconds
}

// New creates a new Scanner instance
func New(store storage.Storage) *Scanner {
	return &Scanner{
		extractor: extractor.New(),
		storage:   store,
		workers:   runtime.NumCPU(),
	}
}

// applyDefaults fills unset config fields
func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = chunker.DefaultChunkSize
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
}

// extractorOptions maps the scan config onto extraction options
func (c *Config) extractorOptions() extractor.Options {
	return extractor.Options{
		ChunkSize:           c.ChunkSize,
		IncludeNoCVV:        c.IncludeNoCVV,
		IncludeTrailingInfo: c.IncludeTrailingInfo,
	}
}

// ScanPath scans every matching file under rootPath and persists the
// masked findings. Only one scan may run on a Scanner at a time.
func (s *Scanner) ScanPath(ctx context.Context, rootPath string, config *Config) (*Report, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrScanInProgress
	}
	defer s.lock.Release()

	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()
	s.workers = config.Workers

	startTime := time.Now()
	report := &Report{
		ScanUID:       uuid.NewString(),
		RootPath:      rootPath,
		ErrorMessages: make([]string, 0),
	}

	// Record the run before any file is touched
	scan := &storage.Scan{
		ScanUID:         report.ScanUID,
		RootPath:        rootPath,
		Source:          "path",
		SchemaVersion:   storage.CurrentSchemaVersion,
		IncludeNoCVV:    config.IncludeNoCVV,
		IncludeTrailing: config.IncludeTrailingInfo,
		StartedAt:       startTime,
	}
	if err := s.storage.CreateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to create scan record: %w", err)
	}

	// Discover candidate files
	files, err := s.discoverFiles(rootPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	// Scan files concurrently
	if err := s.scanFiles(ctx, scan, files, config, report); err != nil {
		return nil, fmt.Errorf("failed to scan files: %w", err)
	}

	// Finalize the scan record
	if err := s.finalizeScan(ctx, scan, report, startTime); err != nil {
		return nil, fmt.Errorf("failed to finalize scan: %w", err)
	}

	report.Duration = time.Since(startTime)
	return report, nil
}

// ScanText extracts from an in-memory buffer and persists the masked
// findings as a "text" source scan. The returned process result keeps
// the raw record strings; only masked identities reach storage.
func (s *Scanner) ScanText(ctx context.Context, text string, config *Config, maxDisplayResults int) (*Report, *types.ProcessResult, error) {
	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()
	if maxDisplayResults <= 0 {
		maxDisplayResults = extractor.DefaultMaxDisplayResults
	}

	startTime := time.Now()
	report := &Report{
		ScanUID:       uuid.NewString(),
		ErrorMessages: make([]string, 0),
	}

	scan := &storage.Scan{
		ScanUID:         report.ScanUID,
		Source:          "text",
		SchemaVersion:   storage.CurrentSchemaVersion,
		IncludeNoCVV:    config.IncludeNoCVV,
		IncludeTrailing: config.IncludeTrailingInfo,
		StartedAt:       startTime,
	}
	if err := s.storage.CreateScan(ctx, scan); err != nil {
		return nil, nil, fmt.Errorf("failed to create scan record: %w", err)
	}

	result := &types.ProcessResult{Display: []string{}}
	var export strings.Builder
	findings := make([]*storage.Finding, 0)

	for f := range s.extractor.Extract(text, config.extractorOptions()) {
		if len(result.Display) < maxDisplayResults {
			result.Display = append(result.Display, f.Value)
		}
		result.TotalCount++
		export.WriteString(f.Value)
		export.WriteByte('\n')
		findings = append(findings, storage.FromTypesFinding(f, scan.ID, ""))
	}
	result.Export = export.String()

	// Persist the batch in one transaction
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, finding := range findings {
		if err := tx.UpsertFinding(ctx, finding); err != nil {
			return nil, nil, fmt.Errorf("failed to store finding: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	report.TotalHits = result.TotalCount
	report.BytesScanned = int64(len(text))
	if err := s.finalizeScan(ctx, scan, report, startTime); err != nil {
		return nil, nil, fmt.Errorf("failed to finalize scan: %w", err)
	}

	report.Duration = time.Since(startTime)
	return report, result, nil
}

// discoverFiles finds scan candidates under rootPath
func (s *Scanner) discoverFiles(rootPath string, config *Config) ([]string, error) {
	var files []string

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if info.IsDir() {
			// Skip hidden directories unless explicitly included
			if !config.IncludeHidden && path != rootPath && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		// Check the extension against the configured set
		if !matchesExtension(path, config.Extensions) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// matchesExtension reports whether path carries one of the extensions
func matchesExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// scanFiles scans a set of files concurrently
func (s *Scanner) scanFiles(ctx context.Context, scan *storage.Scan, files []string, config *Config, report *Report) error {
	// Create worker pool with semaphore
	semaphore := make(chan struct{}, s.workers)

	// Track progress with atomic counters
	var (
		scanned int32
		skipped int32
		failed  int32
		hits    int32
		bytes   int64
	)

	batchSize := config.BatchSize

	// Use errgroup for concurrent processing with error propagation
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // Protect report.ErrorMessages

	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[i:end]

		g.Go(func() error {
			return s.scanBatch(gctx, scan, batch, config, semaphore, &scanned, &skipped, &failed, &hits, &bytes, &mu, report)
		})
	}

	// Wait for all goroutines to complete
	if err := g.Wait(); err != nil {
		return err
	}

	// Update report totals
	report.FilesScanned = int(scanned)
	report.FilesSkipped = int(skipped)
	report.FilesFailed = int(failed)
	report.TotalHits = int(hits)
	report.BytesScanned = bytes

	return nil
}

// scanBatch scans a batch of files within a transaction
func (s *Scanner) scanBatch(ctx context.Context, scan *storage.Scan, files []string, config *Config,
	semaphore chan struct{}, scanned, skipped, failed, hits *int32, bytes *int64,
	mu *sync.Mutex, report *Report) error {

	// Start a transaction for this batch
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Process each file in the batch
	for _, filePath := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case semaphore <- struct{}{}:
			// Acquire semaphore
		}

		err := s.scanFile(ctx, tx, scan, filePath, config, scanned, skipped, hits, bytes)
		<-semaphore // Release semaphore

		if err != nil {
			atomic.AddInt32(failed, 1)
			mu.Lock()
			report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("%s: %v", filePath, err))
			mu.Unlock()
			// Continue with other files
			continue
		}
	}

	// Commit the batch
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// scanFile scans a single file
func (s *Scanner) scanFile(ctx context.Context, store storage.Storage, scan *storage.Scan,
	filePath string, config *Config, scanned, skipped, hits *int32, bytes *int64) error {

	// Compute relative path for storage
	relPath, err := filepath.Rel(scan.RootPath, filePath)
	if err != nil {
		relPath = filePath
	}

	// Enforce the size cap before reading
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if info.Size() > config.MaxFileBytes {
		atomic.AddInt32(skipped, 1)
		return nil
	}

	text, err := readTextFile(filePath)
	if err != nil {
		return err
	}

	fileHits := 0
	for f := range s.extractor.Extract(text, config.extractorOptions()) {
		if err := store.UpsertFinding(ctx, storage.FromTypesFinding(f, scan.ID, relPath)); err != nil {
			return fmt.Errorf("failed to store finding: %w", err)
		}
		fileHits++
	}

	// Update counters
	atomic.AddInt32(scanned, 1)
	atomic.AddInt32(hits, int32(fileHits))
	atomic.AddInt64(bytes, int64(len(text)))

	if config.Progress != nil {
		config.Progress(relPath, fileHits)
	}

	return nil
}

// finalizeScan writes the end-of-run counters to the scan record
func (s *Scanner) finalizeScan(ctx context.Context, scan *storage.Scan, report *Report, startTime time.Time) error {
	distinct, err := s.storage.CountFindingsByScan(ctx, scan.ID)
	if err != nil {
		return err
	}
	report.CardsFound = distinct

	scan.FilesScanned = report.FilesScanned
	scan.FilesSkipped = report.FilesSkipped
	scan.FilesFailed = report.FilesFailed
	scan.CardsFound = distinct
	scan.BytesScanned = report.BytesScanned
	scan.CompletedAt = time.Now()

	return s.storage.UpdateScan(ctx, scan)
}

// readTextFile reads a file and drops any bytes that are not valid
// UTF-8, matching how dump files with mixed encodings are handled
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
