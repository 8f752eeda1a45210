package reporter

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/cardsift-mcp/internal/extractor"
	"github.com/dshills/cardsift-mcp/internal/storage"
	"github.com/dshills/cardsift-mcp/pkg/types"
)

const (
	// DefaultHistoryLimit is the number of scans returned when the
	// request does not set one
	DefaultHistoryLimit = 10

	// MaxHistoryLimit caps the number of scans per history request
	MaxHistoryLimit = 100

	// DefaultFindLimit is the number of occurrences returned per card lookup
	DefaultFindLimit = 20

	// DefaultCacheTTL is how long a cached scan detail stays valid
	DefaultCacheTTL = 5 * time.Minute
)

// ErrInvalidCardQuery is returned when a card lookup string does not
// parse in any accepted record format
var ErrInvalidCardQuery = errors.New("card query does not parse in any accepted format")

// ScanSummary is one history row describing a completed or running scan
type ScanSummary struct {
	ScanUID         string    `json:"scan_uid"`
	RootPath        string    `json:"root_path,omitempty"`
	Source          string    `json:"source"`
	IncludeNoCVV    bool      `json:"include_no_cvv"`
	IncludeTrailing bool      `json:"include_trailing"`
	FilesScanned    int       `json:"files_scanned"`
	FilesSkipped    int       `json:"files_skipped"`
	FilesFailed     int       `json:"files_failed"`
	CardsFound      int       `json:"cards_found"`
	BytesScanned    int64     `json:"bytes_scanned"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// HistoryResponse contains recent scans, most recent first
type HistoryResponse struct {
	Scans    []ScanSummary `json:"scans"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
}

// FindingView is the masked display form of one stored finding
type FindingView struct {
	MaskedNumber string `json:"masked_number"`
	ExpiryMonth  string `json:"expiry_month"`
	ExpiryYear   string `json:"expiry_year"`
	Format       string `json:"format"`
	SourcePath   string `json:"source_path,omitempty"`
	ByteOffset   int64  `json:"byte_offset"`
}

// DetailRequest contains parameters for a scan detail lookup
type DetailRequest struct {
	ScanUID  string
	UseCache bool // Whether to use the detail cache
	CacheTTL time.Duration
}

// DetailResponse contains one scan with its findings
type DetailResponse struct {
	Scan     ScanSummary   `json:"scan"`
	Findings []FindingView `json:"findings"`
	Duration time.Duration `json:"duration"`
	CacheHit bool          `json:"cache_hit,omitempty"`
}

// SummaryResponse describes the findings database as a whole
type SummaryResponse struct {
	ScansCount         int            `json:"scans_count"`
	FindingsCount      int            `json:"findings_count"`
	DistinctCards      int            `json:"distinct_cards"`
	PerFormat          map[string]int `json:"per_format"`
	LastScanAt         time.Time      `json:"last_scan_at"`
	DatabaseSizeMB     float64        `json:"database_size_mb"`
	DatabaseAccessible bool           `json:"database_accessible"`
	SchemaCurrent      bool           `json:"schema_current"`
}

// FindCardRequest contains parameters for a card identity lookup
type FindCardRequest struct {
	Card  string // Record string in any accepted format, or a bare number|month|year triple
	Limit int
}

// CardOccurrence is one sighting of a card identity in a past scan
type CardOccurrence struct {
	ScanUID    string    `json:"scan_uid"`
	RootPath   string    `json:"root_path,omitempty"`
	SourcePath string    `json:"source_path,omitempty"`
	ByteOffset int64     `json:"byte_offset"`
	SeenAt     time.Time `json:"seen_at"`
}

// FindCardResponse contains all recorded sightings of one identity
type FindCardResponse struct {
	MaskedNumber string           `json:"masked_number"`
	ExpiryMonth  string           `json:"expiry_month"`
	ExpiryYear   string           `json:"expiry_year"`
	Occurrences  []CardOccurrence `json:"occurrences"`
	Total        int              `json:"total"`
}

// cacheEntry represents a cached detail response with expiration time
type cacheEntry struct {
	response  *DetailResponse
	expiresAt time.Time
}

// Reporter answers read-side queries over the findings database
type Reporter struct {
	storage storage.Storage
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewReporter creates a new Reporter instance
func NewReporter(store storage.Storage) *Reporter {
	// Create LRU cache with 1000 entry limit
	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Reporter{
		storage: store,
		cache:   cache,
	}
}

// History returns recent scans, most recent first
func (r *Reporter) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	startTime := time.Now()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	scans, err := r.storage.ListScans(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	response := &HistoryResponse{
		Scans: make([]ScanSummary, 0, len(scans)),
	}
	for _, scan := range scans {
		response.Scans = append(response.Scans, summarizeScan(scan))
	}
	response.Total = len(response.Scans)
	response.Duration = time.Since(startTime)

	return response, nil
}

// ScanDetail returns one scan with its findings
func (r *Reporter) ScanDetail(ctx context.Context, req DetailRequest) (*DetailResponse, error) {
	startTime := time.Now()

	if req.ScanUID == "" {
		return nil, fmt.Errorf("scan uid cannot be empty")
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	// Check cache if enabled
	if req.UseCache {
		cached, err := r.checkCache(req)
		if err == nil && cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	scan, err := r.storage.GetScan(ctx, req.ScanUID)
	if err != nil {
		return nil, err
	}

	findings, err := r.storage.ListFindingsByScan(ctx, scan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}

	response := &DetailResponse{
		Scan:     summarizeScan(scan),
		Findings: make([]FindingView, 0, len(findings)),
	}
	for _, f := range findings {
		response.Findings = append(response.Findings, FindingView{
			MaskedNumber: f.MaskedNumber,
			ExpiryMonth:  f.ExpiryMonth,
			ExpiryYear:   f.ExpiryYear,
			Format:       f.Format,
			SourcePath:   f.SourcePath,
			ByteOffset:   f.ByteOffset,
		})
	}
	response.Duration = time.Since(startTime)

	// Store in cache if enabled
	if req.UseCache {
		r.storeInCache(req, response)
	}

	return response, nil
}

// Summary returns database-wide statistics
func (r *Reporter) Summary(ctx context.Context) (*SummaryResponse, error) {
	status, err := r.storage.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return &SummaryResponse{
		ScansCount:         status.ScansCount,
		FindingsCount:      status.FindingsCount,
		DistinctCards:      status.DistinctCards,
		PerFormat:          status.FormatCounts,
		LastScanAt:         status.LastScanAt,
		DatabaseSizeMB:     status.DatabaseSizeMB,
		DatabaseAccessible: status.Health.DatabaseAccessible,
		SchemaCurrent:      status.Health.SchemaCurrent,
	}, nil
}

// FindCard returns every recorded sighting of a card identity. The
// query is hashed in memory; the raw number is never sent to storage.
func (r *Reporter) FindCard(ctx context.Context, req FindCardRequest) (*FindCardResponse, error) {
	record, err := parseCardQuery(req.Card)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultFindLimit
	}

	findings, err := r.storage.SearchFindings(ctx, record.KeyHash(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search findings: %w", err)
	}

	response := &FindCardResponse{
		MaskedNumber: record.Masked(),
		ExpiryMonth:  record.ExpiryMonth,
		ExpiryYear:   record.ExpiryYear,
		Occurrences:  make([]CardOccurrence, 0, len(findings)),
	}

	// Scans repeat across findings; resolve each ID once
	scans := make(map[int64]*storage.Scan)
	for _, f := range findings {
		scan, ok := scans[f.ScanID]
		if !ok {
			scan, err = r.storage.GetScanByID(ctx, f.ScanID)
			if err != nil {
				continue // Skip findings whose scan can't be loaded
			}
			scans[f.ScanID] = scan
		}

		response.Occurrences = append(response.Occurrences, CardOccurrence{
			ScanUID:    scan.ScanUID,
			RootPath:   scan.RootPath,
			SourcePath: f.SourcePath,
			ByteOffset: f.ByteOffset,
			SeenAt:     f.CreatedAt,
		})
	}
	response.Total = len(response.Occurrences)

	return response, nil
}

// InvalidateCache drops all cached detail responses. Called after a
// scan completes so stale findings are not served.
func (r *Reporter) InvalidateCache() {
	r.cacheMu.Lock()
	r.cache.Purge()
	r.cacheMu.Unlock()
}

// summarizeScan maps a storage scan row to its display form
func summarizeScan(scan *storage.Scan) ScanSummary {
	return ScanSummary{
		ScanUID:         scan.ScanUID,
		RootPath:        scan.RootPath,
		Source:          scan.Source,
		IncludeNoCVV:    scan.IncludeNoCVV,
		IncludeTrailing: scan.IncludeTrailing,
		FilesScanned:    scan.FilesScanned,
		FilesSkipped:    scan.FilesSkipped,
		FilesFailed:     scan.FilesFailed,
		CardsFound:      scan.CardsFound,
		BytesScanned:    scan.BytesScanned,
		StartedAt:       scan.StartedAt,
		CompletedAt:     scan.CompletedAt,
	}
}

// parseCardQuery accepts a record string in any format, or a bare
// number|month|year triple, and returns the parsed record
func parseCardQuery(card string) (*types.CardRecord, error) {
	candidate := strings.TrimSpace(card)
	if candidate == "" {
		return nil, ErrInvalidCardQuery
	}

	// A bare identity triple becomes a no-cvv record
	if strings.Count(candidate, "|") == 2 {
		candidate += "|"
	}

	for _, format := range []types.Format{types.FormatWithCVV, types.FormatNoCVV, types.FormatTrailing} {
		if record, err := extractor.ParseRecord(candidate, format); err == nil {
			return record, nil
		}
	}

	return nil, ErrInvalidCardQuery
}

// checkCache looks up a cached detail response
func (r *Reporter) checkCache(req DetailRequest) (*DetailResponse, error) {
	hash := computeDetailHash(req.ScanUID)
	now := time.Now()

	r.cacheMu.RLock()
	entry, found := r.cache.Get(hash)

	if !found {
		r.cacheMu.RUnlock()
		return nil, fmt.Errorf("cache miss")
	}

	// Check if entry has expired while holding read lock to avoid race condition
	if now.After(entry.expiresAt) {
		r.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		r.cacheMu.Lock()
		r.cache.Remove(hash)
		r.cacheMu.Unlock()
		return nil, fmt.Errorf("cache expired")
	}

	// Entry is valid - return a deep copy while still holding read lock
	// to ensure entry isn't modified during copy
	response := copyDetailResponse(entry.response)
	r.cacheMu.RUnlock()

	return response, nil
}

// storeInCache saves a detail response to the cache
func (r *Reporter) storeInCache(req DetailRequest, response *DetailResponse) {
	hash := computeDetailHash(req.ScanUID)

	// Create cache entry with deep copy to prevent external modifications
	entry := &cacheEntry{
		response:  copyDetailResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	r.cacheMu.Lock()
	r.cache.Add(hash, entry)
	r.cacheMu.Unlock()
}

// copyDetailResponse creates a deep copy of a DetailResponse
func copyDetailResponse(src *DetailResponse) *DetailResponse {
	if src == nil {
		return nil
	}

	dst := &DetailResponse{
		Scan:     src.Scan,
		Duration: src.Duration,
		CacheHit: src.CacheHit,
		Findings: make([]FindingView, len(src.Findings)),
	}
	copy(dst.Findings, src.Findings)

	return dst
}

// computeDetailHash computes the cache key for a scan detail request
func computeDetailHash(scanUID string) [32]byte {
	var data strings.Builder
	data.WriteString("detail")
	data.WriteString("|")
	data.WriteString(scanUID)
	return sha256.Sum256([]byte(data.String()))
}
