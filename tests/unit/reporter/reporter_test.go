package reporter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/cardsift-mcp/internal/extractor"
	"github.com/dshills/cardsift-mcp/internal/reporter"
	"github.com/dshills/cardsift-mcp/internal/storage"
	"github.com/dshills/cardsift-mcp/pkg/types"
)

func newTestReporter(t *testing.T) (*reporter.Reporter, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return reporter.NewReporter(store), store
}

func mustRecord(t *testing.T, raw string) *types.CardRecord {
	t.Helper()
	record, err := extractor.ParseRecord(raw, types.FormatWithCVV)
	if err != nil {
		t.Fatalf("Failed to parse record %q: %v", raw, err)
	}
	return record
}

// seedScan stores a completed scan whose findings are the given raw
// with-cvv records
func seedScan(t *testing.T, store *storage.SQLiteStorage, uid string, startedAt time.Time, records ...string) *storage.Scan {
	t.Helper()
	ctx := context.Background()

	scan := &storage.Scan{
		ScanUID:       uid,
		RootPath:      "/data/" + uid,
		Source:        "path",
		SchemaVersion: storage.CurrentSchemaVersion,
		StartedAt:     startedAt,
	}
	if err := store.CreateScan(ctx, scan); err != nil {
		t.Fatalf("Failed to create scan: %v", err)
	}

	for i, raw := range records {
		record := mustRecord(t, raw)
		finding := storage.FromTypesFinding(types.Finding{
			Value:     raw,
			Record:    *record,
			StartByte: i * 100,
		}, scan.ID, "dump.txt")
		if err := store.UpsertFinding(ctx, finding); err != nil {
			t.Fatalf("Failed to upsert finding: %v", err)
		}
	}

	scan.FilesScanned = 1
	scan.CardsFound = len(records)
	scan.CompletedAt = startedAt.Add(time.Second)
	if err := store.UpdateScan(ctx, scan); err != nil {
		t.Fatalf("Failed to update scan: %v", err)
	}
	return scan
}

func TestHistory(t *testing.T) {
	rep, store := newTestReporter(t)
	base := time.Now().Add(-time.Hour)

	seedScan(t, store, "hist-a", base, "4111111111111111|01|2025|123")
	seedScan(t, store, "hist-b", base.Add(time.Minute), "4222222222222222|02|2026|456")
	seedScan(t, store, "hist-c", base.Add(2*time.Minute), "4333333333333333|03|2027|789")

	// Zero limit falls back to the default
	history, err := rep.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history.Total != 3 {
		t.Fatalf("Total = %d, want 3", history.Total)
	}
	if history.Scans[0].ScanUID != "hist-c" || history.Scans[2].ScanUID != "hist-a" {
		t.Errorf("Scans out of order: %s, %s, %s",
			history.Scans[0].ScanUID, history.Scans[1].ScanUID, history.Scans[2].ScanUID)
	}

	row := history.Scans[0]
	if row.FilesScanned != 1 || row.CardsFound != 1 {
		t.Errorf("Summary counters = %d files, %d cards, want 1 and 1",
			row.FilesScanned, row.CardsFound)
	}
	if row.Source != "path" || row.RootPath != "/data/hist-c" {
		t.Errorf("Summary source fields = %s %s", row.Source, row.RootPath)
	}
	if row.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set on a finished scan")
	}

	// Explicit limit truncates
	limited, err := rep.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if limited.Total != 2 {
		t.Errorf("Total with limit 2 = %d", limited.Total)
	}

	// An oversized limit is clamped, not rejected
	clamped, err := rep.History(context.Background(), reporter.MaxHistoryLimit+1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if clamped.Total != 3 {
		t.Errorf("Total with oversized limit = %d", clamped.Total)
	}
}

func TestHistoryEmpty(t *testing.T) {
	rep, _ := newTestReporter(t)

	history, err := rep.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history.Total != 0 || len(history.Scans) != 0 {
		t.Errorf("Expected empty history, got %+v", history)
	}
}

func TestScanDetail(t *testing.T) {
	rep, store := newTestReporter(t)
	seedScan(t, store, "detail-1", time.Now(),
		"4111111111111111|01|2025|123",
		"4222222222222222|02|2026|456")

	detail, err := rep.ScanDetail(context.Background(), reporter.DetailRequest{ScanUID: "detail-1"})
	if err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}

	if detail.Scan.ScanUID != "detail-1" {
		t.Errorf("Scan UID = %s", detail.Scan.ScanUID)
	}
	if detail.CacheHit {
		t.Error("CacheHit should be false without caching")
	}
	if len(detail.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(detail.Findings))
	}

	first := detail.Findings[0]
	if first.MaskedNumber != "411111******1111" {
		t.Errorf("MaskedNumber = %s", first.MaskedNumber)
	}
	if first.ExpiryMonth != "01" || first.ExpiryYear != "2025" {
		t.Errorf("Expiry = %s/%s", first.ExpiryMonth, first.ExpiryYear)
	}
	if first.Format != "with_cvv" {
		t.Errorf("Format = %s", first.Format)
	}
	if first.SourcePath != "dump.txt" || first.ByteOffset != 0 {
		t.Errorf("Location = %s @%d", first.SourcePath, first.ByteOffset)
	}
	if detail.Findings[1].ByteOffset != 100 {
		t.Errorf("Second ByteOffset = %d, want 100", detail.Findings[1].ByteOffset)
	}
}

func TestScanDetailEmptyUID(t *testing.T) {
	rep, _ := newTestReporter(t)

	if _, err := rep.ScanDetail(context.Background(), reporter.DetailRequest{}); err == nil {
		t.Error("Expected error for empty scan uid")
	}
}

func TestScanDetailNotFound(t *testing.T) {
	rep, _ := newTestReporter(t)

	_, err := rep.ScanDetail(context.Background(), reporter.DetailRequest{ScanUID: "missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestScanDetailCaching(t *testing.T) {
	rep, store := newTestReporter(t)
	seedScan(t, store, "cache-1", time.Now(), "4111111111111111|01|2025|123")

	req := reporter.DetailRequest{ScanUID: "cache-1", UseCache: true}

	first, err := rep.ScanDetail(context.Background(), req)
	if err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}
	if first.CacheHit {
		t.Error("First lookup should miss the cache")
	}

	second, err := rep.ScanDetail(context.Background(), req)
	if err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("Second lookup should hit the cache")
	}

	// Mutating a returned response must not poison the cached copy
	second.Findings[0].MaskedNumber = "tampered"
	third, err := rep.ScanDetail(context.Background(), req)
	if err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}
	if third.Findings[0].MaskedNumber != "411111******1111" {
		t.Errorf("Cached finding was mutated: %s", third.Findings[0].MaskedNumber)
	}

	rep.InvalidateCache()
	fourth, err := rep.ScanDetail(context.Background(), req)
	if err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}
	if fourth.CacheHit {
		t.Error("Lookup after invalidation should miss the cache")
	}
}

func TestScanDetailCacheExpiry(t *testing.T) {
	rep, store := newTestReporter(t)
	seedScan(t, store, "expire-1", time.Now(), "4111111111111111|01|2025|123")

	req := reporter.DetailRequest{
		ScanUID:  "expire-1",
		UseCache: true,
		CacheTTL: time.Nanosecond,
	}

	if _, err := rep.ScanDetail(context.Background(), req); err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	detail, err := rep.ScanDetail(context.Background(), req)
	if err != nil {
		t.Fatalf("ScanDetail() error = %v", err)
	}
	if detail.CacheHit {
		t.Error("Expired entry should not be served")
	}
}

func TestSummary(t *testing.T) {
	rep, store := newTestReporter(t)

	empty, err := rep.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if empty.ScansCount != 0 || empty.FindingsCount != 0 || empty.DistinctCards != 0 {
		t.Errorf("Expected zero counts, got %+v", empty)
	}
	if !empty.LastScanAt.IsZero() {
		t.Error("LastScanAt should be zero with no scans")
	}
	if !empty.DatabaseAccessible || !empty.SchemaCurrent {
		t.Error("Fresh database should report healthy")
	}

	seedScan(t, store, "sum-a", time.Now().Add(-time.Minute),
		"4111111111111111|01|2025|123",
		"4222222222222222|02|2026|456")
	seedScan(t, store, "sum-b", time.Now(), "4111111111111111|01|2025|123")

	summary, err := rep.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.ScansCount != 2 {
		t.Errorf("ScansCount = %d, want 2", summary.ScansCount)
	}
	if summary.FindingsCount != 3 {
		t.Errorf("FindingsCount = %d, want 3", summary.FindingsCount)
	}
	// The same identity in both scans counts once
	if summary.DistinctCards != 2 {
		t.Errorf("DistinctCards = %d, want 2", summary.DistinctCards)
	}
	if summary.PerFormat["with_cvv"] != 3 || len(summary.PerFormat) != 1 {
		t.Errorf("PerFormat = %v, want with_cvv only", summary.PerFormat)
	}
	if summary.LastScanAt.IsZero() {
		t.Error("LastScanAt should be set after scans")
	}
}

func TestFindCardOccurrences(t *testing.T) {
	rep, store := newTestReporter(t)
	base := time.Now().Add(-time.Hour)

	seedScan(t, store, "find-a", base, "4111111111111111|01|2025|123")
	seedScan(t, store, "find-b", base.Add(time.Minute),
		"4111111111111111|01|2025|123",
		"4222222222222222|02|2026|456")

	response, err := rep.FindCard(context.Background(), reporter.FindCardRequest{
		Card: "4111111111111111|01|2025|123",
	})
	if err != nil {
		t.Fatalf("FindCard() error = %v", err)
	}

	if response.MaskedNumber != "411111******1111" {
		t.Errorf("MaskedNumber = %s", response.MaskedNumber)
	}
	if response.ExpiryMonth != "01" || response.ExpiryYear != "2025" {
		t.Errorf("Expiry = %s/%s", response.ExpiryMonth, response.ExpiryYear)
	}
	if response.Total != 2 {
		t.Fatalf("Total = %d, want 2 sightings", response.Total)
	}

	uids := map[string]bool{}
	for _, occ := range response.Occurrences {
		uids[occ.ScanUID] = true
		if occ.SourcePath != "dump.txt" {
			t.Errorf("SourcePath = %s", occ.SourcePath)
		}
		if occ.SeenAt.IsZero() {
			t.Error("SeenAt should be set")
		}
	}
	if !uids["find-a"] || !uids["find-b"] {
		t.Errorf("Expected sightings in both scans, got %v", uids)
	}
}

func TestFindCardBareTriple(t *testing.T) {
	rep, store := newTestReporter(t)
	seedScan(t, store, "triple-1", time.Now(), "4111111111111111|01|2025|123")

	// The identity triple matches regardless of how the card was found
	response, err := rep.FindCard(context.Background(), reporter.FindCardRequest{
		Card: "4111111111111111|01|2025",
	})
	if err != nil {
		t.Fatalf("FindCard() error = %v", err)
	}
	if response.Total != 1 {
		t.Errorf("Total = %d, want 1", response.Total)
	}
}

func TestFindCardLimit(t *testing.T) {
	rep, store := newTestReporter(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedScan(t, store, "limit-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute),
			"4111111111111111|01|2025|123")
	}

	response, err := rep.FindCard(context.Background(), reporter.FindCardRequest{
		Card:  "4111111111111111|01|2025",
		Limit: 1,
	})
	if err != nil {
		t.Fatalf("FindCard() error = %v", err)
	}
	if response.Total != 1 {
		t.Errorf("Total with limit 1 = %d", response.Total)
	}
}

func TestFindCardUnknown(t *testing.T) {
	rep, _ := newTestReporter(t)

	response, err := rep.FindCard(context.Background(), reporter.FindCardRequest{
		Card: "4999999999999999|12|2030|999",
	})
	if err != nil {
		t.Fatalf("FindCard() error = %v", err)
	}
	if response.Total != 0 || len(response.Occurrences) != 0 {
		t.Errorf("Expected no sightings, got %+v", response)
	}
}

func TestFindCardInvalidQuery(t *testing.T) {
	rep, _ := newTestReporter(t)

	tests := []struct {
		name string
		card string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no pipes", "4111111111111111"},
		{"short number", "1234|01|2025|123"},
		{"bad month", "4111111111111111|13|2025|123"},
		{"year out of range", "4111111111111111|01|2019|123"},
		{"not a record", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rep.FindCard(context.Background(), reporter.FindCardRequest{Card: tt.card})
			if !errors.Is(err, reporter.ErrInvalidCardQuery) {
				t.Errorf("FindCard(%q) error = %v, want ErrInvalidCardQuery", tt.card, err)
			}
		})
	}
}
