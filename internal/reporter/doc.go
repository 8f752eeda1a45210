// Package reporter implements read-side queries over the findings database.
//
// The reporter provides four query operations:
//   - History: Recent scans, most recent first
//   - ScanDetail: One scan with its masked findings
//   - Summary: Database-wide statistics and health
//   - FindCard: Every recorded sighting of one card identity
//
// # Basic Usage
//
//	r := reporter.NewReporter(storage)
//
//	history, err := r.History(ctx, 10)
//	for _, scan := range history.Scans {
//	    fmt.Printf("%s  %s  %d cards\n",
//	        scan.StartedAt.Format(time.RFC3339), scan.ScanUID, scan.CardsFound)
//	}
//
// # Scan Detail
//
// ScanDetail returns a single scan with its findings in discovery order:
//
//	detail, err := r.ScanDetail(ctx, reporter.DetailRequest{
//	    ScanUID:  "a31f...",
//	    UseCache: true,
//	})
//
//	for _, f := range detail.Findings {
//	    fmt.Printf("%s exp %s/%s in %s @%d\n",
//	        f.MaskedNumber, f.ExpiryMonth, f.ExpiryYear, f.SourcePath, f.ByteOffset)
//	}
//
// All card numbers in responses are masked (first 6 + last 4 digits).
// The reporter never reconstructs a full number; the database does not
// hold one to reconstruct.
//
// # Card Lookup
//
// FindCard answers "has this card appeared before, and where":
//
//	resp, err := r.FindCard(ctx, reporter.FindCardRequest{
//	    Card: "4111111111111111|01|2025|123",
//	})
//
//	fmt.Printf("%s seen %d times\n", resp.MaskedNumber, resp.Total)
//	for _, occ := range resp.Occurrences {
//	    fmt.Printf("  scan %s  %s @%d\n", occ.ScanUID, occ.SourcePath, occ.ByteOffset)
//	}
//
// The query accepts a record string in any accepted format, or a bare
// number|month|year triple. The raw number is hashed in memory and only
// the hash reaches storage, so lookups never write card data anywhere.
//
// # Caching
//
// Scan detail responses are cached in an LRU (1000 entries) with a
// per-request TTL:
//
//	// First call: reads scan + findings from SQLite
//	d1, _ := r.ScanDetail(ctx, reporter.DetailRequest{ScanUID: uid, UseCache: true})
//
//	// Repeat call within TTL: served from cache
//	d2, _ := r.ScanDetail(ctx, reporter.DetailRequest{ScanUID: uid, UseCache: true})
//	// d2.CacheHit == true
//
// Default TTL is 5 minutes. Cached responses are deep-copied on both
// store and load, so callers may mutate what they receive. Call
// InvalidateCache after a scan completes to drop stale entries.
//
// History, Summary and FindCard are not cached; they are single cheap
// queries and their answers change with every scan.
package reporter
