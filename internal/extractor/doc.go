// Package extractor finds card-format records in large text.
//
// The extractor scans text in bounded windows (see the chunker package)
// and applies three candidate patterns in fixed priority order, then
// validates, deduplicates, and yields accepted records lazily in order
// of first discovery.
//
// # Basic Usage
//
//	e := extractor.New()
//	for f := range e.Extract(text, extractor.Options{}) {
//	    fmt.Println(f.Value, f.Record.Format)
//	}
//
// With default options only the strict with-CVV family is active. The
// looser families are opt-in:
//
//	opts := extractor.Options{
//	    IncludeTrailingInfo: true,
//	    IncludeNoCVV:        true,
//	}
//
// # Format Families
//
// Families are tried per window in this order, strictest first:
//
//  1. with-CVV: number|month|year|cvv, word-bounded, always active
//  2. trailing-info: number|month|year| then free text up to the first
//     '(' or line end, whitespace-trimmed as a whole
//  3. no-CVV: number|month|year| with nothing after the third pipe
//
// The ordering matters because a with-CVV token also satisfies the
// trailing pattern; shared dedup keys ensure such a token is emitted
// once, under the stricter family.
//
// # Deduplication
//
// One seen-set spans the whole call. The key is the card identity,
// number|month|year|, so repeated occurrences, overlap re-reads, and
// cross-family re-matches of the same card all collapse to a single
// finding at its first-discovery offset.
//
// # Validation
//
// ParseRecord returns the parsed record or a sentinel rejection reason:
//
//	rec, err := extractor.ParseRecord(candidate, types.FormatWithCVV)
//	if errors.Is(err, types.ErrInvalidExpiryYear) {
//	    // year outside 2020-2040
//	}
//
// ValidateFormat is the boolean collapse for callers that only need
// accept/reject. Rejected candidates are part of normal operation and
// never abort a scan.
//
// # Aggregation
//
//	res, err := e.ProcessText(text, opts)
//	// res.Display    first MaxDisplayResults records (preview)
//	// res.TotalCount true number of accepted records
//	// res.Export     newline-joined buffer of all records
//
// The preview cap never affects TotalCount or Export; a UI can show a
// bounded list while offering the complete buffer as a .txt download.
//
// # Concurrency
//
// An Extractor holds only compiled patterns and may be shared across
// goroutines. Each Extract call owns its seen-set and runs synchronously
// in the caller's goroutine; there is no cancellation point inside a
// call, so callers bound work by bounding input.
package extractor
