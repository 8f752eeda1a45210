// Package chunker divides large text into bounded windows for scanning.
//
// Very large inputs (dump files can run to hundreds of megabytes) are
// never handed to the matcher whole. The chunker slices them into
// consecutive fixed-size windows so the matcher works on bounded text,
// with a forward overlap so records straddling a window boundary are
// still seen in full.
//
// # Basic Usage
//
//	c := chunker.New(10000)
//	for w := range c.Windows(text) {
//	    fmt.Printf("window %d covers [%d,%d)\n", w.Index, w.Start, w.End)
//	}
//
// Passing a size <= 0 to New selects DefaultChunkSize (10,000 bytes).
//
// # Window Geometry
//
// Windows advance by the nominal chunk size and each reads
// BoundaryOverlap (300) bytes past its nominal end:
//
//	window 0: [0,          size+300)
//	window 1: [size,       2*size+300)
//	window 2: [2*size,     3*size+300)
//
// The overlap region at the end of each window is therefore read twice,
// once as a tail and once as the head of the next window. A record that
// matches in both reads is emitted once: deduplication downstream owns
// that, and the chunker itself does no trimming.
//
// # Coverage Bound
//
// The overlap is a bound, not a proof. A record starting before a
// nominal boundary is captured whole as long as it ends within 300
// bytes of that boundary. The fixed-shape record families are at most
// 29 bytes long and always fit. Free-suffix records are covered up to
// roughly 275 bytes of suffix past the boundary; longer suffixes can be
// truncated at the window edge. That residual miss is accepted rather
// than carrying partial-match state between windows.
//
// # Offsets Are Bytes
//
// Window positions count bytes, not runes. The record patterns are pure
// ASCII, so a multi-byte rune split at a window edge can only fall in
// non-matching content.
package chunker
