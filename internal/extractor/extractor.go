package extractor

import (
	"iter"
	"regexp"
	"strings"

	"github.com/dshills/cardsift-mcp/internal/chunker"
	"github.com/dshills/cardsift-mcp/pkg/types"
)

// Candidate patterns, one per format family. RE2 has no lookahead, so
// the no-CVV boundary (next char is a non-digit, or end of window) is
// expressed by matching one extra character outside the capture group.
const (
	withCVVPattern  = `\b\d{16}\|\d{2}\|\d{4}\|\d{3,4}\b`
	trailingPattern = `\b\d{16}\|\d{2}\|\d{4}\|[^(\n]+`
	noCVVPattern    = `\b(\d{16}\|\d{2}\|\d{4}\|)(?:\D|$)`
)

// Options control a single extraction call.
// Zero values select the documented defaults.
type Options struct {
	// ChunkSize is the nominal window length; <= 0 selects
	// chunker.DefaultChunkSize (10,000)
	ChunkSize int

	// IncludeNoCVV enables the bare-triple family (number|month|year|)
	IncludeNoCVV bool

	// IncludeTrailingInfo enables the free-suffix family
	// (number|month|year|anything up to '(' or line end)
	IncludeTrailingInfo bool

	// MaxDisplayResults caps the preview list returned by ProcessText;
	// <= 0 selects DefaultMaxDisplayResults. The cap never affects the
	// total count or the export buffer.
	MaxDisplayResults int
}

// applyDefaults fills in default values for unset options
func (o *Options) applyDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = chunker.DefaultChunkSize
	}
	if o.MaxDisplayResults <= 0 {
		o.MaxDisplayResults = DefaultMaxDisplayResults
	}
}

// Extractor matches card-format records in text.
// It holds only the three compiled patterns and is safe for concurrent
// use; all per-call state lives inside Extract.
type Extractor struct {
	withCVV  *regexp.Regexp
	trailing *regexp.Regexp
	noCVV    *regexp.Regexp
}

// New creates an Extractor with the three family patterns compiled
func New() *Extractor {
	return &Extractor{
		withCVV:  regexp.MustCompile(withCVVPattern),
		trailing: regexp.MustCompile(trailingPattern),
		noCVV:    regexp.MustCompile(noCVVPattern),
	}
}

// matcher pairs a compiled pattern with its family.
// group selects the submatch holding the candidate text (0 = whole match).
type matcher struct {
	format types.Format
	re     *regexp.Regexp
	group  int
}

// activeMatchers returns the matchers enabled by opts, in priority
// order: with-CVV always first, then trailing-info, then no-CVV. A
// token matching both a strict and a loose family is emitted once,
// under the stricter format, because the families share dedup keys.
func (e *Extractor) activeMatchers(opts Options) []matcher {
	ms := []matcher{{format: types.FormatWithCVV, re: e.withCVV}}
	if opts.IncludeTrailingInfo {
		ms = append(ms, matcher{format: types.FormatTrailing, re: e.trailing})
	}
	if opts.IncludeNoCVV {
		ms = append(ms, matcher{format: types.FormatNoCVV, re: e.noCVV, group: 1})
	}
	return ms
}

// Extract scans text in bounded windows and yields accepted findings
// lazily, in order of first discovery, each logical card at most once.
//
// The scan is synchronous and runs entirely in the caller's goroutine;
// the returned sequence is single-use. One seen-set spans all windows,
// so records re-read in an overlap region are not emitted twice, and a
// card identity already emitted under a stricter family suppresses
// later matches of the same identity under looser families.
func (e *Extractor) Extract(text string, opts Options) iter.Seq[types.Finding] {
	opts.applyDefaults()
	matchers := e.activeMatchers(opts)
	ch := chunker.New(opts.ChunkSize)

	return func(yield func(types.Finding) bool) {
		seen := make(map[string]struct{})

		for w := range ch.Windows(text) {
			for _, m := range matchers {
				locs := m.re.FindAllStringSubmatchIndex(w.Text, -1)
				for _, loc := range locs {
					lo, hi := loc[2*m.group], loc[2*m.group+1]
					candidate := normalizeCandidate(w.Text[lo:hi], m.format)

					rec, err := ParseRecord(candidate, m.format)
					if err != nil {
						// Malformed candidates are expected; drop silently
						continue
					}

					key := rec.CanonicalKey()
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}

					finding := types.Finding{
						Value:     candidate,
						Record:    *rec,
						StartByte: w.Start + lo,
					}
					if !yield(finding) {
						return
					}
				}
			}
		}
	}
}

// normalizeCandidate applies the family's normalization to a raw match.
// Trailing-info candidates are whitespace-trimmed as a whole (interior
// spacing after the third pipe survives); no-CVV candidates get a
// trailing pipe appended if the pattern variant did not include one,
// never duplicated.
func normalizeCandidate(raw string, format types.Format) string {
	switch format {
	case types.FormatTrailing:
		return strings.TrimSpace(raw)
	case types.FormatNoCVV:
		if !strings.HasSuffix(raw, "|") {
			return raw + "|"
		}
	}
	return raw
}
