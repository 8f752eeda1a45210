package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cardsift-mcp/pkg/types"
)

func extractAll(t *testing.T, e *Extractor, text string, opts Options) []types.Finding {
	t.Helper()
	var out []types.Finding
	for f := range e.Extract(text, opts) {
		out = append(out, f)
	}
	return out
}

func values(findings []types.Finding) []string {
	vals := make([]string, 0, len(findings))
	for _, f := range findings {
		vals = append(vals, f.Value)
	}
	return vals
}

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.NotNil(t, e.withCVV)
	assert.NotNil(t, e.trailing)
	assert.NotNil(t, e.noCVV)
}

func TestExtract_WithCVV(t *testing.T) {
	e := New()
	text := "dump line 4111111111111111|01|2025|123 end"

	findings := extractAll(t, e, text, Options{})

	require.Len(t, findings, 1)
	assert.Equal(t, "4111111111111111|01|2025|123", findings[0].Value)
	assert.Equal(t, types.FormatWithCVV, findings[0].Record.Format)
	assert.Equal(t, "123", findings[0].Record.CVV)
	assert.Equal(t, strings.Index(text, "4111"), findings[0].StartByte)
}

func TestExtract_FormatGating(t *testing.T) {
	// One token per family; default flags accept only the strict one
	text := "4111111111111111|01|2025|123\n" +
		"4222222222222222|02|2026|\n" +
		"4333333333333333|03|2027|some shop note\n"

	e := New()
	findings := extractAll(t, e, text, Options{})

	require.Len(t, findings, 1)
	for _, f := range findings {
		parts := strings.Split(f.Value, "|")
		require.Len(t, parts, 4)
		assert.GreaterOrEqual(t, len(parts[3]), 3)
		assert.LessOrEqual(t, len(parts[3]), 4)
	}
}

func TestExtract_AllFamiliesEnabled(t *testing.T) {
	text := "4111111111111111|01|2025|123\n" +
		"4222222222222222|02|2026|\n" +
		"4333333333333333|03|2027|some shop note\n"

	e := New()
	opts := Options{IncludeNoCVV: true, IncludeTrailingInfo: true}
	findings := extractAll(t, e, text, opts)

	require.Len(t, findings, 3)

	byFormat := map[types.Format]string{}
	for _, f := range findings {
		byFormat[f.Record.Format] = f.Value
	}
	assert.Equal(t, "4111111111111111|01|2025|123", byFormat[types.FormatWithCVV])
	assert.Equal(t, "4222222222222222|02|2026|", byFormat[types.FormatNoCVV])
	assert.Equal(t, "4333333333333333|03|2027|some shop note", byFormat[types.FormatTrailing])
}

func TestExtract_Idempotence(t *testing.T) {
	text := "4111111111111111|01|2025|123 junk 4222222222222222|02|2026|9999\n" +
		"4333333333333333|03|2027|note (skip this)\n"
	opts := Options{IncludeNoCVV: true, IncludeTrailingInfo: true}

	e := New()
	first := values(extractAll(t, e, text, opts))
	second := values(extractAll(t, e, text, opts))

	assert.Equal(t, first, second)
}

func TestExtract_DedupRepeatedOccurrences(t *testing.T) {
	record := "4111111111111111|01|2025|123"
	text := record + " filler " + record + " more filler " + record

	e := New()
	findings := extractAll(t, e, text, Options{})

	require.Len(t, findings, 1)
	assert.Equal(t, 0, findings[0].StartByte, "offset must be the first discovery")
}

func TestExtract_DedupSameCardDifferentCVV(t *testing.T) {
	// Same card identity with two CVV strings collapses to the first
	text := "4111111111111111|01|2025|123 and 4111111111111111|01|2025|999"

	e := New()
	findings := extractAll(t, e, text, Options{})

	require.Len(t, findings, 1)
	assert.Equal(t, "4111111111111111|01|2025|123", findings[0].Value)
}

func TestExtract_CrossFamilySingleEmission(t *testing.T) {
	// The same identity appears as a strict record and as a bare triple;
	// it is emitted once, under the stricter family
	text := "4111111111111111|01|2025|123\n4111111111111111|01|2025|\n"

	e := New()
	findings := extractAll(t, e, text, Options{IncludeNoCVV: true})

	require.Len(t, findings, 1)
	assert.Equal(t, types.FormatWithCVV, findings[0].Record.Format)
}

func TestExtract_FirstDiscoveryOrder(t *testing.T) {
	text := "4333333333333333|03|2027|333 " +
		"4111111111111111|01|2025|111 " +
		"4222222222222222|02|2026|222"

	e := New()
	got := values(extractAll(t, e, text, Options{}))

	want := []string{
		"4333333333333333|03|2027|333",
		"4111111111111111|01|2025|111",
		"4222222222222222|02|2026|222",
	}
	assert.Equal(t, want, got)
}

func TestExtract_ChunkBoundaryStraddle(t *testing.T) {
	// A candidate starting 10 bytes before a window boundary ends well
	// inside the overlap and must be captured exactly once
	const chunkSize = 1000
	record := "4111111111111111|01|2025|123"

	text := strings.Repeat(".", chunkSize-10) + record + strings.Repeat(".", 500)

	e := New()
	findings := extractAll(t, e, text, Options{ChunkSize: chunkSize})

	require.Len(t, findings, 1)
	assert.Equal(t, record, findings[0].Value)
	assert.Equal(t, chunkSize-10, findings[0].StartByte)
}

func TestExtract_RecordInsideOverlapRegion(t *testing.T) {
	// A candidate wholly inside the overlap is read by two consecutive
	// windows; dedup keeps it to one finding at a stable offset
	const chunkSize = 1000
	record := "4111111111111111|01|2025|123"
	offset := chunkSize + 50

	text := strings.Repeat(".", offset) + record + strings.Repeat(".", 400)

	e := New()
	findings := extractAll(t, e, text, Options{ChunkSize: chunkSize})

	require.Len(t, findings, 1)
	assert.Equal(t, offset, findings[0].StartByte)
}

func TestExtract_ManyWindows(t *testing.T) {
	// Distinct records spread across several windows all surface
	records := []string{
		"4111111111111111|01|2025|123",
		"4222222222222222|02|2026|456",
		"4333333333333333|03|2027|789",
		"4444444444444444|04|2028|012",
	}
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(strings.Repeat("x ", 300))
		sb.WriteString(r)
		sb.WriteString("\n")
	}

	e := New()
	got := values(extractAll(t, e, sb.String(), Options{ChunkSize: 500}))

	assert.Equal(t, records, got)
}

func TestExtract_TrailingParenthesisExclusion(t *testing.T) {
	text := "4111111111111111|01|2025| 9.99 USD (abc123) extra"

	e := New()
	findings := extractAll(t, e, text, Options{IncludeTrailingInfo: true})

	require.Len(t, findings, 1)
	assert.Equal(t, "4111111111111111|01|2025| 9.99 USD", findings[0].Value)
	assert.Equal(t, " 9.99 USD", findings[0].Record.Trailing)
}

func TestExtract_TrailingStopsAtLineEnd(t *testing.T) {
	text := "4111111111111111|01|2025|store checkout\nnext line content"

	e := New()
	findings := extractAll(t, e, text, Options{IncludeTrailingInfo: true})

	require.Len(t, findings, 1)
	assert.Equal(t, "4111111111111111|01|2025|store checkout", findings[0].Value)
}

func TestExtract_TrailingDedupByIdentity(t *testing.T) {
	// Different trailing texts for one card identity: only the first
	// occurrence is emitted
	text := "4111111111111111|01|2025|first note\n4111111111111111|01|2025|second note\n"

	e := New()
	findings := extractAll(t, e, text, Options{IncludeTrailingInfo: true})

	require.Len(t, findings, 1)
	assert.Equal(t, "4111111111111111|01|2025|first note", findings[0].Value)
}

func TestExtract_NoCVVNormalization(t *testing.T) {
	text := "4111111111111111|01|2025|"

	e := New()
	findings := extractAll(t, e, text, Options{IncludeNoCVV: true})

	require.Len(t, findings, 1)
	assert.Equal(t, "4111111111111111|01|2025|", findings[0].Value)
	assert.False(t, strings.HasSuffix(findings[0].Value, "||"), "pipe must not be duplicated")
}

func TestExtract_NoCVVRequiresBoundary(t *testing.T) {
	// Digits after the third pipe disqualify the bare-triple family;
	// a 5-digit fourth field satisfies no family at all
	text := "4111111111111111|01|2025|12345"

	e := New()
	findings := extractAll(t, e, text, Options{IncludeNoCVV: true})

	assert.Empty(t, findings)
}

func TestExtract_WordBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"letter glued to number", "X4111111111111111|01|2025|123", 0},
		{"number inside longer digit run", "94111111111111111|01|2025|123", 0},
		{"cvv glued to digits", "4111111111111111|01|2025|12345", 0},
		{"clean boundaries", " 4111111111111111|01|2025|123 ", 1},
		{"pipe delimited context", "|4111111111111111|01|2025|123|", 1},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := extractAll(t, e, tt.text, Options{})
			assert.Len(t, findings, tt.want)
		})
	}
}

func TestExtract_InvalidCandidatesDroppedSilently(t *testing.T) {
	// Invalid month and year candidates sit between two valid records;
	// the scan continues past them
	text := "4111111111111111|13|2025|123\n" +
		"4222222222222222|02|2026|456\n" +
		"4333333333333333|03|2019|789\n" +
		"4444444444444444|04|2028|012\n"

	e := New()
	got := values(extractAll(t, e, text, Options{}))

	want := []string{
		"4222222222222222|02|2026|456",
		"4444444444444444|04|2028|012",
	}
	assert.Equal(t, want, got)
}

func TestExtract_EmptyText(t *testing.T) {
	e := New()
	findings := extractAll(t, e, "", Options{IncludeNoCVV: true, IncludeTrailingInfo: true})
	assert.Empty(t, findings)
}

func TestExtract_NoMatches(t *testing.T) {
	e := New()
	findings := extractAll(t, e, "nothing to see here, just ordinary text", Options{})
	assert.Empty(t, findings)
}

func TestExtract_EarlyBreak(t *testing.T) {
	text := "4111111111111111|01|2025|123 4222222222222222|02|2026|456 " +
		"4333333333333333|03|2027|789"

	e := New()
	count := 0
	for range e.Extract(text, Options{}) {
		count++
		if count == 2 {
			break
		}
	}

	assert.Equal(t, 2, count)
}

func TestExtract_SharedExtractorSequentialCalls(t *testing.T) {
	// Seen-state must not leak between calls on the same Extractor
	text := "4111111111111111|01|2025|123"

	e := New()
	first := extractAll(t, e, text, Options{})
	second := extractAll(t, e, text, Options{})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Value, second[0].Value)
}

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		format types.Format
		want   string
	}{
		{"with-cvv untouched", "4111111111111111|01|2025|123", types.FormatWithCVV, "4111111111111111|01|2025|123"},
		{"trailing trimmed as a whole", "4111111111111111|01|2025| 9.99 USD ", types.FormatTrailing, "4111111111111111|01|2025| 9.99 USD"},
		{"no-cvv pipe appended", "4111111111111111|01|2025", types.FormatNoCVV, "4111111111111111|01|2025|"},
		{"no-cvv pipe not duplicated", "4111111111111111|01|2025|", types.FormatNoCVV, "4111111111111111|01|2025|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeCandidate(tt.raw, tt.format))
		})
	}
}

func TestOptionsApplyDefaults(t *testing.T) {
	var opts Options
	opts.applyDefaults()

	assert.Equal(t, 10000, opts.ChunkSize)
	assert.Equal(t, DefaultMaxDisplayResults, opts.MaxDisplayResults)
	assert.False(t, opts.IncludeNoCVV)
	assert.False(t, opts.IncludeTrailingInfo)
}
