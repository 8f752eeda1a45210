package chunker

import "iter"

const (
	// DefaultChunkSize is the nominal window length in bytes
	DefaultChunkSize = 10000

	// BoundaryOverlap is how far each window reads past its nominal end.
	// A record straddling a window boundary is seen whole by the window
	// it starts in as long as it ends within this many bytes of the
	// boundary. The fixed-shape record families are at most 29 bytes, so
	// they always fit; trailing-info suffixes are covered up to roughly
	// 275 bytes past the boundary and may be truncated beyond that.
	BoundaryOverlap = 300
)

// Window is one bounded slice of the input text.
// Consecutive windows advance by the nominal chunk size, so the overlap
// region [End-BoundaryOverlap, End) of one window is read again at the
// start of the next. Duplicate matches from the re-read region are
// handled by deduplication downstream, not by trimming here.
type Window struct {
	Index int    // 0-based window number
	Start int    // absolute offset of the window's first byte
	End   int    // absolute offset one past the last byte read
	Text  string // text[Start:End]
}

// Chunker splits text into fixed-size windows with forward overlap
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given nominal window size.
// Sizes <= 0 fall back to DefaultChunkSize.
func New(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{size: chunkSize, overlap: BoundaryOverlap}
}

// Size returns the nominal window size
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the forward overlap length
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Windows yields consecutive windows over text, lazily. Empty text
// yields nothing; text shorter than the chunk size yields one window.
// The sequence is single-use and must be consumed in one range loop.
func (c *Chunker) Windows(text string) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		for i, start := 0, 0; start < len(text); i, start = i+1, start+c.size {
			end := start + c.size + c.overlap
			if end > len(text) {
				end = len(text)
			}
			w := Window{
				Index: i,
				Start: start,
				End:   end,
				Text:  text[start:end],
			}
			if !yield(w) {
				return
			}
		}
	}
}

// WindowCount returns how many windows Windows yields for a text of the
// given length
func (c *Chunker) WindowCount(textLen int) int {
	if textLen <= 0 {
		return 0
	}
	return (textLen + c.size - 1) / c.size
}
