package extractor

import (
	"strings"

	"github.com/dshills/cardsift-mcp/pkg/types"
)

// DefaultMaxDisplayResults caps the preview list when Options does not
// set one
const DefaultMaxDisplayResults = 100

// ProcessText drives a full extraction over text and aggregates every
// accepted record.
//
// The returned result holds a preview list capped at
// opts.MaxDisplayResults, the true total count, and a newline-joined
// export buffer containing every record. The cap bounds only the
// preview; the count and the export always cover the whole scan.
//
// A failure during the sweep returns a nil result and the single error;
// there is no partial output. The scan itself is deterministic, so
// callers gain nothing from retrying.
func (e *Extractor) ProcessText(text string, opts Options) (*types.ProcessResult, error) {
	opts.applyDefaults()

	result := &types.ProcessResult{
		Display: []string{},
	}
	var export strings.Builder

	for finding := range e.Extract(text, opts) {
		if len(result.Display) < opts.MaxDisplayResults {
			result.Display = append(result.Display, finding.Value)
		}
		result.TotalCount++
		export.WriteString(finding.Value)
		export.WriteByte('\n')
	}

	result.Export = export.String()
	return result, nil
}
