package types

// ProcessResult is the aggregated output of a full text sweep.
//
// Display is capped at the configured maximum for preview purposes;
// TotalCount and Export always reflect every accepted record. The cap
// never changes what was found, only how much of it is listed.
type ProcessResult struct {
	// Display holds the first MaxDisplayResults accepted record strings
	Display []string

	// TotalCount is the true number of accepted records
	TotalCount int

	// Export is the complete newline-joined buffer of accepted records,
	// one per line, newline-terminated, suitable for writing to a .txt
	// artifact. Empty when nothing was found.
	Export string
}

// Validate checks the cap/total/export consistency contract
func (pr *ProcessResult) Validate() error {
	if pr.TotalCount < 0 {
		return ErrInvalidTotalCount
	}
	if len(pr.Display) > pr.TotalCount {
		return ErrDisplayExceedsTotal
	}
	return nil
}

// ExportLines returns the number of lines in the export buffer
func (pr *ProcessResult) ExportLines() int {
	if pr.Export == "" {
		return 0
	}
	n := 0
	for _, c := range pr.Export {
		if c == '\n' {
			n++
		}
	}
	return n
}
