package types

// Finding is a single accepted extraction result.
// Findings are emitted in first-discovery order, each logical card at
// most once per extraction call.
type Finding struct {
	// Value is the normalized record text as it appears in output and
	// export buffers, e.g. "4111111111111111|01|2025|123"
	Value string

	// Record holds the parsed and validated fields
	Record CardRecord

	// StartByte is the absolute byte offset of the first discovery of
	// this card identity in the scanned text
	StartByte int
}

// Validate checks internal consistency between the raw value and the
// parsed record
func (f *Finding) Validate() error {
	if f.Value == "" {
		return ErrEmptyValue
	}
	if f.StartByte < 0 {
		return ErrInvalidOffset
	}
	return f.Record.Validate()
}
