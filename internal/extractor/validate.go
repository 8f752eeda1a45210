package extractor

import (
	"strings"

	"github.com/dshills/cardsift-mcp/pkg/types"
)

// ParseRecord splits a candidate on pipes and validates it under the
// given family, returning the parsed record or the rejection reason.
//
// Field rules:
//   - fewer than 3 fields rejects outright
//   - field 1: exactly 16 decimal digits
//   - field 2: exactly 2 decimal digits, value 01-12
//   - field 3: exactly 4 decimal digits, value 2020-2040
//   - with-CVV: exactly 4 fields, field 4 is 3-4 digits
//   - no-CVV: exactly 4 fields, field 4 empty after trim
//   - trailing: at least 4 fields, fields 4+ unconstrained (pipes in the
//     suffix are kept as part of the trailing text)
//
// Rejection reasons are the sentinel errors in pkg/types; any parse
// anomaly fails closed as a rejection, never as a scan fault.
func ParseRecord(candidate string, format types.Format) (*types.CardRecord, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	fields := strings.Split(candidate, "|")
	if len(fields) < 3 {
		return nil, types.ErrFieldCount
	}

	rec := &types.CardRecord{
		Number:      fields[0],
		ExpiryMonth: fields[1],
		ExpiryYear:  fields[2],
		Format:      format,
	}

	switch format {
	case types.FormatWithCVV:
		if len(fields) != 4 {
			return nil, types.ErrFieldCount
		}
		rec.CVV = fields[3]
	case types.FormatNoCVV:
		if len(fields) != 4 {
			return nil, types.ErrFieldCount
		}
		if strings.TrimSpace(fields[3]) != "" {
			return nil, types.ErrFieldMismatch
		}
	case types.FormatTrailing:
		if len(fields) < 4 {
			return nil, types.ErrFieldCount
		}
		rec.Trailing = strings.Join(fields[3:], "|")
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ValidateFormat reports whether candidate is a well-formed record of
// the given family. Callers that need the rejection reason use
// ParseRecord directly.
func ValidateFormat(candidate string, format types.Format) bool {
	_, err := ParseRecord(candidate, format)
	return err == nil
}
