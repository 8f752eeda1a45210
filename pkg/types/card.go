package types

import (
	"crypto/sha256"
	"strconv"
	"strings"
)

// Format identifies the candidate family a record was matched under
type Format string

const (
	// FormatWithCVV is the strict family: number|month|year|cvv
	FormatWithCVV Format = "with_cvv"
	// FormatTrailing is the free-suffix family: number|month|year|<text>
	FormatTrailing Format = "trailing"
	// FormatNoCVV is the bare-triple family: number|month|year|
	FormatNoCVV Format = "no_cvv"
)

// Expiry bounds accepted by validation. Purely syntactic; there is no
// Luhn or issuer checking anywhere in this tool.
const (
	MinExpiryMonth = 1
	MaxExpiryMonth = 12
	MinExpiryYear  = 2020
	MaxExpiryYear  = 2040
)

// CardNumberLength is the only accepted PAN length
const CardNumberLength = 16

// Validate checks that the format is one of the known families
func (f Format) Validate() error {
	switch f {
	case FormatWithCVV, FormatTrailing, FormatNoCVV:
		return nil
	default:
		return ErrUnknownFormat
	}
}

// CardRecord is a validated card-format record split into its fields.
// Exactly one of CVV or Trailing is populated, selected by Format;
// the bare no-CVV family carries neither.
type CardRecord struct {
	Number      string // exactly 16 decimal digits
	ExpiryMonth string // two digits, 01-12
	ExpiryYear  string // four digits, 2020-2040
	CVV         string // 3-4 digits, with-CVV family only
	Trailing    string // free text after the third pipe, trailing family only
	Format      Format
}

// Validate checks every field constraint for the record's family
func (r *CardRecord) Validate() error {
	if err := r.Format.Validate(); err != nil {
		return err
	}

	if len(r.Number) != CardNumberLength || !isDigits(r.Number) {
		return ErrInvalidCardNumber
	}

	if len(r.ExpiryMonth) != 2 || !isDigits(r.ExpiryMonth) {
		return ErrInvalidExpiryMonth
	}
	month, err := strconv.Atoi(r.ExpiryMonth)
	if err != nil || month < MinExpiryMonth || month > MaxExpiryMonth {
		return ErrInvalidExpiryMonth
	}

	if len(r.ExpiryYear) != 4 || !isDigits(r.ExpiryYear) {
		return ErrInvalidExpiryYear
	}
	year, err := strconv.Atoi(r.ExpiryYear)
	if err != nil || year < MinExpiryYear || year > MaxExpiryYear {
		return ErrInvalidExpiryYear
	}

	switch r.Format {
	case FormatWithCVV:
		if r.Trailing != "" {
			return ErrFieldMismatch
		}
		if l := len(r.CVV); l < 3 || l > 4 || !isDigits(r.CVV) {
			return ErrInvalidCVV
		}
	case FormatTrailing:
		// Trailing content is unconstrained, including empty after trim
		if r.CVV != "" {
			return ErrFieldMismatch
		}
	case FormatNoCVV:
		if r.CVV != "" || r.Trailing != "" {
			return ErrFieldMismatch
		}
	}

	return nil
}

// CanonicalKey returns the card identity used for deduplication:
// the first three fields pipe-joined with a trailing pipe.
// Two records with the same key are the same logical card regardless
// of which family matched them.
func (r *CardRecord) CanonicalKey() string {
	return r.Number + "|" + r.ExpiryMonth + "|" + r.ExpiryYear + "|"
}

// KeyHash returns the SHA-256 of the canonical key. Persisted instead of
// the key itself so stored history never contains a full card number.
func (r *CardRecord) KeyHash() [32]byte {
	return sha256.Sum256([]byte(r.CanonicalKey()))
}

// Masked returns the record's number with the middle digits replaced,
// keeping the first six and last four
func (r *CardRecord) Masked() string {
	return MaskNumber(r.Number)
}

// MaskNumber masks a card number for display and persistence.
// Numbers shorter than 10 digits are fully masked.
func MaskNumber(number string) string {
	if len(number) < 10 {
		return strings.Repeat("*", len(number))
	}
	return number[:6] + strings.Repeat("*", len(number)-10) + number[len(number)-4:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
