package types

import "errors"

// Domain errors for type validation
var (
	// Record validation errors. These are the rejection reasons returned
	// by ParseRecord; a candidate failing any of them is silently dropped
	// by the extractor, never escalated.
	ErrUnknownFormat      = errors.New("unknown format family")
	ErrFieldCount         = errors.New("wrong number of pipe-delimited fields")
	ErrFieldMismatch      = errors.New("field populated outside its format family")
	ErrInvalidCardNumber  = errors.New("card number must be exactly 16 digits")
	ErrInvalidExpiryMonth = errors.New("expiry month must be two digits in 01-12")
	ErrInvalidExpiryYear  = errors.New("expiry year must be four digits in 2020-2040")
	ErrInvalidCVV         = errors.New("cvv must be 3 or 4 digits")

	// Finding errors
	ErrEmptyValue    = errors.New("finding value cannot be empty")
	ErrInvalidOffset = errors.New("byte offset must be >= 0")

	// Result errors
	ErrInvalidTotalCount   = errors.New("total count must be >= 0")
	ErrDisplayExceedsTotal = errors.New("display list cannot be longer than total count")
)
