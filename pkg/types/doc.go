// Package types provides shared type definitions for the CardSift MCP server.
//
// This package defines domain types used across multiple components of
// CardSift, including card records, extraction findings, and aggregated
// process results.
//
// # Core Types
//
// CardRecord represents a validated card-format record split into fields:
//
//	record := &types.CardRecord{
//	    Number:      "4111111111111111",
//	    ExpiryMonth: "01",
//	    ExpiryYear:  "2025",
//	    CVV:         "123",
//	    Format:      types.FormatWithCVV,
//	}
//
// Finding pairs the normalized record text with its parsed fields and the
// byte offset of first discovery:
//
//	finding := types.Finding{
//	    Value:     "4111111111111111|01|2025|123",
//	    Record:    *record,
//	    StartByte: 1024,
//	}
//
// # Format Families
//
// Three candidate families are recognized, distinguished by what follows
// the third pipe-delimited field:
//
//	types.FormatWithCVV  // number|month|year|cvv (3-4 digits)
//	types.FormatTrailing // number|month|year|free text
//	types.FormatNoCVV    // number|month|year| (nothing)
//
// # Validation
//
// Validation is purely syntactic. Field constraints are enforced by
// Validate methods that return sentinel errors naming the rejection
// reason:
//
//	if err := record.Validate(); err != nil {
//	    // errors.Is(err, types.ErrInvalidExpiryYear) etc.
//	}
//
// There is no Luhn checking and no issuer/BIN lookup anywhere; a record
// that looks like a card record is treated as one.
//
// # Persistence Safety
//
// Full card numbers never reach storage. CanonicalKey gives the dedup
// identity (number|month|year|), KeyHash gives its SHA-256 for stored
// correlation, and MaskNumber/Masked produce the first6+last4 display
// form:
//
//	record.Masked()  // "411111******1111"
//	record.KeyHash() // [32]byte, safe to persist
package types
