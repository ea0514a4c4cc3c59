package extraction

import (
	"context"
	"errors"
	"strings"
)

// Document is a receipt file handed to an Extractor
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RawLineItem is a candidate line item as returned by the external service.
// Both fields are optional and may hold a string or a number.
type RawLineItem struct {
	Description any `json:"description"`
	TotalAmount any `json:"total_amount"`
}

// Result contains the structured prediction for a document
type Result struct {
	LineItems []RawLineItem `json:"line_items"`
}

// Extractor defines the interface for document extraction operations
type Extractor interface {
	// Extract turns a receipt document into structured line items
	Extract(ctx context.Context, doc Document) (*Result, error)
	// Close closes the extractor and releases resources
	Close() error
}

// redactedError hides a credential that may appear in a wrapped error message
type redactedError struct {
	msg string
	err error
}

func (r *redactedError) Error() string { return r.msg }
func (r *redactedError) Unwrap() error { return r.err }

// redact removes secret from err's message while keeping the error chain intact
func redact(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, secret) {
		return err
	}
	return &redactedError{
		msg: strings.ReplaceAll(msg, secret, "[REDACTED]"),
		err: errors.Unwrap(err),
	}
}
