package expense

import "errors"

var (
	// ErrNoFileSupplied is returned when an upload carries no file
	ErrNoFileSupplied = errors.New("no file uploaded")
	// ErrNoItemsDetected is returned when extraction finds zero line items
	ErrNoItemsDetected = errors.New("no items detected")
	// ErrExtractionFailed wraps any failure of the extraction service
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrPersistenceFailed wraps any failure writing the upload or its line items
	ErrPersistenceFailed = errors.New("persistence failed")
)
