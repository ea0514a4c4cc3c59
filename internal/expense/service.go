package expense

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/expense-tracker/internal/extraction"
)

// IDGenerator generates unique names for temporary uploads
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Service runs the receipt ingestion pipeline
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	idGenerator IDGenerator
}

// NewService creates a new Service with a UUID name generator
func NewService(db DB, extractor extraction.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, idGen IDGenerator) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	if ext != "" {
		ext = "." + unsafeFilenameChars.ReplaceAllString(ext[1:], "")
	}
	return base + ext
}

// ProcessReceipt stores the upload temporarily, extracts its line items and
// persists them. Either every item of the receipt is stored or none is.
func (s *Service) ProcessReceipt(ctx context.Context, upload *Upload) ([]LineItem, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, ErrNoFileSupplied
	}

	name := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(upload.Filename))
	handle, err := s.storage.Save(ctx, name, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: saving upload: %w", ErrPersistenceFailed, err)
	}
	defer s.removeUpload(ctx, handle)

	result, err := s.extract(ctx, handle, upload)
	if err != nil {
		slog.Error("Failed to extract receipt",
			"filename", upload.Filename,
			"content_type", upload.ContentType,
			"file_size", len(upload.Data),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	if len(result.LineItems) == 0 {
		slog.Warn("No line items found in the receipt", "filename", upload.Filename)
		return nil, ErrNoItemsDetected
	}

	items := NormalizeAll(result.LineItems)

	err = s.db.WithinTx(ctx, func(w LineItemWriter) error {
		for i := range items {
			if err := w.InsertLineItem(ctx, &items[i]); err != nil {
				return fmt.Errorf("inserting item %d of %d: %w", i+1, len(items), err)
			}
			slog.Info("Inserted line item", "name", items[i].Name, "price", items[i].Price)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	return items, nil
}

// extract reads the stored upload back through its handle and runs the extractor
func (s *Service) extract(ctx context.Context, handle string, upload *Upload) (*extraction.Result, error) {
	data, err := s.storage.Get(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("reading stored upload: %w", err)
	}

	result, err := s.extractor.Extract(ctx, extraction.Document{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Data:        data,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("extractor returned no result")
	}
	return result, nil
}

// removeUpload deletes the temporary upload; failures are only logged
func (s *Service) removeUpload(ctx context.Context, handle string) {
	if err := s.storage.Delete(ctx, handle); err != nil {
		slog.Warn("Failed to delete temporary upload", "handle", handle, "error", err)
	}
}

// ListLineItems returns all stored line items
func (s *Service) ListLineItems(ctx context.Context) ([]*StoredLineItem, error) {
	items, err := s.db.ListLineItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	return items, nil
}
