package expense

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadSize bounds the multipart body; phone photos can be large
const maxUploadSize = int64(50 << 20)

type uploadResponse struct {
	Message string     `json:"message"`
	Items   []LineItem `json:"items"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// expenseResponse is the shape the upload page reads from GET /expenses
type expenseResponse struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleUpload processes a receipt sent as the "receipt" multipart field
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "File is too large. Maximum size is 50MB. Please compress or resize your image.",
			})
			return
		}
		slog.Warn("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file uploaded"})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var upload *Upload
	f, header, err := r.FormFile("receipt")
	if err == nil {
		defer f.Close()
		data, readErr := io.ReadAll(f)
		if readErr != nil {
			slog.Error("Error reading file data", "error", readErr, "filename", header.Filename)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Error processing receipt",
				Details: "reading uploaded file",
			})
			return
		}
		upload = &Upload{
			Filename:    header.Filename,
			ContentType: detectContentType(header.Header.Get("Content-Type"), header.Filename),
			Data:        data,
		}
	}

	// extraction and inserts run to completion even if the client goes away
	items, err := s.service.ProcessReceipt(context.WithoutCancel(r.Context()), upload)
	if err != nil {
		status, body := errorToResponse(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Error processing receipt", "error", err)
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message: "Receipt processed and saved successfully",
		Items:   items,
	})
}

// errorToResponse maps pipeline errors to a status code and JSON body
func errorToResponse(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, ErrNoFileSupplied):
		return http.StatusBadRequest, errorResponse{Error: "No file uploaded"}
	case errors.Is(err, ErrNoItemsDetected):
		return http.StatusBadRequest, errorResponse{Error: "No items detected"}
	default:
		return http.StatusInternalServerError, errorResponse{
			Error:   "Error processing receipt",
			Details: err.Error(),
		}
	}
}

// detectContentType falls back to the file extension when the part has no type
func detectContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleListExpenses returns every stored line item
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListLineItems(r.Context())
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	expenses := make([]expenseResponse, 0, len(items))
	for _, item := range items {
		expenses = append(expenses, expenseResponse{Item: item.Name, Price: item.Price})
	}
	writeJSON(w, http.StatusOK, expenses)
}
