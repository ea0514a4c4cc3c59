package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultMindeeURL  = "https://api.mindee.net"
	mindeeReceiptPath = "/v1/products/mindee/expense_receipts/v5/predict"

	maxErrorMessageLen = 512
)

// Mindee implements the Extractor interface using the Mindee Receipt API
type Mindee struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewMindee creates a new Mindee Extractor instance
func NewMindee(baseURL string, apiKey string) (*Mindee, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mindee api key is required")
	}
	if baseURL == "" {
		baseURL = defaultMindeeURL
	}

	return &Mindee{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type mindeeAPIRequest struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
	Status string `json:"status"`
}

// mindeeResponse mirrors the subset of the predict response we read.
// Pointers distinguish a missing structure from an empty one.
type mindeeResponse struct {
	APIRequest mindeeAPIRequest `json:"api_request"`
	Document   *struct {
		Inference *struct {
			Prediction *struct {
				LineItems *[]RawLineItem `json:"line_items"`
			} `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

// Extract uploads the receipt to Mindee and returns the predicted line items
func (m *Mindee) Extract(ctx context.Context, doc Document) (*Result, error) {
	result, err := m.extract(ctx, doc)
	if err != nil {
		return nil, redact(err, m.apiKey)
	}
	return result, nil
}

func (m *Mindee) extract(ctx context.Context, doc Document) (*Result, error) {
	body, contentType, err := mindeeRequestBody(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+mindeeReceiptPath, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Token "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling mindee API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed mindeeResponse
	decodeErr := decodeJSON(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && parsed.APIRequest.Error.Message != "" {
			msg = parsed.APIRequest.Error.Message
		}
		msg = truncateUTF8(msg, maxErrorMessageLen)
		return nil, fmt.Errorf("mindee API error (status %d): %s", resp.StatusCode, msg)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}

	if parsed.Document == nil || parsed.Document.Inference == nil ||
		parsed.Document.Inference.Prediction == nil || parsed.Document.Inference.Prediction.LineItems == nil {
		return nil, fmt.Errorf("mindee response has no line item prediction")
	}

	return &Result{LineItems: *parsed.Document.Inference.Prediction.LineItems}, nil
}

// mindeeRequestBody builds the multipart body carrying the document
func mindeeRequestBody(doc Document) (io.Reader, string, error) {
	filename := doc.Filename
	if filename == "" {
		filename = "receipt"
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("writing form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Close is a no-op for the HTTP client
func (m *Mindee) Close() error {
	return nil
}

// compile-time interface checks
var (
	_ Extractor = (*Mindee)(nil)
	_ Extractor = (*Gemini)(nil)
	_ Extractor = (*Ollama)(nil)
)

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
