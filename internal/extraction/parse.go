package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// modelResponse is the JSON shape the LLM providers are prompted to return
type modelResponse struct {
	LineItems *[]RawLineItem `json:"line_items"`
}

// parseLineItemsJSON parses the JSON response from an LLM provider
func parseLineItemsJSON(text string) (*Result, error) {
	text = stripCodeFence(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var resp modelResponse
	if err := decodeJSON([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if resp.LineItems == nil {
		return nil, fmt.Errorf("response has no line_items field")
	}

	return &Result{LineItems: *resp.LineItems}, nil
}

// stripCodeFence removes markdown code blocks wrapped around a model response
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// decodeJSON decodes numbers as json.Number so amounts keep their textual precision
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
