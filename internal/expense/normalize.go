package expense

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/zombor/expense-tracker/internal/extraction"
)

// Normalize maps a raw extracted line into a LineItem.
// It never fails: missing or unusable fields fall back to defaults.
func Normalize(raw extraction.RawLineItem) LineItem {
	return LineItem{
		Name:  normalizeName(raw.Description),
		Price: normalizePrice(raw.TotalAmount),
	}
}

// NormalizeAll normalizes raw lines, keeping their order
func NormalizeAll(raw []extraction.RawLineItem) []LineItem {
	items := make([]LineItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, Normalize(r))
	}
	return items
}

func normalizeName(v any) string {
	var name string
	switch d := v.(type) {
	case string:
		name = d
	case json.Number:
		name = d.String()
	case float64:
		name = strconv.FormatFloat(d, 'f', -1, 64)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownName
	}
	return name
}

func normalizePrice(v any) float64 {
	var price float64
	switch a := v.(type) {
	case json.Number:
		price = parseAmount(a.String())
	case string:
		price = parseAmount(a)
	case float64:
		price = a
	case float32:
		price = float64(a)
	case int:
		price = float64(a)
	case int64:
		price = float64(a)
	}

	// stored prices are never negative
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}

// thousandsGrouped matches amounts like 1,299.99; "3,50" does not qualify
var thousandsGrouped = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return 0
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
