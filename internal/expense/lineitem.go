package expense

// UnknownName is used when the extracted line has no description
const UnknownName = "Unknown"

// LineItem is one product/price pair extracted from a receipt
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// StoredLineItem is a persisted line item with the key assigned by the store
type StoredLineItem struct {
	ID uint64 `json:"id"`
	LineItem
}

// Upload is a receipt file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
