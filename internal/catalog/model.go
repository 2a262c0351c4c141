package catalog

// Product is one row of the product catalog. Name is the unique key.
type Product struct {
	Name         string  `json:"name"`
	SellingPrice float64 `json:"selling_price"`
	Description  string  `json:"description"`
	Color        string  `json:"color"`
	Dimensions   string  `json:"dimensions"`
	Warranty     string  `json:"warranty"`
	SKU          string  `json:"sku"`
	// ImageURL is stored in direct-download form; use DisplayURL for previews.
	ImageURL string `json:"image_url"`
}

// DisplayURL returns the thumbnail form of the product image reference.
func (p Product) DisplayURL() string {
	return DriveDisplayURL(p.ImageURL)
}
