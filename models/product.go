package models

// Product is a catalog entry. Price keeps the catalog's string form ("15.000"
// or "15000"); use utils.ParsePrice to get the integer amount.
type Product struct {
	ID              int64  `json:"productoId"`
	Name            string `json:"nombre"`
	Price           string `json:"valor"`
	Description     string `json:"description"`
	Brand           string `json:"marca"`
	QuantityDetails string `json:"medida"`
	ImageName       string `json:"imageName"`
}
