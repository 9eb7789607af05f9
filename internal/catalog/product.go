// Package catalog loads the read-only product catalog the storefront sells from.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is an immutable catalog entry.
type Product struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Image       string          `json:"image"`
	Origin      string          `json:"origin"`
	Process     string          `json:"process"`
	Roast       string          `json:"roast"`
	Profile     string          `json:"profile"`
	Notes       []string        `json:"notes"`
	Description string          `json:"description"`
}

// Find returns the product with the given id.
func Find(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
