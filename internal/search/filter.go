// Package search derives the visible slice of the catalog from the shopper's filter input.
package search

import (
	"strings"

	"github.com/mugbeans/storefront/internal/catalog"
)

// AllRoasts disables the roast filter.
const AllRoasts = "all"

// FilterState is the transient filter input of one page.
type FilterState struct {
	SearchTerm string `json:"search_term"`
	Roast      string `json:"roast"`
}

// Match reports whether p satisfies st. The term matches case-insensitively against the name, the profile and each
// tasting note; a roast other than "" or AllRoasts must equal p.Roast exactly.
func Match(p catalog.Product, st FilterState) bool {
	if st.Roast != "" && st.Roast != AllRoasts && p.Roast != st.Roast {
		return false
	}
	term := strings.ToLower(st.SearchTerm)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Profile), term) {
		return true
	}
	for _, note := range p.Notes {
		if strings.Contains(strings.ToLower(note), term) {
			return true
		}
	}
	return false
}

// Filter returns the products matching st, in catalog order.
func Filter(products []catalog.Product, st FilterState) []catalog.Product {
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if Match(p, st) {
			out = append(out, p)
		}
	}
	return out
}
