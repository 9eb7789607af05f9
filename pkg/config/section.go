// Package config holds the configuration blocks shared by storefront binaries.
package config

import (
	"fmt"
	"strings"
)

// Section renders one block of the configuration dump printed at startup.
// Pairs alternate between keys and values.
func Section(title string, pairs ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- %s ---\n", title)
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "  %v: %v\n", pairs[i], pairs[i+1])
	}
	return b.String()
}
