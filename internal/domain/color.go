package domain

import "strings"

// DefaultFurnitureColor is used when an item arrives without a color.
const DefaultFurnitureColor = "#ffffff"

// NormalizeColor lowercases a hex color string. It is idempotent.
func NormalizeColor(color string) string {
	return strings.ToLower(strings.TrimSpace(color))
}
