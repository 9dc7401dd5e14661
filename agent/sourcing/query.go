package sourcing

import "strings"

// Alias table mapping noisy item descriptions onto the short catalog search
// keys suppliers understand. Checked in order of decreasing specificity.
var queryAliases = []struct {
	match string
	query string
}{
	{"hoodie sweatshirt", "hoodie"},
	{"unisex hoodie", "hoodie"},
	{"hoodie", "hoodie"},
	{"sweatshirt", "hoodie"},
	{"unisex t-shirt", "t-shirt"},
	{"tee shirt", "t-shirt"},
	{"t-shirt", "t-shirt"},
	{"tshirt", "t-shirt"},
	{"tee", "t-shirt"},
	{"coffee mug", "mug"},
	{"mug", "mug"},
	{"cup", "mug"},
	{"tote bag", "tote bag"},
	{"backpack", "backpack"},
	{"sticker", "sticker"},
	{"notebook", "notebook"},
	{"cap", "cap"},
	{"hat", "hat"},
	{"phone case", "phone case"},
}

// NormalizeQuery turns a line item SKU into a catalog search query.
// Unrecognized SKUs search as-is; an empty SKU searches for "product".
func NormalizeQuery(sku string) string {
	raw := strings.TrimSpace(sku)
	normalized := strings.ToLower(raw)

	for _, alias := range queryAliases {
		if strings.Contains(normalized, alias.match) {
			return alias.query
		}
	}

	if raw == "" {
		return "product"
	}
	return raw
}
