package cli

import (
	"strconv"
	"strings"

	"github.com/typicalmohit/tinku-ji/internal/storage"
)

var numericColumns = map[string]struct{}{
	"money":          {},
	"advance":        {},
	"payment_amount": {},
}

// parseSetFlags turns repeated --set column=value flags into a Patch in flag
// order. The literal value null clears a nullable column.
func parseSetFlags(values []string) (storage.Patch, error) {
	patch := storage.Patch{}
	for _, raw := range values {
		column, value, ok := strings.Cut(raw, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, usageErrorf("--set expects column=value, got %q", raw)
		}

		if value == "null" {
			patch = patch.Set(column, nil)
			continue
		}
		if _, numeric := numericColumns[column]; numeric {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, usageErrorf("--set %s: %q is not a number", column, value)
			}
			patch = patch.Set(column, parsed)
			continue
		}
		patch = patch.Set(column, value)
	}
	return patch, nil
}
