package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var addressOrder = []string{
	"country", "region", "state", "province", "city", "settlement",
	"street", "house", "building", "block", "apartment", "zip", "postalCode",
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool, int, int64:
		return fmt.Sprint(t), true
	}
	return "", false
}

// FormatLibraryAddress joins the known address parts in order. Without any of them it
// falls back to the other scalar values, sorted by key.
func FormatLibraryAddress(address map[string]any) string {
	parts := make([]string, 0, len(address))
	known := make(map[string]struct{}, len(addressOrder))
	for _, k := range addressOrder {
		known[k] = struct{}{}
		if s, ok := scalar(address[k]); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		keys := make([]string, 0, len(address))
		for k := range address {
			if _, ok := known[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := scalar(address[k]); ok && s != "" {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 {
		return Placeholder
	}
	return strings.Join(parts, ", ")
}
