package utils

import "strings"

// ParseList splits a comma-separated list of names, such as asset tickers,
// trimming whitespace and dropping empty and repeated entries. First
// occurrence order is kept. Returns nil for empty or whitespace-only input.
func ParseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
