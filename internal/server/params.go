package server

import (
	"strconv"
	"strings"
)

// parseLimit reads the optional limit query parameter. A missing or
// non-numeric value means no limit; zero and negative values are applied.
func parseLimit(raw string) (int, bool) {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return limit, true
}

// parseItemID reads an item ID path segment
func parseItemID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
