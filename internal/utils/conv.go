package utils

import (
	"strconv"

	"pressroom/internal/apperr"
)

// ParseID parses a positive numeric path id.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("invalid id %q", s)
	}
	return uint(n), nil
}

// StringToInt converts s to an int, returning def if it is empty or invalid.
func StringToInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
