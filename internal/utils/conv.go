package utils

import (
	"strconv"
)

// ParseID parses a positive decimal id from a path parameter.
func ParseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
