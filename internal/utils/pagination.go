// Package utils provides small parsing helpers shared by the HTTP layer.
package utils

import (
	"fmt"
	"strconv"
	"time"
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a number.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// TotalPages returns the number of pages of size pageSize needed for total
// items.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// WeakETag builds W/"<kind>:<owner>:<count>:<unixnano>" from list statistics.
// A nil latest timestamp renders as 0.
func WeakETag(kind, owner string, count int64, latest *time.Time) string {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, owner, count, ts)
}
