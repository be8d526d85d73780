package upload

import "strconv"

const (
	kib = 1024
	mib = 1024 * 1024
)

// FormatSize renders a byte count as B, KB or MB with two decimals.
func FormatSize(n int64) string {
	switch {
	case n < kib:
		return strconv.FormatInt(n, 10) + " B"
	case n < mib:
		return strconv.FormatFloat(float64(n)/kib, 'f', 2, 64) + " KB"
	default:
		return strconv.FormatFloat(float64(n)/mib, 'f', 2, 64) + " MB"
	}
}
