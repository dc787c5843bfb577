package youtube

import (
	"math"
	"strings"
)

// DecodeDuration converts an ISO-8601 duration such as "PT1M5S" into seconds.
// Only hour, minute and second units are recognised; other characters are skipped.
// Empty, missing or overflowing input decodes to 0.
func DecodeDuration(iso string) int {
	rest := strings.TrimPrefix(iso, "PT")

	var total, acc int64
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			acc = acc*10 + int64(r-'0')
			if acc > math.MaxInt32 {
				return 0
			}
		case r == 'H':
			total += acc * 3600
			acc = 0
		case r == 'M':
			total += acc * 60
			acc = 0
		case r == 'S':
			total += acc
			acc = 0
		}
		if total > math.MaxInt32 {
			return 0
		}
	}
	return int(total)
}
