package chunker

import (
	"math"
	"strings"
)

// EstimateTokens returns an approximate token count for a prompt or chunk:
// whitespace-separated words times a 1.3 subword factor, rounded up. Good
// enough for logging prompt sizes, not for enforcing model limits.
func EstimateTokens(s string) int {
	words := len(strings.Fields(s))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * 1.3))
}
