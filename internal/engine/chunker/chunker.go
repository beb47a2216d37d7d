package chunker

import (
	"strings"

	"github.com/hejijunhao/watchpath/internal/model"
)

// DefaultSize is the number of log lines sent per session when unset.
const DefaultSize = 50

// Chunk returns at most size raw lines of the session, in order, joined by
// newlines. A size below 1 is treated as 1.
func Chunk(s model.Session, size int) string {
	size = max(size, 1)
	n := min(size, len(s.Records))
	lines := make([]string, n)
	for i := range n {
		lines[i] = s.Records[i].Raw
	}
	return strings.Join(lines, "\n")
}

// IsBlank reports whether a chunk has no non-whitespace content.
func IsBlank(chunk string) bool {
	return strings.TrimSpace(chunk) == ""
}
