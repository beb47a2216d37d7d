package normalize

import "strings"

// evidenceFrom flattens any evidence shape into an ordered list of non-empty
// strings. A nil result means no evidence.
func evidenceFrom(n node) []string {
	switch t := n.(type) {
	case nil:
		return nil
	case textNode:
		if s := strings.TrimSpace(string(t)); s != "" {
			return []string{s}
		}
		return nil
	case objectNode:
		excerpt := segment(t.field("log_excerpt"))
		reason := segment(t.field("reason"))
		switch {
		case excerpt != "" && reason != "":
			return []string{excerpt + " — " + reason}
		case excerpt != "":
			return []string{excerpt}
		case reason != "":
			return []string{reason}
		}
		return nil
	case listNode:
		var out []string
		for _, item := range t {
			out = append(out, evidenceFrom(item)...)
		}
		return out
	default:
		if s := strings.TrimSpace(t.String()); s != "" {
			return []string{s}
		}
		return nil
	}
}
