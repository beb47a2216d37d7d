package normalize

import "strings"

// NoNote is the placeholder for a missing or empty analyst note.
const NoNote = "No analyst note provided."

// noteFrom turns any note shape into a multi-line string, never empty.
func noteFrom(n node) string {
	if s := noteText(n); s != "" {
		return s
	}
	return NoNote
}

// noteText is noteFrom without the placeholder; "" means nothing usable.
func noteText(n node) string {
	switch t := n.(type) {
	case nil:
		return ""
	case objectNode:
		return structuredNote(t)
	case listNode:
		var lines []string
		seen := make(map[string]bool)
		for _, s := range flattenNote(t) {
			if seen[s] {
				continue
			}
			seen[s] = true
			lines = append(lines, s)
		}
		return strings.Join(lines, "\n")
	default:
		return strings.TrimSpace(t.String())
	}
}

// flattenNote walks nested lists and returns every non-empty segment in order.
func flattenNote(list listNode) []string {
	var out []string
	for _, item := range list {
		if inner, ok := item.(listNode); ok {
			out = append(out, flattenNote(inner)...)
			continue
		}
		if s := noteText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// structuredNote composes the summary/impact/action/confidence object into
// labeled lines.
func structuredNote(obj objectNode) string {
	var parts []string
	for _, f := range []struct{ key, label string }{
		{"summary", "Summary"},
		{"impact", "Impact"},
		{"action", "Action"},
	} {
		text := segment(obj.field(f.key))
		if text == "" {
			continue
		}
		parts = append(parts, f.label+": "+terminate(text))
	}
	if conf := segment(obj.field("confidence")); conf != "" {
		parts = append(parts, "Confidence: "+conf)
	}
	return strings.Join(parts, "\n")
}

func segment(n node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.String())
}

// terminate appends a period unless the text already ends in . ! or ?.
func terminate(s string) string {
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
