// Package enrich replaces uninformative model output with findings derived
// from the session's own log lines.
package enrich

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hejijunhao/watchpath/internal/model"
)

// NoNote is the placeholder note used when nothing better is available.
const NoNote = "No analyst note provided."

var (
	bareScore = regexp.MustCompile(`^(anomaly\s*)?score[:\s]*[0-9.]+%?$`)
	bareNum   = regexp.MustCompile(`^[0-9.]+%?$`)
	notAlnum  = regexp.MustCompile(`[^a-z0-9]`)
)

// NoteIsInformative reports whether a note says more than a placeholder or
// a bare score.
func NoteIsInformative(note string) bool {
	lowered := strings.ToLower(strings.TrimSpace(note))
	if lowered == "" {
		return false
	}
	switch lowered {
	case "no analyst note provided.", "n/a", "none":
		return false
	}
	if bareScore.MatchString(lowered) || bareNum.MatchString(lowered) {
		return false
	}
	return len(notAlnum.ReplaceAllString(lowered, "")) > 6
}

// EvidenceIsInformative reports whether evidence adds something beyond an
// echo of the chunk that was analyzed.
func EvidenceIsInformative(ev model.Evidence, chunk string) bool {
	items := cleanItems(ev.Items())
	if len(items) == 0 {
		return false
	}
	if len(items) == 1 && normalizeLines(items[0]) == normalizeLines(chunk) {
		return false
	}
	return true
}

// Enrich returns the note and evidence to publish for a chunk. Each half is
// kept when informative and replaced by derived findings otherwise.
func Enrich(note string, ev model.Evidence, chunk string) (string, model.Evidence) {
	f := Analyze(chunk)

	if !NoteIsInformative(note) {
		if len(f.Notes) > 0 {
			note = strings.Join(f.Notes, "\n")
		} else {
			note = NoNote
		}
	}

	switch {
	case EvidenceIsInformative(ev, chunk):
		if !ev.IsSingle() {
			ev = model.EvidenceList(cleanItems(ev.Items()))
		}
	case len(f.Evidence) > 0:
		ev = model.EvidenceList(f.Evidence)
	default:
		ev = model.NoEvidence()
	}
	return note, ev
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// normalizeLines trims every line and drops blank ones.
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return strconv.Itoa(n) + " " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
