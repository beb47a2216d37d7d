// Package normalize turns free-form language-model output into a score, an
// analyst note and evidence. Normalize never fails: malformed, partial or
// empty output still produces a well-formed Result.
package normalize

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hejijunhao/watchpath/internal/model"
)

// Result is the normalized reading of one model response.
type Result struct {
	Score    *float64
	Note     string
	Evidence model.Evidence
	// Structured is true when the response decoded as a JSON object.
	Structured bool
	// Conforms is true when the decoded object matches the response protocol.
	Conforms bool
}

var (
	scorePattern   = regexp.MustCompile(`(?i)anomaly(?:\s*score)?\s*[:=-]\s*(-?[0-9]+(?:\.[0-9]+)?)(\s*%)?`)
	parenPercent   = regexp.MustCompile(`\(([0-9]{1,3})%\)`)
	linePercent    = regexp.MustCompile(`([0-9]{1,3})%`)
	analystPattern = regexp.MustCompile(`(?i)analyst(?:\s*note)?\s*[:=-]\s*(.+)`)
)

// Normalize reads a raw model response.
func Normalize(raw string) Result {
	text := strings.TrimSpace(norm.NFC.String(raw))
	if text == "" {
		return Result{Note: NoNote, Evidence: model.NoEvidence()}
	}

	if obj, ok := decodeObject(text); ok {
		return Result{
			Score:      coerceNode(obj.field("anomaly_score")),
			Note:       noteFrom(obj.field("analyst_note")),
			Evidence:   model.EvidenceList(evidenceFrom(obj.field("evidence"))),
			Structured: true,
			Conforms:   conforms(obj),
		}
	}
	return freeText(text)
}

// decodeObject decodes text as a JSON object. Prose or a code fence around
// the object is tolerated by retrying on the outermost {...} block.
func decodeObject(text string) (objectNode, bool) {
	if obj, ok := decodeExact(text); ok {
		return obj, true
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeExact(text[start : end+1])
}

func decodeExact(text string) (objectNode, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return toNode(m).(objectNode), true
}

// freeText scrapes a score and a note out of prose.
func freeText(text string) Result {
	res := Result{Evidence: model.NoEvidence()}

	if m := scorePattern.FindStringSubmatch(text); m != nil {
		res.Score = coerceNode(textNode(m[1] + m[2]))
	}
	if res.Score == nil {
		if m := parenPercent.FindStringSubmatch(text); m != nil {
			res.Score = coerceNode(textNode(m[1] + "%"))
		}
	}
	if res.Score == nil {
		for _, line := range strings.Split(text, "\n") {
			if !strings.Contains(strings.ToLower(line), "anomaly") {
				continue
			}
			if m := linePercent.FindStringSubmatch(line); m != nil {
				res.Score = coerceNode(textNode(m[1] + "%"))
				break
			}
		}
	}

	if m := analystPattern.FindStringSubmatch(text); m != nil {
		res.Note = strings.TrimSpace(m[1])
	}
	if res.Note == "" {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				res.Note = line
				break
			}
		}
	}
	if res.Note == "" {
		res.Note = NoNote
	}
	return res
}
