// Package prompt builds the text sent to the model backend for one session.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed default.txt
var defaultTemplate string

// Default returns the built-in base template.
func Default() string { return defaultTemplate }

// Load reads a base template from path. An empty path selects the built-in
// template.
func Load(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt: reading template: %w", err)
	}
	return string(b), nil
}

// Protocol is the response shape requested from the model.
const Protocol = "Provide an anomaly score between 0 and 1, capture structured analyst " +
	"context, and highlight supporting evidence. Respond with JSON " +
	"containing `anomaly_score`, an `analyst_note` object with summary, " +
	"impact, action, confidence, and an `evidence` array of objects with " +
	"`log_excerpt` and `reason`."

// Compose appends the task section for one session to the base template.
func Compose(base, sessionID, chunk string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n### TASK ###\n")
	b.WriteString("Session ID: ")
	b.WriteString(sessionID)
	b.WriteString("\n")
	b.WriteString(Protocol)
	b.WriteString("\nLogs:\n")
	b.WriteString(chunk)
	b.WriteString("\n")
	return b.String()
}
