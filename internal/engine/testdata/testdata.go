// Package testdata embeds a sample access log and a corpus of model
// responses for integration tests.
package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// AccessLog is a small combined-format log with three visitors, one
// malformed line, one blank line and out-of-order entries.
//
//go:embed access.log
var AccessLog string

//go:embed responses.json
var responsesJSON []byte

// Response is a recorded model response and what normalizing it should yield.
type Response struct {
	Name         string   `json:"name"`
	Raw          string   `json:"raw"`
	Score        *float64 `json:"score"`
	Structured   bool     `json:"structured"`
	Conforms     bool     `json:"conforms"`
	NoteContains string   `json:"note_contains"`
}

// LoadResponses parses the embedded response corpus.
func LoadResponses() ([]Response, error) {
	var entries []Response
	if err := json.Unmarshal(responsesJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse responses.json: %w", err)
	}
	return entries, nil
}
