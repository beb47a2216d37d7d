package model

import (
	"encoding/json"
	"strings"
)

// SessionAnalysis is the final, always well-formed analysis of one session.
type SessionAnalysis struct {
	SessionID    string
	AnomalyScore *float64 // nil when no score could be recovered
	Severity     string
	AnalystNote  string // never empty
	Evidence     Evidence
	RawResponse  string
	Conforms     bool // raw response matched the requested JSON protocol
	Degraded     bool // backend failed; note and evidence are placeholders
}

// Evidence is absent, a single string, or an ordered list of strings.
// The zero value is absent.
type Evidence struct {
	items  []string
	single bool
}

// NoEvidence returns absent evidence.
func NoEvidence() Evidence { return Evidence{} }

// SingleEvidence wraps one string.
func SingleEvidence(s string) Evidence {
	return Evidence{items: []string{s}, single: true}
}

// EvidenceList wraps an ordered list. An empty list is absent.
func EvidenceList(items []string) Evidence {
	if len(items) == 0 {
		return Evidence{}
	}
	cp := make([]string, len(items))
	copy(cp, items)
	return Evidence{items: cp}
}

// IsAbsent reports whether there is no evidence at all.
func (e Evidence) IsAbsent() bool { return len(e.items) == 0 }

// IsSingle reports whether the evidence is a single string rather than a list.
func (e Evidence) IsSingle() bool { return e.single && len(e.items) == 1 }

// Items returns the evidence as a list. Absent evidence returns nil.
func (e Evidence) Items() []string {
	if len(e.items) == 0 {
		return nil
	}
	cp := make([]string, len(e.items))
	copy(cp, e.items)
	return cp
}

// String joins the items with newlines.
func (e Evidence) String() string { return strings.Join(e.items, "\n") }

// MarshalJSON encodes absent as null, single as a string, list as an array.
func (e Evidence) MarshalJSON() ([]byte, error) {
	switch {
	case e.IsAbsent():
		return []byte("null"), nil
	case e.IsSingle():
		return json.Marshal(e.items[0])
	default:
		return json.Marshal(e.items)
	}
}

// UnmarshalJSON accepts null, a string, or an array of strings.
func (e *Evidence) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*e = Evidence{}
	case string:
		*e = SingleEvidence(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				b, _ := json.Marshal(it)
				s = string(b)
			}
			items = append(items, s)
		}
		*e = EvidenceList(items)
	default:
		b, _ := json.Marshal(t)
		*e = SingleEvidence(string(b))
	}
	return nil
}
