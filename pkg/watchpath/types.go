package watchpath

import (
	"time"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/model"
)

// Backend is a language model collaborator. Invoke sends one prompt and
// returns what the model printed.
type Backend = backend.Backend

// Result is a backend's raw answer: stdout, stderr and exit code.
type Result = backend.Result

// Evidence is the model's supporting evidence for a report. It is absent, a
// single string or a list, and marshals to null, a string or an array.
type Evidence = model.Evidence

// Session is one visitor's run of requests.
type Session struct {
	ID       string        `json:"id"`
	IP       string        `json:"ip"`
	User     string        `json:"user"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Requests int           `json:"requests"`
	RawLogs  []string      `json:"raw_logs"`
}

// Statistics summarizes a whole log.
type Statistics struct {
	MeanSessionDuration float64         `json:"mean_session_duration_seconds"`
	IPDistribution      map[string]int  `json:"ip_distribution"`
	RequestCounts       map[string]int  `json:"request_counts"`
	StatusDistribution  map[int]int     `json:"status_distribution"`
	Timeline            []TimelinePoint `json:"timeline"`
}

// TimelinePoint counts the records logged in one minute.
type TimelinePoint struct {
	Minute time.Time `json:"minute"`
	Count  int       `json:"count"`
}

// Report is the analysis of one session. Score is nil when the model gave
// none. Degraded reports are produced when the model could not be reached;
// their Note carries the reason and Evidence the raw log chunk.
// RawResponse is the model's trimmed output, empty for degraded reports.
type Report struct {
	RunID       string   `json:"run_id"`
	SessionID   string   `json:"session_id"`
	IP          string   `json:"ip"`
	User        string   `json:"user"`
	Score       *float64 `json:"anomaly_score"`
	Severity    string   `json:"severity"`
	Note        string   `json:"analyst_note"`
	Evidence    Evidence `json:"evidence"`
	RawResponse string   `json:"raw_response,omitempty"`
	Degraded    bool     `json:"degraded"`
}
