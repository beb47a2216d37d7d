// Package report assembles the structured per-session payload handed to
// outputs.
package report

import (
	"slices"
	"time"

	"github.com/hejijunhao/watchpath/internal/model"
	"github.com/hejijunhao/watchpath/internal/stats"
)

// Payload is the complete report for one session.
type Payload struct {
	RunID        string         `json:"run_id"`
	SessionID    string         `json:"session_id"`
	IP           string         `json:"ip"`
	User         string         `json:"user"`
	AnomalyScore *float64       `json:"anomaly_score"`
	Severity     string         `json:"severity"`
	AnalystNote  string         `json:"analyst_note"`
	Evidence     model.Evidence `json:"evidence"`
	Degraded     bool           `json:"degraded"`
	Conforms     bool           `json:"protocol_conforms"`
	RawResponse  string         `json:"raw_response,omitempty"`
	RawLogs      []string       `json:"raw_logs,omitempty"`
	SessionStats SessionStats   `json:"session_stats"`
	GlobalStats  *GlobalStats   `json:"global_stats"`
	Records      []Record       `json:"records,omitempty"`
}

// SessionStats summarizes one session.
type SessionStats struct {
	DurationSeconds float64        `json:"duration_seconds"`
	RequestCount    int            `json:"request_count"`
	UniquePathCount int            `json:"unique_path_count"`
	UniquePaths     []string       `json:"unique_paths"`
	MethodCounts    map[string]int `json:"method_counts"`
}

// GlobalStats is the run-wide statistics block shared by every payload.
type GlobalStats struct {
	MeanSessionDurationSeconds float64         `json:"mean_session_duration_seconds"`
	IPDistribution             map[string]int  `json:"ip_distribution"`
	RequestCounts              map[string]int  `json:"request_counts"`
	TopIPs                     []stats.IPCount `json:"top_ips"`
	StatusDistribution         map[int]int     `json:"status_distribution"`
	RequestTimeline            []MinuteCount   `json:"request_timeline"`
}

// MinuteCount is one timeline bucket.
type MinuteCount struct {
	Minute time.Time `json:"minute"`
	Count  int       `json:"count"`
}

// Record is the per-request detail carried at full verbosity.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Size      int64     `json:"size"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"user_agent"`
}

// TopIPCount is how many IPs the global block lists in TopIPs.
const TopIPCount = 3

// Global converts run statistics into the payload block. Build it once per
// run and share it across payloads.
func Global(st model.SessionStatistics) *GlobalStats {
	g := &GlobalStats{
		MeanSessionDurationSeconds: st.MeanSessionDuration,
		IPDistribution:             st.IPDistribution,
		RequestCounts:              st.RequestCounts,
		TopIPs:                     stats.TopIPs(st, TopIPCount),
		StatusDistribution:         st.StatusDistribution,
		RequestTimeline:            make([]MinuteCount, 0, len(st.Timeline)),
	}
	for _, p := range st.Timeline {
		g.RequestTimeline = append(g.RequestTimeline, MinuteCount{Minute: p.Minute, Count: p.Count})
	}
	return g
}

// Build assembles the payload for one analyzed session.
func Build(runID string, s model.Session, a model.SessionAnalysis, global *GlobalStats) Payload {
	p := Payload{
		RunID:        runID,
		SessionID:    s.ID,
		IP:           s.IP,
		User:         s.User,
		AnomalyScore: a.AnomalyScore,
		Severity:     a.Severity,
		AnalystNote:  a.AnalystNote,
		Evidence:     a.Evidence,
		Degraded:     a.Degraded,
		Conforms:     a.Conforms,
		RawResponse:  a.RawResponse,
		GlobalStats:  global,
		RawLogs:      make([]string, 0, len(s.Records)),
		Records:      make([]Record, 0, len(s.Records)),
	}
	if p.User == "" {
		p.User = "-"
	}

	methods := make(map[string]int)
	var paths []string
	for _, r := range s.Records {
		p.RawLogs = append(p.RawLogs, r.Raw)
		p.Records = append(p.Records, Record{
			Timestamp: r.Timestamp,
			Method:    r.Method,
			Path:      r.Path,
			Status:    r.Status,
			Size:      r.Size,
			Referrer:  r.Referrer,
			UserAgent: r.UserAgent,
		})
		m := r.Method
		if m == "" {
			m = stats.UnknownMethod
		}
		methods[m]++
		if r.Path != "" {
			paths = append(paths, r.Path)
		}
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)
	if paths == nil {
		paths = []string{}
	}

	p.SessionStats = SessionStats{
		DurationSeconds: s.Duration().Seconds(),
		RequestCount:    len(s.Records),
		UniquePathCount: len(paths),
		UniquePaths:     paths,
		MethodCounts:    methods,
	}
	return p
}
