// Package stats computes run-wide metrics over a session set.
package stats

import (
	"slices"
	"time"

	"github.com/hejijunhao/watchpath/internal/model"
)

// UnknownMethod is the RequestCounts key for records without a method.
const UnknownMethod = "UNKNOWN"

// Summarize aggregates sessions into SessionStatistics. Every session counts
// toward the mean duration, single-record sessions contributing zero.
func Summarize(sessions []model.Session) model.SessionStatistics {
	st := model.SessionStatistics{
		IPDistribution:     make(map[string]int),
		RequestCounts:      make(map[string]int),
		StatusDistribution: make(map[int]int),
	}

	var total float64
	buckets := make(map[time.Time]int)

	for i := range sessions {
		s := &sessions[i]
		total += s.Duration().Seconds()
		st.IPDistribution[s.IP]++

		for _, rec := range s.Records {
			method := rec.Method
			if method == "" {
				method = UnknownMethod
			}
			st.RequestCounts[method]++
			st.StatusDistribution[rec.Status]++
			// UTC so equal instants logged with different offsets share a bucket.
			buckets[rec.Timestamp.UTC().Truncate(time.Minute)]++
		}
	}
	if len(sessions) > 0 {
		st.MeanSessionDuration = total / float64(len(sessions))
	}

	st.Timeline = make([]model.TimelinePoint, 0, len(buckets))
	for minute, count := range buckets {
		st.Timeline = append(st.Timeline, model.TimelinePoint{Minute: minute, Count: count})
	}
	slices.SortFunc(st.Timeline, func(a, b model.TimelinePoint) int {
		return a.Minute.Compare(b.Minute)
	})
	return st
}

// IPCount is one entry of TopIPs.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// TopIPs returns the n IPs with the most sessions, ties broken by IP.
func TopIPs(st model.SessionStatistics, n int) []IPCount {
	out := make([]IPCount, 0, len(st.IPDistribution))
	for ip, c := range st.IPDistribution {
		out = append(out, IPCount{IP: ip, Count: c})
	}
	slices.SortFunc(out, func(a, b IPCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.IP < b.IP {
			return -1
		}
		if a.IP > b.IP {
			return 1
		}
		return 0
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
