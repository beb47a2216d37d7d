package model

import "time"

// Session is the ordered set of requests from one (ip, user) pair.
// Records are ascending by timestamp and never empty.
type Session struct {
	ID      string
	IP      string
	User    string // "-" when anonymous
	Records []LogRecord
}

// Start returns the timestamp of the first record.
func (s *Session) Start() time.Time {
	if len(s.Records) == 0 {
		return time.Time{}
	}
	return s.Records[0].Timestamp
}

// End returns the timestamp of the last record.
func (s *Session) End() time.Time {
	if len(s.Records) == 0 {
		return time.Time{}
	}
	return s.Records[len(s.Records)-1].Timestamp
}

// Duration is End - Start. Single-record sessions have zero duration.
func (s *Session) Duration() time.Duration {
	return s.End().Sub(s.Start())
}
