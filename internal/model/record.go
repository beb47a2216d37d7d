package model

import "time"

// LogRecord is one parsed combined-format access log line.
type LogRecord struct {
	IP        string
	Identity  string
	User      string // "" when the log carries "-"
	Timestamp time.Time
	Method    string
	Path      string
	Protocol  string
	Status    int
	Size      int64
	Referrer  string
	UserAgent string
	Raw       string // original line
}
