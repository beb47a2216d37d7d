package model

import "time"

// SessionStatistics holds aggregate metrics computed once per run.
type SessionStatistics struct {
	MeanSessionDuration float64        // seconds
	IPDistribution      map[string]int // sessions per IP
	RequestCounts       map[string]int // records per method
	StatusDistribution  map[int]int    // records per status code
	Timeline            []TimelinePoint
}

// TimelinePoint is the number of records in one whole minute.
type TimelinePoint struct {
	Minute time.Time
	Count  int
}
