// Package sessionize groups time-ordered log records into per-visitor sessions.
package sessionize

import (
	"fmt"
	"time"

	"github.com/hejijunhao/watchpath/internal/model"
)

// DefaultWindow is the inactivity gap after which a visitor starts a new session.
const DefaultWindow = 15 * time.Minute

// Config controls session grouping.
type Config struct {
	Window time.Duration // inactivity window (default 15m)
}

// key identifies a visitor.
type key struct {
	ip   string
	user string
}

// Builder groups records by (ip, user) within the inactivity window.
// Counters are owned by the Builder, so separate builders never share ids.
type Builder struct {
	cfg      Config
	counters map[key]int
}

// New creates a Builder. A non-positive window falls back to DefaultWindow.
func New(cfg Config) *Builder {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Builder{cfg: cfg, counters: make(map[key]int)}
}

// Build groups records, which must be ascending by timestamp, into sessions.
// Sessions are returned in the order their first record appears, so sessions
// of different visitors interleave. A gap equal to the window stays in the
// same session.
func (b *Builder) Build(records []model.LogRecord) []model.Session {
	if len(records) == 0 {
		return nil
	}

	// Index into sessions of the active session per visitor.
	active := make(map[key]int)
	var sessions []model.Session

	for _, rec := range records {
		k := key{ip: rec.IP, user: rec.User}

		if idx, ok := active[k]; ok {
			s := &sessions[idx]
			last := s.Records[len(s.Records)-1].Timestamp
			if rec.Timestamp.Sub(last) <= b.cfg.Window {
				s.Records = append(s.Records, rec)
				continue
			}
		}

		// New visitor or window exceeded: the previous session is closed for good.
		b.counters[k]++
		sessions = append(sessions, model.Session{
			ID:      sessionID(k, b.counters[k]),
			IP:      rec.IP,
			User:    displayUser(rec.User),
			Records: []model.LogRecord{rec},
		})
		active[k] = len(sessions) - 1
	}
	return sessions
}

func sessionID(k key, n int) string {
	user := k.user
	if user == "" {
		user = "anon"
	}
	return fmt.Sprintf("%s-%s-%d", k.ip, user, n)
}

func displayUser(u string) string {
	if u == "" {
		return "-"
	}
	return u
}
