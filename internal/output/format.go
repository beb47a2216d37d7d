package output

import (
	"fmt"

	"github.com/hejijunhao/watchpath/internal/report"
)

// Verbosity controls how much per-request detail a payload carries.
type Verbosity int

const (
	Minimal  Verbosity = iota // analysis and statistics only
	Standard                  // plus raw log lines
	Full                      // plus parsed records and the raw model response
)

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Standard:
		return "standard"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
}

// ParseVerbosity maps "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("unknown verbosity %q", s)
	}
}

// FormatPayload returns a copy of p with fields stripped according to
// verbosity. Stripped fields are omitted from JSON.
func FormatPayload(p report.Payload, v Verbosity) report.Payload {
	switch v {
	case Minimal:
		p.RawLogs = nil
		p.Records = nil
		p.RawResponse = ""
	case Standard:
		p.Records = nil
		p.RawResponse = ""
	}
	return p
}
