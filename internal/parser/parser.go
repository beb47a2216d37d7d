// Package parser turns combined-format access log text into ordered records.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hejijunhao/watchpath/internal/model"
)

// TimeLayout is the access log timestamp layout, e.g. 10/Oct/2000:13:55:36 -0700.
const TimeLayout = "02/Jan/2006:15:04:05 -0700"

const maxLineSize = 1024 * 1024

// combinedRe matches: ip identity user [timestamp] "request" status size "referrer" "user-agent"
var combinedRe = regexp.MustCompile(
	`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\d{3})\s+(\S+)\s+"([^"]*)"\s+"([^"]*)"`,
)

// Result holds the records parsed from one log source.
type Result struct {
	Records      []model.LogRecord // ascending by timestamp
	TotalLines   int
	SkippedLines int
}

// ParseLine parses a single line. The second return is false when the line
// does not match the grammar or carries an unparseable timestamp.
func ParseLine(line string) (model.LogRecord, bool) {
	m := combinedRe.FindStringSubmatch(line)
	if m == nil {
		return model.LogRecord{}, false
	}

	ts, err := time.Parse(TimeLayout, m[4])
	if err != nil {
		return model.LogRecord{}, false
	}

	// Malformed requests may carry only a method, or method and path.
	req := append(strings.Fields(m[5]), "", "", "")
	status, _ := strconv.Atoi(m[6])

	user := m[3]
	if user == "-" {
		user = ""
	}

	return model.LogRecord{
		IP:        m[1],
		Identity:  m[2],
		User:      user,
		Timestamp: ts,
		Method:    req[0],
		Path:      req[1],
		Protocol:  req[2],
		Status:    status,
		Size:      parseSize(m[7]),
		Referrer:  m[8],
		UserAgent: m[9],
		Raw:       line,
	}, true
}

// parseSize maps "-" and anything that is not all digits to 0.
func parseSize(tok string) int64 {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseReader parses every line of r and returns the records sorted by
// timestamp. Lines that do not parse are counted and dropped.
func ParseReader(r io.Reader) (Result, error) {
	var res Result
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		res.TotalLines++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			res.SkippedLines++
			continue
		}
		rec, ok := ParseLine(line)
		if !ok {
			res.SkippedLines++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("parser: read: %w", err)
	}

	// Source logs are not guaranteed to be time-ordered.
	slices.SortStableFunc(res.Records, func(a, b model.LogRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return res, nil
}

// ParseFile opens path and parses it with ParseReader.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("parser: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseReader(f)
}
