package enrich

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Findings are the heuristic observations made on a chunk: note lines and
// deduplicated evidence fragments, both in order.
type Findings struct {
	Notes    []string
	Evidence []string
}

// topN is how many groups each finding lists.
const topN = 3

var entryPattern = regexp.MustCompile(`"(?P<method>[A-Z]+)\s+(?P<path>[^"\s]+)[^"]*"\s+(?P<status>\d{3})\s+(?P<size>\S+)`)

var writeMethods = map[string]bool{"POST": true, "PUT": true, "DELETE": true, "PATCH": true}

type entry struct {
	method string
	path   string
	status int
}

// parseEntries re-reads request lines out of a chunk. Lines without a
// quoted request followed by status and size are ignored.
func parseEntries(chunk string) []entry {
	var out []entry
	for _, line := range strings.Split(chunk, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		status, _ := strconv.Atoi(m[3])
		out = append(out, entry{method: m[1], path: m[2], status: status})
	}
	return out
}

// counter counts keys and remembers first-seen order so ties rank stably.
type counter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(k K) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

func (c *counter[K]) total() int {
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

// mostCommon returns keys by descending count, first-seen first on ties.
func (c *counter[K]) mostCommon() []K {
	keys := slices.Clone(c.order)
	slices.SortStableFunc(keys, func(a, b K) int { return c.counts[b] - c.counts[a] })
	return keys
}

type errKey struct {
	status       int
	method, path string
}

type pairKey struct{ method, path string }

// Analyze derives findings from a chunk. A chunk with no parseable request
// lines yields empty Findings.
func Analyze(chunk string) Findings {
	entries := parseEntries(chunk)
	if len(entries) == 0 {
		return Findings{}
	}

	var f Findings
	seen := make(map[string]bool)
	addEvidence := func(s string) {
		if !seen[s] {
			seen[s] = true
			f.Evidence = append(f.Evidence, s)
		}
	}

	paths := newCounter[string]()
	methods := newCounter[string]()
	statuses := newCounter[int]()
	errs := newCounter[errKey]()
	pairs := newCounter[pairKey]()
	statusByPair := make(map[pairKey]*counter[int])
	pathMethods := make(map[string]map[string]bool)
	loginFailures := 0

	for _, e := range entries {
		paths.add(e.path)
		methods.add(e.method)
		statuses.add(e.status)
		p := pairKey{e.method, e.path}
		pairs.add(p)
		if statusByPair[p] == nil {
			statusByPair[p] = newCounter[int]()
		}
		statusByPair[p].add(e.status)
		if pathMethods[e.path] == nil {
			pathMethods[e.path] = make(map[string]bool)
		}
		pathMethods[e.path][e.method] = true
		if e.status >= 400 {
			errs.add(errKey{e.status, e.method, e.path})
			if strings.Contains(strings.ToLower(e.path), "login") {
				loginFailures++
			}
		}
	}

	if len(errs.order) > 0 {
		total := errs.total()
		var frags []string
		for _, k := range first(errs.mostCommon(), topN) {
			frag := fmt.Sprintf("%d× %s %s → %d", errs.counts[k], k.method, k.path, k.status)
			frags = append(frags, frag)
			addEvidence(frag)
		}
		f.Notes = append(f.Notes, fmt.Sprintf("Detected %s (%s).",
			plural(total, "error response"), strings.Join(frags, "; ")))
	}

	if loginFailures > 0 {
		f.Notes = append(f.Notes, fmt.Sprintf("Observed %s.", plural(loginFailures, "failed login attempt")))
	}

	var repeated []string
	for _, p := range paths.order {
		if paths.counts[p] >= 3 {
			repeated = append(repeated, p)
		}
	}
	if len(repeated) > 0 {
		slices.SortFunc(repeated, func(a, b string) int {
			if d := paths.counts[b] - paths.counts[a]; d != 0 {
				return d
			}
			return strings.Compare(a, b)
		})
		var frags []string
		for _, p := range first(repeated, topN) {
			ms := make([]string, 0, len(pathMethods[p]))
			for m := range pathMethods[p] {
				ms = append(ms, m)
			}
			slices.Sort(ms)
			methodText := strings.Join(ms, ", ")
			if methodText == "" {
				methodText = "unknown methods"
			}
			frag := fmt.Sprintf("%d× %s via %s", paths.counts[p], p, methodText)
			frags = append(frags, frag)
			addEvidence(frag)
		}
		f.Notes = append(f.Notes, "Repeated access patterns: "+strings.Join(frags, "; ")+".")
	}

	var writes []pairKey
	for _, p := range pairs.order {
		if writeMethods[p.method] {
			writes = append(writes, p)
		}
	}
	if len(writes) > 0 {
		slices.SortStableFunc(writes, func(a, b pairKey) int {
			if d := pairs.counts[b] - pairs.counts[a]; d != 0 {
				return d
			}
			return strings.Compare(a.path, b.path)
		})
		var frags []string
		for _, p := range first(writes, topN) {
			sc := statusByPair[p]
			var breakdown []string
			for _, s := range sc.mostCommon() {
				breakdown = append(breakdown, fmt.Sprintf("%d×%d", s, sc.counts[s]))
			}
			frag := fmt.Sprintf("%d× %s %s (%s)", pairs.counts[p], p.method, p.path, strings.Join(breakdown, ", "))
			frags = append(frags, frag)
			addEvidence(frag)
		}
		f.Notes = append(f.Notes, "Write operations observed: "+strings.Join(frags, "; ")+".")
	}

	if len(f.Notes) == 0 {
		method := "GET"
		if mc := methods.mostCommon(); len(mc) > 0 {
			method = mc[0]
		}
		status := 200
		if sc := statuses.mostCommon(); len(sc) > 0 {
			status = sc[0]
		}
		f.Notes = append(f.Notes, fmt.Sprintf("Routine activity detected: %s across %s, primarily %s with status %d.",
			plural(len(entries), "request"), plural(len(paths.order), "path"), method, status))
	}
	return f
}

func first[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
