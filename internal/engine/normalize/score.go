package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var numberToken = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)

// Coerce converts a model-provided score into [0, 1], or nil when no usable
// number is present. Strings are scanned for their first numeric token and
// "%" or "percent" marks a percentage. Unmarked values in (1, 100] are read as
// percentages; unmarked values above 100 are rejected. Negative values become 0.
func Coerce(v any) *float64 {
	return coerceNode(toNode(v))
}

func coerceNode(n node) *float64 {
	var (
		number  float64
		percent bool
	)

	switch t := n.(type) {
	case numberNode:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return nil
		}
		number = f
	case textNode:
		s := strings.TrimSpace(string(t))
		if s == "" {
			return nil
		}
		tok := numberToken.FindString(s)
		if tok == "" {
			return nil
		}
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil
		}
		number = f
		if strings.Contains(s, "%") || strings.Contains(strings.ToLower(s), "percent") {
			number /= 100
			percent = true
		}
	default:
		return nil
	}

	if number < 0 {
		number = 0
	}
	if number > 1 && !percent {
		if number > 100 {
			return nil
		}
		number /= 100
	}
	if number > 1 {
		number = 1
	}
	return &number
}
