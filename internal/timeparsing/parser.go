// Package timeparsing provides layered parsing of date/time expressions for
// search filters.
//
// Parsing tries three layers in order:
//  1. Compact duration (+6h, -1d, 2w)
//  2. Natural language ("yesterday", "last monday")
//  3. Absolute timestamp (RFC3339 or date-only)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// compactDurationRe matches compact duration patterns: [+-]?(\d+)([hdwmy])
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

var nlParser = newNLParser()

func newNLParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Parse resolves a date/time expression relative to now, trying each layer
// in turn.
func Parse(s string, now time.Time) (time.Time, error) {
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, ok := parseNatural(s, now); ok {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time expression: %q", s)
}

// ParseCompactDuration parses compact duration syntax relative to now.
//
// Units: h = hours, d = days, w = weeks, m = months, y = years.
// No sign means positive: "2w" is now + 2 weeks, "-1d" is yesterday.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}

	amount, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %q", matches[2])
	}
	if matches[1] == "-" {
		amount = -amount
	}

	switch matches[3] {
	case "h":
		return now.Add(time.Duration(amount) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, amount), nil
	case "w":
		return now.AddDate(0, 0, amount*7), nil
	case "m":
		return now.AddDate(0, amount, 0), nil
	case "y":
		return now.AddDate(amount, 0, 0), nil
	}
	return now, nil
}

// IsCompactDuration returns true if the string matches compact duration
// syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

// parseNatural tries the natural language layer. Returns false when the
// expression has no recognizable date/time in it.
func parseNatural(s string, now time.Time) (time.Time, bool) {
	r, err := nlParser.Parse(s, now)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}
