// Package recency counts provider timestamps that fall inside a trailing
// date window. The provider mixes absolute dates with relative phrases like
// "3 weeks ago", so both forms parse here.
package recency

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Filter counts timestamps inside a trailing window of windowDays, inclusive
// at both ends. Malformed entries are skipped and logged, never fatal.
type Filter struct {
	windowDays int
	logger     *zap.Logger
}

func New(windowDays int, logger *zap.Logger) *Filter {
	return &Filter{windowDays: windowDays, logger: logger}
}

// CountWithin returns how many timestamps land in [ref - windowDays, ref].
// The reference instant is always explicit so results are reproducible.
func (f *Filter) CountWithin(ref time.Time, timestamps []string) int {
	start := ref.AddDate(0, 0, -f.windowDays)
	count := 0
	for _, raw := range timestamps {
		ts, err := ParseTimestamp(raw, ref)
		if err != nil {
			f.logger.Debug("skipping unparseable timestamp", zap.String("value", raw), zap.Error(err))
			continue
		}
		if !ts.Before(start) && !ts.After(ref) {
			count++
		}
	}
	return count
}

// ParseTimestamp resolves a provider timestamp to an instant. Relative
// phrases are anchored at ref. Quantity words "a"/"an" mean one; hours count
// as fractional days, weeks as 7, months as 30, years as 365.
func ParseTimestamp(raw string, ref time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range absoluteLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}

	return parseRelative(s, ref)
}

func parseRelative(s string, ref time.Time) (time.Time, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) < 3 || fields[len(fields)-1] != "ago" {
		return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
	}

	qty := 1
	switch fields[0] {
	case "a", "an":
	default:
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("bad quantity in %q", s)
		}
		qty = n
	}

	unit := strings.TrimSuffix(fields[1], "s")
	switch unit {
	case "hour":
		return ref.Add(-time.Duration(qty) * time.Hour), nil
	case "day":
		return ref.AddDate(0, 0, -qty), nil
	case "week":
		return ref.AddDate(0, 0, -7*qty), nil
	case "month":
		return ref.AddDate(0, 0, -30*qty), nil
	case "year":
		return ref.AddDate(0, 0, -365*qty), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time unit in %q", s)
}
