// Package week buckets issues into ISO (Monday-start) weeks.
//
// Every function takes an explicit "now" so results are reproducible; all
// arithmetic happens in UTC.
package week

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a
// zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing "Z" is the UTC
// marker and a missing zone implies UTC. The result is always in UTC; ok is
// false for empty or unparseable input.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// StartOfWeek returns Monday 00:00 UTC of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
}

// Label returns the ISO "YYYY-Www" label of the week containing t.
func Label(t time.Time) string {
	y, w := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// LastNWeeks returns n consecutive week buckets, oldest first, ending with
// the week that contains now. Exactly the last bucket is current.
func LastNWeeks(now time.Time, n int) []model.WeekBucket {
	if n <= 0 {
		return nil
	}
	current := StartOfWeek(now)
	weeks := make([]model.WeekBucket, 0, n)
	for i := n - 1; i >= 0; i-- {
		monday := current.AddDate(0, 0, -7*i)
		weeks = append(weeks, model.WeekBucket{
			Label:     Label(monday),
			Monday:    monday,
			Sunday:    monday.AddDate(0, 0, 6),
			IsCurrent: i == 0,
		})
	}
	return weeks
}

// Contains reports whether t falls inside the bucket, Monday 00:00 through
// the last instant of Sunday.
func Contains(b model.WeekBucket, t time.Time) bool {
	end := b.Monday.AddDate(0, 0, 7)
	return !t.Before(b.Monday) && t.Before(end)
}

// BucketIssues groups issues by the week containing their date field. The
// result has an entry for each of the last n weeks, possibly empty. Issues
// outside every bucket are dropped; issues whose date cannot be parsed are
// skipped with a warning.
func BucketIssues(issues []*model.Issue, field model.DateField, n int, now time.Time) map[string][]*model.Issue {
	weeks := LastNWeeks(now, n)
	out := make(map[string][]*model.Issue, len(weeks))
	for _, w := range weeks {
		out[w.Label] = []*model.Issue{}
	}
	if len(weeks) == 0 {
		return out
	}

	for _, iss := range issues {
		raw := iss.Timestamp(field)
		ts, ok := ParseTimestamp(raw)
		if !ok {
			if raw != "" {
				slog.Warn("skipping issue with unparseable date", "issue", iss.Key, "field", field.String(), "value", raw)
			}
			continue
		}
		for _, w := range weeks {
			if Contains(w, ts) {
				out[w.Label] = append(out[w.Label], iss)
				break
			}
		}
	}
	return out
}

// DaysSince returns the whole number of days elapsed between t and now.
func DaysSince(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}
