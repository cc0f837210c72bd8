// Package dates parses the date formats seen on transcript pages and
// provides the quarter-to-reporting-month plausibility windows used by
// semantic validation.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// knownLayouts are tried in order before falling back to dateparse.
// Transcript pages are inconsistent about date formatting.
var knownLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"01/02/2006",
	"2006/01/02",
	"2 January 2006",
}

// Parse attempts to parse s as a calendar date or timestamp.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	for _, layout := range knownLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q: %w", s, err)
	}
	return t, nil
}

// WithinTolerance reports whether a and b are within tol of each other.
func WithinTolerance(a, b time.Time, tol time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// reportingMonths maps a fiscal quarter to the calendar months in which
// earnings calls for that quarter plausibly happen, extended with tolerance
// for late reporters. Q4 calls roll into the first months of the following
// calendar year; December is included for early Q4 reporters.
var reportingMonths = map[int][]time.Month{
	1: {time.March, time.April, time.May, time.June},
	2: {time.June, time.July, time.August, time.September},
	3: {time.September, time.October, time.November, time.December},
	4: {time.December, time.January, time.February, time.March},
}

// QuarterReportingWindow returns the plausible reporting months for
// quarter q (1..4), or nil for an unknown quarter.
func QuarterReportingWindow(q int) []time.Month {
	return reportingMonths[q]
}

// PlausibleCallDate reports whether d falls inside the reporting window of
// the given quarter and fiscal year. Q4 calls in January through March are
// expected in fiscalYear+1; everything else in fiscalYear itself. Companies
// with non-calendar fiscal years will fail this check and should only ever
// be warned about, never corrected.
func PlausibleCallDate(quarter, fiscalYear int, d time.Time) bool {
	window := reportingMonths[quarter]
	if window == nil {
		return false
	}
	monthOK := false
	for _, m := range window {
		if d.Month() == m {
			monthOK = true
			break
		}
	}
	if !monthOK {
		return false
	}

	expectedYear := fiscalYear
	if quarter == 4 && d.Month() <= time.March {
		expectedYear = fiscalYear + 1
	}
	// Allow one calendar year of slack for quarters that straddle year ends.
	diff := d.Year() - expectedYear
	return diff >= -1 && diff <= 1
}
