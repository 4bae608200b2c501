package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned for month/year selectors that are not numbers or "all".
var ErrInvalidPeriod = errors.New("invalid period")

// Period is a reporting window. Non all-time periods are half-open: [Start, End).
type Period struct {
	AllTime bool
	Year    int
	Month   int // 0 for a yearly period
	Start   time.Time
	End     time.Time
}

// AllTimePeriod returns the unbounded period.
func AllTimePeriod() Period {
	return Period{AllTime: true}
}

// MonthPeriod returns the calendar month in loc.
func MonthPeriod(year, month int, loc *time.Location) Period {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Period{Year: year, Month: month, Start: start, End: start.AddDate(0, 1, 0)}
}

// YearPeriod returns the calendar year in loc.
func YearPeriod(year int, loc *time.Location) Period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Period{Year: year, Start: start, End: start.AddDate(1, 0, 0)}
}

// ParsePeriod interprets the month/year selectors of the finance report.
// year "all" selects all time, month "all" the whole year. A missing year
// defaults to now's year and a missing month to January.
func ParsePeriod(month, year string, now time.Time) (Period, error) {
	loc := now.Location()
	year = strings.TrimSpace(strings.ToLower(year))
	month = strings.TrimSpace(strings.ToLower(month))

	if year == "all" {
		return AllTimePeriod(), nil
	}
	y := now.Year()
	if year != "" {
		v, err := strconv.Atoi(year)
		if err != nil || v < 1900 || v > 9999 {
			return Period{}, fmt.Errorf("%w: year %q", ErrInvalidPeriod, year)
		}
		y = v
	}
	if month == "all" {
		return YearPeriod(y, loc), nil
	}
	m := 1
	if month != "" {
		v, err := strconv.Atoi(month)
		if err != nil || v < 1 || v > 12 {
			return Period{}, fmt.Errorf("%w: month %q", ErrInvalidPeriod, month)
		}
		m = v
	}
	return MonthPeriod(y, m, loc), nil
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	if p.AllTime {
		return true
	}
	return !t.Before(p.Start) && t.Before(p.End)
}

// Title is the heading shown above a report for this period.
func (p Period) Title() string {
	switch {
	case p.AllTime:
		return "Lifetime Financial Summary"
	case p.Month == 0:
		return fmt.Sprintf("%d Yearly Report", p.Year)
	default:
		return fmt.Sprintf("%s %d Report", time.Month(p.Month), p.Year)
	}
}
