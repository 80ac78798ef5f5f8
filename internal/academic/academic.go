// Package academic implements the calendar math behind the biweekly
// schedule: week-type parity anchored to the academic-year epoch, week
// numbering, and projection of recurring weekday slots onto concrete
// dates. Everything here is pure; callers inject the date.
package academic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const daysPerWeek = 7

// YearStart returns the academic-year epoch for the given date:
// September 1 of the date's year when the date falls in September or
// later, otherwise September 1 of the previous year. The epoch is
// derived from the input date, not the wall clock.
func YearStart(date time.Time) time.Time {
	year := date.Year()
	if date.Month() < time.September {
		year--
	}
	return time.Date(year, time.September, 1, 0, 0, 0, 0, date.Location())
}

// ResolveWeekType computes the parity cycle active on the given date.
// Whole weeks elapsed since the epoch: even count is the first (odd)
// week, odd count the second (even) week.
func ResolveWeekType(date time.Time) models.WeekType {
	weeks := int(date.Sub(YearStart(date)).Hours()) / (24 * daysPerWeek)
	if weeks%2 == 0 {
		return models.WeekTypeOdd
	}
	return models.WeekTypeEven
}

// WeekNumber returns the ISO-8601 week number of the date, computed by
// shifting to the nearest Thursday so that week 1 is the week holding
// the year's first Thursday.
func WeekNumber(date time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	day := int(d.Weekday())
	if day == 0 {
		day = 7
	}
	d = d.AddDate(0, 0, 4-day)
	yearStart := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(d.Sub(yearStart).Hours())/(24*daysPerWeek) + 1
}

// DateOfWeekday projects (week, weekday) onto a concrete date counted
// from January 1 of the year: Jan 1 + (week-1)*7 + (weekday-1) days.
// Weeks overlapping month or year boundaries produce out-of-range dates
// by design; callers filter after projection.
func DateOfWeekday(year, week, weekday int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return jan1.AddDate(0, 0, (week-1)*daysPerWeek+(weekday-1))
}

// WeekTypeForWeek maps a week number of a calendar year to its parity
// cycle via the academic-year epoch of that week's projected Monday.
func WeekTypeForWeek(year, week int) models.WeekType {
	return ResolveWeekType(DateOfWeekday(year, week, 1))
}

// ParseClock converts "HH:MM" (or "HH:MM:SS" as returned by the
// database TIME type) into minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether two half-open minute intervals [aStart,aEnd)
// and [bStart,bEnd) intersect. Back-to-back slots do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Weekday returns the ISO day of week for a date, 1=Monday..7=Sunday.
func Weekday(date time.Time) int {
	day := int(date.Weekday())
	if day == 0 {
		day = 7
	}
	return day
}
