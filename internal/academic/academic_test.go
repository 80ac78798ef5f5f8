package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearStart(t *testing.T) {
	assert.Equal(t, date(2024, time.September, 1), YearStart(date(2024, time.September, 1)))
	assert.Equal(t, date(2024, time.September, 1), YearStart(date(2024, time.December, 31)))
	assert.Equal(t, date(2024, time.September, 1), YearStart(date(2025, time.March, 15)))
	assert.Equal(t, date(2024, time.September, 1), YearStart(date(2025, time.August, 31)))
	assert.Equal(t, date(2025, time.September, 1), YearStart(date(2025, time.September, 2)))
}

func TestResolveWeekTypeEpochWeek(t *testing.T) {
	// The week containing September 1 is the first (odd) week.
	assert.Equal(t, models.WeekTypeOdd, ResolveWeekType(date(2024, time.September, 1)))
	assert.Equal(t, models.WeekTypeOdd, ResolveWeekType(date(2024, time.September, 7)))
	assert.Equal(t, models.WeekTypeEven, ResolveWeekType(date(2024, time.September, 8)))
}

func TestResolveWeekTypeParity(t *testing.T) {
	// 7 days apart flips parity, 14 days apart preserves it.
	for _, start := range []time.Time{
		date(2024, time.October, 3),
		date(2025, time.February, 17),
		date(2025, time.August, 30),
	} {
		wt := ResolveWeekType(start)
		assert.NotEqual(t, wt, ResolveWeekType(start.AddDate(0, 0, 7)), "7 days from %v", start)
		assert.Equal(t, wt, ResolveWeekType(start.AddDate(0, 0, 14)), "14 days from %v", start)
	}
}

func TestResolveWeekTypeUsesInputDateEpoch(t *testing.T) {
	// January dates anchor to September 1 of the previous calendar year.
	jan := date(2025, time.January, 6)
	weeks := int(jan.Sub(date(2024, time.September, 1)).Hours()) / (24 * 7)
	want := models.WeekTypeOdd
	if weeks%2 == 1 {
		want = models.WeekTypeEven
	}
	assert.Equal(t, want, ResolveWeekType(jan))
}

func TestWeekNumber(t *testing.T) {
	assert.Equal(t, 1, WeekNumber(date(2024, time.January, 4)))
	assert.Equal(t, 1, WeekNumber(date(2025, time.January, 1)))
	// December 29 2025 is a Monday belonging to ISO week 1 of 2026.
	assert.Equal(t, 1, WeekNumber(date(2025, time.December, 29)))
	assert.Equal(t, 23, WeekNumber(date(2024, time.June, 5)))
}

func TestDateOfWeekday(t *testing.T) {
	// Week 1 day 1 is January 1 by construction.
	assert.Equal(t, date(2025, time.January, 1), DateOfWeekday(2025, 1, 1))
	assert.Equal(t, date(2025, time.January, 8), DateOfWeekday(2025, 2, 1))
	assert.Equal(t, date(2025, time.January, 14), DateOfWeekday(2025, 2, 7))
}

func TestWeekTypeForWeekAlternates(t *testing.T) {
	a := WeekTypeForWeek(2025, 10)
	b := WeekTypeForWeek(2025, 11)
	c := WeekTypeForWeek(2025, 12)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)

	minutes, err = ParseClock("09:30:00")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)

	_, err = ParseClock("24:00")
	assert.Error(t, err)
	_, err = ParseClock("0930")
	assert.Error(t, err)
	_, err = ParseClock("09:61")
	assert.Error(t, err)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "00:00", FormatClock(0))
}

func TestOverlapsHalfOpen(t *testing.T) {
	// [540,630) vs [600,660) overlap; back-to-back slots do not.
	assert.True(t, Overlaps(540, 630, 600, 660))
	assert.True(t, Overlaps(600, 660, 540, 630))
	assert.False(t, Overlaps(540, 600, 600, 660))
	assert.False(t, Overlaps(600, 660, 540, 600))
	// Containment.
	assert.True(t, Overlaps(540, 660, 570, 600))
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, 1, Weekday(date(2024, time.September, 2))) // Monday
	assert.Equal(t, 7, Weekday(date(2024, time.September, 1))) // Sunday
}
