package aiusage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthWindow(t *testing.T) {
	t.Run("returns the containing calendar month in UTC", func(t *testing.T) {
		now := time.Date(2025, time.March, 15, 13, 45, 0, 0, time.UTC)
		start, end := MonthWindow(now)

		assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("normalizes non-UTC input", func(t *testing.T) {
		loc := time.FixedZone("UTC+9", 9*3600)
		// 03:00 on March 1st UTC+9 is still Feb 28th in UTC
		now := time.Date(2025, time.March, 1, 3, 0, 0, 0, loc)
		start, _ := MonthWindow(now)

		assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	})

	t.Run("handles year rollover", func(t *testing.T) {
		now := time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC)
		start, end := MonthWindow(now)

		assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), end)
	})
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2025, time.March, 15, 13, 0, 0, 0, time.UTC)
	start, end := TrailingWindow(now, time.Hour)

	assert.Equal(t, now.Add(-time.Hour), start)
	assert.Equal(t, now, end)
}
