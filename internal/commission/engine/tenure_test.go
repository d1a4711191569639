package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestTenureMonths_NilHireDate(t *testing.T) {
	assert.Equal(t, 0, TenureMonths(nil, date(2023, time.October, 1)))
}

func TestTenureMonths_SameDay(t *testing.T) {
	assert.Equal(t, 0, TenureMonths(datePtr(2023, time.January, 1), date(2023, time.January, 1)))
}

func TestTenureMonths_ExactMonthBoundary(t *testing.T) {
	// Landing on the same day-of-month counts the month as complete.
	assert.Equal(t, 6, TenureMonths(datePtr(2023, time.January, 15), date(2023, time.July, 15)))
	assert.Equal(t, 5, TenureMonths(datePtr(2023, time.January, 15), date(2023, time.July, 14)))
}

func TestTenureMonths_DayOfMonthCorrection(t *testing.T) {
	// Jan 31 -> Feb 28 is not yet a full month.
	assert.Equal(t, 0, TenureMonths(datePtr(2023, time.January, 31), date(2023, time.February, 28)))
	assert.Equal(t, 1, TenureMonths(datePtr(2023, time.January, 31), date(2023, time.March, 31)))
}

func TestTenureMonths_AcrossYears(t *testing.T) {
	assert.Equal(t, 14, TenureMonths(datePtr(2022, time.March, 1), date(2023, time.May, 1)))
}

func TestTenureMonths_BeforeHireClampsToZero(t *testing.T) {
	assert.Equal(t, 0, TenureMonths(datePtr(2023, time.June, 1), date(2023, time.February, 1)))
}
