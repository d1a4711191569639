package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	v := day(y, m, d)
	return &v
}

func TestMembershipInterval_Covers(t *testing.T) {
	closed := MembershipInterval{
		JoinedAt: day(2023, time.January, 1),
		LeftAt:   dayPtr(2023, time.June, 1),
	}

	// Joined bound is inclusive, left bound exclusive.
	assert.True(t, closed.Covers(day(2023, time.January, 1)))
	assert.True(t, closed.Covers(day(2023, time.March, 15)))
	assert.False(t, closed.Covers(day(2023, time.June, 1)))
	assert.False(t, closed.Covers(day(2022, time.December, 31)))

	open := MembershipInterval{JoinedAt: day(2023, time.January, 1)}
	assert.True(t, open.Covers(day(2030, time.January, 1)))
	assert.False(t, open.Covers(day(2022, time.December, 31)))
}
