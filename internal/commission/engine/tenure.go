package engine

import "time"

// TenureMonths returns whole calendar months between hire and asOf.
// A missing hire date counts as zero tenure (most junior tier). Tenure is
// never negative; a job created before the hire date is handled separately
// by the created-before-hire skip rule.
//
// The boundary is exact: asOf landing on the same day-of-month as hire
// counts the month as complete, so hire+6mo is six months of tenure and
// lands in the mid tier, not the junior one.
func TenureMonths(hire *time.Time, asOf time.Time) int {
	if hire == nil {
		return 0
	}
	h := hire.UTC()
	a := asOf.UTC()

	months := (a.Year()-h.Year())*12 + int(a.Month()) - int(h.Month())
	if a.Day() < h.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
