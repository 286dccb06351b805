package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TENURE - Calendar-aware length of service
// =============================================================================

// Tenure is the elapsed service between a hire date and a reference date.
// Years/Months/Days read like a human would say it ("2 years, 3 months,
// 10 days"); TotalDays is the raw day span for coarse day-based math.
type Tenure struct {
	Years     int
	Months    int
	Days      int
	TotalDays int
}

func (t Tenure) String() string {
	return fmt.Sprintf("%dy %dm %dd", t.Years, t.Months, t.Days)
}

// CalculateTenure subtracts hiredAt from asOf field by field. A day-of-month
// underflow borrows a month and a month underflow borrows a year. The
// remaining days are counted from the borrowed anniversary, clamped with
// SafeDate, so a Feb 29 hire reaches one year on Feb 28 of a common year + 1.
//
// asOf before hiredAt yields the zero Tenure.
func CalculateTenure(hiredAt, asOf TimePoint) Tenure {
	if asOf.Before(hiredAt) {
		return Tenure{}
	}

	years := asOf.Year() - hiredAt.Year()
	months := int(asOf.Month()) - int(hiredAt.Month())
	if asOf.Day() < hiredAt.Day() {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}

	// anniversary = hiredAt + years + months, clamped to a real date
	total := int(hiredAt.Month()) - 1 + months
	anchor := SafeDate(hiredAt.Year()+years+total/12, time.Month(total%12+1), hiredAt.Day())

	return Tenure{
		Years:     years,
		Months:    months,
		Days:      DaysBetween(anchor, asOf),
		TotalDays: DaysBetween(hiredAt, asOf),
	}
}
