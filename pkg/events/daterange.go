package events

import "time"

// DateRange is the UTC window of one calendar month, first instant to last
// instant inclusive. Pure value derived from (year, month).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// MonthRange computes the DateRange for a month: start at the first day
// 00:00:00Z, end at the last calendar day 23:59:59Z. Month length (28-31
// days), leap years and the December year boundary follow from the
// normalizing arithmetic of time.AddDate.
func MonthRange(year, month int) DateRange {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return DateRange{Start: start, End: end}
}

// LastDay returns the number of days in the month.
func (r DateRange) LastDay() int {
	return r.End.Day()
}
