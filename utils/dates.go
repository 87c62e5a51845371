package utils

import "time"

const (
	OrderDateLayout = "02 Jan 2006, 15:04"
	DateUnavailable = "date unavailable"
)

func FormatOrderDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return DateUnavailable
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(OrderDateLayout)
}
