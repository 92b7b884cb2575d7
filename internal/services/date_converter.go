package services

import (
	"time"

	"siembra-platform/internal/ml"
)

// DateFormat is the dd-mm-yyyy form used in all responses.
const DateFormat = "02-01-2006"

// DateConverter turns model day-of-year outputs into calendar dates for a
// target campaign year.
type DateConverter struct {
	halfWindowDays int
}

// NewDateConverter creates a converter with the given half window in days.
func NewDateConverter(halfWindowDays int) *DateConverter {
	return &DateConverter{halfWindowDays: halfWindowDays}
}

// FromDayOfYear maps a day-of-year onto the given year by offsetting from
// January 1st. Day 365 of a leap year lands on December 30th; the window
// absorbs that drift, so leap years get no special casing.
func (c *DateConverter) FromDayOfYear(dayOfYear, year int) time.Time {
	if dayOfYear < ml.MinDayOfYear {
		dayOfYear = ml.MinDayOfYear
	} else if dayOfYear > ml.MaxDayOfYear {
		dayOfYear = ml.MaxDayOfYear
	}
	base := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, dayOfYear-1)
}

// Window returns the planting window around the optimal date, formatted.
func (c *DateConverter) Window(optimal time.Time) [2]string {
	from := optimal.AddDate(0, 0, -c.halfWindowDays)
	to := optimal.AddDate(0, 0, c.halfWindowDays)
	return [2]string{from.Format(DateFormat), to.Format(DateFormat)}
}

// HalfWindowDays exposes the configured half window for risk analysis.
func (c *DateConverter) HalfWindowDays() int {
	return c.halfWindowDays
}
