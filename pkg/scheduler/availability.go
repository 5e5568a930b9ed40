package scheduler

import (
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/timeofday"
)

var availabilityWindows = map[models.Availability]timeofday.Range{
	models.AllDay:    {Start: timeofday.MustParse("8:00am"), End: timeofday.MustParse("11:00pm")},
	models.Morning:   {Start: timeofday.MustParse("8:00am"), End: timeofday.MustParse("12:00pm")},
	models.Afternoon: {Start: timeofday.MustParse("12:00pm"), End: timeofday.MustParse("6:00pm")},
	models.Evening:   {Start: timeofday.MustParse("5:00pm"), End: timeofday.MustParse("11:00pm")},
}

// Window returns the time window an availability tag covers. Unavailable has
// no window.
func Window(a models.Availability) (timeofday.Range, bool) {
	w, ok := availabilityWindows[a]
	return w, ok
}

// Covers reports whether a leader with availability a may work slot.
func Covers(a models.Availability, slot timeofday.Range) bool {
	w, ok := Window(a)
	if !ok {
		return false
	}
	return w.Contains(slot)
}

// Allows checks if a leader's declared availability for the date covers the event slot
func Allows(leader models.Leader, date string, slot timeofday.Range) bool {
	return Covers(leader.AvailabilityOn(date), slot)
}
