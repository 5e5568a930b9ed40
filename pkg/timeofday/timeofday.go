// Package timeofday parses and compares 12-hour clock times such as "2:00pm".
//
// Values are minutes since midnight on an unspecified day. Ranges never wrap
// past midnight.
package timeofday

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTime is wrapped by every ParseError.
var ErrInvalidTime = errors.New("invalid time of day")

// ErrInvalidRange is returned when a range does not end after it starts.
var ErrInvalidRange = errors.New("end time must be after start time")

// ParseError reports a malformed time-of-day string.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse time %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return ErrInvalidTime }

// Time is a time of day in minutes since midnight.
type Time int

var layouts = []string{"3:04pm", "3pm"}

// Parse reads a 12-hour clock string. Case and inner spaces are ignored, so
// "9am", "9:00AM" and "12:30 pm" are all accepted.
func Parse(text string) (Time, error) {
	clean := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
	if clean == "" {
		return 0, &ParseError{Value: text, Err: errors.New("empty value")}
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, clean)
		if err == nil {
			return Time(t.Hour()*60 + t.Minute()), nil
		}
		lastErr = err
	}
	return 0, &ParseError{Value: text, Err: lastErr}
}

// MustParse is like Parse but panics on malformed input. Use it for static
// tables only.
func MustParse(text string) Time {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Hour returns the hour component (0-23).
func (t Time) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t Time) Minute() int { return int(t) % 60 }

// String formats the time as "2:30pm", without a leading zero.
func (t Time) String() string {
	h := t.Hour()
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d%s", h12, t.Minute(), suffix)
}

// DurationHours returns end - start in hours. Callers must ensure end > start.
func DurationHours(start, end Time) float64 {
	return float64(end-start) / 60
}

// Overlaps reports whether [start1,end1) and [start2,end2) intersect.
// Touching endpoints do not overlap.
func Overlaps(start1, end1, start2, end2 Time) bool {
	return !(end1 <= start2 || end2 <= start1)
}

// Range is a half-open [Start, End) interval within a single day.
type Range struct {
	Start Time
	End   Time
}

// ParseRange parses both ends of a range and checks that it does not wrap.
func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, err
	}
	if e <= s {
		return Range{}, fmt.Errorf("%s - %s: %w", start, end, ErrInvalidRange)
	}
	return Range{Start: s, End: e}, nil
}

// Hours returns the length of the range in hours.
func (r Range) Hours() float64 { return DurationHours(r.Start, r.End) }

// Contains reports whether other lies entirely inside r.
func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps reports whether the two ranges intersect.
func (r Range) Overlaps(other Range) bool {
	return Overlaps(r.Start, r.End, other.Start, other.End)
}

// Intersection returns the overlapping part of two ranges. The result is
// only meaningful when Overlaps is true.
func (r Range) Intersection(other Range) Range {
	return Range{Start: max(r.Start, other.Start), End: min(r.End, other.End)}
}

// String formats the range as "9:00am - 11:00am".
func (r Range) String() string {
	return r.Start.String() + " - " + r.End.String()
}
