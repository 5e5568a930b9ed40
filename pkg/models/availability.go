package models

import "strings"

// Availability is a coarse per-date declaration of when a leader can work.
type Availability int

const (
	// Unavailable is also the fallback for unrecognized tags.
	Unavailable Availability = iota
	AllDay
	Morning
	Afternoon
	Evening
)

var availabilityTags = map[Availability]string{
	Unavailable: "unavailable",
	AllDay:      "all-day",
	Morning:     "morning",
	Afternoon:   "afternoon",
	Evening:     "evening",
}

// ParseAvailability maps a tag to an Availability. Matching is
// case-insensitive; anything unrecognized is treated as Unavailable so that
// typos in a roster degrade to "not scheduled" instead of failing the run.
func ParseAvailability(tag string) Availability {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "all-day":
		return AllDay
	case "morning":
		return Morning
	case "afternoon":
		return Afternoon
	case "evening":
		return Evening
	default:
		return Unavailable
	}
}

func (a Availability) String() string {
	if s, ok := availabilityTags[a]; ok {
		return s
	}
	return availabilityTags[Unavailable]
}

// MarshalText implements encoding.TextMarshaler.
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails.
func (a *Availability) UnmarshalText(text []byte) error {
	*a = ParseAvailability(string(text))
	return nil
}
