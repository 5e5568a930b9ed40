package meals

import (
	"fmt"

	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/timeofday"
)

// Reasons recorded for an eligible leader.
const (
	ReasonDuring   = "Working during meal time"
	ReasonAdjacent = "Working adjacent shift"
)

// AdjacentMinutes is how close a shift must end before, or start after, a
// meal to count as adjacent.
const AdjacentMinutes = 120

// Window is a meal served on a given date.
type Window struct {
	Name      string `json:"name" yaml:"name"`
	Date      string `json:"date" yaml:"date"`
	StartTime string `json:"start_time" yaml:"start_time"`
	EndTime   string `json:"end_time" yaml:"end_time"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Eligibility entitles a leader to a meal.
type Eligibility struct {
	MealEvent string `json:"meal_event"`
	Leader    string `json:"eligible_leader"`
	Reason    string `json:"reason"`
}

// Derive lists, for every meal in order, the leaders whose assignments on the
// meal's date overlap it or sit within AdjacentMinutes of it. Assignments are
// scanned in the given order and exact duplicates are dropped.
func Derive(windows []Window, assignments []models.Assignment) ([]Eligibility, error) {
	shifts := make([]timeofday.Range, len(assignments))
	for i, a := range assignments {
		r, err := timeofday.ParseRange(a.StartTime, a.EndTime)
		if err != nil {
			return nil, fmt.Errorf("assignment %s/%s: %w", a.LeaderEmail, a.Event, err)
		}
		shifts[i] = r
	}

	out := []Eligibility{}
	seen := make(map[Eligibility]bool)
	for _, w := range windows {
		meal, err := timeofday.ParseRange(w.StartTime, w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("meal %q: %w", w.Name, err)
		}
		for i, a := range assignments {
			if a.Date != w.Date {
				continue
			}
			reason, ok := Reason(meal, shifts[i])
			if !ok {
				continue
			}
			e := Eligibility{MealEvent: w.Name, Leader: a.LeaderEmail, Reason: reason}
			if seen[e] {
				continue
			}
			seen[e] = true
			out = append(out, e)
		}
	}
	return out, nil
}

// Reason classifies a same-date shift against a meal.
func Reason(meal, shift timeofday.Range) (string, bool) {
	// Any overlap counts, including a shift that sits wholly inside the meal.
	if meal.Overlaps(shift) {
		return ReasonDuring, true
	}
	if abs(int(shift.End-meal.Start)) <= AdjacentMinutes || abs(int(meal.End-shift.Start)) <= AdjacentMinutes {
		return ReasonAdjacent, true
	}
	return "", false
}

// ForLeader filters eligibility records down to one leader.
func ForLeader(records []Eligibility, email string) []Eligibility {
	out := []Eligibility{}
	for _, e := range records {
		if e.Leader == email {
			out = append(out, e)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
