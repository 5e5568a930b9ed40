package scheduler

import (
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/timeofday"
)

// DetectConflicts re-checks every pair of same-date assignments per leader.
// A correct run yields an empty list; anything else means the overlap guard
// in Run was bypassed.
func DetectConflicts(leaders []string, assignments map[string][]models.Assignment) ([]models.TimeConflict, error) {
	conflicts := []models.TimeConflict{}
	for _, email := range leaders {
		list := assignments[email]
		slots := make([]timeofday.Range, len(list))
		for i, a := range list {
			slot, err := timeofday.ParseRange(a.StartTime, a.EndTime)
			if err != nil {
				return nil, &EventError{Event: a.Event, Err: err}
			}
			slots[i] = slot
		}

		for i := range list {
			for j := i + 1; j < len(list); j++ {
				if list[i].Date != list[j].Date || !slots[i].Overlaps(slots[j]) {
					continue
				}
				conflicts = append(conflicts, models.TimeConflict{
					Leader:            email,
					ConflictingEvents: [2]string{list[i].Event, list[j].Event},
					OverlapTime:       slots[i].Intersection(slots[j]).String(),
				})
			}
		}
	}
	return conflicts, nil
}
