package scheduler

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/arnavshah/orientation-scheduler/pkg/models"
)

// CriticalStaffingPercentage is the threshold below which an event is
// critically understaffed.
const CriticalStaffingPercentage = 50.0

// Summarize computes the scheduling summary for a finished bundle. It only
// reads its inputs, so calling it again on the same bundle gives the same
// values. Lists follow the leader and event input order.
func Summarize(leaders []models.Leader, events []models.Event, assignments map[string][]models.Assignment, staffing map[string]models.EventStaffing, maxHours float64) models.SchedulingSummary {
	sum := models.SchedulingSummary{
		FullyStaffedEvents:           []string{},
		UnderstaffedEvents:           []string{},
		CriticallyUnderstaffedEvents: []string{},
		UnassignedLeaders:            []string{},
		LaborCompliance:              models.LaborCompliance{LeadersOverCap: []string{}},
	}

	var percentages []float64
	for _, ev := range events {
		info, ok := staffing[ev.Name]
		if !ok {
			continue
		}
		if info.FullyStaffed {
			sum.FullyStaffedEvents = append(sum.FullyStaffedEvents, ev.Name)
		} else {
			sum.UnderstaffedEvents = append(sum.UnderstaffedEvents, ev.Name)
		}
		if info.StaffingPercentage < CriticalStaffingPercentage {
			sum.CriticallyUnderstaffedEvents = append(sum.CriticallyUnderstaffedEvents, ev.Name)
		}
		percentages = append(percentages, info.StaffingPercentage)
	}

	hours := make([]float64, 0, len(leaders))
	var total, maxAssigned float64
	active := 0
	for _, leader := range leaders {
		list := assignments[leader.Email]
		if len(list) == 0 {
			sum.UnassignedLeaders = append(sum.UnassignedLeaders, leader.Email)
		}
		var h float64
		for _, a := range list {
			h += a.Hours
		}
		hours = append(hours, h)
		total += h
		if h > 0 {
			active++
		}
		if h > maxAssigned {
			maxAssigned = h
		}
		if h > maxHours {
			sum.LaborCompliance.LeadersOverCap = append(sum.LaborCompliance.LeadersOverCap, leader.Email)
		}
	}

	sum.TotalAssignmentHours = round1(total)
	sum.LaborCompliance.MaxHoursAssigned = round1(maxAssigned)
	if active > 0 {
		sum.LaborCompliance.AvgHoursPerLeader = round1(total / float64(active))
	}

	if len(percentages) > 0 {
		minPct := percentages[0]
		var pctTotal float64
		for _, p := range percentages {
			pctTotal += p
			minPct = math.Min(minPct, p)
		}
		sum.StaffingMetrics.AvgStaffingPercentage = round1(pctTotal / float64(len(percentages)))
		sum.StaffingMetrics.MinStaffingPercentage = round1(minPct)
	}
	sum.StaffingMetrics.EventsBelow50Percent = len(sum.CriticallyUnderstaffedEvents)
	sum.FairnessScore = round1(FairnessScore(hours))

	return sum
}

// FairnessScore returns a percentage (0-100) representing how evenly hours
// are distributed. 100% is perfectly fair (standard deviation = 0).
func FairnessScore(hours []float64) float64 {
	if len(hours) == 0 {
		return 100.0
	}
	mean, std := stat.PopMeanStdDev(hours, nil)
	if mean == 0 {
		return 100.0 // Everyone having 0 hours is perfectly fair
	}

	// 100% means SD is 0. 0% means SD is >= mean.
	score := (1.0 - std/mean) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
