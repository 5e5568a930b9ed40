package models

import "sort"

// Leader represents a volunteer who can be assigned to events
type Leader struct {
	Name         string                  `json:"name"`
	Email        string                  `json:"email"`
	Availability map[string]Availability `json:"availability"`
}

// AvailabilityOn returns the declared availability for a date label.
// Dates without an entry are unavailable.
func (l Leader) AvailabilityOn(date string) Availability {
	if a, ok := l.Availability[date]; ok {
		return a
	}
	return Unavailable
}

// Event represents a time-boxed slot that needs a number of leaders
type Event struct {
	Name          string `json:"name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	LeadersNeeded int    `json:"leaders_needed"`

	// Catalog metadata, not used for scheduling
	Location  string `json:"location,omitempty"`
	IsMeal    bool   `json:"is_meal,omitempty"`
	IsCore    bool   `json:"is_core,omitempty"`
	IsIndoor  bool   `json:"is_indoor,omitempty"`
	IsOutdoor bool   `json:"is_outdoor,omitempty"`
}

// Assignment represents a leader-event pairing
type Assignment struct {
	LeaderEmail string  `json:"leader_email"`
	Event       string  `json:"event"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Hours       float64 `json:"hours"`
}

// EventStaffing is the staffing outcome for one event
type EventStaffing struct {
	AssignedLeaders    []string `json:"assigned_leaders"`
	Date               string   `json:"date"`
	LeadersNeeded      int      `json:"leaders_needed"`
	LeadersAssigned    int      `json:"leaders_assigned"`
	AdjustedTarget     int      `json:"adjusted_target"`
	FullyStaffed       bool     `json:"fully_staffed"`
	StaffingPercentage float64  `json:"staffing_percentage"`
	TimeSlot           string   `json:"time_slot"`
	DurationHours      float64  `json:"duration_hours"`
}

// TimeConflict records two overlapping assignments of the same leader
type TimeConflict struct {
	Leader            string    `json:"leader"`
	ConflictingEvents [2]string `json:"conflicting_events"`
	OverlapTime       string    `json:"overlap_time"`
}

// StaffingMetrics aggregates staffing percentages across events
type StaffingMetrics struct {
	AvgStaffingPercentage float64 `json:"avg_staffing_percentage"`
	MinStaffingPercentage float64 `json:"min_staffing_percentage"`
	EventsBelow50Percent  int     `json:"events_below_50_percent"`
}

// LaborCompliance aggregates assigned hours across leaders
type LaborCompliance struct {
	LeadersOverCap    []string `json:"leaders_over_cap"`
	AvgHoursPerLeader float64  `json:"avg_hours_per_leader"`
	MaxHoursAssigned  float64  `json:"max_hours_assigned"`
}

// SchedulingSummary is the aggregate view of a scheduling run
type SchedulingSummary struct {
	FullyStaffedEvents           []string        `json:"fully_staffed_events"`
	UnderstaffedEvents           []string        `json:"understaffed_events"`
	CriticallyUnderstaffedEvents []string        `json:"critically_understaffed_events"`
	UnassignedLeaders            []string        `json:"unassigned_leaders"`
	TotalAssignmentHours         float64         `json:"total_assignment_hours"`
	StaffingMetrics              StaffingMetrics `json:"staffing_metrics"`
	LaborCompliance              LaborCompliance `json:"labor_compliance"`
	FairnessScore                float64         `json:"fairness_score"`
}

// Result is the output bundle of a scheduling run
type Result struct {
	LeaderAssignments map[string][]Assignment  `json:"leader_assignments"`
	EventStaffing     map[string]EventStaffing `json:"event_staffing"`
	SchedulingSummary SchedulingSummary        `json:"scheduling_summary"`
	TimeConflicts     []TimeConflict           `json:"time_conflicts"`

	// Input order, used to flatten the maps deterministically
	LeaderOrder []string `json:"-"`
	EventOrder  []string `json:"-"`
}

// Assignments flattens LeaderAssignments in leader input order. When the
// order is unknown (e.g. a decoded result) leaders are sorted by email.
func (r *Result) Assignments() []Assignment {
	order := r.LeaderOrder
	if len(order) == 0 {
		order = make([]string, 0, len(r.LeaderAssignments))
		for email := range r.LeaderAssignments {
			order = append(order, email)
		}
		sort.Strings(order)
	}

	var out []Assignment
	for _, email := range order {
		out = append(out, r.LeaderAssignments[email]...)
	}
	return out
}

// Events returns event names in input order, falling back to sorted names.
func (r *Result) Events() []string {
	if len(r.EventOrder) > 0 {
		return r.EventOrder
	}
	names := make([]string, 0, len(r.EventStaffing))
	for name := range r.EventStaffing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
