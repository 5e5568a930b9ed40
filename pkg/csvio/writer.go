package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
)

// DefaultPrefix is the file name prefix of a written result bundle.
const DefaultPrefix = "enhanced_orientation_assignments"

// Output file suffixes.
const (
	SuffixLeaderAssignments = "_leader_assignments.csv"
	SuffixEventStaffing     = "_event_staffing.csv"
	SuffixSummary           = "_summary.csv"
	SuffixTimeConflicts     = "_time_conflicts.csv"
	SuffixMealEligibility   = "_meal_eligibility.csv"
)

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteLeaderAssignments writes one row per assignment, in leader order.
func WriteLeaderAssignments(w io.Writer, res *models.Result) error {
	var rows [][]string
	for _, a := range res.Assignments() {
		rows = append(rows, []string{a.LeaderEmail, a.Event, a.Date, a.StartTime, a.EndTime, formatFloat(a.Hours)})
	}
	return writeAll(w, []string{"Leader Email", "Event", "Date", "Start Time", "End Time", "Hours"}, rows)
}

// WriteEventStaffing writes one row per event, in event order.
func WriteEventStaffing(w io.Writer, res *models.Result) error {
	var rows [][]string
	for _, name := range res.Events() {
		st := res.EventStaffing[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(st.LeadersNeeded),
			strconv.Itoa(st.LeadersAssigned),
			formatFloat(st.StaffingPercentage),
			formatBool(st.FullyStaffed),
			st.TimeSlot,
			formatFloat(st.DurationHours),
		})
	}
	return writeAll(w, []string{
		"Event", "Leaders Needed", "Leaders Assigned", "Staffing Percentage",
		"Fully Staffed", "Time Slot", "Duration (hours)",
	}, rows)
}

// SummaryRows flattens a summary into metric/value pairs.
func SummaryRows(sum models.SchedulingSummary) [][]string {
	return [][]string{
		{"Total Assignment Hours", formatFloat(sum.TotalAssignmentHours)},
		{"Average Staffing Percentage", formatFloat(sum.StaffingMetrics.AvgStaffingPercentage)},
		{"Minimum Staffing Percentage", formatFloat(sum.StaffingMetrics.MinStaffingPercentage)},
		{"Events Below 50% Staffed", strconv.Itoa(sum.StaffingMetrics.EventsBelow50Percent)},
		{"Average Hours Per Leader", formatFloat(sum.LaborCompliance.AvgHoursPerLeader)},
		{"Max Hours Assigned", formatFloat(sum.LaborCompliance.MaxHoursAssigned)},
		{"Fairness Score", formatFloat(sum.FairnessScore)},
	}
}

// WriteSummary writes the Metric,Value table.
func WriteSummary(w io.Writer, sum models.SchedulingSummary) error {
	return writeAll(w, []string{"Metric", "Value"}, SummaryRows(sum))
}

// WriteConflicts writes residual conflicts.
func WriteConflicts(w io.Writer, conflicts []models.TimeConflict) error {
	var rows [][]string
	for _, c := range conflicts {
		rows = append(rows, []string{c.Leader, strings.Join(c.ConflictingEvents[:], ", "), c.OverlapTime})
	}
	return writeAll(w, []string{"Leader", "Conflicting Events", "Overlap Time"}, rows)
}

// WriteMealEligibility writes Meal Event,Eligible Leader,Reason rows.
func WriteMealEligibility(w io.Writer, records []meals.Eligibility) error {
	var rows [][]string
	for _, e := range records {
		rows = append(rows, []string{e.MealEvent, e.Leader, e.Reason})
	}
	return writeAll(w, []string{"Meal Event", "Eligible Leader", "Reason"}, rows)
}

// WriteResult writes the whole bundle under dir using prefix and returns the
// paths written. The conflicts file is only written when there are conflicts,
// and the meal file only when eligibility is non-nil.
func WriteResult(dir, prefix string, res *models.Result, eligibility []meals.Eligibility) ([]string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	type output struct {
		suffix string
		write  func(io.Writer) error
	}
	outputs := []output{
		{SuffixLeaderAssignments, func(w io.Writer) error { return WriteLeaderAssignments(w, res) }},
		{SuffixEventStaffing, func(w io.Writer) error { return WriteEventStaffing(w, res) }},
		{SuffixSummary, func(w io.Writer) error { return WriteSummary(w, res.SchedulingSummary) }},
	}
	if len(res.TimeConflicts) > 0 {
		outputs = append(outputs, output{SuffixTimeConflicts, func(w io.Writer) error { return WriteConflicts(w, res.TimeConflicts) }})
	}
	if eligibility != nil {
		outputs = append(outputs, output{SuffixMealEligibility, func(w io.Writer) error { return WriteMealEligibility(w, eligibility) }})
	}

	var paths []string
	for _, o := range outputs {
		path := filepath.Join(dir, prefix+o.suffix)
		if err := WriteFile(path, o.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFile creates path and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// formatFloat keeps at least one decimal, so 2 prints as "2.0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
