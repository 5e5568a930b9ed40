package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnavshah/orientation-scheduler/pkg/csvio"
	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/scheduler"
)

var (
	// ErrNoRun is returned by queries before any run has been saved.
	ErrNoRun = errors.New("no schedule run has been saved")
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

const batchSize = 200

// Store persists run snapshots and answers read-only queries on the latest one.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open, migrated connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Run is everything produced by one engine invocation.
type Run struct {
	Source      string
	Leaders     []models.Leader
	Events      []models.Event
	Result      *models.Result
	Allocation  scheduler.Allocation
	Rounds      int
	MealWindows []meals.Window
	Meals       []meals.Eligibility
}

// SaveRun writes a full snapshot in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) (*ScheduleRun, error) {
	if run.Result == nil {
		return nil, errors.New("save run: nil result")
	}
	res := run.Result

	eventPos := make(map[string]int, len(run.Events))
	var dates []string
	seenDate := make(map[string]bool)
	for i, e := range run.Events {
		eventPos[e.Name] = i
		if !seenDate[e.Date] {
			seenDate[e.Date] = true
			dates = append(dates, e.Date)
		}
	}

	assignments := res.Assignments()
	rec := &ScheduleRun{
		UUID:             uuid.NewString(),
		Source:           run.Source,
		TotalLeaders:     len(run.Leaders),
		TotalEvents:      len(run.Events),
		TotalAssignments: len(assignments),
		TotalDemand:      run.Allocation.TotalDemand,
		TotalSupply:      run.Allocation.TotalSupply,
		ShortageRatio:    run.Allocation.ShortageRatio,
		Rounds:           run.Rounds,
		Summary:          res.SchedulingSummary,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}

		leaders := make([]LeaderRecord, 0, len(run.Leaders))
		for i, l := range run.Leaders {
			leaders = append(leaders, LeaderRecord{
				RunID:        rec.ID,
				Position:     i,
				Name:         l.Name,
				Email:        l.Email,
				Availability: csvio.FormatAvailability(dates, l.Availability),
			})
		}

		rows := make([]AssignmentRecord, 0, len(assignments))
		for i, a := range assignments {
			rows = append(rows, AssignmentRecord{
				RunID:         rec.ID,
				Position:      i,
				EventPosition: eventPos[a.Event],
				LeaderEmail:   a.LeaderEmail,
				Event:         a.Event,
				Date:          a.Date,
				StartTime:     a.StartTime,
				EndTime:       a.EndTime,
				Hours:         a.Hours,
			})
		}

		staffing := make([]EventStaffingRecord, 0, len(run.Events))
		for i, e := range run.Events {
			st := res.EventStaffing[e.Name]
			staffing = append(staffing, EventStaffingRecord{
				RunID:              rec.ID,
				Position:           i,
				Event:              e.Name,
				Date:               e.Date,
				StartTime:          e.StartTime,
				EndTime:            e.EndTime,
				LeadersNeeded:      st.LeadersNeeded,
				LeadersAssigned:    st.LeadersAssigned,
				AdjustedTarget:     st.AdjustedTarget,
				StaffingPercentage: st.StaffingPercentage,
				FullyStaffed:       st.FullyStaffed,
				TimeSlot:           st.TimeSlot,
				DurationHours:      st.DurationHours,
				Location:           e.Location,
				IsMeal:             e.IsMeal,
				IsCore:             e.IsCore,
				IsIndoor:           e.IsIndoor,
				IsOutdoor:          e.IsOutdoor,
			})
		}

		var metrics []SummaryMetric
		for i, row := range csvio.SummaryRows(res.SchedulingSummary) {
			metrics = append(metrics, SummaryMetric{RunID: rec.ID, Position: i, Metric: row[0], Value: row[1]})
		}

		var conflicts []ConflictRecord
		for _, c := range res.TimeConflicts {
			conflicts = append(conflicts, ConflictRecord{
				RunID:       rec.ID,
				Leader:      c.Leader,
				EventA:      c.ConflictingEvents[0],
				EventB:      c.ConflictingEvents[1],
				OverlapTime: c.OverlapTime,
			})
		}

		windows := make(map[string]meals.Window, len(run.MealWindows))
		for _, w := range run.MealWindows {
			windows[w.Name] = w
		}
		var eligibility []MealEligibilityRecord
		for i, e := range run.Meals {
			w := windows[e.MealEvent]
			eligibility = append(eligibility, MealEligibilityRecord{
				RunID:       rec.ID,
				Position:    i,
				MealEvent:   e.MealEvent,
				Date:        w.Date,
				StartTime:   w.StartTime,
				EndTime:     w.EndTime,
				Location:    w.Location,
				LeaderEmail: e.Leader,
				Reason:      e.Reason,
			})
		}

		if err := createAll(tx, leaders); err != nil {
			return err
		}
		if err := createAll(tx, rows); err != nil {
			return err
		}
		if err := createAll(tx, staffing); err != nil {
			return err
		}
		if err := createAll(tx, metrics); err != nil {
			return err
		}
		if err := createAll(tx, conflicts); err != nil {
			return err
		}
		return createAll(tx, eligibility)
	})
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return rec, nil
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

// LatestRun returns the most recently saved run.
func (s *Store) LatestRun(ctx context.Context) (*ScheduleRun, error) {
	var run ScheduleRun
	if err := s.db.WithContext(ctx).Order("id desc").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRun
		}
		return nil, err
	}
	return &run, nil
}

func (s *Store) latest(ctx context.Context) (*gorm.DB, *ScheduleRun, error) {
	run, err := s.LatestRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.db.WithContext(ctx), run, nil
}

func contains(q string) string {
	return "%" + strings.ToLower(q) + "%"
}

// AssignmentFilter narrows Assignments. Text fields match case-insensitive
// substrings except Date, which matches exactly.
type AssignmentFilter struct {
	LeaderEmail string
	Event       string
	Date        string
	MinHours    *float64
	MaxHours    *float64
}

// Assignments lists the latest run's assignments in leader order.
func (s *Store) Assignments(ctx context.Context, f AssignmentFilter) ([]AssignmentRecord, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Where("run_id = ?", run.ID)
	if f.LeaderEmail != "" {
		q = q.Where("LOWER(leader_email) LIKE ?", contains(f.LeaderEmail))
	}
	if f.Event != "" {
		q = q.Where("LOWER(event) LIKE ?", contains(f.Event))
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.MinHours != nil {
		q = q.Where("hours >= ?", *f.MinHours)
	}
	if f.MaxHours != nil {
		q = q.Where("hours <= ?", *f.MaxHours)
	}
	out := []AssignmentRecord{}
	if err := q.Order("position").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// StaffingFilter narrows EventStaffing.
type StaffingFilter struct {
	FullyStaffed *bool
	TimeSlot     string
	MinDuration  *float64
	MaxDuration  *float64
}

// EventStaffing lists the latest run's events in input order.
func (s *Store) EventStaffing(ctx context.Context, f StaffingFilter) ([]EventStaffingRecord, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Where("run_id = ?", run.ID)
	if f.FullyStaffed != nil {
		q = q.Where("fully_staffed = ?", *f.FullyStaffed)
	}
	if f.TimeSlot != "" {
		q = q.Where("LOWER(time_slot) LIKE ?", contains(f.TimeSlot))
	}
	if f.MinDuration != nil {
		q = q.Where("duration_hours >= ?", *f.MinDuration)
	}
	if f.MaxDuration != nil {
		q = q.Where("duration_hours <= ?", *f.MaxDuration)
	}
	out := []EventStaffingRecord{}
	if err := q.Order("position").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Summary returns the latest run with its Metric/Value rows.
func (s *Store) Summary(ctx context.Context) (*ScheduleRun, []SummaryMetric, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return nil, nil, err
	}
	metrics := []SummaryMetric{}
	if err := db.Where("run_id = ?", run.ID).Order("position").Find(&metrics).Error; err != nil {
		return nil, nil, err
	}
	return run, metrics, nil
}

// LeaderStat is a leader's workload in the latest run.
type LeaderStat struct {
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	EventCount int     `json:"event_count"`
	TotalHours float64 `json:"total_hours"`
}

// LeaderStats lists leaders with at least one assignment, busiest first.
func (s *Store) LeaderStats(ctx context.Context) ([]LeaderStat, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Email         string
		EventCount    int
		TotalHours    float64
		FirstPosition int
	}
	err = db.Model(&AssignmentRecord{}).
		Select("leader_email AS email, COUNT(*) AS event_count, SUM(hours) AS total_hours, MIN(position) AS first_position").
		Where("run_id = ?", run.ID).
		Group("leader_email").
		Order("total_hours DESC, first_position").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	names, err := s.leaderNames(db, run.ID)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderStat, 0, len(rows))
	for _, r := range rows {
		name := names[r.Email]
		if name == "" {
			name = r.Email
		}
		out = append(out, LeaderStat{FullName: name, Email: r.Email, EventCount: r.EventCount, TotalHours: r.TotalHours})
	}
	return out, nil
}

func (s *Store) leaderNames(db *gorm.DB, runID uint) (map[string]string, error) {
	var leaders []LeaderRecord
	if err := db.Where("run_id = ?", runID).Find(&leaders).Error; err != nil {
		return nil, err
	}
	names := make(map[string]string, len(leaders))
	for _, l := range leaders {
		names[l.Email] = strings.TrimSpace(l.Name)
	}
	return names, nil
}

// FindLeader resolves a free-text query to a leader email. Emails of assigned
// leaders are searched first, then leader names.
func (s *Store) FindLeader(ctx context.Context, query string) (string, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return "", err
	}
	var a AssignmentRecord
	err = db.Where("run_id = ? AND LOWER(leader_email) LIKE ?", run.ID, contains(query)).Order("position").First(&a).Error
	if err == nil {
		return a.LeaderEmail, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var l LeaderRecord
	err = db.Where("run_id = ? AND LOWER(name) LIKE ?", run.ID, contains(query)).Order("position").First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("leader %q: %w", query, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return l.Email, nil
}

// LeaderSchedule is a leader's assignments and meals in the latest run.
type LeaderSchedule struct {
	Leader      LeaderRecord
	Assignments []AssignmentRecord
	Meals       []MealEligibilityRecord
	TotalHours  float64
}

// LeaderSchedule loads the schedule of an exact email. A leader with no
// assignments is reported as not found.
func (s *Store) LeaderSchedule(ctx context.Context, email string) (*LeaderSchedule, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	out := &LeaderSchedule{Leader: LeaderRecord{Email: email, Name: email}}

	if err := db.Where("run_id = ? AND leader_email = ?", run.ID, email).
		Order("event_position, position").Find(&out.Assignments).Error; err != nil {
		return nil, err
	}
	if len(out.Assignments) == 0 {
		return nil, fmt.Errorf("leader %q: %w", email, ErrNotFound)
	}
	for _, a := range out.Assignments {
		out.TotalHours += a.Hours
	}

	var l LeaderRecord
	err = db.Where("run_id = ? AND email = ?", run.ID, email).First(&l).Error
	switch {
	case err == nil:
		out.Leader = l
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	out.Meals = []MealEligibilityRecord{}
	if err := db.Where("run_id = ? AND leader_email = ?", run.ID, email).Order("position").Find(&out.Meals).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// EventLeaders is an event's staffing with the leaders assigned to it.
type EventLeaders struct {
	Staffing EventStaffingRecord
	Leaders  []LeaderRecord
}

// EventLeaders resolves name by exact, then case-insensitive, then partial
// match and returns the leaders on the matched event sorted by name.
func (s *Store) EventLeaders(ctx context.Context, name string) (*EventLeaders, error) {
	db, run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	base := func() *gorm.DB { return db.Where("run_id = ?", run.ID).Order("position") }

	var st EventStaffingRecord
	tries := []func() *gorm.DB{
		func() *gorm.DB { return base().Where("event = ?", name) },
		func() *gorm.DB { return base().Where("LOWER(event) = ?", strings.ToLower(name)) },
		func() *gorm.DB { return base().Where("LOWER(event) LIKE ?", contains(name)) },
	}
	found := false
	for _, try := range tries {
		err := try().First(&st).Error
		if err == nil {
			found = true
			break
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if !found {
		return nil, fmt.Errorf("event %q: %w", name, ErrNotFound)
	}

	var emails []string
	if err := db.Model(&AssignmentRecord{}).Where("run_id = ? AND event = ?", run.ID, st.Event).
		Order("position").Pluck("leader_email", &emails).Error; err != nil {
		return nil, err
	}
	names, err := s.leaderNames(db, run.ID)
	if err != nil {
		return nil, err
	}

	out := &EventLeaders{Staffing: st, Leaders: make([]LeaderRecord, 0, len(emails))}
	for _, e := range emails {
		n := names[e]
		if n == "" {
			n = e
		}
		out.Leaders = append(out.Leaders, LeaderRecord{Name: n, Email: e})
	}
	sort.SliceStable(out.Leaders, func(i, j int) bool { return out.Leaders[i].Name < out.Leaders[j].Name })
	return out, nil
}

// Counts reports row counts of the latest run.
type Counts struct {
	Runs            int64  `json:"runs"`
	RunID           string `json:"run_id,omitempty"`
	Leaders         int64  `json:"leaders"`
	Assignments     int64  `json:"assignments"`
	Events          int64  `json:"events"`
	MealEligibility int64  `json:"meal_eligibility"`
}

// Counts never returns ErrNoRun; an empty store yields zero counts.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&ScheduleRun{}).Count(&c.Runs).Error; err != nil {
		return c, err
	}
	run, err := s.LatestRun(ctx)
	if errors.Is(err, ErrNoRun) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	c.RunID = run.UUID
	for model, dst := range map[any]*int64{
		&LeaderRecord{}:          &c.Leaders,
		&AssignmentRecord{}:      &c.Assignments,
		&EventStaffingRecord{}:   &c.Events,
		&MealEligibilityRecord{}: &c.MealEligibility,
	} {
		if err := db.Model(model).Where("run_id = ?", run.ID).Count(dst).Error; err != nil {
			return c, err
		}
	}
	return c, nil
}
