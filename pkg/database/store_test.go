package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/scheduler"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewStore(db)
}

func testRun(t *testing.T) Run {
	t.Helper()
	leaders := []models.Leader{
		{Name: "Alice Smith", Email: "alice@school.edu", Availability: map[string]models.Availability{"Aug 25": models.AllDay}},
		{Name: "Bob Jones", Email: "bob@school.edu", Availability: map[string]models.Availability{"Aug 25": models.Morning}},
		{Name: "Cara Diaz", Email: "cara@school.edu", Availability: map[string]models.Availability{"Aug 25": models.Afternoon}},
	}
	events := []models.Event{
		{Name: "Campus Tour", Date: "Aug 25", StartTime: "9:00am", EndTime: "11:00am", LeadersNeeded: 2, Location: "Main Gate"},
		{Name: "Lunch Social", Date: "Aug 25", StartTime: "12:00pm", EndTime: "1:00pm", LeadersNeeded: 1, IsMeal: true},
		{Name: "Trivia Night", Date: "Aug 25", StartTime: "7:00pm", EndTime: "9:00pm", LeadersNeeded: 2},
	}
	windows := []meals.Window{{Name: "Dean's Lunch", Date: "Aug 25", StartTime: "12:00pm", EndTime: "1:30pm", Location: "Trinity Quad"}}

	s := scheduler.NewScheduler(leaders, events)
	res, err := s.Run()
	require.NoError(t, err)
	eligibility, err := meals.Derive(windows, res.Assignments())
	require.NoError(t, err)

	return Run{
		Source:      "test",
		Leaders:     leaders,
		Events:      events,
		Result:      res,
		Allocation:  s.Allocation,
		Rounds:      s.Rounds,
		MealWindows: windows,
		Meals:       eligibility,
	}
}

func ptr[T any](v T) *T { return &v }

func TestQueriesBeforeAnyRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNoRun)
	_, err = st.Assignments(ctx, AssignmentFilter{})
	assert.ErrorIs(t, err, ErrNoRun)
	_, err = st.FindLeader(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoRun)

	c, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)
}

func TestSaveRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)
	assert.Len(t, run.UUID, 36)
	assert.Equal(t, 3, run.TotalLeaders)
	assert.Equal(t, 4, run.TotalAssignments)
	assert.Equal(t, 5, run.TotalDemand)
	assert.Equal(t, 5, run.TotalSupply)
	assert.Equal(t, 2, run.Rounds)

	latest, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.UUID, latest.UUID)
	assert.Equal(t, []string{"Trivia Night"}, latest.Summary.UnderstaffedEvents)

	c, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Runs: 1, RunID: run.UUID, Leaders: 3, Assignments: 4, Events: 3, MealEligibility: 3}, c)

	_, metrics, err := st.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 7)
	assert.Equal(t, "Total Assignment Hours", metrics[0].Metric)
	assert.Equal(t, "7.0", metrics[0].Value)
}

func TestSaveRun_NilResult(t *testing.T) {
	st := newTestStore(t)
	_, err := st.SaveRun(context.Background(), Run{})
	assert.Error(t, err)
}

func TestLatestRunWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)
	second, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	c, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.Runs)
	assert.Equal(t, second.UUID, c.RunID)
	assert.EqualValues(t, 4, c.Assignments)
}

func TestAssignments_Filters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter AssignmentFilter
		want   int
	}{
		{name: "all", filter: AssignmentFilter{}, want: 4},
		{name: "email is case-insensitive", filter: AssignmentFilter{LeaderEmail: "ALICE"}, want: 2},
		{name: "event contains", filter: AssignmentFilter{Event: "tour"}, want: 2},
		{name: "date is exact", filter: AssignmentFilter{Date: "Aug 25"}, want: 4},
		{name: "date case matters", filter: AssignmentFilter{Date: "aug 25"}, want: 0},
		{name: "min hours", filter: AssignmentFilter{MinHours: ptr(2.0)}, want: 3},
		{name: "max hours", filter: AssignmentFilter{MaxHours: ptr(1.0)}, want: 1},
		{name: "combined", filter: AssignmentFilter{LeaderEmail: "alice", Event: "trivia"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.Assignments(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	all, err := st.Assignments(ctx, AssignmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, "alice@school.edu", all[0].LeaderEmail)
	assert.Equal(t, "cara@school.edu", all[3].LeaderEmail)
}

func TestEventStaffing_Filters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter StaffingFilter
		want   []string
	}{
		{name: "all in input order", filter: StaffingFilter{}, want: []string{"Campus Tour", "Lunch Social", "Trivia Night"}},
		{name: "understaffed", filter: StaffingFilter{FullyStaffed: ptr(false)}, want: []string{"Trivia Night"}},
		{name: "time slot", filter: StaffingFilter{TimeSlot: "PM"}, want: []string{"Lunch Social", "Trivia Night"}},
		{name: "min duration", filter: StaffingFilter{MinDuration: ptr(2.0)}, want: []string{"Campus Tour", "Trivia Night"}},
		{name: "max duration", filter: StaffingFilter{MaxDuration: ptr(1.5)}, want: []string{"Lunch Social"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.EventStaffing(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, e := range got {
				names = append(names, e.Event)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	got, err := st.EventStaffing(ctx, StaffingFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Main Gate", got[0].Location)
	assert.True(t, got[1].IsMeal)
	assert.Equal(t, 50.0, got[2].StaffingPercentage)
}

func TestLeaderStats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	stats, err := st.LeaderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LeaderStat{
		{FullName: "Alice Smith", Email: "alice@school.edu", EventCount: 2, TotalHours: 4},
		{FullName: "Bob Jones", Email: "bob@school.edu", EventCount: 1, TotalHours: 2},
		{FullName: "Cara Diaz", Email: "cara@school.edu", EventCount: 1, TotalHours: 1},
	}, stats)
}

func TestFindLeader(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	email, err := st.FindLeader(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, "bob@school.edu", email)

	email, err = st.FindLeader(ctx, "diaz")
	require.NoError(t, err)
	assert.Equal(t, "cara@school.edu", email)

	_, err = st.FindLeader(ctx, "zed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaderSchedule(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	sched, err := st.LeaderSchedule(ctx, "alice@school.edu")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", sched.Leader.Name)
	assert.Equal(t, "Aug 25: all-day", sched.Leader.Availability)
	require.Len(t, sched.Assignments, 2)
	assert.Equal(t, "Campus Tour", sched.Assignments[0].Event)
	assert.Equal(t, "Trivia Night", sched.Assignments[1].Event)
	assert.Equal(t, 4.0, sched.TotalHours)
	require.Len(t, sched.Meals, 1)
	assert.Equal(t, meals.ReasonAdjacent, sched.Meals[0].Reason)
	assert.Equal(t, "Trinity Quad", sched.Meals[0].Location)

	cara, err := st.LeaderSchedule(ctx, "cara@school.edu")
	require.NoError(t, err)
	require.Len(t, cara.Meals, 1)
	assert.Equal(t, meals.ReasonDuring, cara.Meals[0].Reason)

	_, err = st.LeaderSchedule(ctx, "nobody@school.edu")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventLeaders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.SaveRun(ctx, testRun(t))
	require.NoError(t, err)

	tests := []struct {
		query string
		event string
		names []string
	}{
		{query: "Campus Tour", event: "Campus Tour", names: []string{"Alice Smith", "Bob Jones"}},
		{query: "campus tour", event: "Campus Tour", names: []string{"Alice Smith", "Bob Jones"}},
		{query: "trivia", event: "Trivia Night", names: []string{"Alice Smith"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := st.EventLeaders(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.event, got.Staffing.Event)
			var names []string
			for _, l := range got.Leaders {
				names = append(names, l.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}

	_, err = st.EventLeaders(ctx, "karaoke")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeysAndUsage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	k1, err := st.TouchKey(ctx, "alpha.signature", "alpha")
	require.NoError(t, err)
	require.NotNil(t, k1.LastUsed)
	assert.Equal(t, DefaultRateLimit, k1.RateLimit)
	assert.Equal(t, "alp...ture", k1.KeyPreview)

	k2, err := st.TouchKey(ctx, "alpha.signature", "alpha")
	require.NoError(t, err)
	assert.Equal(t, k1.ID, k2.ID)

	require.NoError(t, st.RecordUsage(ctx, k1.ID, 10, 3))
	require.NoError(t, st.RecordUsage(ctx, k1.ID, 5, 2))

	usage, err := st.Usage(ctx, k1.ID, 30)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 2, usage[0].RequestCount)
	assert.Equal(t, 15, usage[0].TotalEvents)
	assert.Equal(t, 5, usage[0].TotalLeaders)

	n, err := st.RequestsOn(ctx, k1.ID, usage[0].Date)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, st.UpdateKeyLimit(ctx, k1.ID, 5))
	assert.ErrorIs(t, st.UpdateKeyLimit(ctx, 999, 5), ErrNotFound)

	k3, err := st.TouchKey(ctx, "alpha.signature", "alpha")
	require.NoError(t, err)
	assert.Equal(t, k1.ID, k3.ID)
	assert.Equal(t, 5, k3.RateLimit)

	require.NoError(t, st.RevokeKey(ctx, k1.ID))
	assert.ErrorIs(t, st.RevokeKey(ctx, k1.ID), ErrNotFound)
	keys, err := st.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = st.TouchKey(ctx, "alpha.signature", "alpha")
	assert.ErrorIs(t, err, ErrKeyRevoked)
	keys, err = st.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	usage, err = st.Usage(ctx, k1.ID, 30)
	require.NoError(t, err)
	assert.Len(t, usage, 1)
}

func TestTouchKey_KeepsStoredFields(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateKey(ctx, &APIKey{Key: "beta.signature", Name: "ops team", KeyPreview: "custom", RateLimit: 3}))

	k, err := st.TouchKey(ctx, "beta.signature", "beta")
	require.NoError(t, err)
	assert.Equal(t, 3, k.RateLimit)
	assert.Equal(t, "ops team", k.Name)
	assert.Equal(t, "custom", k.KeyPreview)
	require.NotNil(t, k.LastUsed)

	keys, err := st.ListKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestUsageDate(t *testing.T) {
	east := time.FixedZone("UTC+10", 10*60*60)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "utc", at: time.Date(2025, 8, 25, 23, 30, 0, 0, time.UTC), want: "2025-08-25"},
		{name: "ahead of utc", at: time.Date(2025, 8, 26, 5, 0, 0, 0, east), want: "2025-08-25"},
		{name: "behind utc", at: time.Date(2025, 8, 25, 20, 0, 0, 0, time.FixedZone("UTC-5", -5*60*60)), want: "2025-08-26"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsageDate(tt.at))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "****", Preview("short"))
	assert.Equal(t, "abc...6789", Preview("abcdef0123456789"))
}
