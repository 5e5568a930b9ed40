package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/orientation-scheduler/pkg/csvio"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/scheduler"
)

// leaderRequest accepts availability either as a date->tag object or as the
// roster string "Aug 25: all-day | Aug 26: morning".
type leaderRequest struct {
	Name         string          `json:"name"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Email        string          `json:"email"`
	Availability json.RawMessage `json:"availability"`
}

func (l leaderRequest) leader() (models.Leader, error) {
	name := l.Name
	if name == "" {
		name = strings.TrimSpace(l.FirstName + " " + l.LastName)
	}
	out := models.Leader{Name: name, Email: l.Email, Availability: map[string]models.Availability{}}

	raw := bytes.TrimSpace(l.Availability)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return out, fmt.Errorf("leader %q: availability: %w", l.Email, err)
		}
		out.Availability = csvio.ParseAvailabilityString(s)
	default:
		if err := json.Unmarshal(raw, &out.Availability); err != nil {
			return out, fmt.Errorf("leader %q: availability: %w", l.Email, err)
		}
	}
	return out, nil
}

// ScheduleRequest is the body of the JSON scheduling and validation endpoints.
// Events may be omitted to schedule against the built-in catalog.
type ScheduleRequest struct {
	Leaders []leaderRequest `json:"leaders"`
	Events  []models.Event  `json:"events,omitempty"`
	Persist bool            `json:"persist,omitempty"`
}

func (h *Handler) snapshot(req ScheduleRequest) ([]models.Leader, []models.Event, error) {
	leaders := make([]models.Leader, 0, len(req.Leaders))
	for _, l := range req.Leaders {
		leader, err := l.leader()
		if err != nil {
			return nil, nil, err
		}
		leaders = append(leaders, leader)
	}
	return leaders, h.events(req.Events), nil
}

func (h *Handler) events(events []models.Event) []models.Event {
	if h.Catalog == nil {
		return events
	}
	if len(events) == 0 {
		return h.Catalog.Events()
	}
	return h.Catalog.Enrich(events)
}

func (h *Handler) mealWindows() []meals.Window {
	if h.Catalog == nil {
		return nil
	}
	return h.Catalog.Meals()
}

type outcome struct {
	sched       *scheduler.Scheduler
	result      *models.Result
	eligibility []meals.Eligibility
	runID       string
}

// run schedules one snapshot, records metrics and usage, and optionally
// persists it. On failure the response has already been written.
func (h *Handler) run(c *gin.Context, source string, leaders []models.Leader, events []models.Event, persist bool) (*outcome, bool) {
	s := scheduler.NewScheduler(leaders, events)
	if h.MaxHours > 0 {
		s.MaxHours = h.MaxHours
	}

	start := time.Now()
	res, err := s.Run()
	if err != nil {
		h.Recorder.ObserveFailure(source)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	eligibility, err := meals.Derive(h.mealWindows(), res.Assignments())
	if err != nil {
		h.Recorder.ObserveFailure(source)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	h.Recorder.ObserveRun(source, res, time.Since(start))
	h.recordUsage(c, len(events), len(leaders))

	out := &outcome{sched: s, result: res, eligibility: eligibility}
	if persist {
		rec, err := h.Store.SaveRun(c.Request.Context(), database.Run{
			Source:      source,
			Leaders:     leaders,
			Events:      events,
			Result:      res,
			Allocation:  s.Allocation,
			Rounds:      s.Rounds,
			MealWindows: h.mealWindows(),
			Meals:       eligibility,
		})
		if err != nil {
			h.log().Errorf("persist run: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not persist schedule"})
			return nil, false
		}
		out.runID = rec.UUID
		h.log().Infof("persisted run %s: %d leaders, %d events", rec.UUID, len(leaders), len(events))
	}
	return out, true
}

// ScheduleJSON handles the JSON-based scheduling request
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Leaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one leader is required"})
		return
	}
	leaders, events, err := h.snapshot(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, ok := h.run(c, "api", leaders, events, req.Persist)
	if !ok {
		return
	}
	res := out.result
	c.JSON(http.StatusOK, gin.H{
		"run_id":             out.runID,
		"leader_assignments": res.LeaderAssignments,
		"event_staffing":     res.EventStaffing,
		"scheduling_summary": res.SchedulingSummary,
		"time_conflicts":     res.TimeConflicts,
		"meal_eligibility":   out.eligibility,
		"allocation":         out.sched.Allocation,
		"rounds":             out.sched.Rounds,
	})
}

func readUpload[T any](fh *multipart.FileHeader, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := fh.Open()
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	return v, nil
}

type csvExport struct {
	suffix string
	write  func(io.Writer) error
}

// ScheduleCSV handles CSV file uploads for scheduling and returns the output
// tables as CSV strings keyed by file suffix.
func (h *Handler) ScheduleCSV(c *gin.Context) {
	leadersFile, _ := c.FormFile("leaders_file")
	eventsFile, _ := c.FormFile("events_file")
	if leadersFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "leaders_file is required"})
		return
	}

	leaders, err := readUpload(leadersFile, csvio.ReadLeaders)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var events []models.Event
	if eventsFile != nil {
		if events, err = readUpload(eventsFile, csvio.ReadEvents); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	persist, _ := strconv.ParseBool(c.PostForm("persist"))

	out, ok := h.run(c, "api_csv", leaders, h.events(events), persist)
	if !ok {
		return
	}

	res := out.result
	tables := []csvExport{
		{csvio.SuffixLeaderAssignments, func(w io.Writer) error { return csvio.WriteLeaderAssignments(w, res) }},
		{csvio.SuffixEventStaffing, func(w io.Writer) error { return csvio.WriteEventStaffing(w, res) }},
		{csvio.SuffixSummary, func(w io.Writer) error { return csvio.WriteSummary(w, res.SchedulingSummary) }},
		{csvio.SuffixMealEligibility, func(w io.Writer) error { return csvio.WriteMealEligibility(w, out.eligibility) }},
	}
	if len(res.TimeConflicts) > 0 {
		tables = append(tables, csvExport{csvio.SuffixTimeConflicts, func(w io.Writer) error { return csvio.WriteConflicts(w, res.TimeConflicts) }})
	}

	files := make(map[string]string, len(tables))
	for _, t := range tables {
		var buf strings.Builder
		if err := t.write(&buf); err != nil {
			h.log().Errorf("export %s: %v", t.suffix, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not export CSV"})
			return
		}
		files[strings.TrimPrefix(t.suffix, "_")] = buf.String()
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  out.runID,
		"csv":     files["leader_assignments.csv"],
		"files":   files,
		"summary": res.SchedulingSummary,
	})
}
