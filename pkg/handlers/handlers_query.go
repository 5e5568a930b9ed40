package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/orientation-scheduler/pkg/database"
)

// Root describes the service and its read endpoints.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Orientation Leaders API",
		"version": Version,
		"endpoints": gin.H{
			"event_staffing":     "/api/event-staffing",
			"leader_assignments": "/api/leader-assignments",
			"summary":            "/api/summary",
			"leaders":            "/api/leaders",
			"events":             "/api/events",
			"catalog":            "/api/catalog",
			"lookup":             "/api/lookup/{leader_name}",
			"event_leaders":      "/api/event/{event_name}/leaders",
			"leader_details":     "/api/leader/{leader_email}",
			"schedule":           "/api/schedule",
			"health":             "/health",
			"metrics":            "/metrics",
		},
	})
}

// Health reports whether a run has been persisted and its row counts.
func (h *Handler) Health(c *gin.Context) {
	counts, err := h.Store.Counts(c.Request.Context())
	if err != nil {
		h.log().Errorf("health: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unavailable"})
		return
	}
	orientation := 0
	if h.Catalog != nil {
		orientation = len(h.Catalog.Events())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"data_loaded": counts.Runs > 0,
		"data_counts": gin.H{
			"runs":               counts.Runs,
			"run_id":             counts.RunID,
			"leaders":            counts.Leaders,
			"assignments":        counts.Assignments,
			"events":             counts.Events,
			"meal_eligibility":   counts.MealEligibility,
			"orientation_events": orientation,
		},
	})
}

// EventStaffing lists per-event staffing of the latest run.
func (h *Handler) EventStaffing(c *gin.Context) {
	var f database.StaffingFilter
	var err error
	if f.FullyStaffed, err = optionalBool(c, "fully_staffed"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.MinDuration, err = optionalFloat(c, "min_duration"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.MaxDuration, err = optionalFloat(c, "max_duration"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f.TimeSlot = c.Query("time_slot")

	events, err := h.Store.EventStaffing(c.Request.Context(), f)
	if err != nil {
		h.storeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_events": len(events), "events": events})
}

// LeaderAssignments lists assignments of the latest run.
func (h *Handler) LeaderAssignments(c *gin.Context) {
	f := database.AssignmentFilter{
		LeaderEmail: c.Query("leader_email"),
		Event:       c.Query("event"),
		Date:        c.Query("date"),
	}
	var err error
	if f.MinHours, err = optionalFloat(c, "min_hours"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.MaxHours, err = optionalFloat(c, "max_hours"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignments, err := h.Store.Assignments(c.Request.Context(), f)
	if err != nil {
		h.storeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_assignments": len(assignments), "assignments": assignments})
}

// Summary returns the Metric/Value table and the structured summary.
func (h *Handler) Summary(c *gin.Context) {
	run, metrics, err := h.Store.Summary(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "summary": metrics})
}

// Leaders lists assigned leaders by total hours.
func (h *Handler) Leaders(c *gin.Context) {
	stats, err := h.Store.LeaderStats(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_leaders": len(stats), "leaders": stats})
}

// Events lists staffing records with their catalog metadata.
func (h *Handler) Events(c *gin.Context) {
	events, err := h.Store.EventStaffing(c.Request.Context(), database.StaffingFilter{})
	if err != nil {
		h.storeError(c, err, "")
		return
	}
	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, gin.H{
			"event_name":          e.Event,
			"date":                e.Date,
			"start_time":          e.StartTime,
			"end_time":            e.EndTime,
			"time_slot":           e.TimeSlot,
			"duration_hours":      e.DurationHours,
			"leaders_needed":      e.LeadersNeeded,
			"leaders_assigned":    e.LeadersAssigned,
			"staffing_percentage": e.StaffingPercentage,
			"fully_staffed":       e.FullyStaffed,
			"location":            e.Location,
			"is_meal":             e.IsMeal,
			"is_core":             e.IsCore,
			"is_indoor":           e.IsIndoor,
			"is_outdoor":          e.IsOutdoor,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total_events": len(out), "events": out})
}

// CatalogSummary describes the built-in orientation calendar.
func (h *Handler) CatalogSummary(c *gin.Context) {
	if h.Catalog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No catalog configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": h.Catalog.Summary(), "meals": h.Catalog.Meals()})
}

// Lookup finds a leader by email or name fragment and returns their
// schedule with meal eligibility.
func (h *Handler) Lookup(c *gin.Context) {
	query := strings.TrimPrefix(c.Param("name"), "/")
	notFound := fmt.Sprintf("No leader found with name containing '%s'", query)
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}

	ctx := c.Request.Context()
	email, err := h.Store.FindLeader(ctx, query)
	if err != nil {
		h.storeError(c, err, notFound)
		return
	}
	sched, err := h.Store.LeaderSchedule(ctx, email)
	if err != nil {
		h.storeError(c, err, notFound)
		return
	}

	events := make([]gin.H, 0, len(sched.Assignments))
	for _, a := range sched.Assignments {
		events = append(events, gin.H{
			"event_name":     a.Event,
			"date":           a.Date,
			"start_time":     a.StartTime,
			"end_time":       a.EndTime,
			"duration_hours": a.Hours,
			"location":       h.location(a.Event),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"leader_name":      sched.Leader.Name,
		"leader_email":     email,
		"total_events":     len(events),
		"total_hours":      sched.TotalHours,
		"events":           events,
		"meal_eligibility": sched.Meals,
	})
}

func (h *Handler) location(event string) string {
	if h.Catalog != nil {
		if e, ok := h.Catalog.Lookup(event); ok && e.Location != "" {
			return e.Location
		}
	}
	return "Location not specified"
}

// EventLeaders lists the leaders assigned to an event.
func (h *Handler) EventLeaders(c *gin.Context) {
	name := c.Param("name")
	res, err := h.Store.EventLeaders(c.Request.Context(), name)
	if err != nil {
		h.storeError(c, err, fmt.Sprintf("No event found matching '%s'", name))
		return
	}

	st := res.Staffing
	loc := st.Location
	if loc == "" {
		loc = h.location(st.Event)
	}
	leaders := make([]gin.H, 0, len(res.Leaders))
	for _, l := range res.Leaders {
		first, last := "", ""
		if l.Name != l.Email {
			first, last, _ = strings.Cut(l.Name, " ")
		}
		leaders = append(leaders, gin.H{
			"name":       l.Name,
			"email":      l.Email,
			"first_name": first,
			"last_name":  last,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"event_name": st.Event,
		"event_details": gin.H{
			"date":           st.Date,
			"start_time":     st.StartTime,
			"end_time":       st.EndTime,
			"duration_hours": st.DurationHours,
			"location":       loc,
		},
		"staffing_info": st,
		"total_leaders": len(leaders),
		"leaders":       leaders,
	})
}

// LeaderDetails returns a leader's statistics by exact email.
func (h *Handler) LeaderDetails(c *gin.Context) {
	email := c.Param("email")
	sched, err := h.Store.LeaderSchedule(c.Request.Context(), email)
	if err != nil {
		h.storeError(c, err, fmt.Sprintf("No leader found with email: %s", email))
		return
	}

	assignments := make([]gin.H, 0, len(sched.Assignments))
	for _, a := range sched.Assignments {
		assignments = append(assignments, gin.H{
			"event_name":     a.Event,
			"date":           a.Date,
			"start_time":     a.StartTime,
			"end_time":       a.EndTime,
			"time_slot":      a.StartTime + " - " + a.EndTime,
			"duration_hours": a.Hours,
		})
	}
	n := len(sched.Assignments)
	c.JSON(http.StatusOK, gin.H{
		"leader_details": sched.Leader,
		"statistics": gin.H{
			"total_events":            n,
			"total_hours":             sched.TotalHours,
			"average_hours_per_event": sched.TotalHours / float64(n),
		},
		"assignments":      assignments,
		"meal_eligibility": sched.Meals,
	})
}
