package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/orientation-scheduler/pkg/scheduler"
)

// ValidateInput checks a scheduling request without assigning anyone and
// reports the demand/supply picture.
func (h *Handler) ValidateInput(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(req.Leaders) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "At least one leader is required",
		})
		return
	}

	leaders, events, err := h.snapshot(req)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	if len(events) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one event is required"})
		return
	}

	s := scheduler.NewScheduler(leaders, events)
	if h.MaxHours > 0 {
		s.MaxHours = h.MaxHours
	}
	alloc, err := s.Plan()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"leader_count":   len(leaders),
			"event_count":    len(events),
			"total_demand":   alloc.TotalDemand,
			"total_supply":   alloc.TotalSupply,
			"shortage_ratio": alloc.ShortageRatio,
			"shortage":       alloc.Shortage(),
		},
	})
}
