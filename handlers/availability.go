package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cliniq/services/booking"
)

// AvailabilityHandler serves read-only availability views outside the wizard
// (landing screens, doctor dashboards). The data is advisory; booking commits
// always re-check.
type AvailabilityHandler struct {
	Availability *booking.AvailabilityResolver
}

// ListDates returns bookable dates in the rolling window for a department.
func (h *AvailabilityHandler) ListDates(c *gin.Context) {
	dates, err := h.Availability.ListAvailableDates(c.Request.Context(), c.Param("departmentID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// ListSessions returns the sessions on a given date.
func (h *AvailabilityHandler) ListSessions(c *gin.Context) {
	sessions, err := h.Availability.ListSessions(c.Request.Context(), c.Param("departmentID"), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ListDoctors returns per-doctor load for a session, ranked as fetched.
func (h *AvailabilityHandler) ListDoctors(c *gin.Context) {
	start := c.Query("start")
	if start == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start query parameter is required (HH:MM)"})
		return
	}
	doctors, err := h.Availability.ListAvailableDoctors(c.Request.Context(), c.Param("departmentID"), c.Param("date"), start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doctors": doctors})
}
