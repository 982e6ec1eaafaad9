package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cliniq/models"
	"cliniq/services/booking"
)

// BookingHandler exposes the booking wizard and the payment commit flow over
// HTTP. Every wizard endpoint responds with the updated draft so the client
// always renders from server state.
type BookingHandler struct {
	Wizard *booking.Wizard
	Commit *booking.CommitCoordinator
}

// StartBooking creates a fresh draft at the first step.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	draft, err := h.Wizard.Start(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": draft})
}

// StartReschedule seeds a draft from a prior appointment.
func (h *BookingHandler) StartReschedule(c *gin.Context) {
	var input struct {
		AppointmentID  string `json:"appointmentId" binding:"required"`
		KeepDepartment bool   `json:"keepDepartment"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, err := h.Wizard.StartReschedule(c.Request.Context(), input.AppointmentID, input.KeepDepartment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": draft})
}

// ResumeBooking reloads a persisted draft along with refreshed availability
// for every choice already made.
func (h *BookingHandler) ResumeBooking(c *gin.Context) {
	data, err := h.Wizard.Resume(c.Request.Context(), c.Param("draftID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// ChooseSubject records who the appointment is for.
func (h *BookingHandler) ChooseSubject(c *gin.Context) {
	var input models.Subject
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, err := h.Wizard.ChooseSubject(c.Request.Context(), c.Param("draftID"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// ChooseKind records in-person or video.
func (h *BookingHandler) ChooseKind(c *gin.Context) {
	var input struct {
		Kind models.AppointmentKind `json:"kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, err := h.Wizard.ChooseKind(c.Request.Context(), c.Param("draftID"), input.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// ChooseDepartment records the department and optional symptom description.
func (h *BookingHandler) ChooseDepartment(c *gin.Context) {
	var input struct {
		DepartmentID string `json:"departmentId" binding:"required"`
		Symptoms     string `json:"symptoms"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, err := h.Wizard.ChooseDepartment(c.Request.Context(), c.Param("draftID"), input.DepartmentID, input.Symptoms)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// ChooseDate records the date and returns the sessions available on it.
func (h *BookingHandler) ChooseDate(c *gin.Context) {
	var input struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, sessions, err := h.Wizard.ChooseDate(c.Request.Context(), c.Param("draftID"), input.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft, "sessions": sessions})
}

// ChooseSession records the session and returns the doctors available in it.
func (h *BookingHandler) ChooseSession(c *gin.Context) {
	var input struct {
		SessionID string `json:"sessionId" binding:"required"`
		StartTime string `json:"startTime" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, doctors, err := h.Wizard.ChooseSession(c.Request.Context(), c.Param("draftID"), input.SessionID, input.StartTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft, "doctors": doctors})
}

// ChooseDoctor records the selected doctor after the conflict check clears.
func (h *BookingHandler) ChooseDoctor(c *gin.Context) {
	var input struct {
		DoctorID string `json:"doctorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft, err := h.Wizard.ChooseDoctor(c.Request.Context(), c.Param("draftID"), input.DoctorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// AutoAssignDoctor picks the least-loaded available doctor for the patient.
func (h *BookingHandler) AutoAssignDoctor(c *gin.Context) {
	draft, err := h.Wizard.AutoAssignDoctor(c.Request.Context(), c.Param("draftID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// Back moves the draft one step backward.
func (h *BookingHandler) Back(c *gin.Context) {
	draft, err := h.Wizard.Back(c.Request.Context(), c.Param("draftID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// AbandonBooking discards the draft.
func (h *BookingHandler) AbandonBooking(c *gin.Context) {
	if err := h.Wizard.Abandon(c.Request.Context(), c.Param("draftID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}

// RefreshSessions re-fetches sessions for the draft's current date. A stale
// result maps to 204: the client keeps what it has.
func (h *BookingHandler) RefreshSessions(c *gin.Context) {
	sessions, err := h.Wizard.RefreshSessions(c.Request.Context(), c.Param("draftID"))
	if err != nil {
		if errors.Is(err, booking.ErrStaleFetch) {
			c.Status(http.StatusNoContent)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// BeginPayment re-validates the slot and opens a payment session.
func (h *BookingHandler) BeginPayment(c *gin.Context) {
	order, err := h.Commit.BeginPayment(c.Request.Context(), c.Param("draftID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// PaymentCallback handles the gateway's success notification. Replays of the
// same reference return the already-created appointment.
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	var input struct {
		Reference  string `json:"reference" binding:"required"`
		GatewayRef string `json:"gatewayRef"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	appt, err := h.Commit.ConfirmSettlement(c.Request.Context(), input.Reference, input.GatewayRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appt})
}
