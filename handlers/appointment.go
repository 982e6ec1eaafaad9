package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appointmentRepo "cliniq/database/repository/appointment"
	"cliniq/models"
	syncsvc "cliniq/services/sync"
)

// AppointmentHandler serves confirmed appointment records.
type AppointmentHandler struct {
	Appointments appointmentRepo.AppointmentRepository
	Publisher    syncsvc.Publisher
}

// GetAppointment returns a single appointment by ID.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	appt, err := h.Appointments.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
		return
	}
	c.JSON(http.StatusOK, appt)
}

// CancelAppointment cancels a booked appointment and notifies the affected
// doctor queue and the patient.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	appt, err := h.Appointments.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
		return
	}
	if appt.Status != models.AppointmentBooked {
		c.JSON(http.StatusConflict, gin.H{"error": "appointment is not cancellable (status " + appt.Status + ")"})
		return
	}
	if err := h.Appointments.Cancel(ctx, appt.ID); err != nil {
		getLogger(c).Error("failed to cancel appointment", zap.String("id", appt.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel appointment"})
		return
	}

	if h.Publisher != nil {
		queuePayload, _ := json.Marshal(map[string]string{
			"doctorId":  appt.DoctorID,
			"date":      appt.Date,
			"sessionId": appt.SessionID,
		})
		_ = h.Publisher.Publish(ctx, models.SyncEvent{
			Kind: models.EventQueueUpdated, Role: models.RoleDoctor, Payload: queuePayload,
		})
		apptPayload, _ := json.Marshal(map[string]string{
			"appointmentId": appt.ID,
			"status":        models.AppointmentCancelled,
		})
		_ = h.Publisher.Publish(ctx, models.SyncEvent{
			Kind:     models.EventYourAppointmentChanged,
			Role:     models.RolePatient,
			TargetID: appt.PatientID,
			Payload:  apptPayload,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": models.AppointmentCancelled})
}
