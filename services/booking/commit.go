package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appointmentRepo "cliniq/database/repository/appointment"
	paymentRepo "cliniq/database/repository/payment"
	scheduleRepo "cliniq/database/repository/schedule"
	"cliniq/models"
	"cliniq/services/payment"
	syncsvc "cliniq/services/sync"
	"cliniq/utils"
)

// TaskEnqueuer schedules background follow-up work. Implemented over asynq
// in the cron package; tests substitute a recorder.
type TaskEnqueuer interface {
	EnqueueReconciliation(ctx context.Context, reference, note string) error
	EnqueueReminder(ctx context.Context, appt *models.Appointment) error
}

// CommitCoordinator defers appointment persistence until payment success.
// The sequence is strict: re-validate capacity, open a payment session, and
// only on the gateway's success callback create the appointment, settle the
// payment, and complete the draft. A failed or abandoned payment leaves zero
// appointment records and a draft still sitting at Paying.
type CommitCoordinator struct {
	Drafts       DraftStore
	Schedule     scheduleRepo.ScheduleRepository
	Appointments appointmentRepo.AppointmentRepository
	Payments     paymentRepo.PaymentRepository
	Gateway      payment.Gateway
	Locker       SlotLocker
	Tasks        TaskEnqueuer
	Publisher    syncsvc.Publisher

	mu       sync.Mutex
	inflight map[string]bool
}

// beginOp guards against re-entrant payment initiation for the same draft
// while a gateway call is in flight.
func (cc *CommitCoordinator) beginOp(draftID string) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.inflight == nil {
		cc.inflight = make(map[string]bool)
	}
	if cc.inflight[draftID] {
		return false
	}
	cc.inflight[draftID] = true
	return true
}

func (cc *CommitCoordinator) endOp(draftID string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.inflight, draftID)
}

// BeginPayment re-validates the slot under its lock and opens a payment
// session with the gateway, moving the draft from Confirm to Paying. When
// the slot is gone the draft is routed back to session selection with a
// capacity-lost error.
func (cc *CommitCoordinator) BeginPayment(ctx context.Context, draftID string) (*models.PaymentOrder, error) {
	if !cc.beginOp(draftID) {
		return nil, newError(KindValidation, "a payment is already being initiated for this draft")
	}
	defer cc.endOp(draftID)

	draft, err := cc.Drafts.Load(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, wrapError(KindValidation, "booking draft not found or expired", err)
		}
		return nil, wrapError(KindServer, "failed to load draft", err)
	}
	if draft.Step != models.StepConfirm && draft.Step != models.StepPaying {
		return nil, newError(KindValidation, "draft is not ready for payment (at "+draft.Step.String()+")")
	}
	if draft.DoctorID == "" || draft.Date == "" || draft.SessionID == "" {
		return nil, newError(KindValidation, "doctor, date and session must be selected before payment")
	}

	// Step 1: re-validate slot availability. Client-side ranking data may be
	// stale; the server's answer under the lock is authoritative.
	lockErr := cc.Locker.WithSlotLock(ctx, draft.DoctorID, draft.Date, draft.SessionID, func(ctx context.Context) error {
		remaining, err := cc.Schedule.SlotsRemaining(ctx, draft.DoctorID, draft.Date, draft.SessionID)
		if err != nil {
			return wrapError(KindServer, "capacity re-check failed", err)
		}
		if remaining <= 0 {
			return newError(KindCapacityLost, "the selected slot was taken while you were booking")
		}
		return nil
	})
	if lockErr != nil {
		if IsKind(lockErr, KindCapacityLost) {
			// Step 2: return the machine to session selection.
			draft.Step = models.StepSelectSession
			draft.DoctorID = ""
			if saveErr := cc.Drafts.Save(ctx, draft); saveErr != nil {
				utils.GetLogger().Error("failed to rewind draft after capacity loss", zap.Error(saveErr))
			}
			return nil, lockErr
		}
		if errors.Is(lockErr, ErrSlotLockNotAcquired) {
			return nil, wrapError(KindServer, "slot is being committed by another booking, retry shortly", lockErr)
		}
		return nil, lockErr
	}

	dept, err := cc.Schedule.GetDepartment(ctx, draft.DepartmentID)
	if err != nil {
		return nil, wrapError(KindServer, "failed to load department fee", err)
	}

	// Step 3: initiate the payment session. The reference created here is the
	// idempotency token for everything that follows. Re-entering Paying after
	// a gateway failure reuses the existing reference.
	reference := draft.PaymentRef
	if reference == "" {
		reference = uuid.New().String()
		rec := &models.PaymentRecord{
			Reference: reference,
			DraftID:   draft.DraftID,
			PatientID: draft.Subject.PatientID,
			Amount:    dept.ConsultationFee,
			Currency:  dept.Currency,
		}
		if err := cc.Payments.CreateOrder(ctx, rec); err != nil {
			return nil, wrapError(KindServer, "failed to record payment order", err)
		}
		// Persist before the gateway call so a retry after a gateway failure
		// reuses the same reference.
		draft.PaymentRef = reference
		if err := cc.Drafts.Save(ctx, draft); err != nil {
			return nil, wrapError(KindServer, "failed to persist draft", err)
		}
	}

	order, err := cc.Gateway.CreateOrder(ctx, payment.OrderRequest{
		Reference:   reference,
		PatientID:   draft.Subject.PatientID,
		Amount:      dept.ConsultationFee,
		Currency:    dept.Currency,
		Description: fmt.Sprintf("OPD consultation, %s on %s", dept.Name, draft.Date),
		Metadata:    map[string]string{"draftId": draft.DraftID},
	})
	if err != nil {
		// Fully retryable from the same step; nothing was committed.
		return nil, wrapError(KindGateway, "payment gateway rejected the order", err)
	}

	draft.PaymentRef = reference
	draft.PaymentState = models.PaymentPending
	draft.Step = models.StepPaying
	if err := cc.Drafts.Save(ctx, draft); err != nil {
		return nil, wrapError(KindServer, "failed to persist draft", err)
	}
	return order, nil
}

// ConfirmSettlement handles the gateway's success callback. It is keyed by
// the payment reference: a repeated callback for the same reference returns
// the already-created appointment instead of creating a second one.
func (cc *CommitCoordinator) ConfirmSettlement(ctx context.Context, reference, gatewayRef string) (*models.Appointment, error) {
	logger := utils.GetLogger()

	// Idempotency short-circuit.
	if existing, err := cc.Appointments.GetByPaymentRef(ctx, reference); err == nil && existing != nil {
		return existing, nil
	}

	rec, err := cc.Payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, wrapError(KindServer, "unknown payment reference", err)
	}

	draft, err := cc.Drafts.Load(ctx, rec.DraftID)
	if err != nil {
		// Money moved but the draft is gone; nothing can be rebuilt here.
		cc.flagReconciliation(ctx, reference, "draft expired before settlement")
		return nil, newError(KindReconcile, "payment succeeded but the booking session expired; contact support")
	}

	var appt *models.Appointment
	lockErr := cc.Locker.WithSlotLock(ctx, draft.DoctorID, draft.Date, draft.SessionID, func(ctx context.Context) error {
		remaining, err := cc.Schedule.SlotsRemaining(ctx, draft.DoctorID, draft.Date, draft.SessionID)
		if err != nil {
			return wrapError(KindServer, "capacity re-check failed", err)
		}
		if remaining <= 0 {
			return newError(KindCapacityLost, "the slot was taken during payment")
		}

		// Step 4: create the appointment record, only now that payment
		// succeeded and capacity holds.
		built, err := cc.buildAppointment(ctx, draft, reference)
		if err != nil {
			return err
		}
		if err := cc.Appointments.Create(ctx, built); err != nil {
			if errors.Is(err, appointmentRepo.ErrDuplicatePaymentRef) {
				existing, gerr := cc.Appointments.GetByPaymentRef(ctx, reference)
				if gerr == nil && existing != nil {
					appt = existing
					return nil
				}
			}
			return wrapError(KindReconcile, "appointment creation failed after payment success", err)
		}
		appt = built
		return nil
	})
	if lockErr != nil {
		if IsKind(lockErr, KindCapacityLost) {
			// Paid but no capacity: flag for refund, rewind the draft.
			cc.flagReconciliation(ctx, reference, "capacity lost during payment")
			draft.Step = models.StepSelectSession
			draft.DoctorID = ""
			draft.PaymentState = models.PaymentUnset
			draft.PaymentRef = ""
			_ = cc.Drafts.Save(ctx, draft)
			return nil, lockErr
		}
		if IsKind(lockErr, KindReconcile) {
			cc.flagReconciliation(ctx, reference, lockErr.Error())
			return nil, lockErr
		}
		return nil, lockErr
	}

	// Step 5: settle the payment, tagged with the appointment it paid for.
	settled, err := cc.Payments.MarkSettled(ctx, reference, appt.ID, gatewayRef)
	if err != nil {
		// The appointment exists but its payment record is stuck in created;
		// an operator has to finish the settlement by hand.
		logger.Error("failed to mark payment settled", zap.String("reference", reference), zap.Error(err))
		cc.flagReconciliation(ctx, reference, "appointment created but settlement update failed")
	} else if !settled {
		logger.Info("duplicate settlement callback ignored", zap.String("reference", reference))
	}

	// A reschedule replaces the prior appointment once the new one exists.
	if draft.RescheduleOf != "" {
		if err := cc.Appointments.Cancel(ctx, draft.RescheduleOf); err != nil {
			logger.Warn("failed to cancel prior appointment after reschedule",
				zap.String("appointmentID", draft.RescheduleOf), zap.Error(err))
		}
	}

	// Step 6: the workflow is complete; the draft is discarded.
	if err := cc.Drafts.Clear(ctx, draft.DraftID); err != nil {
		logger.Warn("failed to clear completed draft", zap.Error(err))
	}

	cc.publishCommitEvents(ctx, appt)
	if cc.Tasks != nil {
		if err := cc.Tasks.EnqueueReminder(ctx, appt); err != nil {
			logger.Warn("failed to enqueue reminder", zap.Error(err))
		}
	}
	return appt, nil
}

func (cc *CommitCoordinator) buildAppointment(ctx context.Context, draft *models.BookingDraft, reference string) (*models.Appointment, error) {
	token, err := cc.Appointments.NextTokenNumber(ctx, draft.DoctorID, draft.Date, draft.SessionID)
	if err != nil {
		return nil, wrapError(KindServer, "failed to assign token number", err)
	}

	avgConsult := 10
	if doc, err := cc.Schedule.GetDoctor(ctx, draft.DoctorID); err == nil && doc.AvgConsultMinutes > 0 {
		avgConsult = doc.AvgConsultMinutes
	}

	appt := &models.Appointment{
		ID:              uuid.New().String(),
		PatientID:       draft.Subject.PatientID,
		PatientName:     draft.Subject.Name,
		Dependent:       draft.Subject.Dependent,
		DepartmentID:    draft.DepartmentID,
		DoctorID:        draft.DoctorID,
		Date:            draft.Date,
		SessionID:       draft.SessionID,
		StartTime:       draft.SessionStart,
		Kind:            draft.Kind,
		Symptoms:        draft.Symptoms,
		Status:          models.AppointmentBooked,
		TokenNumber:     token,
		WaitEstimateMin: (token - 1) * avgConsult,
		PaymentRef:      reference,
		CreatedAt:       time.Now(),
	}
	if draft.Kind == models.KindVideo {
		appt.Meeting = &models.MeetingInfo{
			RoomID:   uuid.New().String(),
			Passcode: randomPasscode(),
		}
	}
	return appt, nil
}

func (cc *CommitCoordinator) flagReconciliation(ctx context.Context, reference, note string) {
	logger := utils.GetLogger()
	if err := cc.Payments.FlagForReconciliation(ctx, reference, note); err != nil {
		logger.Error("failed to flag payment for reconciliation",
			zap.String("reference", reference), zap.Error(err))
	}
	if cc.Tasks != nil {
		if err := cc.Tasks.EnqueueReconciliation(ctx, reference, note); err != nil {
			logger.Error("failed to enqueue reconciliation task",
				zap.String("reference", reference), zap.Error(err))
		}
	}
}

func (cc *CommitCoordinator) publishCommitEvents(ctx context.Context, appt *models.Appointment) {
	if cc.Publisher == nil {
		return
	}
	queuePayload, _ := json.Marshal(map[string]interface{}{
		"doctorId":  appt.DoctorID,
		"date":      appt.Date,
		"sessionId": appt.SessionID,
	})
	cc.publish(ctx, models.SyncEvent{Kind: models.EventQueueUpdated, Role: models.RoleDoctor, Payload: queuePayload})
	cc.publish(ctx, models.SyncEvent{Kind: models.EventAvailabilityChanged, Payload: queuePayload})

	apptPayload, _ := json.Marshal(map[string]interface{}{
		"appointmentId": appt.ID,
		"status":        appt.Status,
		"tokenNumber":   appt.TokenNumber,
	})
	cc.publish(ctx, models.SyncEvent{Kind: models.EventAppointmentStatusChanged, Role: models.RoleAdmin, Payload: apptPayload})
	cc.publish(ctx, models.SyncEvent{
		Kind:     models.EventYourAppointmentChanged,
		Role:     models.RolePatient,
		TargetID: appt.PatientID,
		Payload:  apptPayload,
	})
}

func (cc *CommitCoordinator) publish(ctx context.Context, event models.SyncEvent) {
	if err := cc.Publisher.Publish(ctx, event); err != nil {
		utils.GetLogger().Warn("failed to publish sync event",
			zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

func randomPasscode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()[:8]
	}
	return hex.EncodeToString(b)
}
