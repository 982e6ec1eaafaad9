package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"cliniq/config"
	appointmentRepo "cliniq/database/repository/appointment"
	paymentRepo "cliniq/database/repository/payment"
	"cliniq/models"
	syncsvc "cliniq/services/sync"
	"cliniq/utils"
)

const (
	TypeReconcilePayment = "payment:reconcile"
	TypeReminderSend     = "reminder:send"
)

// Appointment reminders fire this long before the session start.
const reminderLead = time.Hour

type reconcilePayload struct {
	Reference string `json:"reference"`
	Note      string `json:"note"`
}

type reminderPayload struct {
	AppointmentID string `json:"appointmentId"`
	PatientID     string `json:"patientId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	TokenNumber   int    `json:"tokenNumber"`
}

// Enqueuer schedules background tasks over asynq. It satisfies the booking
// package's TaskEnqueuer port.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer() *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})}
}

func (e *Enqueuer) EnqueueReconciliation(ctx context.Context, reference, note string) error {
	b, err := json.Marshal(reconcilePayload{Reference: reference, Note: note})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeReconcilePayment, b)
	_, err = e.client.EnqueueContext(ctx, task, asynq.MaxRetry(10))
	return err
}

func (e *Enqueuer) EnqueueReminder(ctx context.Context, appt *models.Appointment) error {
	b, err := json.Marshal(reminderPayload{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		TokenNumber:   appt.TokenNumber,
	})
	if err != nil {
		return err
	}

	fireAt := time.Now().Add(time.Minute)
	if start, perr := time.ParseInLocation("2006-01-02 15:04", appt.Date+" "+appt.StartTime, time.Local); perr == nil {
		if at := start.Add(-reminderLead); at.After(fireAt) {
			fireAt = at
		}
	}

	task := asynq.NewTask(TypeReminderSend, b)
	_, err = e.client.EnqueueContext(ctx, task, asynq.ProcessAt(fireAt))
	return err
}

// InitTaskWorker runs the async worker in background.
func InitTaskWorker(payments paymentRepo.PaymentRepository, appointments appointmentRepo.AppointmentRepository, publisher syncsvc.Publisher) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReconcilePayment, handleReconcileTask(payments, publisher))
	mux.HandleFunc(TypeReminderSend, handleReminderTask(appointments, publisher))

	go monitorRedisConnection()

	go func() {
		log.Println("[TaskWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[TaskWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[TaskWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// handleReconcileTask surfaces a paid-but-uncommitted payment to admins. The
// record stays in needs_reconciliation until an operator resolves it; the
// task's job is to make sure someone sees it.
func handleReconcileTask(payments paymentRepo.PaymentRepository, publisher syncsvc.Publisher) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p reconcilePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid reconcile payload", zap.Error(err))
			return err
		}

		rec, err := payments.GetByReference(ctx, p.Reference)
		if err != nil {
			return err
		}
		if rec.Status != models.PaymentOrderReconcile {
			// Resolved between enqueue and execution.
			return nil
		}

		utils.GetLogger().Warn("payment awaiting reconciliation",
			zap.String("reference", p.Reference),
			zap.String("patientID", rec.PatientID),
			zap.Float64("amount", rec.Amount),
			zap.String("note", p.Note))

		payload, _ := json.Marshal(map[string]interface{}{
			"reference": p.Reference,
			"patientId": rec.PatientID,
			"amount":    rec.Amount,
			"note":      p.Note,
		})
		return publisher.Publish(ctx, models.SyncEvent{
			Kind:    models.EventSystemAlert,
			Role:    models.RoleAdmin,
			Payload: payload,
		})
	}
}

func handleReminderTask(appointments appointmentRepo.AppointmentRepository, publisher syncsvc.Publisher) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p reminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid reminder payload", zap.Error(err))
			return err
		}

		appt, err := appointments.GetByID(ctx, p.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status != models.AppointmentBooked {
			// Cancelled or already completed; nothing to remind about.
			return nil
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"appointmentId": p.AppointmentID,
			"date":          p.Date,
			"startTime":     p.StartTime,
			"tokenNumber":   p.TokenNumber,
		})
		return publisher.Publish(ctx, models.SyncEvent{
			Kind:     models.EventYourAppointmentChanged,
			Role:     models.RolePatient,
			TargetID: p.PatientID,
			Payload:  payload,
		})
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[TaskWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
