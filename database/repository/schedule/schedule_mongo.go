package scheduleRepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cliniq/database"
	"cliniq/models"
)

// scheduleEntry is one doctor's assignment to a session on a date.
type scheduleEntry struct {
	DepartmentID string `bson:"department_id"`
	DoctorID     string `bson:"doctor_id"`
	Date         string `bson:"date"`
	SessionID    string `bson:"session_id"`
	Label        string `bson:"label"`
	StartTime    string `bson:"start_time"`
	EndTime      string `bson:"end_time"`
	Capacity     int    `bson:"capacity"`
}

type mongoScheduleRepo struct {
	schedules    *mongo.Collection
	appointments *mongo.Collection
	doctors      *mongo.Collection
	departments  *mongo.Collection
}

// NewMongoScheduleRepo returns the production ScheduleRepository.
func NewMongoScheduleRepo() ScheduleRepository {
	db := database.MongoClient.Database("cliniq")
	repo := &mongoScheduleRepo{
		schedules:    db.Collection("schedules"),
		appointments: db.Collection("appointments"),
		doctors:      db.Collection("doctors"),
		departments:  db.Collection("departments"),
	}
	if err := repo.ensureIndexes(); err != nil {
		panic(fmt.Sprintf("schedule repo: failed to ensure indexes: %v", err))
	}
	return repo
}

func (r *mongoScheduleRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "department_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("department_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "doctor_id", Value: 1}, {Key: "date", Value: 1}, {Key: "session_id", Value: 1}},
			Options: options.Index().SetName("doctor_date_session_idx"),
		},
	}
	_, err := r.schedules.Indexes().CreateMany(ctx, indexModels)
	return err
}

func (r *mongoScheduleRepo) GetDepartment(ctx context.Context, departmentID string) (*models.Department, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var dept models.Department
	if err := r.departments.FindOne(ctx, bson.M{"id": departmentID}).Decode(&dept); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *mongoScheduleRepo) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc models.Doctor
	if err := r.doctors.FindOne(ctx, bson.M{"id": doctorID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *mongoScheduleRepo) ListSessions(ctx context.Context, departmentID, date string) ([]models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.schedules.Find(ctx, bson.M{"department_id": departmentID, "date": date})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []scheduleEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	// Group doctor assignments into sessions and attach queue metrics.
	now := time.Now()
	grouped := make(map[string]*models.Session)
	for _, e := range entries {
		avail, err := r.doctorAvailability(ctx, e, now)
		if err != nil {
			return nil, err
		}
		sess, ok := grouped[e.SessionID]
		if !ok {
			sess = &models.Session{
				ID:        e.SessionID,
				Label:     e.Label,
				StartTime: e.StartTime,
				EndTime:   e.EndTime,
			}
			grouped[e.SessionID] = sess
		}
		sess.Doctors = append(sess.Doctors, avail)
		if avail.HasAvailableSlots {
			sess.DoctorCount++
		}
	}

	sessions := make([]models.Session, 0, len(grouped))
	for _, sess := range grouped {
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime < sessions[j].StartTime
	})
	return sessions, nil
}

func (r *mongoScheduleRepo) ListAvailableDoctors(ctx context.Context, departmentID, date, startTime string) ([]models.DoctorAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"department_id": departmentID, "date": date, "start_time": startTime}
	cursor, err := r.schedules.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []scheduleEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	now := time.Now()
	doctors := make([]models.DoctorAvailability, 0, len(entries))
	for _, e := range entries {
		avail, err := r.doctorAvailability(ctx, e, now)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, avail)
	}
	return doctors, nil
}

func (r *mongoScheduleRepo) SlotsRemaining(ctx context.Context, doctorID, date, sessionID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entry scheduleEntry
	filter := bson.M{"doctor_id": doctorID, "date": date, "session_id": sessionID}
	if err := r.schedules.FindOne(ctx, filter).Decode(&entry); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	booked, err := r.bookedCount(ctx, doctorID, date, sessionID)
	if err != nil {
		return 0, err
	}
	remaining := entry.Capacity - booked
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (r *mongoScheduleRepo) doctorAvailability(ctx context.Context, e scheduleEntry, now time.Time) (models.DoctorAvailability, error) {
	booked, err := r.bookedCount(ctx, e.DoctorID, e.Date, e.SessionID)
	if err != nil {
		return models.DoctorAvailability{}, err
	}

	var doc models.Doctor
	if err := r.doctors.FindOne(ctx, bson.M{"id": e.DoctorID}).Decode(&doc); err != nil {
		return models.DoctorAvailability{}, err
	}

	avgConsult := doc.AvgConsultMinutes
	if avgConsult <= 0 {
		avgConsult = 10
	}

	return models.DoctorAvailability{
		DoctorID:          e.DoctorID,
		DoctorName:        doc.Name,
		PatientsAhead:     booked,
		AvgWaitMinutes:    booked * avgConsult,
		HasAvailableSlots: !doc.OnLeave && booked < e.Capacity,
		FetchedAt:         now,
	}, nil
}

func (r *mongoScheduleRepo) bookedCount(ctx context.Context, doctorID, date, sessionID string) (int, error) {
	filter := bson.M{
		"doctor_id":  doctorID,
		"date":       date,
		"session_id": sessionID,
		"status":     models.AppointmentBooked,
	}
	count, err := r.appointments.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
