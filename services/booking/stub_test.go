package booking

import (
	"context"
	"errors"
	"sync"

	appointmentRepo "cliniq/database/repository/appointment"
	"cliniq/models"
)

// fakeSchedule answers capacity queries from in-memory fixtures. Hook fields
// override individual calls for failure-injection.
type fakeSchedule struct {
	departments map[string]*models.Department
	doctors     map[string]*models.Doctor
	sessions    map[string][]models.Session            // dept|date
	sessionDocs map[string][]models.DoctorAvailability // dept|date|start
	slots       map[string]int                         // doctor|date|session

	listSessionsErr func(departmentID, date string) error
	listDoctorsErr  error
	slotsErr        error
}

func newFakeSchedule() *fakeSchedule {
	return &fakeSchedule{
		departments: make(map[string]*models.Department),
		doctors:     make(map[string]*models.Doctor),
		sessions:    make(map[string][]models.Session),
		sessionDocs: make(map[string][]models.DoctorAvailability),
		slots:       make(map[string]int),
	}
}

func (f *fakeSchedule) GetDepartment(_ context.Context, departmentID string) (*models.Department, error) {
	dept, ok := f.departments[departmentID]
	if !ok {
		return nil, errors.New("department not found")
	}
	return dept, nil
}

func (f *fakeSchedule) ListSessions(_ context.Context, departmentID, date string) ([]models.Session, error) {
	if f.listSessionsErr != nil {
		if err := f.listSessionsErr(departmentID, date); err != nil {
			return nil, err
		}
	}
	return f.sessions[departmentID+"|"+date], nil
}

func (f *fakeSchedule) ListAvailableDoctors(_ context.Context, departmentID, date, startTime string) ([]models.DoctorAvailability, error) {
	if f.listDoctorsErr != nil {
		return nil, f.listDoctorsErr
	}
	return f.sessionDocs[departmentID+"|"+date+"|"+startTime], nil
}

func (f *fakeSchedule) SlotsRemaining(_ context.Context, doctorID, date, sessionID string) (int, error) {
	if f.slotsErr != nil {
		return 0, f.slotsErr
	}
	return f.slots[doctorID+"|"+date+"|"+sessionID], nil
}

func (f *fakeSchedule) GetDoctor(_ context.Context, doctorID string) (*models.Doctor, error) {
	doc, ok := f.doctors[doctorID]
	if !ok {
		return nil, errors.New("doctor not found")
	}
	return doc, nil
}

// fakeAppointments is an in-memory AppointmentRepository.
type fakeAppointments struct {
	mu           sync.Mutex
	appts        map[string]*models.Appointment
	hasActive    bool
	hasActiveErr error
	createErr    error
	creates      int
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{appts: make(map[string]*models.Appointment)}
}

func (f *fakeAppointments) Create(_ context.Context, appt *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.appts {
		if existing.PaymentRef == appt.PaymentRef {
			return appointmentRepo.ErrDuplicatePaymentRef
		}
	}
	f.creates++
	cp := *appt
	f.appts[appt.ID] = &cp
	return nil
}

func (f *fakeAppointments) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appts[id]
	if !ok {
		return nil, errors.New("appointment not found")
	}
	cp := *appt
	return &cp, nil
}

func (f *fakeAppointments) GetByPaymentRef(_ context.Context, reference string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, appt := range f.appts {
		if appt.PaymentRef == reference {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAppointments) HasActiveBooking(_ context.Context, patientID, doctorID, date string) (bool, error) {
	if f.hasActiveErr != nil {
		return false, f.hasActiveErr
	}
	return f.hasActive, nil
}

func (f *fakeAppointments) CountAhead(_ context.Context, doctorID, date, sessionID string) (int, error) {
	return f.countBooked(doctorID, date, sessionID), nil
}

func (f *fakeAppointments) NextTokenNumber(_ context.Context, doctorID, date, sessionID string) (int, error) {
	return f.countBooked(doctorID, date, sessionID) + 1, nil
}

func (f *fakeAppointments) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appts[id]
	if !ok {
		return errors.New("appointment not found")
	}
	appt.Status = models.AppointmentCancelled
	return nil
}

func (f *fakeAppointments) countBooked(doctorID, date, sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, appt := range f.appts {
		if appt.DoctorID == doctorID && appt.Date == date && appt.SessionID == sessionID && appt.Status == models.AppointmentBooked {
			n++
		}
	}
	return n
}

// fakePayments is an in-memory PaymentRepository.
type fakePayments struct {
	mu        sync.Mutex
	records   map[string]*models.PaymentRecord
	settleErr error
}

func newFakePayments() *fakePayments {
	return &fakePayments{records: make(map[string]*models.PaymentRecord)}
}

func (f *fakePayments) CreateOrder(_ context.Context, rec *models.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	cp.Status = models.PaymentOrderCreated
	f.records[rec.Reference] = &cp
	return nil
}

func (f *fakePayments) GetByReference(_ context.Context, reference string) (*models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[reference]
	if !ok {
		return nil, errors.New("payment record not found")
	}
	cp := *rec
	return &cp, nil
}

func (f *fakePayments) MarkSettled(_ context.Context, reference, appointmentID, gatewayRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settleErr != nil {
		return false, f.settleErr
	}
	rec, ok := f.records[reference]
	if !ok {
		return false, errors.New("payment record not found")
	}
	if rec.Status != models.PaymentOrderCreated {
		return false, nil
	}
	rec.Status = models.PaymentOrderSettled
	rec.AppointmentID = appointmentID
	rec.GatewayRef = gatewayRef
	return true, nil
}

func (f *fakePayments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakePayments) FlagForReconciliation(_ context.Context, reference, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[reference]
	if !ok {
		return errors.New("payment record not found")
	}
	rec.Status = models.PaymentOrderReconcile
	rec.FailureNote = note
	return nil
}
