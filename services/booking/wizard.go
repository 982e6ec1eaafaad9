package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appointmentRepo "cliniq/database/repository/appointment"
	"cliniq/models"
	"cliniq/utils"
)

// ErrStaleFetch marks a fetch whose result no longer matches the draft's
// current selection. The caller discards the result silently.
var ErrStaleFetch = errors.New("fetch result is stale for the current draft state")

// ResumeData is what the wizard proactively re-fetches when a draft is
// resumed, so the client never acts on a now-invalid selection.
type ResumeData struct {
	Draft    *models.BookingDraft        `json:"draft"`
	Dates    []models.DateAvailability   `json:"dates,omitempty"`
	Sessions []models.Session            `json:"sessions,omitempty"`
	Doctors  []models.DoctorAvailability `json:"doctors,omitempty"`
}

// Wizard drives the strictly-ordered booking workflow. Every forward
// transition is local except Confirm→Paying (owned by the commit
// coordinator); availability re-fetches are preconditions of date/session
// transitions, not side effects.
type Wizard struct {
	Drafts       DraftStore
	Availability *AvailabilityResolver
	Conflicts    *ConflictGuard
	Appointments appointmentRepo.AppointmentRepository

	mu       sync.Mutex
	inflight map[string]bool
}

// NewWizard wires a wizard over its ports.
func NewWizard(drafts DraftStore, avail *AvailabilityResolver, conflicts *ConflictGuard, appts appointmentRepo.AppointmentRepository) *Wizard {
	return &Wizard{
		Drafts:       drafts,
		Availability: avail,
		Conflicts:    conflicts,
		Appointments: appts,
		inflight:     make(map[string]bool),
	}
}

// beginOp guards against re-entrant forward transitions while a precondition
// fetch is in flight for the same draft.
func (w *Wizard) beginOp(draftID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[draftID] {
		return false
	}
	w.inflight[draftID] = true
	return true
}

func (w *Wizard) endOp(draftID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, draftID)
}

// Start creates a fresh draft at the first step.
func (w *Wizard) Start(ctx context.Context) (*models.BookingDraft, error) {
	draft := &models.BookingDraft{
		DraftID: uuid.New().String(),
		Step:    models.StepSelectSubject,
	}
	if err := w.Drafts.Save(ctx, draft); err != nil {
		return nil, wrapError(KindServer, "failed to persist draft", err)
	}
	return draft, nil
}

// StartReschedule seeds a draft from a prior appointment. The single
// branching question — keep the same department? — routes the entry to
// either date selection (kept) or department selection (changed, which also
// clears every downstream selection).
func (w *Wizard) StartReschedule(ctx context.Context, appointmentID string, keepDepartment bool) (*models.BookingDraft, error) {
	prior, err := w.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, wrapError(KindServer, "failed to load prior appointment", err)
	}

	draft := &models.BookingDraft{
		DraftID: uuid.New().String(),
		Subject: models.Subject{
			PatientID: prior.PatientID,
			Name:      prior.PatientName,
			Dependent: prior.Dependent,
		},
		Kind:         prior.Kind,
		Symptoms:     prior.Symptoms,
		RescheduleOf: prior.ID,
	}

	if keepDepartment {
		draft.DepartmentID = prior.DepartmentID
		draft.DoctorID = prior.DoctorID
		draft.Step = models.StepSelectDate
	} else {
		draft.Step = models.StepSelectDepartment
	}

	if err := w.Drafts.Save(ctx, draft); err != nil {
		return nil, wrapError(KindServer, "failed to persist draft", err)
	}
	return draft, nil
}

// Resume loads a persisted draft and re-fetches whatever its prior choices
// depend on: dates for a chosen department, sessions for a chosen date,
// doctors for a chosen session. Fetch failures here are fail-closed.
func (w *Wizard) Resume(ctx context.Context, draftID string) (*ResumeData, error) {
	draft, err := w.Drafts.Load(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, wrapError(KindValidation, "no draft to resume", err)
		}
		return nil, wrapError(KindServer, "failed to load draft", err)
	}

	data := &ResumeData{Draft: draft}
	if draft.DepartmentID == "" {
		return data, nil
	}

	dates, err := w.Availability.ListAvailableDates(ctx, draft.DepartmentID)
	if err != nil {
		return nil, err
	}
	data.Dates = dates

	if draft.Date != "" {
		sessions, err := w.Availability.ListSessions(ctx, draft.DepartmentID, draft.Date)
		if err != nil {
			return nil, err
		}
		data.Sessions = sessions
	}
	if draft.Date != "" && draft.SessionStart != "" {
		doctors, err := w.Availability.ListAvailableDoctors(ctx, draft.DepartmentID, draft.Date, draft.SessionStart)
		if err != nil {
			return nil, err
		}
		data.Doctors = doctors
	}
	return data, nil
}

func (w *Wizard) loadAt(ctx context.Context, draftID string, step models.Step) (*models.BookingDraft, error) {
	draft, err := w.Drafts.Load(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, wrapError(KindValidation, "booking draft not found or expired", err)
		}
		return nil, wrapError(KindServer, "failed to load draft", err)
	}
	if draft.Step != step {
		return nil, newError(KindValidation, "step "+step.String()+" is not the current step (at "+draft.Step.String()+")")
	}
	return draft, nil
}

func (w *Wizard) save(ctx context.Context, draft *models.BookingDraft) error {
	if err := w.Drafts.Save(ctx, draft); err != nil {
		return wrapError(KindServer, "failed to persist draft", err)
	}
	return nil
}

// ChooseSubject records who the appointment is for.
func (w *Wizard) ChooseSubject(ctx context.Context, draftID string, subject models.Subject) (*models.BookingDraft, error) {
	if subject.PatientID == "" || subject.Name == "" {
		return nil, newError(KindValidation, "subject requires a patient ID and name")
	}
	draft, err := w.loadAt(ctx, draftID, models.StepSelectSubject)
	if err != nil {
		return nil, err
	}
	draft.Subject = subject
	draft.Step = models.StepSelectAppointmentType
	if err := w.save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ChooseKind records in-person or video.
func (w *Wizard) ChooseKind(ctx context.Context, draftID string, kind models.AppointmentKind) (*models.BookingDraft, error) {
	if kind != models.KindInPerson && kind != models.KindVideo {
		return nil, newError(KindValidation, "appointment kind must be in_person or video")
	}
	draft, err := w.loadAt(ctx, draftID, models.StepSelectAppointmentType)
	if err != nil {
		return nil, err
	}
	draft.Kind = kind
	draft.Step = models.StepSelectDepartment
	if err := w.save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ChooseDepartment records the department and optional symptom text. Changing
// the department invalidates every downstream selection, so doctor, date,
// session and time are reset.
func (w *Wizard) ChooseDepartment(ctx context.Context, draftID, departmentID, symptoms string) (*models.BookingDraft, error) {
	if departmentID == "" {
		return nil, newError(KindValidation, "department is required")
	}
	draft, err := w.loadAt(ctx, draftID, models.StepSelectDepartment)
	if err != nil {
		return nil, err
	}
	if draft.DepartmentID != "" && draft.DepartmentID != departmentID {
		draft.DoctorID = ""
		draft.Date = ""
		draft.SessionID = ""
		draft.SessionStart = ""
	}
	draft.DepartmentID = departmentID
	draft.Symptoms = symptoms
	draft.Step = models.StepSelectDate
	if err := w.save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ChooseDate records the calendar date. The session list for the date is the
// precondition fetch and is returned alongside the draft.
func (w *Wizard) ChooseDate(ctx context.Context, draftID, date string) (*models.BookingDraft, []models.Session, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, nil, newError(KindValidation, "date must be YYYY-MM-DD")
	}
	if !w.beginOp(draftID) {
		return nil, nil, newError(KindValidation, "another operation is in progress for this draft")
	}
	defer w.endOp(draftID)

	draft, err := w.loadAt(ctx, draftID, models.StepSelectDate)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := w.Availability.ListSessions(ctx, draft.DepartmentID, date)
	if err != nil {
		return nil, nil, err
	}
	if len(sessions) == 0 {
		return nil, nil, newError(KindCapacityLost, "no sessions available on the selected date")
	}

	if draft.Date != date {
		draft.SessionID = ""
		draft.SessionStart = ""
	}
	draft.Date = date
	draft.Step = models.StepSelectSession
	if err := w.save(ctx, draft); err != nil {
		return nil, nil, err
	}
	return draft, sessions, nil
}

// ChooseSession records the half-day session. The doctor list for the session
// is the precondition fetch and is returned alongside the draft.
func (w *Wizard) ChooseSession(ctx context.Context, draftID, sessionID, startTime string) (*models.BookingDraft, []models.DoctorAvailability, error) {
	if sessionID == "" || startTime == "" {
		return nil, nil, newError(KindValidation, "session and start time are required")
	}
	if !w.beginOp(draftID) {
		return nil, nil, newError(KindValidation, "another operation is in progress for this draft")
	}
	defer w.endOp(draftID)

	draft, err := w.loadAt(ctx, draftID, models.StepSelectSession)
	if err != nil {
		return nil, nil, err
	}

	doctors, err := w.Availability.ListAvailableDoctors(ctx, draft.DepartmentID, draft.Date, startTime)
	if err != nil {
		return nil, nil, err
	}

	draft.SessionID = sessionID
	draft.SessionStart = startTime
	draft.Step = models.StepSelectDoctor
	if err := w.save(ctx, draft); err != nil {
		return nil, nil, err
	}
	return draft, doctors, nil
}

// ChooseDoctor records the doctor after the conflict guard clears them. On a
// conflict the draft stays on doctor selection and the message is surfaced
// inline through the returned error.
func (w *Wizard) ChooseDoctor(ctx context.Context, draftID, doctorID string) (*models.BookingDraft, error) {
	if doctorID == "" {
		return nil, newError(KindValidation, "doctor is required")
	}
	if !w.beginOp(draftID) {
		return nil, newError(KindValidation, "another operation is in progress for this draft")
	}
	defer w.endOp(draftID)

	draft, err := w.loadAt(ctx, draftID, models.StepSelectDoctor)
	if err != nil {
		return nil, err
	}

	result, err := w.Conflicts.CheckConflict(ctx, draft.Subject.PatientID, doctorID, draft.Date)
	if err != nil {
		// Fail-closed: a failed check never lets the booking proceed.
		return nil, err
	}
	if result.Conflict {
		return nil, newError(KindConflict, result.Message)
	}

	draft.DoctorID = doctorID
	draft.Step = models.StepConfirm
	if err := w.save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// AutoAssignDoctor fetches the current doctor list and books the least-loaded
// candidate on the patient's behalf.
func (w *Wizard) AutoAssignDoctor(ctx context.Context, draftID string) (*models.BookingDraft, error) {
	draft, err := w.Drafts.Load(ctx, draftID)
	if err != nil {
		return nil, wrapError(KindValidation, "booking draft not found or expired", err)
	}
	if draft.Step != models.StepSelectDoctor {
		return nil, newError(KindValidation, "doctor selection is not the current step")
	}

	doctors, err := w.Availability.ListAvailableDoctors(ctx, draft.DepartmentID, draft.Date, draft.SessionStart)
	if err != nil {
		return nil, err
	}
	best := SelectBestDoctor(doctors)
	if best == nil {
		return nil, newError(KindCapacityLost, "no doctor has open slots in the selected session")
	}
	return w.ChooseDoctor(ctx, draftID, best.DoctorID)
}

// Back moves to the previous step. Not permitted from Paying or Completed.
// Data for steps not being revisited is retained.
func (w *Wizard) Back(ctx context.Context, draftID string) (*models.BookingDraft, error) {
	draft, err := w.Drafts.Load(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, wrapError(KindValidation, "booking draft not found or expired", err)
		}
		return nil, wrapError(KindServer, "failed to load draft", err)
	}
	switch draft.Step {
	case models.StepPaying, models.StepCompleted:
		return nil, newError(KindValidation, "cannot navigate back from "+draft.Step.String())
	case models.StepSelectSubject:
		return nil, newError(KindValidation, "already at the first step")
	}
	draft.Step--
	if err := w.save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Abandon discards the draft. A partially completed draft never auto-submits.
func (w *Wizard) Abandon(ctx context.Context, draftID string) error {
	if err := w.Drafts.Clear(ctx, draftID); err != nil {
		return wrapError(KindServer, "failed to clear draft", err)
	}
	return nil
}

// RefreshSessions re-fetches sessions for the draft's currently selected
// date. Used both by the periodic staleness refresher and by sync-event
// listeners (a schedule-changed push while on session selection). The
// selection is captured before the fetch and re-checked after, so a slow
// response for a previously selected date is discarded instead of
// overwriting a later query's result.
func (w *Wizard) RefreshSessions(ctx context.Context, draftID string) ([]models.Session, error) {
	draft, err := w.Drafts.Load(ctx, draftID)
	if err != nil {
		return nil, wrapError(KindValidation, "booking draft not found or expired", err)
	}
	if draft.Step != models.StepSelectSession && draft.Step != models.StepSelectDoctor {
		return nil, ErrStaleFetch
	}
	departmentID, date := draft.DepartmentID, draft.Date

	sessions, err := w.Availability.ListSessions(ctx, departmentID, date)
	if err != nil {
		return nil, err
	}

	// The draft may have moved while the fetch was in flight.
	current, err := w.Drafts.Load(ctx, draftID)
	if err != nil {
		return nil, ErrStaleFetch
	}
	if current.Date != date || current.DepartmentID != departmentID {
		utils.GetLogger().Debug("discarding stale session fetch",
			zap.String("draftID", draftID), zap.String("fetchedDate", date), zap.String("currentDate", current.Date))
		return nil, ErrStaleFetch
	}
	return sessions, nil
}
