package booking

import (
	"context"
	"testing"

	"cliniq/models"
)

func newTestWizard(t *testing.T) (*Wizard, *fakeSchedule, *fakeAppointments) {
	t.Helper()
	schedule := newFakeSchedule()
	appts := newFakeAppointments()
	wizard := NewWizard(
		NewMemoryDraftStore(),
		&AvailabilityResolver{Schedule: schedule},
		&ConflictGuard{Appointments: appts},
		appts,
	)
	return wizard, schedule, appts
}

func seedSession(schedule *fakeSchedule, dept, date string, doctors ...models.DoctorAvailability) {
	schedule.sessions[dept+"|"+date] = []models.Session{
		{ID: "S1", Label: "Morning", StartTime: "09:00", DoctorCount: len(doctors), Doctors: doctors},
	}
	schedule.sessionDocs[dept+"|"+date+"|09:00"] = doctors
}

func mustAdvanceToDoctor(t *testing.T, wizard *Wizard, schedule *fakeSchedule, dept, date string) *models.BookingDraft {
	t.Helper()
	ctx := context.Background()
	seedSession(schedule, dept, date,
		models.DoctorAvailability{DoctorID: "d1", PatientsAhead: 3, HasAvailableSlots: true},
		models.DoctorAvailability{DoctorID: "d2", PatientsAhead: 1, HasAvailableSlots: true},
	)

	draft, err := wizard.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := wizard.ChooseSubject(ctx, draft.DraftID, models.Subject{PatientID: "p1", Name: "Asha"}); err != nil {
		t.Fatalf("ChooseSubject: %v", err)
	}
	if _, err := wizard.ChooseKind(ctx, draft.DraftID, models.KindInPerson); err != nil {
		t.Fatalf("ChooseKind: %v", err)
	}
	if _, err := wizard.ChooseDepartment(ctx, draft.DraftID, dept, "persistent cough"); err != nil {
		t.Fatalf("ChooseDepartment: %v", err)
	}
	if _, _, err := wizard.ChooseDate(ctx, draft.DraftID, date); err != nil {
		t.Fatalf("ChooseDate: %v", err)
	}
	current, _, err := wizard.ChooseSession(ctx, draft.DraftID, "S1", "09:00")
	if err != nil {
		t.Fatalf("ChooseSession: %v", err)
	}
	return current
}

func TestWizardHappyPathReachesConfirm(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()
	date := dateOffset(1)

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)
	if draft.Step != models.StepSelectDoctor {
		t.Fatalf("expected doctor selection, at %s", draft.Step)
	}

	draft, err := wizard.ChooseDoctor(ctx, draft.DraftID, "d1")
	if err != nil {
		t.Fatalf("ChooseDoctor: %v", err)
	}
	if draft.Step != models.StepConfirm {
		t.Fatalf("expected confirm step, at %s", draft.Step)
	}
	if draft.DoctorID != "d1" || draft.Date != date || draft.SessionID != "S1" {
		t.Fatalf("selections lost: %+v", draft)
	}
}

func TestWizardEnforcesStepOrder(t *testing.T) {
	wizard, _, _ := newTestWizard(t)
	ctx := context.Background()

	draft, err := wizard.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Date selection requires the prior steps to be done.
	if _, _, err := wizard.ChooseDate(ctx, draft.DraftID, dateOffset(1)); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for skipped steps, got %v", err)
	}
	if _, err := wizard.ChooseDoctor(ctx, draft.DraftID, "d1"); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWizardBackNavigation(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", dateOffset(1))

	draft, err := wizard.Back(ctx, draft.DraftID)
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if draft.Step != models.StepSelectSession {
		t.Fatalf("expected session step after back, at %s", draft.Step)
	}
	// Retained data for steps not revisited.
	if draft.Date == "" || draft.DepartmentID == "" {
		t.Fatalf("back must retain earlier selections: %+v", draft)
	}
}

func TestWizardBackBlockedDuringPayment(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", dateOffset(1))
	draft.Step = models.StepPaying
	if err := wizard.Drafts.Save(ctx, draft); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := wizard.Back(ctx, draft.DraftID); !IsKind(err, KindValidation) {
		t.Fatalf("expected back to be blocked from paying, got %v", err)
	}
}

func TestWizardBackBlockedAtFirstStep(t *testing.T) {
	wizard, _, _ := newTestWizard(t)
	ctx := context.Background()

	draft, _ := wizard.Start(ctx)
	if _, err := wizard.Back(ctx, draft.DraftID); !IsKind(err, KindValidation) {
		t.Fatalf("expected back to be blocked at first step, got %v", err)
	}
}

func TestWizardDepartmentChangeResetsDownstream(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()
	date := dateOffset(1)

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)
	draft, err := wizard.ChooseDoctor(ctx, draft.DraftID, "d1")
	if err != nil {
		t.Fatalf("ChooseDoctor: %v", err)
	}

	// Navigate back to department selection.
	for i := 0; i < 4; i++ {
		if draft, err = wizard.Back(ctx, draft.DraftID); err != nil {
			t.Fatalf("Back %d: %v", i, err)
		}
	}
	if draft.Step != models.StepSelectDepartment {
		t.Fatalf("expected department step, at %s", draft.Step)
	}

	seedSession(schedule, "ortho", date, models.DoctorAvailability{DoctorID: "d9", HasAvailableSlots: true})
	draft, err = wizard.ChooseDepartment(ctx, draft.DraftID, "ortho", "")
	if err != nil {
		t.Fatalf("ChooseDepartment: %v", err)
	}
	if draft.DoctorID != "" || draft.Date != "" || draft.SessionID != "" || draft.SessionStart != "" {
		t.Fatalf("department change must reset doctor/date/session/time: %+v", draft)
	}

	// Re-selecting the same department keeps selections.
	draft = mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)
	for i := 0; i < 3; i++ {
		if draft, err = wizard.Back(ctx, draft.DraftID); err != nil {
			t.Fatalf("Back %d: %v", i, err)
		}
	}
	draft, err = wizard.ChooseDepartment(ctx, draft.DraftID, "cardio", "")
	if err != nil {
		t.Fatalf("ChooseDepartment same: %v", err)
	}
	if draft.Date != date {
		t.Fatalf("same department must retain date, got %+v", draft)
	}
}

func TestWizardConflictBlocksDoctor(t *testing.T) {
	wizard, schedule, appts := newTestWizard(t)
	ctx := context.Background()

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", dateOffset(1))
	appts.hasActive = true

	_, err := wizard.ChooseDoctor(ctx, draft.DraftID, "d1")
	if !IsKind(err, KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	// The draft stays on doctor selection.
	current, loadErr := wizard.Drafts.Load(ctx, draft.DraftID)
	if loadErr != nil {
		t.Fatalf("load: %v", loadErr)
	}
	if current.Step != models.StepSelectDoctor || current.DoctorID != "" {
		t.Fatalf("conflict must not advance the draft: %+v", current)
	}
}

func TestWizardConflictCheckFailClosed(t *testing.T) {
	wizard, schedule, appts := newTestWizard(t)
	ctx := context.Background()

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", dateOffset(1))
	appts.hasActiveErr = context.DeadlineExceeded

	if _, err := wizard.ChooseDoctor(ctx, draft.DraftID, "d1"); !IsKind(err, KindTimeout) {
		t.Fatalf("expected timeout error blocking the booking, got %v", err)
	}
}

func TestWizardAutoAssignPicksLeastLoaded(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", dateOffset(1))
	draft, err := wizard.AutoAssignDoctor(ctx, draft.DraftID)
	if err != nil {
		t.Fatalf("AutoAssignDoctor: %v", err)
	}
	if draft.DoctorID != "d2" {
		t.Fatalf("expected least-loaded d2, got %s", draft.DoctorID)
	}
	if draft.Step != models.StepConfirm {
		t.Fatalf("auto-assign must advance to confirm, at %s", draft.Step)
	}
}

func TestWizardAutoAssignNoOpenDoctors(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()
	date := dateOffset(1)

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)
	schedule.sessionDocs["cardio|"+date+"|09:00"] = []models.DoctorAvailability{
		{DoctorID: "d1", HasAvailableSlots: false},
	}

	if _, err := wizard.AutoAssignDoctor(ctx, draft.DraftID); !IsKind(err, KindCapacityLost) {
		t.Fatalf("expected capacity-lost error, got %v", err)
	}
}

func TestWizardResumeRefetchesSelections(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()
	date := dateOffset(1)

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)

	data, err := wizard.Resume(ctx, draft.DraftID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if data.Draft.Step != models.StepSelectDoctor {
		t.Fatalf("resume must restore the step, at %s", data.Draft.Step)
	}
	if len(data.Dates) == 0 || len(data.Sessions) == 0 || len(data.Doctors) == 0 {
		t.Fatalf("resume must refetch dates, sessions and doctors: %+v", data)
	}
}

func TestWizardResumeUnknownDraft(t *testing.T) {
	wizard, _, _ := newTestWizard(t)
	if _, err := wizard.Resume(context.Background(), "missing"); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for missing draft, got %v", err)
	}
}

func TestWizardAbandonDiscardsDraft(t *testing.T) {
	wizard, _, _ := newTestWizard(t)
	ctx := context.Background()

	draft, _ := wizard.Start(ctx)
	if err := wizard.Abandon(ctx, draft.DraftID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, err := wizard.Resume(ctx, draft.DraftID); !IsKind(err, KindValidation) {
		t.Fatalf("abandoned draft must be gone, got %v", err)
	}
}

func TestWizardRescheduleKeepDepartment(t *testing.T) {
	wizard, _, appts := newTestWizard(t)
	ctx := context.Background()

	prior := &models.Appointment{
		ID: "a1", PatientID: "p1", PatientName: "Asha",
		DepartmentID: "cardio", DoctorID: "d1",
		Date: dateOffset(1), SessionID: "S1",
		Kind: models.KindVideo, Symptoms: "follow-up",
		Status: models.AppointmentBooked, PaymentRef: "ref-prior",
	}
	if err := appts.Create(ctx, prior); err != nil {
		t.Fatalf("seed: %v", err)
	}

	draft, err := wizard.StartReschedule(ctx, "a1", true)
	if err != nil {
		t.Fatalf("StartReschedule: %v", err)
	}
	if draft.Step != models.StepSelectDate {
		t.Fatalf("keep-department must enter at date selection, at %s", draft.Step)
	}
	if draft.DepartmentID != "cardio" || draft.Kind != models.KindVideo || draft.RescheduleOf != "a1" {
		t.Fatalf("reschedule must seed from prior appointment: %+v", draft)
	}
}

func TestWizardRescheduleChangeDepartment(t *testing.T) {
	wizard, _, appts := newTestWizard(t)
	ctx := context.Background()

	prior := &models.Appointment{
		ID: "a1", PatientID: "p1", PatientName: "Asha",
		DepartmentID: "cardio", DoctorID: "d1",
		Date: dateOffset(1), SessionID: "S1",
		Status: models.AppointmentBooked, PaymentRef: "ref-prior",
	}
	if err := appts.Create(ctx, prior); err != nil {
		t.Fatalf("seed: %v", err)
	}

	draft, err := wizard.StartReschedule(ctx, "a1", false)
	if err != nil {
		t.Fatalf("StartReschedule: %v", err)
	}
	if draft.Step != models.StepSelectDepartment {
		t.Fatalf("changed department must enter at department selection, at %s", draft.Step)
	}
	if draft.DepartmentID != "" || draft.DoctorID != "" || draft.Date != "" || draft.SessionID != "" {
		t.Fatalf("changed department must clear downstream selections: %+v", draft)
	}
}

func TestWizardRefreshSessionsDiscardsStaleFetch(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()
	date := dateOffset(1)
	laterDate := dateOffset(2)

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)
	seedSession(schedule, "cardio", laterDate, models.DoctorAvailability{DoctorID: "d1", HasAvailableSlots: true})

	// While the fetch for the original date is in flight, the draft moves to
	// a different date. The slow result must be discarded.
	schedule.listSessionsErr = func(_, fetchDate string) error {
		if fetchDate == date {
			moved, loadErr := wizard.Drafts.Load(ctx, draft.DraftID)
			if loadErr != nil {
				t.Fatalf("load during fetch: %v", loadErr)
			}
			moved.Date = laterDate
			if saveErr := wizard.Drafts.Save(ctx, moved); saveErr != nil {
				t.Fatalf("save during fetch: %v", saveErr)
			}
		}
		return nil
	}

	if _, err := wizard.RefreshSessions(ctx, draft.DraftID); err != ErrStaleFetch {
		t.Fatalf("expected stale fetch to be discarded, got %v", err)
	}

	// A refresh matching the current selection succeeds.
	schedule.listSessionsErr = nil
	sessions, err := wizard.RefreshSessions(ctx, draft.DraftID)
	if err != nil {
		t.Fatalf("RefreshSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected refreshed sessions, got %+v", sessions)
	}
}

func TestWizardDateWithNoSessions(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", dateOffset(1))
	// Walk back to date selection and pick a date with nothing open.
	var err error
	for i := 0; i < 2; i++ {
		if draft, err = wizard.Back(ctx, draft.DraftID); err != nil {
			t.Fatalf("Back: %v", err)
		}
	}
	if _, _, err := wizard.ChooseDate(ctx, draft.DraftID, dateOffset(5)); !IsKind(err, KindCapacityLost) {
		t.Fatalf("expected capacity-lost for empty date, got %v", err)
	}
}

func TestWizardSerializeRestoreRoundTrip(t *testing.T) {
	wizard, schedule, _ := newTestWizard(t)
	ctx := context.Background()
	date := dateOffset(1)

	draft := mustAdvanceToDoctor(t, wizard, schedule, "cardio", date)

	restored, err := wizard.Drafts.Load(ctx, draft.DraftID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Step != draft.Step ||
		restored.Subject != draft.Subject ||
		restored.Kind != draft.Kind ||
		restored.DepartmentID != draft.DepartmentID ||
		restored.Date != draft.Date ||
		restored.SessionID != draft.SessionID ||
		restored.SessionStart != draft.SessionStart ||
		restored.Symptoms != draft.Symptoms {
		t.Fatalf("restored draft differs:\nwant %+v\ngot  %+v", draft, restored)
	}
}
