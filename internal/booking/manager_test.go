package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/internal/events"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

type fakeService struct {
	doctors      []chat.Doctor
	tests        []chat.MedicalTest
	appointment  *chat.Appointment
	rescheduled  *chat.Appointment
	testBooking  *chat.TestBooking
	err          error
	booked       []AppointmentRequest
	reschedules  []RescheduleRequest
	cancelled    []string
	testRequests []TestBookingRequest
}

func (f *fakeService) RecommendDoctors(ctx context.Context, symptoms string) ([]chat.Doctor, error) {
	return f.doctors, f.err
}

func (f *fakeService) RecommendTests(ctx context.Context, symptoms string) ([]chat.MedicalTest, error) {
	return f.tests, f.err
}

func (f *fakeService) BookAppointment(ctx context.Context, req AppointmentRequest) (*chat.Appointment, error) {
	f.booked = append(f.booked, req)
	if f.err != nil {
		return nil, f.err
	}
	a := *f.appointment
	return &a, nil
}

func (f *fakeService) RescheduleAppointment(ctx context.Context, id string, req RescheduleRequest) (*chat.Appointment, error) {
	f.reschedules = append(f.reschedules, req)
	if f.err != nil {
		return nil, f.err
	}
	a := *f.rescheduled
	return &a, nil
}

func (f *fakeService) CancelAppointment(ctx context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return f.err
}

func (f *fakeService) BookTests(ctx context.Context, req TestBookingRequest) (*chat.TestBooking, error) {
	f.testRequests = append(f.testRequests, req)
	if f.err != nil {
		return nil, f.err
	}
	b := *f.testBooking
	return &b, nil
}

func (f *fakeService) CancelTestBooking(ctx context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return f.err
}

type recordingPublisher struct {
	events []events.BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.BookingEvent) error {
	p.events = append(p.events, evt)
	return nil
}

type countingRecorder struct {
	outcomes   []string
	mismatches int
}

func (r *countingRecorder) ObserveBooking(kind, outcome string) {
	r.outcomes = append(r.outcomes, kind+":"+outcome)
}

func (r *countingRecorder) ObserveCostMismatch() { r.mismatches++ }

var fixedNow = time.Date(2030, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestManager(svc Service, opts ...Option) *Manager {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewManager(svc, logging.New("error"), opts...).ForSession("sess-1")
}

var drMehta = chat.Doctor{ID: "doc-1", Name: "Dr. Mehta", Specialty: "Cardiology", HospitalName: "City Hospital"}

func appendAll(store *chat.Store, e chat.Effect) {
	store.Apply(e)
}

func TestPresentFormsRequireIdentity(t *testing.T) {
	m := newTestManager(&fakeService{})
	_, err := m.PresentAppointmentForm(drMehta, nil, "chest pain")
	assert.ErrorIs(t, err, ErrIdentityRequired)
	_, err = m.PresentTestForm([]chat.MedicalTest{{ID: "t1"}}, nil)
	assert.ErrorIs(t, err, ErrIdentityRequired)
}

func TestSubmitAppointmentReplacesFormWithSuccess(t *testing.T) {
	svc := &fakeService{appointment: &chat.Appointment{ID: "apt-77", Status: "confirmed"}}
	pub := &recordingPublisher{}
	rec := &countingRecorder{}
	m := newTestManager(svc, WithPublisher(pub), WithRecorder(rec))
	profile := &chat.PatientProfile{PatientID: "p-1", FirstName: "Asha", LastName: "Rao", PhoneNumber: "9876543210", TotalVisits: 3}

	store := chat.NewStore()
	effect, err := m.PresentAppointmentForm(drMehta, profile, "chest pain")
	require.NoError(t, err)
	appendAll(store, effect)
	form := effect.Append[0].Payload.(chat.AppointmentForm)

	effect, err = m.SubmitAppointment(context.Background(), store.Messages(), AppointmentSubmission{
		FormID: form.FormID,
		Date:   "2030-03-12",
		Time:   "10:30",
	}, profile)
	require.NoError(t, err)
	appendAll(store, effect)

	assert.Zero(t, store.Count(chat.TypeAppointmentForm))
	require.Equal(t, 1, store.Count(chat.TypeAppointmentSuccess))
	msg, _ := store.Visible(chat.TypeAppointmentSuccess)
	success := msg.Payload.(chat.AppointmentSuccess)
	assert.Equal(t, "apt-77", success.Appointment.ID)
	assert.Equal(t, "Dr. Mehta", success.Appointment.DoctorName)
	assert.Equal(t, "chest pain", success.Appointment.Symptoms)
	assert.Contains(t, success.Note, "3rd visit")
	assert.Contains(t, chat.Content(success), "3rd visit")

	require.Len(t, svc.booked, 1)
	assert.Equal(t, "Asha Rao", svc.booked[0].PatientName)
	assert.Equal(t, "p-1", svc.booked[0].PatientID)
	assert.Equal(t, "doc-1", svc.booked[0].DoctorID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.AppointmentBooked, pub.events[0].Kind)
	assert.Equal(t, "sess-1", pub.events[0].SessionID)
	assert.Equal(t, []string{"appointment:confirmed"}, rec.outcomes)
}

func TestSubmitAppointmentValidation(t *testing.T) {
	svc := &fakeService{}
	m := newTestManager(svc)
	profile := &chat.PatientProfile{IsNew: true}
	store := chat.NewStore()
	effect, err := m.PresentAppointmentForm(drMehta, profile, "")
	require.NoError(t, err)
	appendAll(store, effect)

	_, err = m.SubmitAppointment(context.Background(), store.Messages(), AppointmentSubmission{
		FormID:      effect.Append[0].Payload.(chat.AppointmentForm).FormID,
		PatientName: "",
		PhoneNumber: "123",
		Date:        "2030-03-09",
		Time:        "9am",
	}, profile)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "patient_name")
	assert.Contains(t, verr.Fields, "phone_number")
	assert.Equal(t, "The date can't be in the past.", verr.Fields["date"])
	assert.Contains(t, verr.Fields, "time")
	assert.Empty(t, svc.booked)
}

func TestSubmitAppointmentBackendFailureKeepsForm(t *testing.T) {
	svc := &fakeService{err: &backend.RejectionError{Call: "book_appointment", Status: 409, Detail: "That slot is no longer available"}}
	m := newTestManager(svc)
	profile := &chat.PatientProfile{FirstName: "Asha", PhoneNumber: "9876543210"}
	store := chat.NewStore()
	effect, _ := m.PresentAppointmentForm(drMehta, profile, "")
	appendAll(store, effect)

	effect, err := m.SubmitAppointment(context.Background(), store.Messages(), AppointmentSubmission{Date: "2030-03-12", Time: "10:30"}, profile)
	require.NoError(t, err)
	appendAll(store, effect)

	assert.Equal(t, 1, store.Count(chat.TypeAppointmentForm))
	last, _ := store.Visible(chat.TypeText)
	body := last.Payload.(chat.Text).Body
	assert.True(t, strings.HasPrefix(body, "⚠️ "))
	assert.Contains(t, body, "That slot is no longer available")
}

func TestSubmitAppointmentTwiceUsesLedger(t *testing.T) {
	svc := &fakeService{appointment: &chat.Appointment{ID: "apt-1"}}
	m := newTestManager(svc)
	profile := &chat.PatientProfile{FirstName: "Asha", PhoneNumber: "9876543210"}
	store := chat.NewStore()
	effect, _ := m.PresentAppointmentForm(drMehta, profile, "")
	appendAll(store, effect)
	sub := AppointmentSubmission{FormID: effect.Append[0].Payload.(chat.AppointmentForm).FormID, DoctorID: "doc-1", Date: "2030-03-12", Time: "10:30"}

	first, err := m.SubmitAppointment(context.Background(), store.Messages(), sub, profile)
	require.NoError(t, err)
	second, err := m.SubmitAppointment(context.Background(), store.Messages(), sub, profile)
	require.NoError(t, err)

	assert.Len(t, svc.booked, 1)
	assert.Equal(t,
		first.Append[0].Payload.(chat.AppointmentSuccess).Appointment.ID,
		second.Append[0].Payload.(chat.AppointmentSuccess).Appointment.ID)
}

func TestRescheduleUnknownAppointment(t *testing.T) {
	m := newTestManager(&fakeService{})
	history := []chat.Message{chat.Assistant(chat.AppointmentSuccess{Appointment: chat.Appointment{ID: "apt-1", Date: "2030-03-12", Time: "10:30"}})}

	effect := m.Reschedule(context.Background(), history, "apt-404")

	require.Len(t, effect.Append, 1)
	assert.Equal(t, chat.TypeText, effect.Append[0].Type())
	for _, msg := range effect.Append {
		assert.NotEqual(t, chat.TypeRescheduleForm, msg.Type())
	}
}

func TestRescheduleCarriesOverOriginalFields(t *testing.T) {
	svc := &fakeService{rescheduled: &chat.Appointment{ID: "apt-1", Date: "2030-03-20", Time: "16:00", Status: "rescheduled"}}
	pub := &recordingPublisher{}
	m := newTestManager(svc, WithPublisher(pub))
	original := chat.Appointment{ID: "apt-1", DoctorID: "doc-1", DoctorName: "Dr. Mehta", PatientName: "Asha Rao", Symptoms: "chest pain", Date: "2030-03-12", Time: "10:30"}

	store := chat.NewStore()
	store.Append(chat.Assistant(chat.AppointmentSuccess{Appointment: original}))
	effect := m.Reschedule(context.Background(), store.Messages(), "apt-1")
	appendAll(store, effect)
	form := effect.Append[0].Payload.(chat.RescheduleForm)
	assert.Equal(t, "2030-03-12", form.CurrentDate)
	assert.Equal(t, "10:30", form.CurrentTime)

	effect, err := m.SubmitReschedule(context.Background(), store.Messages(), RescheduleSubmission{FormID: form.FormID, AppointmentID: "apt-1", Date: "2030-03-20", Time: "16:00"})
	require.NoError(t, err)
	appendAll(store, effect)

	assert.Zero(t, store.Count(chat.TypeRescheduleForm))
	msg, _ := store.Visible(chat.TypeAppointmentSuccess)
	updated := msg.Payload.(chat.AppointmentSuccess).Appointment
	assert.Equal(t, "Dr. Mehta", updated.DoctorName)
	assert.Equal(t, "doc-1", updated.DoctorID)
	assert.Equal(t, "chest pain", updated.Symptoms)
	assert.Equal(t, "Asha Rao", updated.PatientName)
	assert.Equal(t, "2030-03-20", updated.Date)
	assert.Equal(t, "rescheduled", updated.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.AppointmentRescheduled, pub.events[0].Kind)
}

func TestSubmitAppointmentRequiresOpenForm(t *testing.T) {
	svc := &fakeService{appointment: &chat.Appointment{ID: "apt-1"}}
	m := newTestManager(svc)
	profile := &chat.PatientProfile{FirstName: "Asha", PhoneNumber: "9876543210"}
	ctx := context.Background()

	store := chat.NewStore()
	effect, _ := m.PresentAppointmentForm(drMehta, profile, "")
	appendAll(store, effect)
	formID := effect.Append[0].Payload.(chat.AppointmentForm).FormID
	appendAll(store, m.DismissForm(chat.TypeAppointmentForm))

	cases := []struct {
		name    string
		history []chat.Message
		formID  string
	}{
		{"dismissed", store.Messages(), formID},
		{"never shown", nil, "form-unknown"},
		{"no form id", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			effect, err := m.SubmitAppointment(ctx, tc.history, AppointmentSubmission{
				FormID: tc.formID, DoctorID: "doc-1", PatientName: "Asha", PhoneNumber: "9876543210", Date: "2030-03-12", Time: "10:30",
			}, profile)
			require.NoError(t, err)
			require.Len(t, effect.Append, 1)
			assert.Equal(t, chat.TypeText, effect.Append[0].Type())
			assert.True(t, strings.HasPrefix(chat.Content(effect.Append[0].Payload), "⚠️ "))
		})
	}
	assert.Empty(t, svc.booked)
}

func TestSubmitTestBookingRequiresOpenForm(t *testing.T) {
	svc := &fakeService{testBooking: &chat.TestBooking{BookingID: "tb-1"}}
	m := newTestManager(svc)

	effect, err := m.SubmitTestBooking(context.Background(), nil, TestSubmission{
		FormID: "gone", TestIDs: []string{"cbc"}, PatientName: "Asha", PhoneNumber: "9876543210",
	}, &chat.PatientProfile{FirstName: "Asha"})

	require.NoError(t, err)
	require.Len(t, effect.Append, 1)
	assert.Equal(t, chat.TypeText, effect.Append[0].Type())
	assert.Empty(t, svc.testRequests)
}

func TestSubmitRescheduleRequiresOpenForm(t *testing.T) {
	svc := &fakeService{rescheduled: &chat.Appointment{ID: "apt-1"}}
	m := newTestManager(svc)
	store := chat.NewStore()
	store.Append(chat.Assistant(chat.AppointmentSuccess{Appointment: chat.Appointment{ID: "apt-1", Date: "2030-03-12", Time: "10:30"}}))

	effect, err := m.SubmitReschedule(context.Background(), store.Messages(), RescheduleSubmission{AppointmentID: "apt-1", Date: "2030-03-20", Time: "16:00"})

	require.NoError(t, err)
	require.Len(t, effect.Append, 1)
	assert.Equal(t, chat.TypeText, effect.Append[0].Type())
	assert.Empty(t, svc.reschedules)
}

func TestResubmitAfterSuccessDoesNotDuplicateConfirmation(t *testing.T) {
	svc := &fakeService{appointment: &chat.Appointment{ID: "apt-1"}}
	m := newTestManager(svc)
	profile := &chat.PatientProfile{FirstName: "Asha", PhoneNumber: "9876543210"}
	store := chat.NewStore()
	effect, _ := m.PresentAppointmentForm(drMehta, profile, "")
	appendAll(store, effect)
	sub := AppointmentSubmission{FormID: effect.Append[0].Payload.(chat.AppointmentForm).FormID, Date: "2030-03-12", Time: "10:30"}

	effect, err := m.SubmitAppointment(context.Background(), store.Messages(), sub, profile)
	require.NoError(t, err)
	appendAll(store, effect)
	effect, err = m.SubmitAppointment(context.Background(), store.Messages(), sub, profile)
	require.NoError(t, err)
	appendAll(store, effect)

	assert.Len(t, svc.booked, 1)
	assert.Equal(t, 1, store.Count(chat.TypeAppointmentSuccess))
}

func TestCancelledAppointmentCannotBeRescheduled(t *testing.T) {
	svc := &fakeService{rescheduled: &chat.Appointment{ID: "apt-1"}}
	m := newTestManager(svc)
	ctx := context.Background()
	store := chat.NewStore()
	store.Append(chat.Assistant(chat.AppointmentSuccess{Appointment: chat.Appointment{ID: "apt-1", Date: "2030-03-12", Time: "10:30"}}))

	form := m.Reschedule(ctx, store.Messages(), "apt-1")
	appendAll(store, form)
	require.Equal(t, 1, store.Count(chat.TypeRescheduleForm))

	appendAll(store, m.CancelAppointment(ctx, "apt-1"))
	assert.Zero(t, store.Count(chat.TypeRescheduleForm))

	effect := m.Reschedule(ctx, store.Messages(), "apt-1")
	require.Len(t, effect.Append, 1)
	assert.Equal(t, chat.TypeText, effect.Append[0].Type())
	assert.Contains(t, chat.Content(effect.Append[0].Payload), "cancelled")

	again := m.CancelAppointment(ctx, "apt-1")
	assert.Contains(t, chat.Content(again.Append[0].Payload), "already cancelled")
	assert.Equal(t, []string{"apt-1"}, svc.cancelled)
	assert.Empty(t, svc.reschedules)
}

func TestCancelAppointment(t *testing.T) {
	svc := &fakeService{}
	m := newTestManager(svc)
	effect := m.CancelAppointment(context.Background(), "apt-1")
	require.Len(t, effect.Append, 1)
	assert.True(t, strings.HasPrefix(effect.Append[0].Payload.(chat.Text).Body, "✅ "))

	svc.err = &backend.NetworkError{Call: "cancel_appointment", Err: errors.New("i/o timeout")}
	effect = m.CancelTestBooking(context.Background(), "tb-1")
	body := effect.Append[0].Payload.(chat.Text).Body
	assert.True(t, strings.HasPrefix(body, "⚠️ "))
	assert.NotContains(t, body, "i/o timeout")
}

func TestSubmitTestBookingServerTotalWins(t *testing.T) {
	tests := []chat.MedicalTest{
		{ID: "cbc", Name: "Complete Blood Count", Cost: 35000, Preparation: "No fasting needed"},
		{ID: "lipid", Name: "Lipid Profile", Cost: 60000, Preparation: "Fast for 12 hours"},
	}
	svc := &fakeService{testBooking: &chat.TestBooking{BookingID: "tb-9", TotalCost: 90000}}
	rec := &countingRecorder{}
	m := newTestManager(svc, WithRecorder(rec))
	profile := &chat.PatientProfile{FirstName: "Asha", PhoneNumber: "9876543210"}

	store := chat.NewStore()
	effect, err := m.PresentTestForm(tests, profile)
	require.NoError(t, err)
	appendAll(store, effect)
	form := effect.Append[0].Payload.(chat.TestForm)
	assert.Equal(t, chat.Money(95000), form.TotalCost)

	effect, err = m.SubmitTestBooking(context.Background(), store.Messages(), TestSubmission{FormID: form.FormID, Date: "2030-03-11", Time: "08:00"}, profile)
	require.NoError(t, err)
	appendAll(store, effect)

	assert.Zero(t, store.Count(chat.TypeTestForm))
	msg, _ := store.Visible(chat.TypeTestSuccess)
	booking := msg.Payload.(chat.TestSuccess).Booking
	assert.Equal(t, chat.Money(90000), booking.TotalCost)
	assert.Len(t, booking.Tests, 2)
	assert.Len(t, booking.PreparationInstructions, 2)
	assert.Equal(t, 1, rec.mismatches)
	assert.Equal(t, []string{"cbc", "lipid"}, svc.testRequests[0].TestIDs)
}

func TestDismissForm(t *testing.T) {
	m := newTestManager(&fakeService{})
	effect := m.DismissForm(chat.TypeTestForm)
	assert.Equal(t, []chat.Type{chat.TypeTestForm}, effect.Remove)
	assert.Len(t, effect.Append, 1)
	assert.True(t, m.DismissForm(chat.TypeText).Empty())
}

func TestOrdinal(t *testing.T) {
	cases := map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 102: "102nd", 111: "111th"}
	for n, want := range cases {
		if got := Ordinal(n); got != want {
			t.Fatalf("Ordinal(%d) = %q, want %q", n, got, want)
		}
	}
}

// Property: the total on a test form is the sum of the selected costs.
func TestProperty_TestFormTotalIsSumOfCosts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	m := newTestManager(&fakeService{})

	properties.Property("displayed total equals the sum of costs", prop.ForAll(
		func(costs []int64) bool {
			tests := make([]chat.MedicalTest, len(costs))
			var want chat.Money
			for i, c := range costs {
				tests[i] = chat.MedicalTest{ID: string(rune('a' + i%26)), Cost: chat.Money(c)}
				want += chat.Money(c)
			}
			effect, err := m.PresentTestForm(tests, &chat.PatientProfile{IsNew: true})
			if err != nil {
				return false
			}
			return effect.Append[0].Payload.(chat.TestForm).TotalCost == want
		},
		gen.SliceOf(gen.Int64Range(0, 5_000_000)),
	))

	properties.TestingRun(t)
}
