package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/internal/events"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

const (
	kindAppointment = "appointment"
	kindReschedule  = "reschedule"
	kindTests       = "tests"
	kindCancel      = "cancel"
)

// Recorder counts booking outcomes. metrics.ConversationMetrics implements it.
type Recorder interface {
	ObserveBooking(kind, outcome string)
	ObserveCostMismatch()
}

// Manager runs booking transactions for one conversation. Every operation
// returns a chat.Effect for the caller to commit; only form validation
// problems come back as errors.
type Manager struct {
	service   Service
	ledger    Ledger
	publisher events.Publisher
	recorder  Recorder
	logger    *logging.Logger
	now       func() time.Time
	sessionID string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLedger sets the duplicate submission ledger.
func WithLedger(l Ledger) Option {
	return func(m *Manager) {
		if l != nil {
			m.ledger = l
		}
	}
}

// WithPublisher sets where booking events go.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithClock overrides time.Now for date validation.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager wires the booking service.
func NewManager(service Service, logger *logging.Logger, opts ...Option) *Manager {
	if service == nil {
		panic("booking: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Manager{
		service: service,
		ledger:  NewMemoryLedger(),
		logger:  logger.Component("booking"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ForSession returns a manager bound to one conversation.
func (m *Manager) ForSession(sessionID string) *Manager {
	cp := *m
	cp.sessionID = sessionID
	cp.logger = m.logger.With("session_id", sessionID)
	return &cp
}

// RecommendDoctors fetches doctor recommendations for symptoms.
func (m *Manager) RecommendDoctors(ctx context.Context, symptoms string) chat.Effect {
	doctors, err := m.service.RecommendDoctors(ctx, symptoms)
	if err != nil {
		m.logger.Warn("doctor recommendation failed", "error", err)
		return warn(err, "I couldn't load doctor recommendations right now.")
	}
	if len(doctors) == 0 {
		return chat.Say(chat.AssistantText("I couldn't find a matching doctor for those symptoms. Could you describe them in a little more detail?"))
	}
	return chat.Say(chat.Assistant(chat.Doctors{Doctors: doctors}))
}

// RecommendTests fetches diagnostic test recommendations for symptoms.
func (m *Manager) RecommendTests(ctx context.Context, symptoms string) chat.Effect {
	tests, err := m.service.RecommendTests(ctx, symptoms)
	if err != nil {
		m.logger.Warn("test recommendation failed", "error", err)
		return warn(err, "I couldn't load test recommendations right now.")
	}
	if len(tests) == 0 {
		return chat.Say(chat.AssistantText("I couldn't find tests to suggest for those symptoms. Could you describe them in a little more detail?"))
	}
	return chat.Say(chat.Assistant(chat.Tests{Tests: tests}))
}

// PresentAppointmentForm shows the booking form for doctor. It requires a
// resolved patient profile.
func (m *Manager) PresentAppointmentForm(doctor chat.Doctor, profile *chat.PatientProfile, symptoms string) (chat.Effect, error) {
	if profile == nil {
		return chat.Effect{}, ErrIdentityRequired
	}
	p := *profile
	return chat.Effect{
		Remove: chat.EphemeralTypes,
		Append: []chat.Message{chat.Assistant(chat.AppointmentForm{
			FormID:   uuid.NewString(),
			Doctor:   doctor,
			Patient:  &p,
			Symptoms: strings.TrimSpace(symptoms),
		})},
	}, nil
}

// PresentTestForm shows the booking form for the selected tests with their
// summed cost.
func (m *Manager) PresentTestForm(tests []chat.MedicalTest, profile *chat.PatientProfile) (chat.Effect, error) {
	if profile == nil {
		return chat.Effect{}, ErrIdentityRequired
	}
	p := *profile
	selected := append([]chat.MedicalTest(nil), tests...)
	return chat.Effect{
		Remove: chat.EphemeralTypes,
		Append: []chat.Message{chat.Assistant(chat.TestForm{
			FormID:    uuid.NewString(),
			Tests:     selected,
			TotalCost: chat.SumCosts(selected),
			Patient:   &p,
		})},
	}, nil
}

// SubmitAppointment books the appointment described by sub.
func (m *Manager) SubmitAppointment(ctx context.Context, history []chat.Message, sub AppointmentSubmission, profile *chat.PatientProfile) (chat.Effect, error) {
	if prior := m.lookup(ctx, sub.FormID); prior != nil {
		var success chat.AppointmentSuccess
		if err := json.Unmarshal(prior.Payload, &success); err == nil {
			m.logger.Info("appointment form already confirmed", "form_id", sub.FormID, "appointment_id", success.Appointment.ID)
			return replay(history, chat.TypeAppointmentForm, success, sameAppointment(success.Appointment)), nil
		}
	}

	form, hasForm := findAppointmentForm(history, sub.FormID)
	if !hasForm {
		return m.formClosed(chat.TypeAppointmentForm, sub.FormID), nil
	}
	if sub.DoctorID == "" {
		sub.DoctorID = form.Doctor.ID
	}
	if sub.Symptoms == "" {
		sub.Symptoms = form.Symptoms
	}
	sub.mergeProfile(profile)
	if err := sub.validate(m.now()); err != nil {
		return chat.Effect{}, err
	}

	req := AppointmentRequest{
		DoctorID:        sub.DoctorID,
		PatientName:     strings.TrimSpace(sub.PatientName),
		PhoneNumber:     strings.TrimSpace(sub.PhoneNumber),
		Email:           sub.Email,
		Age:             sub.Age,
		Gender:          sub.Gender,
		AppointmentDate: sub.Date,
		AppointmentTime: sub.Time,
		Symptoms:        sub.Symptoms,
	}
	if profile != nil {
		req.PatientID = profile.PatientID
	}

	appt, err := m.service.BookAppointment(ctx, req)
	if err != nil {
		m.observe(kindAppointment, err)
		m.logger.Warn("appointment booking failed", "doctor_id", sub.DoctorID, "error", err)
		return warn(err, "I couldn't book that appointment."), nil
	}
	m.observe(kindAppointment, nil)

	confirmed := *appt
	fillAppointment(&confirmed, chat.Appointment{
		DoctorID:    req.DoctorID,
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		PhoneNumber: req.PhoneNumber,
		Date:        req.AppointmentDate,
		Time:        req.AppointmentTime,
		Symptoms:    req.Symptoms,
	})
	fillAppointment(&confirmed, chat.Appointment{
		DoctorName:   form.Doctor.Name,
		Specialty:    form.Doctor.Specialty,
		HospitalName: form.Doctor.HospitalName,
	})

	success := chat.AppointmentSuccess{Appointment: confirmed}
	if profile != nil && profile.TotalVisits > 1 {
		success.Note = fmt.Sprintf("This is your %s visit with us.", Ordinal(profile.TotalVisits))
	}

	m.logger.Info("appointment booked", "appointment_id", confirmed.ID, "doctor_id", confirmed.DoctorID)
	m.record(ctx, sub.FormID, kindAppointment, confirmed.ID, success)
	m.publish(ctx, events.AppointmentBooked, confirmed)

	return chat.Effect{
		Remove: []chat.Type{chat.TypeAppointmentForm},
		Append: []chat.Message{chat.Assistant(success)},
	}, nil
}

// Reschedule opens the reschedule form for a confirmed appointment found
// in history.
func (m *Manager) Reschedule(ctx context.Context, history []chat.Message, appointmentID string) chat.Effect {
	appt, err := m.activeAppointment(ctx, history, appointmentID)
	if err != nil {
		m.logger.Info("reschedule refused", "appointment_id", appointmentID, "error", err)
		return chat.Say(chat.AssistantText(rescheduleRefusal(err)))
	}
	return chat.Effect{
		Remove: chat.EphemeralTypes,
		Append: []chat.Message{chat.Assistant(chat.RescheduleForm{
			FormID:      uuid.NewString(),
			Appointment: appt,
			CurrentDate: appt.Date,
			CurrentTime: appt.Time,
		})},
	}
}

// SubmitReschedule moves a confirmed appointment to a new date and time.
func (m *Manager) SubmitReschedule(ctx context.Context, history []chat.Message, sub RescheduleSubmission) (chat.Effect, error) {
	if prior := m.lookup(ctx, sub.FormID); prior != nil {
		var success chat.AppointmentSuccess
		if err := json.Unmarshal(prior.Payload, &success); err == nil {
			return replay(history, chat.TypeRescheduleForm, success, sameAppointment(success.Appointment)), nil
		}
	}

	form, hasForm := findRescheduleForm(history, sub.FormID)
	if !hasForm || (sub.AppointmentID != "" && form.Appointment.ID != sub.AppointmentID) {
		return m.formClosed(chat.TypeRescheduleForm, sub.FormID), nil
	}
	if sub.AppointmentID == "" {
		sub.AppointmentID = form.Appointment.ID
	}
	if err := sub.validate(m.now()); err != nil {
		return chat.Effect{}, err
	}
	original, err := m.activeAppointment(ctx, history, sub.AppointmentID)
	if err != nil {
		m.logger.Info("reschedule refused", "appointment_id", sub.AppointmentID, "error", err)
		return chat.Effect{
			Remove: []chat.Type{chat.TypeRescheduleForm},
			Append: []chat.Message{chat.AssistantText(rescheduleRefusal(err))},
		}, nil
	}

	appt, err := m.service.RescheduleAppointment(ctx, sub.AppointmentID, RescheduleRequest{
		AppointmentDate: sub.Date,
		AppointmentTime: sub.Time,
	})
	if err != nil {
		m.observe(kindReschedule, err)
		m.logger.Warn("reschedule failed", "appointment_id", sub.AppointmentID, "error", err)
		return warn(err, "I couldn't reschedule that appointment."), nil
	}
	m.observe(kindReschedule, nil)

	updated := *appt
	if updated.ID == "" {
		updated.ID = original.ID
	}
	if updated.Date == "" {
		updated.Date = sub.Date
	}
	if updated.Time == "" {
		updated.Time = sub.Time
	}
	fillAppointment(&updated, original)

	success := chat.AppointmentSuccess{
		Appointment: updated,
		Note:        fmt.Sprintf("Moved from %s at %s.", original.Date, original.Time),
	}
	m.logger.Info("appointment rescheduled", "appointment_id", updated.ID, "date", updated.Date, "time", updated.Time)
	m.record(ctx, sub.FormID, kindReschedule, updated.ID, success)
	m.publish(ctx, events.AppointmentRescheduled, updated)

	return chat.Effect{
		Remove: []chat.Type{chat.TypeRescheduleForm},
		Append: []chat.Message{chat.Assistant(success)},
	}, nil
}

// CancelAppointment cancels a confirmed appointment.
func (m *Manager) CancelAppointment(ctx context.Context, appointmentID string) chat.Effect {
	if m.lookup(ctx, cancelKey(kindAppointment, appointmentID)) != nil {
		return chat.Say(chat.AssistantText(fmt.Sprintf("Your appointment %s is already cancelled.", appointmentID)))
	}
	if err := m.service.CancelAppointment(ctx, appointmentID); err != nil {
		m.observe(kindCancel, err)
		m.logger.Warn("appointment cancel failed", "appointment_id", appointmentID, "error", err)
		return warn(err, "I couldn't cancel that appointment.")
	}
	m.observe(kindCancel, nil)
	m.logger.Info("appointment cancelled", "appointment_id", appointmentID)
	m.record(ctx, cancelKey(kindAppointment, appointmentID), kindCancel, appointmentID, map[string]string{"appointment_id": appointmentID})
	m.publish(ctx, events.AppointmentCancelled, chat.Appointment{ID: appointmentID})
	return chat.Effect{
		Remove: []chat.Type{chat.TypeRescheduleForm},
		Append: []chat.Message{chat.AssistantText(fmt.Sprintf("✅ Your appointment %s has been cancelled.", appointmentID))},
	}
}

// CancelTestBooking cancels a confirmed test booking.
func (m *Manager) CancelTestBooking(ctx context.Context, bookingID string) chat.Effect {
	if m.lookup(ctx, cancelKey(kindTests, bookingID)) != nil {
		return chat.Say(chat.AssistantText(fmt.Sprintf("Your test booking %s is already cancelled.", bookingID)))
	}
	if err := m.service.CancelTestBooking(ctx, bookingID); err != nil {
		m.observe(kindCancel, err)
		m.logger.Warn("test booking cancel failed", "booking_id", bookingID, "error", err)
		return warn(err, "I couldn't cancel that test booking.")
	}
	m.observe(kindCancel, nil)
	m.logger.Info("test booking cancelled", "booking_id", bookingID)
	m.record(ctx, cancelKey(kindTests, bookingID), kindCancel, bookingID, map[string]string{"booking_id": bookingID})
	evt := events.NewBookingEvent(events.TestBookingCancelled, m.sessionID, bookingID)
	m.send(ctx, evt)
	return chat.Say(chat.AssistantText(fmt.Sprintf("✅ Your test booking %s has been cancelled.", bookingID)))
}

// SubmitTestBooking books the tests on the visible form. The backend total
// is authoritative; a difference from the displayed total is only logged.
func (m *Manager) SubmitTestBooking(ctx context.Context, history []chat.Message, sub TestSubmission, profile *chat.PatientProfile) (chat.Effect, error) {
	if prior := m.lookup(ctx, sub.FormID); prior != nil {
		var success chat.TestSuccess
		if err := json.Unmarshal(prior.Payload, &success); err == nil {
			return replay(history, chat.TypeTestForm, success, func(msg chat.Message) bool {
				s, ok := msg.Payload.(chat.TestSuccess)
				return ok && s.Booking.BookingID == success.Booking.BookingID
			}), nil
		}
	}

	form, hasForm := findTestForm(history, sub.FormID)
	if !hasForm {
		return m.formClosed(chat.TypeTestForm, sub.FormID), nil
	}
	tests := selectTests(form.Tests, sub.TestIDs)
	sub.mergeProfile(profile)
	if err := sub.validate(m.now(), tests); err != nil {
		return chat.Effect{}, err
	}

	req := TestBookingRequest{
		PatientName:   strings.TrimSpace(sub.PatientName),
		PhoneNumber:   strings.TrimSpace(sub.PhoneNumber),
		Email:         sub.Email,
		PreferredDate: sub.Date,
		PreferredTime: sub.Time,
	}
	for _, t := range tests {
		req.TestIDs = append(req.TestIDs, t.ID)
	}
	if profile != nil {
		req.PatientID = profile.PatientID
	}

	booking, err := m.service.BookTests(ctx, req)
	if err != nil {
		m.observe(kindTests, err)
		m.logger.Warn("test booking failed", "tests", len(tests), "error", err)
		return warn(err, "I couldn't book those tests."), nil
	}
	m.observe(kindTests, nil)

	confirmed := *booking
	clientTotal := chat.SumCosts(tests)
	if len(sub.TestIDs) == 0 && form.TotalCost != 0 {
		clientTotal = form.TotalCost
	}
	if len(confirmed.Tests) == 0 {
		for _, t := range tests {
			confirmed.Tests = append(confirmed.Tests, chat.BookedTest{TestID: t.ID, Name: t.Name, Cost: t.Cost})
		}
	}
	if confirmed.TotalCost == 0 {
		confirmed.TotalCost = clientTotal
	} else if confirmed.TotalCost != clientTotal {
		m.logger.Warn("test total differs from displayed total",
			"booking_id", confirmed.BookingID,
			"server_total", confirmed.TotalCost.String(),
			"client_total", clientTotal.String(),
		)
		if m.recorder != nil {
			m.recorder.ObserveCostMismatch()
		}
	}
	if len(confirmed.PreparationInstructions) == 0 {
		for _, t := range tests {
			if p := strings.TrimSpace(t.Preparation); p != "" {
				confirmed.PreparationInstructions = append(confirmed.PreparationInstructions, t.Name+": "+p)
			}
		}
	}
	if confirmed.PatientName == "" {
		confirmed.PatientName = req.PatientName
	}
	if confirmed.PhoneNumber == "" {
		confirmed.PhoneNumber = req.PhoneNumber
	}
	if confirmed.Date == "" {
		confirmed.Date = req.PreferredDate
	}
	if confirmed.Time == "" {
		confirmed.Time = req.PreferredTime
	}

	success := chat.TestSuccess{Booking: confirmed}
	m.logger.Info("tests booked", "booking_id", confirmed.BookingID, "total", confirmed.TotalCost.String())
	m.record(ctx, sub.FormID, kindTests, confirmed.BookingID, success)
	evt := events.NewBookingEvent(events.TestsBooked, m.sessionID, confirmed.BookingID)
	evt.PatientID = confirmed.PatientID
	evt.Date, evt.Time = confirmed.Date, confirmed.Time
	evt.AmountMinor = int64(confirmed.TotalCost)
	m.send(ctx, evt)

	return chat.Effect{
		Remove: []chat.Type{chat.TypeTestForm},
		Append: []chat.Message{chat.Assistant(success)},
	}, nil
}

// DismissForm closes a visible form after an explicit cancel.
func (m *Manager) DismissForm(t chat.Type) chat.Effect {
	if !t.Ephemeral() {
		return chat.Effect{}
	}
	return chat.Effect{
		Remove: []chat.Type{t},
		Append: []chat.Message{chat.AssistantText("Okay, I've closed the form. Let me know if you'd like to do anything else.")},
	}
}

func (m *Manager) lookup(ctx context.Context, formID string) *Confirmation {
	if formID == "" {
		return nil
	}
	c, err := m.ledger.Lookup(ctx, m.sessionID, formID)
	if err != nil {
		m.logger.Warn("ledger lookup failed", "form_id", formID, "error", err)
		return nil
	}
	return c
}

func (m *Manager) record(ctx context.Context, formID, kind, referenceID string, payload any) {
	if formID == "" {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warn("ledger encode failed", "form_id", formID, "error", err)
		return
	}
	err = m.ledger.Record(ctx, Confirmation{
		SessionID:   m.sessionID,
		FormID:      formID,
		Kind:        kind,
		ReferenceID: referenceID,
		Payload:     raw,
	})
	if err != nil {
		m.logger.Warn("ledger record failed", "form_id", formID, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, kind events.Kind, appt chat.Appointment) {
	evt := events.NewBookingEvent(kind, m.sessionID, appt.ID)
	evt.PatientID = appt.PatientID
	evt.Date, evt.Time = appt.Date, appt.Time
	if appt.DoctorID != "" {
		evt.Attributes = map[string]string{"doctor_id": appt.DoctorID}
	}
	m.send(ctx, evt)
}

func (m *Manager) send(ctx context.Context, evt events.BookingEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, evt); err != nil {
		m.logger.Warn("booking event publish failed", "event_id", evt.EventID, "kind", evt.Kind, "error", err)
	}
}

func (m *Manager) observe(kind string, err error) {
	if m.recorder == nil {
		return
	}
	outcome := "confirmed"
	switch {
	case err == nil:
	case backend.IsNetwork(err):
		outcome = "network_error"
	case backend.IsRejection(err):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	m.recorder.ObserveBooking(kind, outcome)
}

// formClosed answers a submission whose form was dismissed, replaced or
// never shown. Nothing is posted.
func (m *Manager) formClosed(t chat.Type, formID string) chat.Effect {
	m.logger.Info("submission for closed form", "form_type", t, "form_id", formID, "error", ErrFormClosed)
	return chat.Say(chat.AssistantText("⚠️ That form is no longer open. Please choose again and I'll bring up a fresh one."))
}

// activeAppointment finds id in history and refuses it once cancelled.
func (m *Manager) activeAppointment(ctx context.Context, history []chat.Message, id string) (chat.Appointment, error) {
	appt, err := findAppointment(history, id)
	if err != nil {
		return chat.Appointment{}, err
	}
	if m.lookup(ctx, cancelKey(kindAppointment, appt.ID)) != nil {
		return chat.Appointment{}, ErrAppointmentCancelled
	}
	return appt, nil
}

func rescheduleRefusal(err error) string {
	if errors.Is(err, ErrAppointmentCancelled) {
		return "⚠️ That appointment was cancelled, so it can't be rescheduled. You can book a new one instead."
	}
	return "⚠️ I couldn't find that appointment in this conversation, so I can't reschedule it."
}

// cancelKey is the ledger slot marking a cancelled booking.
func cancelKey(kind, id string) string {
	return "cancel:" + kind + ":" + strings.TrimSpace(id)
}

// replay returns a stored confirmation for a re-submitted form. The
// confirmation is appended only when history does not already show it.
func replay(history []chat.Message, form chat.Type, success chat.Payload, shown func(chat.Message) bool) chat.Effect {
	effect := chat.Effect{Remove: []chat.Type{form}}
	if _, ok := chat.FindLast(history, shown); !ok {
		effect.Append = []chat.Message{chat.Assistant(success)}
	}
	return effect
}

func sameAppointment(a chat.Appointment) func(chat.Message) bool {
	return func(msg chat.Message) bool {
		s, ok := msg.Payload.(chat.AppointmentSuccess)
		return ok && s.Appointment.ID == a.ID && s.Appointment.Date == a.Date && s.Appointment.Time == a.Time
	}
}

func warn(err error, fallback string) chat.Effect {
	return chat.Say(chat.AssistantText("⚠️ " + backend.UserMessage(err, fallback)))
}

// findAppointment returns the latest confirmed record for id. History is
// the only source of truth.
func findAppointment(history []chat.Message, id string) (chat.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return chat.Appointment{}, ErrAppointmentNotFound
	}
	msg, ok := chat.FindLast(history, func(m chat.Message) bool {
		s, ok := m.Payload.(chat.AppointmentSuccess)
		return ok && s.Appointment.ID == id
	})
	if !ok {
		return chat.Appointment{}, ErrAppointmentNotFound
	}
	return msg.Payload.(chat.AppointmentSuccess).Appointment, nil
}

func findAppointmentForm(history []chat.Message, formID string) (chat.AppointmentForm, bool) {
	msg, ok := chat.FindLast(history, func(m chat.Message) bool {
		f, ok := m.Payload.(chat.AppointmentForm)
		return ok && (formID == "" || f.FormID == formID)
	})
	if !ok {
		return chat.AppointmentForm{}, false
	}
	return msg.Payload.(chat.AppointmentForm), true
}

func findRescheduleForm(history []chat.Message, formID string) (chat.RescheduleForm, bool) {
	msg, ok := chat.FindLast(history, func(m chat.Message) bool {
		f, ok := m.Payload.(chat.RescheduleForm)
		return ok && (formID == "" || f.FormID == formID)
	})
	if !ok {
		return chat.RescheduleForm{}, false
	}
	return msg.Payload.(chat.RescheduleForm), true
}

func findTestForm(history []chat.Message, formID string) (chat.TestForm, bool) {
	msg, ok := chat.FindLast(history, func(m chat.Message) bool {
		f, ok := m.Payload.(chat.TestForm)
		return ok && (formID == "" || f.FormID == formID)
	})
	if !ok {
		return chat.TestForm{}, false
	}
	return msg.Payload.(chat.TestForm), true
}

// selectTests narrows the form's tests to ids when given.
func selectTests(tests []chat.MedicalTest, ids []string) []chat.MedicalTest {
	if len(ids) == 0 {
		return tests
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []chat.MedicalTest
	for _, t := range tests {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// fillAppointment copies fields from src into the blanks of dst.
func fillAppointment(dst *chat.Appointment, src chat.Appointment) {
	fill := func(d *string, s string) {
		if strings.TrimSpace(*d) == "" {
			*d = s
		}
	}
	fill(&dst.ID, src.ID)
	fill(&dst.DoctorID, src.DoctorID)
	fill(&dst.DoctorName, src.DoctorName)
	fill(&dst.Specialty, src.Specialty)
	fill(&dst.HospitalName, src.HospitalName)
	fill(&dst.PatientID, src.PatientID)
	fill(&dst.PatientName, src.PatientName)
	fill(&dst.PhoneNumber, src.PhoneNumber)
	fill(&dst.Date, src.Date)
	fill(&dst.Time, src.Time)
	fill(&dst.Symptoms, src.Symptoms)
	fill(&dst.Status, src.Status)
}

// Ordinal renders n as 1st, 2nd, 3rd, 4th, 11th, 21st and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

