// Package conversation owns one patient conversation: it routes input to
// the interview engine, the recognition gate and the booking manager, and
// commits their effects to the message store and session cache.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/booking"
	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/internal/diagnosis"
	"github.com/wolfman30/triage-concierge/internal/recognition"
	"github.com/wolfman30/triage-concierge/internal/session"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

var (
	// ErrBusy means another operation is still running for this session.
	ErrBusy = errors.New("conversation: operation in progress")
	// ErrUnknownAction means the quick reply action is not recognized.
	ErrUnknownAction = errors.New("conversation: unknown action")
)

const (
	fillerPrompt    = "Could you tell me a bit more about how you're feeling? For example: \"I've had a headache and fever since yesterday\". You can also say \"book a doctor\" or \"book a blood test\"."
	historyForGreet = 10
)

// Archiver keeps a long-term copy of committed entries.
type Archiver interface {
	Append(ctx context.Context, sessionID string, entries []chat.Entry) error
}

// Exporter writes the full transcript when a conversation is cleared.
type Exporter interface {
	Export(ctx context.Context, sessionID, phone string, entries []chat.Entry) error
}

// TurnObserver counts routing decisions. metrics.ConversationMetrics
// implements it.
type TurnObserver interface {
	ObserveTurn(route string)
}

// Deps are the collaborators shared by every Orchestrator.
type Deps struct {
	Engine   *diagnosis.Engine
	Gate     *recognition.Gate
	Booking  *booking.Manager
	Sessions session.Store
	Archive  Archiver
	Export   Exporter
	Metrics  TurnObserver
	Logger   *logging.Logger
}

// Snapshot is a copy of the orchestrator's conversation state.
type Snapshot struct {
	Diagnosis   diagnosis.Session `json:"diagnosis"`
	Recognition recognition.State `json:"recognition"`
	Symptoms    string            `json:"symptoms,omitempty"`
	Loading     bool              `json:"loading"`
}

// Orchestrator is the single entry point for one conversation. At most one
// operation runs at a time; network calls never hold the state lock.
type Orchestrator struct {
	id       string
	engine   *diagnosis.Engine
	gate     *recognition.Gate
	booking  *booking.Manager
	sessions session.Store
	archive  Archiver
	export   Exporter
	metrics  TurnObserver
	logger   *logging.Logger

	loading    atomic.Bool
	lastActive atomic.Int64

	mu         sync.Mutex
	generation uint64
	store      *chat.Store
	diag       diagnosis.Session
	recog      recognition.State
	symptoms   string
}

// New builds an orchestrator for sessionID.
func New(sessionID string, deps Deps) *Orchestrator {
	if deps.Engine == nil || deps.Gate == nil || deps.Booking == nil {
		panic("conversation: engine, gate and booking manager are required")
	}
	if deps.Sessions == nil {
		panic("conversation: session store required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		id:       sessionID,
		engine:   deps.Engine,
		gate:     deps.Gate,
		booking:  deps.Booking.ForSession(sessionID),
		sessions: deps.Sessions,
		archive:  deps.Archive,
		export:   deps.Export,
		metrics:  deps.Metrics,
		logger:   logger.Component("conversation").With("session_id", sessionID),
		store:    chat.NewStore(),
		diag:     diagnosis.Idle(),
		recog:    recognition.State{SessionID: sessionID},
	}
	o.touch()
	return o
}

// ID returns the session id.
func (o *Orchestrator) ID() string { return o.id }

// LastActive returns when the conversation last received input.
func (o *Orchestrator) LastActive() time.Time {
	return time.Unix(0, o.lastActive.Load())
}

// Busy reports whether an operation is running.
func (o *Orchestrator) Busy() bool { return o.loading.Load() }

// Messages returns a snapshot of the conversation.
func (o *Orchestrator) Messages() []chat.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Messages()
}

// State returns copies of the interview and recognition state.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	d := o.diag
	if d.CurrentQuestion != nil {
		q := *d.CurrentQuestion
		d.CurrentQuestion = &q
	}
	return Snapshot{Diagnosis: d, Recognition: o.recog.Clone(), Symptoms: o.symptoms, Loading: o.loading.Load()}
}

// HandleUserInput routes free text and returns the messages it appended,
// starting with the echoed user message.
func (o *Orchestrator) HandleUserInput(ctx context.Context, text string) ([]chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	gen, ok := o.begin()
	if !ok {
		return nil, ErrBusy
	}
	defer o.end()

	echoed := o.commit(ctx, gen, chat.Say(chat.UserText(text)), nil)
	snap := o.State()

	var route Route
	var appended []chat.Message
	switch {
	case snap.Diagnosis.AwaitingAnswer():
		route = RouteAnswer
		appended = o.answer(ctx, gen, snap.Diagnosis, text)
	case snap.Recognition.IsCollectingPhone:
		route = RoutePhone
		appended = o.resolvePhone(ctx, gen, snap, text)
	default:
		route = Classify(text)
		switch route {
		case RouteBookTests:
			appended = o.recommend(ctx, gen, route, o.symptomsOr(snap, text))
		case RouteBookDoctor:
			appended = o.recommend(ctx, gen, route, o.symptomsOr(snap, text))
		case RouteFiller:
			appended = o.commit(ctx, gen, chat.Say(chat.AssistantText(fillerPrompt)), nil)
		default:
			appended = o.diagnose(ctx, gen, text)
		}
	}
	o.observe(route)
	return append(echoed, appended...), nil
}

// HandleQuickReply runs a structured action. Quick replies are not echoed.
// Cancel actions that arrive while busy are dropped.
func (o *Orchestrator) HandleQuickReply(ctx context.Context, qr QuickReply) ([]chat.Message, error) {
	gen, ok := o.begin()
	if !ok {
		if qr.Action.cancels() {
			o.logger.Debug("dropping cancel while busy", "action", qr.Action)
			return nil, nil
		}
		return nil, ErrBusy
	}
	defer o.end()

	snap := o.State()
	o.observe(RouteAction)

	switch qr.Action {
	case ActionAnswer:
		if !snap.Diagnosis.AwaitingAnswer() {
			return o.commit(ctx, gen, chat.Say(chat.AssistantText("There isn't an open question right now. Tell me how you're feeling to start a new assessment.")), nil), nil
		}
		return o.answer(ctx, gen, snap.Diagnosis, qr.Value), nil
	case ActionBookDoctor:
		return o.recommend(ctx, gen, RouteBookDoctor, o.symptomsOr(snap, "")), nil
	case ActionBookTests:
		return o.recommend(ctx, gen, RouteBookTests, o.symptomsOr(snap, "")), nil
	case ActionSelectDoctor:
		return o.selectDoctor(ctx, gen, snap, qr.DoctorID), nil
	case ActionSelectTests:
		return o.selectTests(ctx, gen, snap, qr.TestIDs), nil
	case ActionReschedule:
		return o.commit(ctx, gen, o.booking.Reschedule(ctx, o.Messages(), qr.AppointmentID), nil), nil
	case ActionCancelAppointment:
		return o.commit(ctx, gen, o.booking.CancelAppointment(ctx, qr.AppointmentID), nil), nil
	case ActionCancelTest:
		return o.commit(ctx, gen, o.booking.CancelTestBooking(ctx, qr.BookingID), nil), nil
	case ActionDismissForm:
		return o.commit(ctx, gen, o.booking.DismissForm(qr.FormType), nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, qr.Action)
	}
}

// SubmitAppointment books the visible appointment form. Only a
// *booking.ValidationError is returned; other failures become messages.
func (o *Orchestrator) SubmitAppointment(ctx context.Context, sub booking.AppointmentSubmission) ([]chat.Message, error) {
	gen, ok := o.begin()
	if !ok {
		return nil, ErrBusy
	}
	defer o.end()
	o.observe(RouteForm)

	snap := o.State()
	effect, err := o.booking.SubmitAppointment(ctx, o.Messages(), sub, snap.Recognition.PatientProfile)
	if err != nil {
		return nil, err
	}
	return o.commit(ctx, gen, effect, nil), nil
}

// SubmitReschedule moves a confirmed appointment.
func (o *Orchestrator) SubmitReschedule(ctx context.Context, sub booking.RescheduleSubmission) ([]chat.Message, error) {
	gen, ok := o.begin()
	if !ok {
		return nil, ErrBusy
	}
	defer o.end()
	o.observe(RouteForm)

	effect, err := o.booking.SubmitReschedule(ctx, o.Messages(), sub)
	if err != nil {
		return nil, err
	}
	return o.commit(ctx, gen, effect, nil), nil
}

// SubmitTestBooking books the tests on the visible test form.
func (o *Orchestrator) SubmitTestBooking(ctx context.Context, sub booking.TestSubmission) ([]chat.Message, error) {
	gen, ok := o.begin()
	if !ok {
		return nil, ErrBusy
	}
	defer o.end()
	o.observe(RouteForm)

	snap := o.State()
	effect, err := o.booking.SubmitTestBooking(ctx, o.Messages(), sub, snap.Recognition.PatientProfile)
	if err != nil {
		return nil, err
	}
	return o.commit(ctx, gen, effect, nil), nil
}

// Clear wipes the conversation and its cached entries. Results of any
// operation still in flight are discarded when they complete.
func (o *Orchestrator) Clear(ctx context.Context) error {
	o.mu.Lock()
	o.generation++
	entries := o.store.Entries()
	var phone string
	if p := o.recog.PatientProfile; p != nil {
		phone = p.PhoneNumber
	}
	o.store.Reset()
	o.diag = diagnosis.Idle()
	o.recog = recognition.State{SessionID: o.id}
	o.symptoms = ""
	o.mu.Unlock()

	if o.export != nil {
		if err := o.export.Export(ctx, o.id, phone, entries); err != nil {
			o.logger.Warn("transcript export failed", "error", err)
		}
	}
	if err := o.sessions.Delete(ctx, o.id); err != nil {
		return fmt.Errorf("conversation: clear: %w", err)
	}
	o.logger.Info("conversation cleared", "entries", len(entries))
	return nil
}

// Restore rebuilds the store from the session cache. It reports false when
// nothing was cached. In-flight interview and booking state is not
// persisted and starts fresh.
func (o *Orchestrator) Restore(ctx context.Context) (bool, error) {
	entries, err := o.sessions.Load(ctx, o.id)
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("conversation: restore: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.store.Restore(entries)
	o.diag = diagnosis.Idle()
	o.recog = recognition.State{SessionID: o.id}
	o.symptoms = ""
	if msg, ok := o.store.FindLast(func(m chat.Message) bool {
		return m.Role == chat.RoleUser && m.Type() == chat.TypeText
	}); ok {
		o.symptoms = msg.Payload.(chat.Text).Body
	}
	o.logger.Info("conversation restored", "entries", len(entries), "messages", o.store.Len())
	return true, nil
}

func (o *Orchestrator) answer(ctx context.Context, gen uint64, current diagnosis.Session, value string) []chat.Message {
	out, err := o.engine.Answer(ctx, current, value)
	if err != nil {
		o.logger.Warn("answer failed", "error", err)
		return o.commit(ctx, gen, warn(err, "I couldn't send your answer."), nil)
	}
	return o.commit(ctx, gen, out.Effect, func() { o.diag = out.Session })
}

func (o *Orchestrator) diagnose(ctx context.Context, gen uint64, text string) []chat.Message {
	out, err := o.engine.Start(ctx, text)
	if err != nil {
		o.logger.Warn("interview start failed", "error", err)
		return o.commit(ctx, gen, warn(err, "I couldn't start the assessment."), func() { o.symptoms = text })
	}
	return o.commit(ctx, gen, out.Effect, func() {
		o.diag = out.Session
		o.symptoms = text
	})
}

func (o *Orchestrator) recommend(ctx context.Context, gen uint64, route Route, symptoms string) []chat.Message {
	var effect chat.Effect
	if route == RouteBookTests {
		effect = o.booking.RecommendTests(ctx, symptoms)
	} else {
		effect = o.booking.RecommendDoctors(ctx, symptoms)
	}
	return o.commit(ctx, gen, effect, o.endInterview)
}

// endInterview drops any open interview question. Callers hold o.mu.
func (o *Orchestrator) endInterview() {
	o.diag = diagnosis.Idle()
}

func (o *Orchestrator) selectDoctor(ctx context.Context, gen uint64, snap Snapshot, doctorID string) []chat.Message {
	history := o.Messages()
	msg, ok := chat.FindLast(history, func(m chat.Message) bool {
		d, ok := m.Payload.(chat.Doctors)
		return ok && findDoctor(d.Doctors, doctorID) != nil
	})
	if !ok {
		return o.commit(ctx, gen, chat.Say(chat.AssistantText("⚠️ I couldn't find that doctor. Please pick one from the list.")), nil)
	}
	doctor := *findDoctor(msg.Payload.(chat.Doctors).Doctors, doctorID)

	if profile := snap.Recognition.PatientProfile; profile != nil {
		effect, err := o.booking.PresentAppointmentForm(doctor, profile, snap.Symptoms)
		if err == nil {
			return o.commit(ctx, gen, effect, o.endInterview)
		}
	}
	state, effect := o.gate.Begin(snap.Recognition, snap.Symptoms, turns(history), recognition.Selection{Kind: recognition.SelectDoctor, Doctor: &doctor})
	return o.commit(ctx, gen, effect, func() {
		o.endInterview()
		o.recog = state
	})
}

func (o *Orchestrator) selectTests(ctx context.Context, gen uint64, snap Snapshot, ids []string) []chat.Message {
	history := o.Messages()
	var selected []chat.MedicalTest
	if msg, ok := o.latest(chat.TypeTests); ok {
		available := msg.Payload.(chat.Tests).Tests
		for _, id := range ids {
			for _, t := range available {
				if t.ID == id {
					selected = append(selected, t)
					break
				}
			}
		}
	}
	if len(selected) == 0 {
		return o.commit(ctx, gen, chat.Say(chat.AssistantText("Please select at least one test from the list.")), nil)
	}

	if profile := snap.Recognition.PatientProfile; profile != nil {
		effect, err := o.booking.PresentTestForm(selected, profile)
		if err == nil {
			return o.commit(ctx, gen, effect, o.endInterview)
		}
	}
	state, effect := o.gate.Begin(snap.Recognition, snap.Symptoms, turns(history), recognition.Selection{Kind: recognition.SelectTests, Tests: selected})
	return o.commit(ctx, gen, effect, func() {
		o.endInterview()
		o.recog = state
	})
}

func (o *Orchestrator) resolvePhone(ctx context.Context, gen uint64, snap Snapshot, text string) []chat.Message {
	var res recognition.Resolution
	if IsSkip(text) {
		res = o.gate.Skip(snap.Recognition)
	} else {
		var err error
		res, err = o.gate.Resolve(ctx, snap.Recognition, text)
		if errors.Is(err, recognition.ErrInvalidPhone) {
			return o.commit(ctx, gen, o.gate.Reprompt(), nil)
		}
		if err != nil {
			o.logger.Warn("phone resolution failed", "error", err)
			return o.commit(ctx, gen, warn(err, "I couldn't check that number."), nil)
		}
	}

	effect := res.Effect
	if sel := res.Selection; sel != nil {
		var form chat.Effect
		var err error
		switch sel.Kind {
		case recognition.SelectDoctor:
			if sel.Doctor != nil {
				form, err = o.booking.PresentAppointmentForm(*sel.Doctor, res.State.PatientProfile, res.State.CurrentSymptoms)
			}
		case recognition.SelectTests:
			form, err = o.booking.PresentTestForm(sel.Tests, res.State.PatientProfile)
		}
		if err != nil {
			o.logger.Error("form presentation failed after resolution", "error", err)
		} else {
			effect = effect.Then(form)
		}
	}
	return o.commit(ctx, gen, effect, func() { o.recog = res.State })
}

// begin claims the loading gate and captures the current generation.
func (o *Orchestrator) begin() (uint64, bool) {
	if !o.loading.CompareAndSwap(false, true) {
		return 0, false
	}
	o.touch()
	o.mu.Lock()
	gen := o.generation
	o.mu.Unlock()
	return gen, true
}

func (o *Orchestrator) end() {
	o.loading.Store(false)
}

// commit applies effect and mutate atomically unless the conversation was
// cleared since gen was captured, then writes through to the cache and
// archive.
func (o *Orchestrator) commit(ctx context.Context, gen uint64, effect chat.Effect, mutate func()) []chat.Message {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		o.logger.Info("discarding stale result", "generation", gen)
		return nil
	}
	if mutate != nil {
		mutate()
	}
	appended := o.store.Apply(effect)
	entries := o.store.Entries()
	o.mu.Unlock()

	if effect.Empty() {
		return appended
	}
	if err := o.sessions.Save(ctx, o.id, entries); err != nil {
		o.logger.Warn("session cache write failed", "error", err)
	}
	if o.archive != nil {
		if rows := chat.Project(appended); len(rows) > 0 {
			if err := o.archive.Append(ctx, o.id, rows); err != nil {
				o.logger.Warn("archive write failed", "error", err)
			}
		}
	}
	return appended
}

func (o *Orchestrator) latest(t chat.Type) (chat.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Visible(t)
}

func (o *Orchestrator) symptomsOr(snap Snapshot, fallback string) string {
	if snap.Symptoms != "" {
		return snap.Symptoms
	}
	return fallback
}

func (o *Orchestrator) observe(route Route) {
	if o.metrics != nil {
		o.metrics.ObserveTurn(string(route))
	}
}

func (o *Orchestrator) touch() {
	o.lastActive.Store(time.Now().UnixNano())
}

func findDoctor(doctors []chat.Doctor, id string) *chat.Doctor {
	for i := range doctors {
		if doctors[i].ID == id {
			return &doctors[i]
		}
	}
	return nil
}

// turns renders recent history as plain text for the smart welcome.
func turns(history []chat.Message) []recognition.Turn {
	if len(history) > historyForGreet {
		history = history[len(history)-historyForGreet:]
	}
	out := make([]recognition.Turn, 0, len(history))
	for _, m := range history {
		if m.Type().Ephemeral() {
			continue
		}
		out = append(out, recognition.Turn{Role: string(m.Role), Content: chat.Content(m.Payload)})
	}
	return out
}

func warn(err error, fallback string) chat.Effect {
	return chat.Say(chat.AssistantText("⚠️ " + backend.UserMessage(err, fallback)))
}
