package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

const maxWelcomeHistory = 10

// Gate collects and resolves a phone number before booking. It keeps no
// per-conversation state; callers pass State in and commit what comes back.
type Gate struct {
	directory      Directory
	policy         PhonePolicy
	welcomeTimeout time.Duration
	logger         *logging.Logger
}

// GateOption configures the Gate.
type GateOption func(*Gate)

// WithPhonePolicy overrides the default IN policy.
func WithPhonePolicy(p PhonePolicy) GateOption {
	return func(g *Gate) { g.policy = p }
}

// WithWelcomeTimeout bounds the wait for the smart welcome.
func WithWelcomeTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.welcomeTimeout = d
		}
	}
}

// NewGate wires the patient directory.
func NewGate(directory Directory, logger *logging.Logger, opts ...GateOption) *Gate {
	if directory == nil {
		panic("recognition: directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gate{
		directory:      directory,
		policy:         NewPhonePolicy("IN"),
		welcomeTimeout: 3 * time.Second,
		logger:         logger.Component("recognition"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the active phone policy.
func (g *Gate) Policy() PhonePolicy {
	return g.policy
}

// Begin opens the gate for selection and prompts for a phone number.
func (g *Gate) Begin(state State, symptoms string, history []Turn, selection Selection) (State, chat.Effect) {
	state.IsCollectingPhone = true
	state.CurrentSymptoms = strings.TrimSpace(symptoms)
	state.ConversationHistory = trimHistory(history)
	sel := selection
	state.PendingSelection = &sel
	state.PatientProfile = nil
	state.SmartWelcome = nil

	return state, chat.Say(chat.AssistantText(fmt.Sprintf(
		"Before I book %s, please share your mobile number so I can find your records. Reply \"skip\" to continue as a new patient.",
		describe(selection),
	)))
}

// Reprompt is the message shown after an invalid number.
func (g *Gate) Reprompt() chat.Effect {
	example := "9876543210"
	if g.policy.Region == "US" {
		example = "415 555 0134"
	}
	return chat.Say(chat.AssistantText(fmt.Sprintf(
		"⚠️ That doesn't look like a valid mobile number. Please enter a 10-digit number such as %s, or reply \"skip\".", example,
	)))
}

// Resolve looks the number up and closes the gate. Invalid numbers return
// ErrInvalidPhone with the state unchanged. Lookup failures degrade to a new
// patient and never block booking.
func (g *Gate) Resolve(ctx context.Context, state State, phone string) (Resolution, error) {
	number, err := g.policy.Normalize(phone)
	if err != nil {
		return Resolution{State: state}, err
	}
	log := g.logger.With("session_id", state.SessionID, "phone", Mask(number))

	if p := state.PatientProfile; p != nil && p.PhoneNumber == number {
		log.Debug("patient already resolved")
		state.IsCollectingPhone = false
		return g.close(state, chat.Effect{}, !p.IsNew, true), nil
	}

	profile, err := g.directory.Recognize(ctx, RecognizeRequest{PhoneNumber: number})
	switch {
	case errors.Is(err, ErrUnknownPatient):
		log.Info("new patient")
		state.PatientProfile = &chat.PatientProfile{PhoneNumber: number, IsNew: true}
		state.SmartWelcome = nil
		return g.close(state, chat.Say(chat.AssistantText(
			"Thanks! I couldn't find an existing record for that number, so I'll register you as a new patient.",
		)), false, false), nil
	case err != nil:
		log.Warn("patient lookup failed, continuing as new patient", "error", err)
		state.PatientProfile = &chat.PatientProfile{PhoneNumber: number, IsNew: true}
		state.SmartWelcome = nil
		return g.close(state, chat.Say(chat.AssistantText(
			"I couldn't look up your records right now, so let's continue as a new patient.",
		)), false, false), nil
	}

	known := *profile
	known.PhoneNumber = number
	known.IsNew = false

	welcomeCtx, cancel := context.WithTimeout(ctx, g.welcomeTimeout)
	defer cancel()
	welcomeCh := make(chan *SmartWelcome, 1)
	go func() {
		w, err := g.directory.SmartWelcome(welcomeCtx, WelcomeRequest{
			PhoneNumber:         number,
			Symptoms:            state.CurrentSymptoms,
			SessionID:           state.SessionID,
			ConversationHistory: state.ConversationHistory,
		})
		if err != nil {
			log.Debug("smart welcome unavailable", "error", err)
			w = nil
		}
		welcomeCh <- w
	}()

	effect := chat.Say(chat.AssistantText(resolvedGreeting(known)))

	var welcome *SmartWelcome
	select {
	case welcome = <-welcomeCh:
	case <-welcomeCtx.Done():
		log.Debug("smart welcome timed out")
	}
	if welcome != nil {
		mergeProfile(&known, welcome.Profile)
		if msg := strings.TrimSpace(welcome.Message); msg != "" {
			effect = effect.Then(chat.Say(chat.AssistantText(msg)))
		}
	}

	log.Info("patient recognized", "total_visits", known.TotalVisits)
	state.PatientProfile = &known
	state.SmartWelcome = welcome
	return g.close(state, effect, true, false), nil
}

// Skip closes the gate without a lookup and seeds a new patient profile.
func (g *Gate) Skip(state State) Resolution {
	state.PatientProfile = &chat.PatientProfile{IsNew: true}
	state.SmartWelcome = nil
	return g.close(state, chat.Say(chat.AssistantText(
		"No problem. You can enter your details in the booking form.",
	)), false, false)
}

func (g *Gate) close(state State, effect chat.Effect, recognized, reused bool) Resolution {
	selection := state.PendingSelection
	state.IsCollectingPhone = false
	state.PendingSelection = nil
	return Resolution{
		State:      state,
		Effect:     effect,
		Selection:  selection,
		Recognized: recognized,
		Reused:     reused,
	}
}

func resolvedGreeting(p chat.PatientProfile) string {
	name := p.FirstName
	if name == "" {
		name = p.DisplayName()
	}
	if name == "" {
		return "✅ Welcome back! I found your records."
	}
	return fmt.Sprintf("✅ Welcome back, %s! I found your records.", name)
}

// mergeProfile fills gaps in dst from the enriched profile.
func mergeProfile(dst *chat.PatientProfile, src *chat.PatientProfile) {
	if src == nil {
		return
	}
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.PatientID, src.PatientID)
	fill(&dst.FirstName, src.FirstName)
	fill(&dst.LastName, src.LastName)
	fill(&dst.Email, src.Email)
	fill(&dst.Gender, src.Gender)
	fill(&dst.LastVisit, src.LastVisit)
	if dst.Age == 0 {
		dst.Age = src.Age
	}
	if src.TotalVisits > dst.TotalVisits {
		dst.TotalVisits = src.TotalVisits
	}
}

func describe(s Selection) string {
	switch s.Kind {
	case SelectDoctor:
		if s.Doctor != nil && s.Doctor.Name != "" {
			return "your appointment with " + s.Doctor.Name
		}
		return "your appointment"
	case SelectTests:
		if len(s.Tests) == 1 {
			return "your " + s.Tests[0].Name
		}
		return fmt.Sprintf("your %d tests", len(s.Tests))
	default:
		return "this"
	}
}

func trimHistory(history []Turn) []Turn {
	if len(history) > maxWelcomeHistory {
		history = history[len(history)-maxWelcomeHistory:]
	}
	return append([]Turn(nil), history...)
}
