package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// ErrNotAwaitingAnswer is returned by Answer when no question is pending.
var ErrNotAwaitingAnswer = errors.New("diagnosis: no question pending")

const (
	incompleteSummary = "I wasn't able to complete the assessment. Please describe your symptoms again, or book a doctor if you are worried."
	bookingInvite     = "If you'd like, I can help you book a doctor (say \"book a doctor\") or diagnostic tests (say \"book tests\")."
)

// Outcome is the result of one interview round: the next session value,
// the machine state and the messages to emit.
type Outcome struct {
	Session Session
	State   State
	Effect  chat.Effect
}

// Engine runs the interview state machine. It holds no per-conversation
// state; the orchestrator owns Session and commits each Outcome.
type Engine struct {
	oracle          Oracle
	logger          *logging.Logger
	emergencyNumber string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithEmergencyNumber sets the number quoted in emergency guidance.
func WithEmergencyNumber(number string) EngineOption {
	return func(e *Engine) {
		if strings.TrimSpace(number) != "" {
			e.emergencyNumber = strings.TrimSpace(number)
		}
	}
}

// NewEngine wires the oracle.
func NewEngine(oracle Oracle, logger *logging.Logger, opts ...EngineOption) *Engine {
	if oracle == nil {
		panic("diagnosis: oracle required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{oracle: oracle, logger: logger.Component("diagnosis"), emergencyNumber: "112"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens an interview for the symptom description.
func (e *Engine) Start(ctx context.Context, symptoms string) (Outcome, error) {
	symptoms = strings.TrimSpace(symptoms)
	reply, err := e.oracle.Start(ctx, StartRequest{Symptoms: symptoms})
	if err != nil {
		return Outcome{}, fmt.Errorf("diagnosis: start: %w", err)
	}
	session := Session{SessionID: reply.SessionID, IsDiagnosing: true, Symptoms: symptoms}
	out := e.advance(session, reply)
	e.logger.Info("interview started", "diagnosis_session_id", out.Session.SessionID, "state", out.State)
	return out, nil
}

// Answer submits value for the pending question. On error the caller keeps
// the current session so the user can retry.
func (e *Engine) Answer(ctx context.Context, session Session, value string) (Outcome, error) {
	if !session.AwaitingAnswer() {
		return Outcome{}, ErrNotAwaitingAnswer
	}
	q := *session.CurrentQuestion
	req := AnswerRequest{
		SessionID:       session.SessionID,
		QuestionID:      q.ID,
		AnswerValue:     MatchOption(q, value),
		QuestionText:    q.Text,
		QuestionType:    q.Type,
		QuestionOptions: q.OptionValues(),
	}
	reply, err := e.oracle.Answer(ctx, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("diagnosis: answer %s: %w", q.ID, err)
	}
	out := e.advance(session, reply)
	e.logger.Debug("answer submitted", "diagnosis_session_id", session.SessionID, "question_id", q.ID, "state", out.State)
	return out, nil
}

// advance interprets an oracle reply. The session id returned by Start is
// kept for the whole interview even if a later reply omits or changes it.
func (e *Engine) advance(session Session, reply *Reply) Outcome {
	if session.SessionID == "" {
		session.SessionID = reply.SessionID
	}

	step := strings.ToLower(strings.TrimSpace(reply.NextStep))
	switch {
	case step == StepEmergencyReferral || reply.Emergency != nil:
		return e.emergency(session, reply)
	case step == StepProvideDiagnosis || step == StepReviewDiagnosis:
		return e.diagnosed(session, reply)
	case reply.CurrentQuestion != nil:
		q := *reply.CurrentQuestion
		session.IsDiagnosing = true
		session.CurrentQuestionID = q.ID
		session.CurrentQuestion = &q
		return Outcome{
			Session: session,
			State:   StateAwaitingAnswer,
			Effect: chat.Say(chat.Assistant(chat.DiagnosticQuestion{
				SessionID: session.SessionID,
				Question:  q,
				Prompt:    strings.TrimSpace(reply.Message),
			})),
		}
	case reply.Diagnosis != nil:
		return e.diagnosed(session, reply)
	default:
		e.logger.Warn("oracle reply had neither question nor verdict", "diagnosis_session_id", session.SessionID, "next_step", reply.NextStep)
		return Outcome{
			Session: Idle(),
			State:   StateIncomplete,
			Effect: chat.Say(chat.Assistant(chat.DiagnosticResult{
				SessionID: session.SessionID,
				Outcome:   chat.OutcomeIncomplete,
				Summary:   incompleteSummary,
			})),
		}
	}
}

func (e *Engine) diagnosed(session Session, reply *Reply) Outcome {
	result := chat.DiagnosticResult{
		SessionID: session.SessionID,
		Outcome:   chat.OutcomeDiagnosis,
		Summary:   strings.TrimSpace(reply.Message),
	}
	if d := reply.Diagnosis; d != nil {
		if result.Summary == "" {
			result.Summary = d.Summary
		}
		result.Conditions = d.Conditions
		result.RecommendedSpecialty = d.RecommendedSpecialty
		result.Urgency = d.Urgency
	}
	if result.Summary == "" {
		result.Summary = "Here is what your answers suggest."
	}
	return Outcome{
		Session: Idle(),
		State:   StateDiagnosed,
		Effect:  chat.Say(chat.Assistant(result), chat.AssistantText(bookingInvite)),
	}
}

func (e *Engine) emergency(session Session, reply *Reply) Outcome {
	summary := strings.TrimSpace(reply.Message)
	var instructions []string
	if em := reply.Emergency; em != nil {
		if summary == "" {
			summary = em.Reason
		}
		instructions = em.Instructions
	}
	if summary == "" {
		summary = "Your symptoms may need urgent medical attention."
	}
	if len(instructions) == 0 {
		instructions = []string{
			fmt.Sprintf("Call %s or your local emergency number now.", e.emergencyNumber),
			"Do not drive yourself; ask someone to take you to the nearest emergency department.",
			"Stay with someone until help arrives.",
		}
	}
	e.logger.Warn("emergency referral issued", "diagnosis_session_id", session.SessionID)
	return Outcome{
		Session: Idle(),
		State:   StateEmergency,
		Effect: chat.Say(chat.Assistant(chat.DiagnosticResult{
			SessionID:             session.SessionID,
			Outcome:               chat.OutcomeEmergency,
			Summary:               "🚨 " + summary,
			EmergencyInstructions: instructions,
		})),
	}
}

// MatchOption maps free text onto an option value when it equals the
// option's value or label, case-insensitively. Otherwise it returns the
// trimmed text.
func MatchOption(q chat.Question, text string) string {
	text = strings.TrimSpace(text)
	for _, opt := range q.Options {
		if strings.EqualFold(text, opt.Value) || strings.EqualFold(text, opt.Label) {
			return opt.Value
		}
	}
	return text
}
