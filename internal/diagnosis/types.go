// Package diagnosis drives the adaptive symptom interview against the
// remote diagnosis oracle.
package diagnosis

import "github.com/wolfman30/triage-concierge/internal/chat"

// State is the interview state machine position.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingAnswer State = "awaiting_answer"
	StateDiagnosed      State = "diagnosed"
	StateEmergency      State = "emergency"
	StateIncomplete     State = "incomplete"
)

// Terminal reports whether the interview has ended.
func (s State) Terminal() bool {
	return s == StateDiagnosed || s == StateEmergency || s == StateIncomplete
}

// NextStep values sent by the oracle.
const (
	StepAnswerQuestion     = "answer_question"
	StepContinueDiagnostic = "continue_diagnostic"
	StepProvideDiagnosis   = "provide_diagnosis"
	StepReviewDiagnosis    = "review_diagnosis"
	StepEmergencyReferral  = "emergency_referral"
)

// Session is the interview state owned by the orchestrator.
type Session struct {
	SessionID         string         `json:"session_id,omitempty"`
	IsDiagnosing      bool           `json:"is_diagnosing"`
	Symptoms          string         `json:"symptoms,omitempty"`
	CurrentQuestionID string         `json:"current_question_id,omitempty"`
	CurrentQuestion   *chat.Question `json:"current_question,omitempty"`
}

// AwaitingAnswer reports whether free text should be routed as an answer.
func (s Session) AwaitingAnswer() bool {
	return s.IsDiagnosing && s.CurrentQuestion != nil
}

// State derives the machine state from the session fields.
func (s Session) State() State {
	if s.AwaitingAnswer() {
		return StateAwaitingAnswer
	}
	return StateIdle
}

// Idle returns the reset session.
func Idle() Session {
	return Session{}
}

// Diagnosis is the oracle's terminal assessment.
type Diagnosis struct {
	Summary              string           `json:"summary,omitempty"`
	Conditions           []chat.Condition `json:"conditions,omitempty"`
	RecommendedSpecialty string           `json:"recommended_specialty,omitempty"`
	Urgency              string           `json:"urgency,omitempty"`
}

// Emergency is the oracle's emergency referral.
type Emergency struct {
	Reason       string   `json:"reason,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
}

// Reply is the oracle response shared by start and answer calls.
type Reply struct {
	SessionID       string         `json:"session_id"`
	CurrentQuestion *chat.Question `json:"current_question,omitempty"`
	Message         string         `json:"message"`
	NextStep        string         `json:"next_step"`
	Diagnosis       *Diagnosis     `json:"diagnosis,omitempty"`
	Emergency       *Emergency     `json:"emergency,omitempty"`
}

// StartRequest opens an interview.
type StartRequest struct {
	Symptoms string `json:"symptoms"`
}

// AnswerRequest echoes the question metadata so the oracle can stay
// stateless.
type AnswerRequest struct {
	SessionID       string   `json:"session_id"`
	QuestionID      string   `json:"question_id"`
	AnswerValue     string   `json:"answer_value"`
	QuestionText    string   `json:"question_text"`
	QuestionType    string   `json:"question_type"`
	QuestionOptions []string `json:"question_options"`
}
