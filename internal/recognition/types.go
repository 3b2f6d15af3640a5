// Package recognition resolves a patient's identity from a phone number
// before any booking form is shown.
package recognition

import "github.com/wolfman30/triage-concierge/internal/chat"

// SelectionKind says what the user picked before identity was requested.
type SelectionKind string

const (
	SelectDoctor SelectionKind = "doctor"
	SelectTests  SelectionKind = "tests"
)

// Selection is the doctor or test choice parked while the gate is open.
type Selection struct {
	Kind   SelectionKind      `json:"kind"`
	Doctor *chat.Doctor       `json:"doctor,omitempty"`
	Tests  []chat.MedicalTest `json:"tests,omitempty"`
}

// Turn is one line of conversation context sent with the smart welcome.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SmartWelcome is the optional personalized greeting for a known patient.
type SmartWelcome struct {
	Message string               `json:"welcome_message"`
	Profile *chat.PatientProfile `json:"patient_profile,omitempty"`
}

// State is the phone recognition state owned by the orchestrator.
// IsCollectingPhone and a non-nil PatientProfile are never both set.
type State struct {
	SessionID           string               `json:"session_id,omitempty"`
	IsCollectingPhone   bool                 `json:"is_collecting_phone"`
	CurrentSymptoms     string               `json:"current_symptoms,omitempty"`
	ConversationHistory []Turn               `json:"conversation_history,omitempty"`
	PendingSelection    *Selection           `json:"pending_selection,omitempty"`
	PatientProfile      *chat.PatientProfile `json:"patient_profile,omitempty"`
	SmartWelcome        *SmartWelcome        `json:"smart_welcome,omitempty"`
}

// Clone returns a deep enough copy for handing out snapshots.
func (s State) Clone() State {
	out := s
	if s.ConversationHistory != nil {
		out.ConversationHistory = append([]Turn(nil), s.ConversationHistory...)
	}
	if s.PendingSelection != nil {
		sel := *s.PendingSelection
		sel.Tests = append([]chat.MedicalTest(nil), s.PendingSelection.Tests...)
		out.PendingSelection = &sel
	}
	if s.PatientProfile != nil {
		p := *s.PatientProfile
		out.PatientProfile = &p
	}
	if s.SmartWelcome != nil {
		w := *s.SmartWelcome
		out.SmartWelcome = &w
	}
	return out
}

// Resolution is the outcome of Resolve or Skip.
type Resolution struct {
	State      State
	Effect     chat.Effect
	Selection  *Selection
	Recognized bool
	Reused     bool
}
