package chat

import (
	"encoding/json"
	"fmt"
)

// Payload is the sealed sum type carried by a Message. Only types in this
// package can implement it.
type Payload interface {
	Type() Type
	sealed()
}

// Text is a plain chat bubble.
type Text struct {
	Body string `json:"body"`
}

// DiagnosticQuestion asks the user the oracle's current question.
type DiagnosticQuestion struct {
	SessionID string   `json:"session_id"`
	Question  Question `json:"question"`
	Prompt    string   `json:"prompt,omitempty"`
}

// Outcome is the terminal state of an interview.
type Outcome string

const (
	OutcomeDiagnosis  Outcome = "diagnosis"
	OutcomeEmergency  Outcome = "emergency"
	OutcomeIncomplete Outcome = "incomplete"
)

// DiagnosticResult closes an interview.
type DiagnosticResult struct {
	SessionID             string      `json:"session_id"`
	Outcome               Outcome     `json:"outcome"`
	Summary               string      `json:"summary"`
	Conditions            []Condition `json:"conditions,omitempty"`
	RecommendedSpecialty  string      `json:"recommended_specialty,omitempty"`
	Urgency               string      `json:"urgency,omitempty"`
	EmergencyInstructions []string    `json:"emergency_instructions,omitempty"`
}

// Doctors lists doctor recommendations the user can pick from.
type Doctors struct {
	Doctors []Doctor `json:"doctors"`
}

// AppointmentForm is the ephemeral appointment booking form.
type AppointmentForm struct {
	FormID   string          `json:"form_id"`
	Doctor   Doctor          `json:"doctor"`
	Patient  *PatientProfile `json:"patient,omitempty"`
	Symptoms string          `json:"symptoms,omitempty"`
}

// AppointmentSuccess echoes a confirmed appointment.
type AppointmentSuccess struct {
	Appointment Appointment `json:"appointment"`
	Note        string      `json:"note,omitempty"`
}

// RescheduleForm is the ephemeral reschedule form for a confirmed appointment.
type RescheduleForm struct {
	FormID      string      `json:"form_id"`
	Appointment Appointment `json:"appointment"`
	CurrentDate string      `json:"current_date"`
	CurrentTime string      `json:"current_time"`
}

// Tests lists diagnostic test recommendations.
type Tests struct {
	Tests []MedicalTest `json:"tests"`
}

// TestForm is the ephemeral test booking form for a selection.
type TestForm struct {
	FormID    string          `json:"form_id"`
	Tests     []MedicalTest   `json:"tests"`
	TotalCost Money           `json:"total_cost"`
	Patient   *PatientProfile `json:"patient,omitempty"`
}

// TestSuccess echoes a confirmed test booking.
type TestSuccess struct {
	Booking TestBooking `json:"booking"`
	Note    string      `json:"note,omitempty"`
}

func (Text) Type() Type               { return TypeText }
func (DiagnosticQuestion) Type() Type { return TypeDiagnosticQuestion }
func (DiagnosticResult) Type() Type   { return TypeDiagnosticResult }
func (Doctors) Type() Type            { return TypeDoctors }
func (AppointmentForm) Type() Type    { return TypeAppointmentForm }
func (AppointmentSuccess) Type() Type { return TypeAppointmentSuccess }
func (RescheduleForm) Type() Type     { return TypeRescheduleForm }
func (Tests) Type() Type              { return TypeTests }
func (TestForm) Type() Type           { return TypeTestForm }
func (TestSuccess) Type() Type        { return TypeTestSuccess }

func (Text) sealed()               {}
func (DiagnosticQuestion) sealed() {}
func (DiagnosticResult) sealed()   {}
func (Doctors) sealed()            {}
func (AppointmentForm) sealed()    {}
func (AppointmentSuccess) sealed() {}
func (RescheduleForm) sealed()     {}
func (Tests) sealed()              {}
func (TestForm) sealed()           {}
func (TestSuccess) sealed()        {}

// Visitor has one method per payload type. Adding a payload type without
// extending Visitor breaks every implementation at compile time.
type Visitor[R any] interface {
	Text(Text) R
	DiagnosticQuestion(DiagnosticQuestion) R
	DiagnosticResult(DiagnosticResult) R
	Doctors(Doctors) R
	AppointmentForm(AppointmentForm) R
	AppointmentSuccess(AppointmentSuccess) R
	RescheduleForm(RescheduleForm) R
	Tests(Tests) R
	TestForm(TestForm) R
	TestSuccess(TestSuccess) R
}

// Visit dispatches p to the matching Visitor method.
func Visit[R any](p Payload, v Visitor[R]) R {
	switch p := p.(type) {
	case Text:
		return v.Text(p)
	case DiagnosticQuestion:
		return v.DiagnosticQuestion(p)
	case DiagnosticResult:
		return v.DiagnosticResult(p)
	case Doctors:
		return v.Doctors(p)
	case AppointmentForm:
		return v.AppointmentForm(p)
	case AppointmentSuccess:
		return v.AppointmentSuccess(p)
	case RescheduleForm:
		return v.RescheduleForm(p)
	case Tests:
		return v.Tests(p)
	case TestForm:
		return v.TestForm(p)
	case TestSuccess:
		return v.TestSuccess(p)
	}
	// unreachable: Payload is sealed to the cases above
	panic(fmt.Sprintf("chat: unhandled payload %T", p))
}

// decodePayload decodes raw into the payload struct registered for t.
func decodePayload(t Type, raw json.RawMessage) (Payload, error) {
	switch t {
	case TypeText:
		return decodeAs[Text](raw)
	case TypeDiagnosticQuestion:
		return decodeAs[DiagnosticQuestion](raw)
	case TypeDiagnosticResult:
		return decodeAs[DiagnosticResult](raw)
	case TypeDoctors:
		return decodeAs[Doctors](raw)
	case TypeAppointmentForm:
		return decodeAs[AppointmentForm](raw)
	case TypeAppointmentSuccess:
		return decodeAs[AppointmentSuccess](raw)
	case TypeRescheduleForm:
		return decodeAs[RescheduleForm](raw)
	case TypeTests:
		return decodeAs[Tests](raw)
	case TypeTestForm:
		return decodeAs[TestForm](raw)
	case TypeTestSuccess:
		return decodeAs[TestSuccess](raw)
	}
	return nil, fmt.Errorf("chat: unknown message type %q", t)
}

func decodeAs[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("chat: decode %s payload: %w", p.Type(), err)
	}
	return p, nil
}
