// Package chat holds the conversation message model: the closed set of
// message types, their payloads, the append-only Store that the API renders
// from, and the reduced Entry projection written to the session cache.
package chat

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Type discriminates message payloads.
type Type string

const (
	TypeText               Type = "text"
	TypeDiagnosticQuestion Type = "diagnostic_question"
	TypeDiagnosticResult   Type = "diagnostic_result"
	TypeDoctors            Type = "doctors"
	TypeAppointmentForm    Type = "appointment_form"
	TypeAppointmentSuccess Type = "appointment_success"
	TypeRescheduleForm     Type = "reschedule_form"
	TypeTests              Type = "tests"
	TypeTestForm           Type = "test_form"
	TypeTestSuccess        Type = "test_success"
)

// AllTypes lists every message type in display order of the booking funnel.
var AllTypes = []Type{
	TypeText,
	TypeDiagnosticQuestion,
	TypeDiagnosticResult,
	TypeDoctors,
	TypeAppointmentForm,
	TypeAppointmentSuccess,
	TypeRescheduleForm,
	TypeTests,
	TypeTestForm,
	TypeTestSuccess,
}

// EphemeralTypes are in-progress forms. At most one may be visible.
var EphemeralTypes = []Type{TypeAppointmentForm, TypeRescheduleForm, TypeTestForm}

// Ephemeral reports whether t is a form that gets replaced on completion.
func (t Type) Ephemeral() bool {
	switch t {
	case TypeAppointmentForm, TypeRescheduleForm, TypeTestForm:
		return true
	}
	return false
}

// Valid reports whether t belongs to the closed set.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}
