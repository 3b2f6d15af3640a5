package conversation

import "github.com/wolfman30/triage-concierge/internal/chat"

// Action discriminates quick replies.
type Action string

const (
	ActionAnswer            Action = "answer"
	ActionBookDoctor        Action = "book_doctor"
	ActionBookTests         Action = "book_tests"
	ActionSelectDoctor      Action = "select_doctor"
	ActionSelectTests       Action = "select_tests"
	ActionReschedule        Action = "reschedule"
	ActionCancelAppointment Action = "cancel_appointment"
	ActionCancelTest        Action = "cancel_test"
	ActionDismissForm       Action = "dismiss_form"
)

// QuickReply is a structured user action from a button or form control.
// Only the fields relevant to Action are read.
type QuickReply struct {
	Action        Action    `json:"action"`
	Value         string    `json:"value,omitempty"`
	DoctorID      string    `json:"doctor_id,omitempty"`
	TestIDs       []string  `json:"test_ids,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	BookingID     string    `json:"booking_id,omitempty"`
	FormType      chat.Type `json:"form_type,omitempty"`
}

// cancels are dropped, not rejected, while another operation is running.
func (a Action) cancels() bool {
	switch a {
	case ActionCancelAppointment, ActionCancelTest, ActionDismissForm:
		return true
	}
	return false
}
