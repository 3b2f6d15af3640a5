package chat

import (
	"fmt"
	"strings"
)

// Content renders the plain display text of a payload. It is what the
// session cache stores and what text-only clients show.
func Content(p Payload) string {
	if p == nil {
		return ""
	}
	return Visit[string](p, contentVisitor{})
}

type contentVisitor struct{}

func (contentVisitor) Text(p Text) string { return p.Body }

func (contentVisitor) DiagnosticQuestion(p DiagnosticQuestion) string {
	if p.Prompt != "" && p.Prompt != p.Question.Text {
		return p.Prompt + "\n" + p.Question.Text
	}
	return p.Question.Text
}

func (contentVisitor) DiagnosticResult(p DiagnosticResult) string { return p.Summary }

func (contentVisitor) Doctors(p Doctors) string {
	names := make([]string, 0, len(p.Doctors))
	for _, d := range p.Doctors {
		names = append(names, d.Name)
	}
	return "Recommended doctors: " + strings.Join(names, ", ")
}

func (contentVisitor) AppointmentForm(p AppointmentForm) string {
	return "Appointment form for " + p.Doctor.Name
}

func (contentVisitor) AppointmentSuccess(p AppointmentSuccess) string {
	a := p.Appointment
	text := fmt.Sprintf("Appointment confirmed with %s on %s at %s", nonEmpty(a.DoctorName, "your doctor"), a.Date, a.Time)
	if p.Note != "" {
		text += ". " + p.Note
	}
	return text
}

func (contentVisitor) RescheduleForm(p RescheduleForm) string {
	return fmt.Sprintf("Reschedule appointment %s (currently %s at %s)", p.Appointment.ID, p.CurrentDate, p.CurrentTime)
}

func (contentVisitor) Tests(p Tests) string {
	names := make([]string, 0, len(p.Tests))
	for _, t := range p.Tests {
		names = append(names, t.Name)
	}
	return "Recommended tests: " + strings.Join(names, ", ")
}

func (contentVisitor) TestForm(p TestForm) string {
	return fmt.Sprintf("Test booking form for %d test(s), total %s", len(p.Tests), p.TotalCost)
}

func (contentVisitor) TestSuccess(p TestSuccess) string {
	text := fmt.Sprintf("Test booking %s confirmed, total %s", p.Booking.BookingID, p.Booking.TotalCost)
	if p.Note != "" {
		text += ". " + p.Note
	}
	return text
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
