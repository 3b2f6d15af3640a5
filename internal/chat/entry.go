package chat

import (
	"encoding/json"
	"time"
)

// Entry is the reduced projection of a Message kept in the session cache.
// It is enough to rebuild a display view, not in-flight booking state.
type Entry struct {
	Role      Role              `json:"role" dynamodbav:"role"`
	Content   string            `json:"content" dynamodbav:"content"`
	Type      Type              `json:"type" dynamodbav:"type"`
	Timestamp time.Time         `json:"timestamp" dynamodbav:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

const metaMessageID = "message_id"

// Project converts messages into cache entries. Ephemeral forms are
// skipped because their in-flight state is not persisted.
func Project(messages []Message) []Entry {
	out := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		if entry, ok := EntryFor(msg); ok {
			out = append(out, entry)
		}
	}
	return out
}

// EntryFor projects one message. It reports false for ephemeral forms.
func EntryFor(msg Message) (Entry, bool) {
	if msg.Payload == nil || msg.Type().Ephemeral() {
		return Entry{}, false
	}
	meta := Visit[map[string]string](msg.Payload, metadataVisitor{})
	if meta == nil {
		meta = map[string]string{}
	}
	meta[metaMessageID] = msg.ID
	return Entry{
		Role:      msg.Role,
		Content:   Content(msg.Payload),
		Type:      msg.Type(),
		Timestamp: msg.Timestamp,
		Metadata:  meta,
	}, true
}

// Message rebuilds a display message from the entry.
func (e Entry) Message() (Message, bool) {
	if !e.Type.Valid() || e.Type.Ephemeral() {
		return Message{}, false
	}
	md := e.Metadata
	var payload Payload
	switch e.Type {
	case TypeText:
		payload = Text{Body: e.Content}
	case TypeDiagnosticQuestion:
		payload = DiagnosticQuestion{
			SessionID: md["session_id"],
			Question:  Question{ID: md["question_id"], Text: e.Content, Type: md["question_type"]},
		}
	case TypeDiagnosticResult:
		payload = DiagnosticResult{
			SessionID:            md["session_id"],
			Outcome:              Outcome(md["outcome"]),
			Summary:              e.Content,
			RecommendedSpecialty: md["recommended_specialty"],
			Urgency:              md["urgency"],
		}
	case TypeDoctors:
		var doctors []Doctor
		_ = json.Unmarshal([]byte(md["doctors"]), &doctors)
		payload = Doctors{Doctors: doctors}
	case TypeTests:
		var tests []MedicalTest
		_ = json.Unmarshal([]byte(md["tests"]), &tests)
		payload = Tests{Tests: tests}
	case TypeAppointmentSuccess:
		payload = AppointmentSuccess{Appointment: Appointment{
			ID:           md["appointment_id"],
			DoctorID:     md["doctor_id"],
			DoctorName:   md["doctor_name"],
			Specialty:    md["specialty"],
			HospitalName: md["hospital_name"],
			PatientID:    md["patient_id"],
			PatientName:  md["patient_name"],
			PhoneNumber:  md["phone_number"],
			Date:         md["date"],
			Time:         md["time"],
			Symptoms:     md["symptoms"],
			Status:       md["status"],
		}, Note: md["note"]}
	case TypeTestSuccess:
		var tests []BookedTest
		_ = json.Unmarshal([]byte(md["tests"]), &tests)
		var total Money
		_ = total.UnmarshalJSON([]byte(md["total_cost"]))
		payload = TestSuccess{Booking: TestBooking{
			BookingID:   md["booking_id"],
			PatientName: md["patient_name"],
			Tests:       tests,
			TotalCost:   total,
			Date:        md["date"],
			Time:        md["time"],
			Status:      md["status"],
		}, Note: md["note"]}
	default:
		return Message{}, false
	}
	id := md[metaMessageID]
	if id == "" {
		id = newMessageID(e.Timestamp)
	}
	return Message{ID: id, Role: e.Role, Timestamp: e.Timestamp, Payload: payload}, true
}

type metadataVisitor struct{}

func (metadataVisitor) Text(Text) map[string]string { return nil }

func (metadataVisitor) DiagnosticQuestion(p DiagnosticQuestion) map[string]string {
	return map[string]string{
		"session_id":    p.SessionID,
		"question_id":   p.Question.ID,
		"question_type": p.Question.Type,
	}
}

func (metadataVisitor) DiagnosticResult(p DiagnosticResult) map[string]string {
	return map[string]string{
		"session_id":            p.SessionID,
		"outcome":               string(p.Outcome),
		"recommended_specialty": p.RecommendedSpecialty,
		"urgency":               p.Urgency,
	}
}

func (metadataVisitor) Doctors(p Doctors) map[string]string {
	light := make([]Doctor, 0, len(p.Doctors))
	for _, d := range p.Doctors {
		light = append(light, Doctor{ID: d.ID, Name: d.Name, Specialty: d.Specialty})
	}
	return map[string]string{"doctors": mustJSON(light)}
}

func (metadataVisitor) AppointmentForm(AppointmentForm) map[string]string { return nil }

func (metadataVisitor) AppointmentSuccess(p AppointmentSuccess) map[string]string {
	a := p.Appointment
	return map[string]string{
		"appointment_id": a.ID,
		"doctor_id":      a.DoctorID,
		"doctor_name":    a.DoctorName,
		"specialty":      a.Specialty,
		"hospital_name":  a.HospitalName,
		"patient_id":     a.PatientID,
		"patient_name":   a.PatientName,
		"phone_number":   a.PhoneNumber,
		"date":           a.Date,
		"time":           a.Time,
		"symptoms":       a.Symptoms,
		"status":         a.Status,
		"note":           p.Note,
	}
}

func (metadataVisitor) RescheduleForm(RescheduleForm) map[string]string { return nil }

func (metadataVisitor) Tests(p Tests) map[string]string {
	light := make([]MedicalTest, 0, len(p.Tests))
	for _, t := range p.Tests {
		light = append(light, MedicalTest{ID: t.ID, Name: t.Name, Cost: t.Cost})
	}
	return map[string]string{"tests": mustJSON(light)}
}

func (metadataVisitor) TestForm(TestForm) map[string]string { return nil }

func (metadataVisitor) TestSuccess(p TestSuccess) map[string]string {
	b := p.Booking
	return map[string]string{
		"booking_id":   b.BookingID,
		"patient_name": b.PatientName,
		"tests":        mustJSON(b.Tests),
		"total_cost":   b.TotalCost.String(),
		"date":         b.Date,
		"time":         b.Time,
		"status":       b.Status,
		"note":         p.Note,
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
