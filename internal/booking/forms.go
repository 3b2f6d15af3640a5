package booking

import (
	"strings"
	"time"
	"unicode"

	"github.com/wolfman30/triage-concierge/internal/chat"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// AppointmentSubmission is what the user filled into an appointment form.
type AppointmentSubmission struct {
	FormID      string `json:"form_id"`
	DoctorID    string `json:"doctor_id"`
	PatientName string `json:"patient_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Symptoms    string `json:"symptoms,omitempty"`
}

// RescheduleSubmission moves a confirmed appointment.
type RescheduleSubmission struct {
	FormID        string `json:"form_id,omitempty"`
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// TestSubmission is what the user filled into a test booking form.
type TestSubmission struct {
	FormID      string   `json:"form_id"`
	TestIDs     []string `json:"test_ids,omitempty"`
	PatientName string   `json:"patient_name"`
	PhoneNumber string   `json:"phone_number"`
	Email       string   `json:"email,omitempty"`
	Date        string   `json:"preferred_date,omitempty"`
	Time        string   `json:"preferred_time,omitempty"`
}

// mergeProfile fills blank submission fields from the recognized patient.
func (s *AppointmentSubmission) mergeProfile(p *chat.PatientProfile) {
	if p == nil {
		return
	}
	if strings.TrimSpace(s.PatientName) == "" {
		s.PatientName = p.DisplayName()
	}
	if strings.TrimSpace(s.PhoneNumber) == "" {
		s.PhoneNumber = p.PhoneNumber
	}
	if s.Email == "" {
		s.Email = p.Email
	}
	if s.Age == 0 {
		s.Age = p.Age
	}
	if s.Gender == "" {
		s.Gender = p.Gender
	}
}

func (s *TestSubmission) mergeProfile(p *chat.PatientProfile) {
	if p == nil {
		return
	}
	if strings.TrimSpace(s.PatientName) == "" {
		s.PatientName = p.DisplayName()
	}
	if strings.TrimSpace(s.PhoneNumber) == "" {
		s.PhoneNumber = p.PhoneNumber
	}
	if s.Email == "" {
		s.Email = p.Email
	}
}

func (s AppointmentSubmission) validate(now time.Time) error {
	var v ValidationError
	if strings.TrimSpace(s.DoctorID) == "" {
		v.add("doctor_id", "Please choose a doctor.")
	}
	if strings.TrimSpace(s.PatientName) == "" {
		v.add("patient_name", "Please enter the patient's name.")
	}
	checkPhone(&v, s.PhoneNumber)
	checkDate(&v, "date", s.Date, now, true)
	checkTime(&v, "time", s.Time, true)
	return v.orNil()
}

func (s RescheduleSubmission) validate(now time.Time) error {
	var v ValidationError
	if strings.TrimSpace(s.AppointmentID) == "" {
		v.add("appointment_id", "Missing appointment.")
	}
	checkDate(&v, "date", s.Date, now, true)
	checkTime(&v, "time", s.Time, true)
	return v.orNil()
}

func (s TestSubmission) validate(now time.Time, tests []chat.MedicalTest) error {
	var v ValidationError
	if len(tests) == 0 {
		v.add("test_ids", "Please select at least one test.")
	}
	if strings.TrimSpace(s.PatientName) == "" {
		v.add("patient_name", "Please enter the patient's name.")
	}
	checkPhone(&v, s.PhoneNumber)
	checkDate(&v, "preferred_date", s.Date, now, false)
	checkTime(&v, "preferred_time", s.Time, false)
	return v.orNil()
}

func checkPhone(v *ValidationError, phone string) {
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	switch {
	case strings.TrimSpace(phone) == "":
		v.add("phone_number", "Please enter a phone number.")
	case digits < 10 || digits > 13:
		v.add("phone_number", "Please enter a valid phone number.")
	}
}

func checkDate(v *ValidationError, field, value string, now time.Time, required bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			v.add(field, "Please pick a date.")
		}
		return
	}
	d, err := time.ParseInLocation(dateLayout, value, now.Location())
	if err != nil {
		v.add(field, "Use the format YYYY-MM-DD.")
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		v.add(field, "The date can't be in the past.")
	}
}

func checkTime(v *ValidationError, field, value string, required bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			v.add(field, "Please pick a time.")
		}
		return
	}
	if _, err := time.Parse(timeLayout, value); err != nil || len(value) != len(timeLayout) {
		v.add(field, "Use the format HH:MM.")
	}
}
