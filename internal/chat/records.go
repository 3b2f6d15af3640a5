package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units. The backend sends decimal
// numbers; they are rounded to two places on decode.
type Money int64

// MoneyFromFloat converts a decimal amount into minor units.
func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*m = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("chat: invalid money amount %q: %w", raw, err)
	}
	*m = MoneyFromFloat(f)
	return nil
}

// Option is one selectable answer of a diagnostic question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts either a bare string or a {value,label} object.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		o.Value, o.Label = s, s
		return nil
	}
	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Label == "" {
		p.Label = p.Value
	}
	if p.Value == "" {
		p.Value = p.Label
	}
	*o = Option(p)
	return nil
}

// Question is an oracle question. It is echoed back on answer submission.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []Option `json:"options,omitempty"`
}

// OptionValues returns the raw option values in order.
func (q Question) OptionValues() []string {
	out := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		out = append(out, opt.Value)
	}
	return out
}

// Condition is one candidate diagnosis.
type Condition struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Doctor is a recommendation record.
type Doctor struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty,omitempty"`
	HospitalName    string   `json:"hospital_name,omitempty"`
	Department      string   `json:"department,omitempty"`
	ConsultationFee Money    `json:"consultation_fee,omitempty"`
	ExperienceYears int      `json:"experience_years,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	AvailableSlots  []string `json:"available_slots,omitempty"`
}

// MedicalTest is a diagnostic test recommendation record.
type MedicalTest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category,omitempty"`
	Cost           Money  `json:"cost"`
	Preparation    string `json:"preparation,omitempty"`
	TurnaroundTime string `json:"turnaround_time,omitempty"`
}

// PatientProfile is the identity resolved by the recognition gate. New
// patients get a seeded profile with IsNew set and only the phone filled.
type PatientProfile struct {
	PatientID   string `json:"patient_id,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	TotalVisits int    `json:"total_visits"`
	LastVisit   string `json:"last_visit_date,omitempty"`
	IsNew       bool   `json:"is_new"`
}

// DisplayName joins first and last name.
func (p PatientProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Appointment is a server-confirmed doctor appointment.
type Appointment struct {
	ID           string `json:"id"`
	DoctorID     string `json:"doctor_id"`
	DoctorName   string `json:"doctor_name,omitempty"`
	Specialty    string `json:"specialty,omitempty"`
	HospitalName string `json:"hospital_name,omitempty"`
	PatientID    string `json:"patient_id,omitempty"`
	PatientName  string `json:"patient_name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Date         string `json:"appointment_date"`
	Time         string `json:"appointment_time"`
	Symptoms     string `json:"symptoms,omitempty"`
	Status       string `json:"status,omitempty"`
}

// BookedTest is one line of a confirmed test booking.
type BookedTest struct {
	TestID string `json:"test_id"`
	Name   string `json:"name"`
	Cost   Money  `json:"cost"`
}

// TestBooking is a server-confirmed diagnostic test booking.
type TestBooking struct {
	BookingID               string       `json:"booking_id"`
	PatientID               string       `json:"patient_id,omitempty"`
	PatientName             string       `json:"patient_name,omitempty"`
	PhoneNumber             string       `json:"phone_number,omitempty"`
	Tests                   []BookedTest `json:"tests"`
	TotalCost               Money        `json:"total_cost"`
	PreparationInstructions []string     `json:"preparation_instructions,omitempty"`
	Date                    string       `json:"preferred_date,omitempty"`
	Time                    string       `json:"preferred_time,omitempty"`
	Status                  string       `json:"status,omitempty"`
}

// SumCosts adds the costs of the given tests in order.
func SumCosts(tests []MedicalTest) Money {
	var total Money
	for _, t := range tests {
		total += t.Cost
	}
	return total
}
