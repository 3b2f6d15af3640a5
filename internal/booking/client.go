// Package booking turns recommendations into confirmed appointments and
// test bookings. It presents forms, validates submissions, talks to the
// booking backend and echoes confirmed records into the conversation.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/chat"
)

// Service is the booking backend. Client implements it over REST; tests
// use fakes.
type Service interface {
	RecommendDoctors(ctx context.Context, symptoms string) ([]chat.Doctor, error)
	RecommendTests(ctx context.Context, symptoms string) ([]chat.MedicalTest, error)
	BookAppointment(ctx context.Context, req AppointmentRequest) (*chat.Appointment, error)
	RescheduleAppointment(ctx context.Context, id string, req RescheduleRequest) (*chat.Appointment, error)
	CancelAppointment(ctx context.Context, id string) error
	BookTests(ctx context.Context, req TestBookingRequest) (*chat.TestBooking, error)
	CancelTestBooking(ctx context.Context, id string) error
}

// AppointmentRequest is the body of POST /api/appointments.
type AppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	PatientID       string `json:"patient_id,omitempty"`
	PatientName     string `json:"patient_name"`
	PhoneNumber     string `json:"phone_number"`
	Email           string `json:"email,omitempty"`
	Age             int    `json:"age,omitempty"`
	Gender          string `json:"gender,omitempty"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Symptoms        string `json:"symptoms,omitempty"`
}

// RescheduleRequest is the body of PUT /api/appointments/{id}/reschedule.
type RescheduleRequest struct {
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// TestBookingRequest is the body of POST /api/test-bookings.
type TestBookingRequest struct {
	TestIDs       []string `json:"test_ids"`
	PatientID     string   `json:"patient_id,omitempty"`
	PatientName   string   `json:"patient_name"`
	PhoneNumber   string   `json:"phone_number"`
	Email         string   `json:"email,omitempty"`
	PreferredDate string   `json:"preferred_date,omitempty"`
	PreferredTime string   `json:"preferred_time,omitempty"`
}

type symptomsRequest struct {
	Symptoms string `json:"symptoms"`
}

// Client implements Service against the backend REST contract.
type Client struct {
	backend *backend.Client
}

var _ Service = (*Client)(nil)

// NewClient wraps a backend client.
func NewClient(b *backend.Client) *Client {
	if b == nil {
		panic("booking: backend client required")
	}
	return &Client{backend: b}
}

func (c *Client) RecommendDoctors(ctx context.Context, symptoms string) ([]chat.Doctor, error) {
	var resp struct {
		Doctors []chat.Doctor `json:"doctors"`
	}
	if err := c.backend.Do(ctx, "recommend_doctors", http.MethodPost, "/api/doctors/recommend", symptomsRequest{Symptoms: symptoms}, &resp); err != nil {
		return nil, err
	}
	return resp.Doctors, nil
}

func (c *Client) RecommendTests(ctx context.Context, symptoms string) ([]chat.MedicalTest, error) {
	var resp struct {
		Tests []chat.MedicalTest `json:"tests"`
	}
	if err := c.backend.Do(ctx, "recommend_tests", http.MethodPost, "/api/tests/recommend", symptomsRequest{Symptoms: symptoms}, &resp); err != nil {
		return nil, err
	}
	return resp.Tests, nil
}

func (c *Client) BookAppointment(ctx context.Context, req AppointmentRequest) (*chat.Appointment, error) {
	var raw json.RawMessage
	if err := c.backend.Do(ctx, "book_appointment", http.MethodPost, "/api/appointments", req, &raw); err != nil {
		return nil, err
	}
	return decodeEnveloped[chat.Appointment](raw, "appointment")
}

func (c *Client) RescheduleAppointment(ctx context.Context, id string, req RescheduleRequest) (*chat.Appointment, error) {
	var raw json.RawMessage
	path := "/api/appointments/" + url.PathEscape(id) + "/reschedule"
	if err := c.backend.Do(ctx, "reschedule_appointment", http.MethodPut, path, req, &raw); err != nil {
		return nil, err
	}
	return decodeEnveloped[chat.Appointment](raw, "appointment")
}

func (c *Client) CancelAppointment(ctx context.Context, id string) error {
	return c.backend.Do(ctx, "cancel_appointment", http.MethodDelete, "/api/appointments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) BookTests(ctx context.Context, req TestBookingRequest) (*chat.TestBooking, error) {
	var raw json.RawMessage
	if err := c.backend.Do(ctx, "book_tests", http.MethodPost, "/api/test-bookings", req, &raw); err != nil {
		return nil, err
	}
	return decodeEnveloped[chat.TestBooking](raw, "booking")
}

func (c *Client) CancelTestBooking(ctx context.Context, id string) error {
	return c.backend.Do(ctx, "cancel_test_booking", http.MethodDelete, "/api/test-bookings/"+url.PathEscape(id), nil, nil)
}

// decodeEnveloped accepts either {"<key>": {...}} or the bare record.
func decodeEnveloped[T any](raw json.RawMessage, key string) (*T, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("booking: decode %s: %w", key, err)
	}
	body := raw
	if inner, ok := envelope[key]; ok && len(inner) > 0 && inner[0] == '{' {
		body = inner
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("booking: decode %s: %w", key, err)
	}
	return &out, nil
}
