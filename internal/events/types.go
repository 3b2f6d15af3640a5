// Package events publishes booking lifecycle events for downstream
// consumers such as reminders and analytics.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a booking lifecycle event.
type Kind string

const (
	AppointmentBooked      Kind = "appointment.booked.v1"
	AppointmentRescheduled Kind = "appointment.rescheduled.v1"
	AppointmentCancelled   Kind = "appointment.cancelled.v1"
	TestsBooked            Kind = "tests.booked.v1"
	TestBookingCancelled   Kind = "tests.cancelled.v1"
)

// BookingEvent is emitted after the backend confirms a booking change.
type BookingEvent struct {
	EventID     string            `json:"event_id"`
	Kind        Kind              `json:"kind"`
	SessionID   string            `json:"session_id"`
	ReferenceID string            `json:"reference_id"`
	PatientID   string            `json:"patient_id,omitempty"`
	Date        string            `json:"date,omitempty"`
	Time        string            `json:"time,omitempty"`
	AmountMinor int64             `json:"amount_minor,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// NewBookingEvent stamps an id and time on a new event.
func NewBookingEvent(kind Kind, sessionID, referenceID string) BookingEvent {
	return BookingEvent{
		EventID:     uuid.NewString(),
		Kind:        kind,
		SessionID:   sessionID,
		ReferenceID: referenceID,
		OccurredAt:  time.Now().UTC(),
	}
}
