package recognition

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/chat"
)

// Directory looks patients up by phone number.
type Directory interface {
	Recognize(ctx context.Context, req RecognizeRequest) (*chat.PatientProfile, error)
	SmartWelcome(ctx context.Context, req WelcomeRequest) (*SmartWelcome, error)
}

// ErrUnknownPatient means the directory has no record for the number.
var ErrUnknownPatient = errors.New("recognition: patient not found")

// RecognizeRequest is the body of a recognition lookup.
type RecognizeRequest struct {
	PhoneNumber      string `json:"phone_number"`
	FirstName        string `json:"first_name,omitempty"`
	FamilyMemberType string `json:"family_member_type,omitempty"`
}

// WelcomeRequest asks for a personalized greeting.
type WelcomeRequest struct {
	PhoneNumber         string `json:"phone_number"`
	Symptoms            string `json:"symptoms"`
	SessionID           string `json:"session_id"`
	ConversationHistory []Turn `json:"conversation_history"`
}

type recognizeResponse struct {
	Found   bool                 `json:"found"`
	Patient *chat.PatientProfile `json:"patient"`
}

// Client implements Directory over the backend REST contract.
type Client struct {
	backend *backend.Client
}

var _ Directory = (*Client)(nil)

// NewClient wraps a backend client.
func NewClient(b *backend.Client) *Client {
	if b == nil {
		panic("recognition: backend client required")
	}
	return &Client{backend: b}
}

// Recognize returns the stored profile or ErrUnknownPatient. A 404 from the
// backend is treated as not found.
func (c *Client) Recognize(ctx context.Context, req RecognizeRequest) (*chat.PatientProfile, error) {
	var resp recognizeResponse
	err := c.backend.Do(ctx, "recognize_patient", http.MethodPost, "/api/patients/recognize", req, &resp)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrUnknownPatient
	}
	if err != nil {
		return nil, err
	}
	if !resp.Found || resp.Patient == nil {
		return nil, ErrUnknownPatient
	}
	return resp.Patient, nil
}

// SmartWelcome fetches the personalized greeting.
func (c *Client) SmartWelcome(ctx context.Context, req WelcomeRequest) (*SmartWelcome, error) {
	var resp SmartWelcome
	if err := c.backend.Do(ctx, "smart_welcome", http.MethodPost, "/api/patients/smart-welcome", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
