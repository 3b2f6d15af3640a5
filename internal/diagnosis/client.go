package diagnosis

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/chat"
)

// Oracle is the remote diagnosis service.
type Oracle interface {
	Start(ctx context.Context, req StartRequest) (*Reply, error)
	Answer(ctx context.Context, req AnswerRequest) (*Reply, error)
}

// Client implements Oracle over the backend REST contract.
type Client struct {
	backend *backend.Client
}

var _ Oracle = (*Client)(nil)

// NewClient wraps a backend client.
func NewClient(b *backend.Client) *Client {
	if b == nil {
		panic("diagnosis: backend client required")
	}
	return &Client{backend: b}
}

// Start posts the symptoms and returns the first question or a verdict.
func (c *Client) Start(ctx context.Context, req StartRequest) (*Reply, error) {
	var wire wireReply
	if err := c.backend.Do(ctx, "start_interview", http.MethodPost, "/api/diagnostic/start", req, &wire); err != nil {
		return nil, err
	}
	return wire.reply(), nil
}

// Answer posts one answer with its question context.
func (c *Client) Answer(ctx context.Context, req AnswerRequest) (*Reply, error) {
	var wire wireReply
	if err := c.backend.Do(ctx, "answer_question", http.MethodPost, "/api/diagnostic/answer", req, &wire); err != nil {
		return nil, err
	}
	return wire.reply(), nil
}

// wireQuestion tolerates the field spellings the oracle has used.
type wireQuestion struct {
	ID           string          `json:"id"`
	QuestionID   string          `json:"question_id"`
	Text         string          `json:"text"`
	Question     string          `json:"question"`
	Type         string          `json:"type"`
	QuestionType string          `json:"question_type"`
	Options      json.RawMessage `json:"options"`
}

type wireReply struct {
	SessionID       string        `json:"session_id"`
	CurrentQuestion *wireQuestion `json:"current_question"`
	Message         string        `json:"message"`
	NextStep        string        `json:"next_step"`
	Diagnosis       *Diagnosis    `json:"diagnosis"`
	Emergency       *Emergency    `json:"emergency"`
}

func (w wireReply) reply() *Reply {
	r := &Reply{
		SessionID: w.SessionID,
		Message:   w.Message,
		NextStep:  w.NextStep,
		Diagnosis: w.Diagnosis,
		Emergency: w.Emergency,
	}
	if q := w.CurrentQuestion; q != nil {
		question := chat.Question{
			ID:   first(q.ID, q.QuestionID),
			Text: first(q.Text, q.Question),
			Type: first(q.Type, q.QuestionType),
		}
		if len(q.Options) > 0 {
			_ = json.Unmarshal(q.Options, &question.Options)
		}
		if question.ID != "" || question.Text != "" {
			r.CurrentQuestion = &question
		}
	}
	return r
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
