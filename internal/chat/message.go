package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

var messageSeq atomic.Uint64

// Message is one immutable conversation entry.
type Message struct {
	ID        string
	Role      Role
	Timestamp time.Time
	Payload   Payload
}

// Type returns the discriminant derived from the payload.
func (m Message) Type() Type {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Type()
}

// NewMessage stamps a payload with a fresh id and the current time.
func NewMessage(role Role, payload Payload) Message {
	now := time.Now().UTC()
	return Message{
		ID:        newMessageID(now),
		Role:      role,
		Timestamp: now,
		Payload:   payload,
	}
}

// UserText builds an echoed user message.
func UserText(body string) Message {
	return NewMessage(RoleUser, Text{Body: body})
}

// AssistantText builds an assistant text message.
func AssistantText(body string) Message {
	return NewMessage(RoleAssistant, Text{Body: body})
}

// Assistant wraps any payload as an assistant message.
func Assistant(payload Payload) Message {
	return NewMessage(RoleAssistant, payload)
}

func newMessageID(at time.Time) string {
	return "msg_" + strconv.FormatInt(at.UnixNano(), 10) + "_" + strconv.FormatUint(messageSeq.Add(1), 10)
}

type wireMessage struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Timestamp time.Time       `json:"timestamp"`
	Type      Type            `json:"type"`
	Content   string          `json:"content"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON renders {id, role, timestamp, type, content, payload}.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Payload == nil {
		return nil, fmt.Errorf("chat: message %s has no payload", m.ID)
	}
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("chat: encode %s payload: %w", m.Type(), err)
	}
	return json.Marshal(wireMessage{
		ID:        m.ID,
		Role:      m.Role,
		Timestamp: m.Timestamp,
		Type:      m.Type(),
		Content:   Content(m.Payload),
		Payload:   payload,
	})
}

// UnmarshalJSON restores the payload using the type discriminant.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("chat: decode message: %w", err)
	}
	payload, err := decodePayload(w.Type, w.Payload)
	if err != nil {
		return err
	}
	*m = Message{ID: w.ID, Role: w.Role, Timestamp: w.Timestamp, Payload: payload}
	return nil
}
