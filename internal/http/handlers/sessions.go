package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/triage-concierge/internal/booking"
	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/internal/conversation"
	"github.com/wolfman30/triage-concierge/internal/http/middleware"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

const maxBodyBytes = 64 << 10

// SessionsHandler exposes conversations over JSON.
type SessionsHandler struct {
	registry *conversation.Registry
	tokens   *middleware.SessionTokens
	logger   *logging.Logger
}

// NewSessionsHandler builds the handler. tokens may be nil.
func NewSessionsHandler(registry *conversation.Registry, tokens *middleware.SessionTokens, logger *logging.Logger) *SessionsHandler {
	if registry == nil {
		panic("handlers: conversation registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsHandler{registry: registry, tokens: tokens, logger: logger.Component("sessions_api")}
}

// SessionIDParam reads the session id path parameter.
func SessionIDParam(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

// OpenSessionRequest optionally names a conversation to resume.
type OpenSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// OpenSessionResponse carries the id, an optional token and any restored
// history.
type OpenSessionResponse struct {
	SessionID string         `json:"session_id"`
	Token     string         `json:"token,omitempty"`
	Restored  bool           `json:"restored"`
	Messages  []chat.Message `json:"messages"`
}

// MessagesResponse is returned by every conversation operation.
type MessagesResponse struct {
	Messages []chat.Message         `json:"messages"`
	Appended []chat.Message         `json:"appended,omitempty"`
	State    *conversation.Snapshot `json:"state,omitempty"`
}

type inputRequest struct {
	Text string `json:"text"`
}

type rescheduleRequest struct {
	FormID string `json:"form_id,omitempty"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Open starts a conversation, resuming a cached one when its id is given.
// With session tokens enabled, resuming needs the token previously issued
// for that id; without it a new conversation is opened.
func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	var conv *conversation.Orchestrator
	restored := false
	id := strings.TrimSpace(req.SessionID)
	if id != "" && !h.tokens.Owns(r, id) {
		h.logger.Info("resume refused without matching token")
		id = ""
	}
	if id != "" {
		existing, err := h.registry.Get(r.Context(), id)
		switch {
		case err == nil:
			conv, restored = existing, true
		case errors.Is(err, conversation.ErrUnknownSession):
		default:
			h.logger.Error("session restore failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not restore session"})
			return
		}
	}
	if conv == nil {
		conv = h.registry.Open()
	}

	resp := OpenSessionResponse{SessionID: conv.ID(), Restored: restored, Messages: nonNil(conv.Messages())}
	if h.tokens != nil {
		token, err := h.tokens.Issue(conv.ID())
		if err != nil {
			h.logger.Error("token issue failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not issue token"})
			return
		}
		resp.Token = token
	}
	status := http.StatusCreated
	if restored {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// Messages returns the conversation and its state.
func (h *SessionsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	state := conv.State()
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: nonNil(conv.Messages()), State: &state})
}

// Input handles free text.
func (h *SessionsHandler) Input(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	var req inputRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	appended, err := conv.HandleUserInput(r.Context(), req.Text)
	h.respond(w, conv, appended, err)
}

// Action handles a quick reply.
func (h *SessionsHandler) Action(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	var qr conversation.QuickReply
	if err := decode(r, &qr); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	appended, err := conv.HandleQuickReply(r.Context(), qr)
	h.respond(w, conv, appended, err)
}

// BookAppointment submits the appointment form.
func (h *SessionsHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	var sub booking.AppointmentSubmission
	if err := decode(r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	appended, err := conv.SubmitAppointment(r.Context(), sub)
	h.respond(w, conv, appended, err)
}

// Reschedule submits the reschedule form for the appointment in the path.
func (h *SessionsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	appended, err := conv.SubmitReschedule(r.Context(), booking.RescheduleSubmission{
		FormID:        req.FormID,
		AppointmentID: chi.URLParam(r, "appointmentID"),
		Date:          req.Date,
		Time:          req.Time,
	})
	h.respond(w, conv, appended, err)
}

// BookTests submits the test booking form.
func (h *SessionsHandler) BookTests(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	var sub booking.TestSubmission
	if err := decode(r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	appended, err := conv.SubmitTestBooking(r.Context(), sub)
	h.respond(w, conv, appended, err)
}

// Clear wipes the conversation.
func (h *SessionsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	err := h.registry.Remove(r.Context(), SessionIDParam(r))
	switch {
	case errors.Is(err, conversation.ErrUnknownSession):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
	case err != nil:
		h.logger.Error("clear failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not clear session"})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SessionsHandler) conversation(w http.ResponseWriter, r *http.Request) (*conversation.Orchestrator, bool) {
	conv, err := h.registry.Get(r.Context(), SessionIDParam(r))
	if errors.Is(err, conversation.ErrUnknownSession) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("session lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not load session"})
		return nil, false
	}
	return conv, true
}

func (h *SessionsHandler) respond(w http.ResponseWriter, conv *conversation.Orchestrator, appended []chat.Message, err error) {
	if err != nil {
		status, body := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("conversation operation failed", "session_id", conv.ID(), "error", err)
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: nonNil(conv.Messages()), Appended: appended})
}

func errorStatus(err error) (int, errorResponse) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorResponse{Error: "invalid form", Fields: verr.Fields}
	case errors.Is(err, conversation.ErrBusy):
		return http.StatusConflict, errorResponse{Error: "another request is still in progress"}
	case errors.Is(err, conversation.ErrUnknownAction):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, conversation.ErrUnknownSession):
		return http.StatusNotFound, errorResponse{Error: "unknown session"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func nonNil(msgs []chat.Message) []chat.Message {
	if msgs == nil {
		return []chat.Message{}
	}
	return msgs
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
