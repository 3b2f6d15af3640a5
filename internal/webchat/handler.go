// Package webchat serves a conversation over a WebSocket so the client
// receives results as frames instead of polling.
package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/internal/conversation"
	httpmiddleware "github.com/wolfman30/triage-concierge/internal/http/middleware"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 64 << 10
)

// Conversations resolves a session id to its live conversation.
type Conversations interface {
	Get(ctx context.Context, id string) (*conversation.Orchestrator, error)
}

// InboundFrame is what the client sends.
type InboundFrame struct {
	Type   string                   `json:"type"` // "input", "action", "ping"
	Text   string                   `json:"text,omitempty"`
	Action *conversation.QuickReply `json:"action,omitempty"`
}

// OutboundFrame is what the server sends.
type OutboundFrame struct {
	Type     string         `json:"type"` // "history", "messages", "busy", "error", "pong"
	Messages []chat.Message `json:"messages,omitempty"`
	Appended []chat.Message `json:"appended,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Handler upgrades requests and pumps frames for one conversation each.
type Handler struct {
	conversations Conversations
	upgrader      websocket.Upgrader
	logger        *logging.Logger
}

// NewHandler builds a websocket handler. allowedOrigins follows the CORS
// list; "*" or an empty list accepts any origin.
func NewHandler(conversations Conversations, allowedOrigins []string, logger *logging.Logger) *Handler {
	if conversations == nil {
		panic("webchat: conversations required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		conversations: conversations,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Component("webchat"),
	}
}

// Serve upgrades the request for the conversation named by sessionID.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conv, err := h.conversations.Get(r.Context(), sessionID)
	if errors.Is(err, conversation.ErrUnknownSession) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("session lookup failed", "session_id", sessionID, "error", err)
		http.Error(w, "could not load session", http.StatusInternalServerError)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	c := &client{conn: ws, conv: conv, logger: h.logger.With("session_id", sessionID)}
	c.run(context.WithoutCancel(r.Context()))
}

type client struct {
	conn   *websocket.Conn
	conv   *conversation.Orchestrator
	logger *logging.Logger

	writeMu sync.Mutex
}

func (c *client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.conn.Close()

	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.keepalive(ctx)

	c.logger.Info("connection opened")
	if err := c.send(OutboundFrame{Type: "history", Messages: nonNil(c.conv.Messages())}); err != nil {
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		var frame InboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("connection closed unexpectedly", "error", err)
			} else {
				c.logger.Debug("connection closed", "error", err)
			}
			return
		}

		switch frame.Type {
		case "ping":
			_ = c.send(OutboundFrame{Type: "pong"})
		case "input":
			if strings.TrimSpace(frame.Text) == "" {
				continue
			}
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				appended, err := c.conv.HandleUserInput(ctx, text)
				c.reply(appended, err)
			}(frame.Text)
		case "action":
			if frame.Action == nil {
				_ = c.send(OutboundFrame{Type: "error", Error: "action frame without action"})
				continue
			}
			wg.Add(1)
			go func(qr conversation.QuickReply) {
				defer wg.Done()
				appended, err := c.conv.HandleQuickReply(ctx, qr)
				c.reply(appended, err)
			}(*frame.Action)
		default:
			_ = c.send(OutboundFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

// reply reports one operation. Cancels dropped while busy produce no frame.
func (c *client) reply(appended []chat.Message, err error) {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		_ = c.send(OutboundFrame{Type: "busy"})
	case err != nil:
		c.logger.Warn("operation failed", "error", err)
		_ = c.send(OutboundFrame{Type: "error", Error: "Sorry, something went wrong. Please try again."})
	case appended != nil:
		_ = c.send(OutboundFrame{Type: "messages", Messages: nonNil(c.conv.Messages()), Appended: appended})
	}
}

func (c *client) send(frame OutboundFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

func (c *client) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and, when no allowlist is configured, any origin.
func originChecker(allowed []string) func(*http.Request) bool {
	matcher := httpmiddleware.NewOriginMatcher(allowed)
	if matcher.Empty() {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || matcher.Allows(origin)
	}
}

func nonNil(msgs []chat.Message) []chat.Message {
	if msgs == nil {
		return []chat.Message{}
	}
	return msgs
}
