package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionClaimsKey contextKey = "sessionClaims"

const tokenIssuer = "triage-concierge"

// ErrTokenInvalid covers every rejected session token.
var ErrTokenInvalid = errors.New("middleware: invalid session token")

// SessionTokens signs and verifies HMAC JWTs that bind a client to one
// conversation id.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens returns nil when secret is empty, which disables
// session binding.
func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for sessionID.
func (s *SessionTokens) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks tokenString and returns the session id it was issued for.
func (s *SessionTokens) Verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// RequireSession rejects requests whose token does not match the id path
// parameter returned by sessionID. The token comes from a Bearer header or,
// for websocket upgrades, the token query parameter. A nil receiver lets
// every request through.
func (s *SessionTokens) RequireSession(sessionID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if s == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				http.Error(w, "missing session token", http.StatusUnauthorized)
				return
			}
			subject, err := s.Verify(raw)
			if err != nil || subject != sessionID(r) {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), sessionClaimsKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the verified session id if present.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionClaimsKey).(string)
	return id, ok
}

// TokenFromRequest reads a Bearer header, falling back to the token query
// parameter.
func TokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Owns reports whether r carries a valid token for sessionID. A nil
// receiver owns every session.
func (s *SessionTokens) Owns(r *http.Request, sessionID string) bool {
	if s == nil {
		return true
	}
	raw := TokenFromRequest(r)
	if raw == "" {
		return false
	}
	subject, err := s.Verify(raw)
	return err == nil && subject == sessionID
}
