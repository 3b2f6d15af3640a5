package backend

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// NetworkError wraps a transport failure: DNS, refused connection, timeout.
type NetworkError struct {
	Call string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend: %s: network failure: %v", e.Call, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectionError is a non-success HTTP status from the backend.
type RejectionError struct {
	Call   string
	Status int
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend: %s: rejected with status %d", e.Call, e.Status)
	}
	return fmt.Sprintf("backend: %s: rejected with status %d: %s", e.Call, e.Status, e.Detail)
}

// ErrNotFound is matched by rejections carrying a 404.
var ErrNotFound = errors.New("backend: not found")

// Is lets errors.Is(err, ErrNotFound) match 404 rejections.
func (e *RejectionError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRejection reports whether err is a backend rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

const maxDetailLen = 160

// UserMessage converts a backend error into a plain sentence safe to show
// the patient. Network failures and server errors always use fallback. A
// short, human-readable rejection detail from a 4xx is shown as is.
func UserMessage(err error, fallback string) string {
	var re *RejectionError
	if errors.As(err, &re) && re.Status >= 400 && re.Status < 500 && readable(re.Detail) {
		detail := strings.TrimSpace(re.Detail)
		if !strings.HasSuffix(detail, ".") && !strings.HasSuffix(detail, "!") && !strings.HasSuffix(detail, "?") {
			detail += "."
		}
		return detail
	}
	if IsNetwork(err) {
		return fallback + " Please check your connection and try again."
	}
	return fallback
}

// readable rejects details that look like stack traces, JSON or code.
func readable(detail string) bool {
	detail = strings.TrimSpace(detail)
	if detail == "" || len(detail) > maxDetailLen {
		return false
	}
	if strings.ContainsAny(detail, "{}[]<>\n\t") {
		return false
	}
	for _, marker := range []string{"Traceback", "Exception", "Error:", "error:", "sql", "SQL", "nil pointer"} {
		if strings.Contains(detail, marker) {
			return false
		}
	}
	letters := 0
	for _, r := range detail {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters*2 >= len([]rune(detail))
}
