package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrIdentityRequired means a form was requested before the patient
	// was resolved.
	ErrIdentityRequired = errors.New("booking: patient identity required")
	// ErrAppointmentNotFound means no confirmed appointment with that id
	// exists in the conversation.
	ErrAppointmentNotFound = errors.New("booking: appointment not found")
	// ErrFormClosed means a submission named a form that is no longer
	// visible and was never confirmed.
	ErrFormClosed = errors.New("booking: form is no longer open")
	// ErrAppointmentCancelled means the appointment was cancelled earlier
	// in the conversation.
	ErrAppointmentCancelled = errors.New("booking: appointment cancelled")
)

// ValidationError lists per-field problems with a form submission. It is
// shown inline on the form rather than in the conversation.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "booking: invalid form: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
