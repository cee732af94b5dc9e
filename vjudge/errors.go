package vjudge

import (
	"fmt"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a response body an error message quotes.
const maxErrorBody = 200

// TransportError means the request never produced an HTTP response: dial or
// timeout failures, a cancelled context, or an open circuit breaker.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "vjudge transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a response with a status other than 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("vjudge status %d %s", e.Code, http.StatusText(e.Code))
	if body := strings.Join(strings.Fields(e.Body), " "); body != "" {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// Unauthorized reports whether the session cookie was rejected.
func (e *StatusError) Unauthorized() bool { return e.Code == http.StatusUnauthorized }

// DecodeError is a 200 response whose body is not a JSON object.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string { return "vjudge decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
