package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error classes surfaced by the client. They are matched with errors.Is
// against a *NetworkError.
var (
	ErrTimeout     = errors.New("request timed out")
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("request rejected by server")
	ErrServer      = errors.New("server error")
	ErrUnavailable = errors.New("backend unreachable")
)

// UnknownErrorMessage is used when neither the server nor the transport
// produced a readable message
const UnknownErrorMessage = "An unknown error occurred"

// NetworkError describes a failed backend call
type NetworkError struct {
	Op         string // Logical operation, e.g. "create arena session"
	Method     string
	Path       string
	StatusCode int // Zero when no response was received
	Message    string
	Timeout    bool
	Err        error
}

// Error implements the error interface with the most useful message available
func (e *NetworkError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return UnknownErrorMessage
}

// Unwrap exposes the transport error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is maps the error onto the package sentinels
func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Timeout
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBadRequest:
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= 500
	case ErrUnavailable:
		return e.StatusCode == 0 && !e.Timeout
	}
	return false
}

// Describe returns a log-friendly one-liner with operation context
func (e *NetworkError) Describe() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s %s: %d: %s", e.Op, e.Method, e.Path, e.StatusCode, e.Error())
	}
	return fmt.Sprintf("%s: %s %s: %s", e.Op, e.Method, e.Path, e.Error())
}

// Message extracts a human-readable message from any error, falling back to
// the generic unknown-error text
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}

// isTimeout reports whether a transport error was caused by a deadline
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errorBody covers the error shapes the backend emits: {"message": ...},
// {"error": ...} and FastAPI's {"detail": "..."} or {"detail": [{"msg": ...}]}
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	if len(b.Detail) > 0 {
		var s string
		if err := json.Unmarshal(b.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(b.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return b.Error
}

// messageFromBody parses an error response body, returning "" when nothing
// readable is present
func messageFromBody(body []byte) string {
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return ""
	}
	return b.text()
}
