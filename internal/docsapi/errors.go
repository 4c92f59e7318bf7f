package docsapi

import (
	"encoding/json"
	"errors"
	"strings"
)

const networkErrorMessage = "Network error"

// RequestError is the single failure shape of every service call.
type RequestError struct {
	StatusCode int
	Message    string
	// Network is set when no response was received at all.
	Network bool
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is a transport failure without a response.
func IsNetwork(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Network
}

// Message returns the user-facing message carried by err, or fallback when
// err is not a *RequestError.
func Message(err error, fallback string) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && strings.TrimSpace(reqErr.Message) != "" {
		return reqErr.Message
	}
	return fallback
}

func networkError(cause error) *RequestError {
	return &RequestError{Message: networkErrorMessage, Network: true, Err: cause}
}

// extractDetail pulls the "detail" field out of an error body. FastAPI
// validation failures carry a list of {msg} objects instead of a string.
func extractDetail(body []byte, fallback string) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return fallback
	}
	var text string
	if err := json.Unmarshal(parsed.Detail, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return fallback
		}
		return text
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(parsed.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if msg := strings.TrimSpace(item.Msg); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return fallback
}
