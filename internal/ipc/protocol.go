// Package ipc is the message boundary between a UI process and the app
// manager: typed requests and responses plus pushed events, carried as JSON
// over a websocket.
package ipc

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates envelopes.
type MessageType string

const (
	TypeRequest  MessageType = "request"
	TypeResponse MessageType = "response"
	TypeEvent    MessageType = "event"
)

// Event names pushed by the server.
const (
	EventErrorDialog      = "error-dialog"
	EventLocalAppsChanged = "local-apps-changed"
	EventSyncProgress     = "sync-progress"
	EventInstallPhase     = "install-phase"
)

// Message is the envelope of every frame.
type Message struct {
	Type   MessageType     `json:"type"`
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Error codes returned in responses.
const (
	CodeUnknownMethod  = "unknown-method"
	CodeInvalidParams  = "invalid-params"
	CodeReservedSource = "reserved-source"
	CodeUnknownSource  = "unknown-source"
	CodeOutsideManaged = "outside-managed-dir"
	CodeFailed         = "failed"
)

// Error is a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidParams(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// ErrorDialog is the payload of EventErrorDialog.
type ErrorDialog struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
