package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"launcher/internal/apps"
	"launcher/internal/sources"
)

// HandlerFunc serves one method.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Dispatcher routes requests to handlers by method name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string]HandlerFunc{}}
}

// Register adds or replaces the handler of method.
func (d *Dispatcher) Register(method string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = h
}

// Handle registers a handler with typed params and result. Missing params
// decode as the zero value.
func Handle[P, R any](d *Dispatcher, method string, fn func(context.Context, P) (R, error)) {
	d.Register(method, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, invalidParams("%v", err)
			}
		}
		return fn(ctx, params)
	})
}

// Methods lists the registered method names.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs a request and builds its response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Message) Message {
	resp := Message{Type: TypeResponse, ID: req.ID, Method: req.Method}

	d.mu.RLock()
	h, ok := d.handlers[req.Method]
	d.mu.RUnlock()
	if !ok {
		resp.Error = &Error{Code: CodeUnknownMethod, Message: "unknown method " + req.Method}
		return resp
	}

	result, err := h(ctx, req.Params)
	if err != nil {
		resp.Error = toError(err)
		return resp
	}
	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = &Error{Code: CodeFailed, Message: err.Error()}
		return resp
	}
	resp.Result = data
	return resp
}

func toError(err error) *Error {
	var (
		ipcErr   *Error
		reserved *sources.ReservedNameError
		unknown  *apps.UnknownSourceError
	)
	switch {
	case errors.As(err, &ipcErr):
		return ipcErr
	case errors.As(err, &reserved):
		return &Error{Code: CodeReservedSource, Message: err.Error()}
	case errors.As(err, &unknown):
		return &Error{Code: CodeUnknownSource, Message: err.Error()}
	case errors.Is(err, apps.ErrOutsideManagedDir):
		return &Error{Code: CodeOutsideManaged, Message: err.Error()}
	default:
		return &Error{Code: CodeFailed, Message: err.Error()}
	}
}
