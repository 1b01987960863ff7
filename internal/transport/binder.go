package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable means the remote service was not registered when
	// the binding was established. It is permanent for the process lifetime.
	ErrServiceUnavailable = errors.New("platform service unavailable")
	// ErrUnavailable means a call could not reach the remote (disconnected,
	// timed out, cancelled).
	ErrUnavailable = errors.New("remote unavailable")
	// ErrRejected means the remote received the call and answered with an error.
	ErrRejected = errors.New("remote rejected transaction")
)

// Binder performs one request/reply round trip with the remote service.
// Implementations make a single attempt per call; there is no retry.
type Binder interface {
	Transact(ctx context.Context, code uint32, data []byte) ([]byte, error)
}

// Handler serves transactions on the receiving side.
type Handler interface {
	HandleTransaction(ctx context.Context, code uint32, data []byte) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, code uint32, data []byte) ([]byte, error)

// HandleTransaction calls f.
func (f HandlerFunc) HandleTransaction(ctx context.Context, code uint32, data []byte) ([]byte, error) {
	return f(ctx, code, data)
}

// CallError describes a failed transaction. Kind is ErrUnavailable or
// ErrRejected; Err is the underlying cause.
type CallError struct {
	Code uint32
	Kind error
	Err  error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction %d: %v: %v", e.Code, e.Kind, e.Err)
	}
	return fmt.Sprintf("transaction %d: %v", e.Code, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
