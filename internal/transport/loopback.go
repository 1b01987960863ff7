package transport

import (
	"context"
	"sync"
)

// Loopback is an in-process Binder that hands each transaction straight to
// a Handler. Handler errors surface as ErrRejected.
type Loopback struct {
	mu      sync.Mutex
	handler Handler
}

// NewLoopback creates a Loopback serving transactions with h.
func NewLoopback(h Handler) *Loopback {
	return &Loopback{handler: h}
}

// Transact implements Binder. Calls are serialized, matching a remote that
// handles one transaction at a time per client.
func (l *Loopback) Transact(ctx context.Context, code uint32, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CallError{Code: code, Kind: ErrUnavailable, Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// The handler must not observe later mutations of the caller's buffer.
	in := make([]byte, len(data))
	copy(in, data)

	reply, err := l.handler.HandleTransaction(ctx, code, in)
	if err != nil {
		return nil, &CallError{Code: code, Kind: ErrRejected, Err: err}
	}
	return reply, nil
}
