package proxy

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	code uint32
	data []byte
}

// fakeBinder records every transaction and replies from a script.
type fakeBinder struct {
	mu    sync.Mutex
	calls []call
	err   error
	reply []byte

	// during runs inside Transact, before it returns.
	during func()
}

func (b *fakeBinder) Transact(ctx context.Context, code uint32, data []byte) ([]byte, error) {
	b.mu.Lock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.calls = append(b.calls, call{code: code, data: cp})
	err, reply, during := b.err, b.reply, b.during
	b.mu.Unlock()

	if during != nil {
		during()
	}
	if err != nil {
		return nil, &transport.CallError{Code: code, Kind: transport.ErrUnavailable, Err: err}
	}
	return reply, nil
}

func (b *fakeBinder) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *fakeBinder) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBinder) last() call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

// staticWM is a WindowManager over fixed data.
type staticWM struct {
	mu       sync.Mutex
	displays []platform.Display
	rotation platform.Rotation
}

func (w *staticWM) Displays() []platform.Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displays
}

func (w *staticWM) Rotation() platform.Rotation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotation
}

func window(id, pkg string) platform.Window {
	return platform.Window{
		ID:          id,
		HasSurface:  true,
		PackageName: pkg,
		Frame:       platform.Frame{Left: 0, Top: 0, Right: 100, Bottom: 50},
	}
}
