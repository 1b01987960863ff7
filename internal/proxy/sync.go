package proxy

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/hostsync/internal/parcel"
	"github.com/jmylchreest/hostsync/internal/platform"
)

var (
	// ErrNoWindowManager is returned when the proxy has no window manager to read.
	ErrNoWindowManager = errors.New("no window manager")
	// ErrInvalidRotation is returned when the window manager reports a rotation outside 0-3.
	ErrInvalidRotation = errors.New("invalid rotation")
)

// SyncState is the phase of the window state synchronization cycle.
type SyncState int

const (
	// SyncIdle means no update is in progress.
	SyncIdle SyncState = iota
	// SyncCollecting means the proxy is reading and encoding window state.
	SyncCollecting
	// SyncSending means the update is on the wire.
	SyncSending
	// SyncSendFailed means the last send failed; removals were retained.
	SyncSendFailed
)

// String returns the string representation of SyncState.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncCollecting:
		return "collecting"
	case SyncSending:
		return "sending"
	case SyncSendFailed:
		return "send-failed"
	default:
		return "unknown"
	}
}

type syncStateHolder struct {
	mu       sync.RWMutex
	current  SyncState
	lastErr  error
	lastSync time.Time
}

// SyncStatus describes the outcome of the most recent update.
type SyncStatus struct {
	State       SyncState
	LastError   error     // error of the last attempt, nil if it succeeded
	LastSuccess time.Time // zero if no update succeeded yet
}

// SyncStatus returns the current sync state and the last outcome.
func (p *Proxy) SyncStatus() SyncStatus {
	p.state.mu.RLock()
	defer p.state.mu.RUnlock()
	return SyncStatus{
		State:       p.state.current,
		LastError:   p.state.lastErr,
		LastSuccess: p.state.lastSync,
	}
}

// SyncState returns the current phase of the sync cycle.
func (p *Proxy) SyncState() SyncState {
	return p.SyncStatus().State
}

// BuildWindowState collects the current window state: every display with its
// live windows in order, followed by the removed windows drained from the
// tracker. It returns how many removed entries were included. Nothing is
// drained when an error is returned.
func (p *Proxy) BuildWindowState() (*platform.WindowState, int, error) {
	if p.wm == nil {
		return nil, 0, ErrNoWindowManager
	}

	rotation := p.wm.Rotation()
	if !rotation.Valid() {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidRotation, int32(rotation))
	}
	displays := p.wm.Displays()

	state := &platform.WindowState{
		Displays: make([]platform.DisplayState, 0, len(displays)),
	}
	for _, d := range displays {
		ds := platform.DisplayState{
			ID:      d.ID,
			Windows: make([]platform.Snapshot, 0, len(d.Windows)),
		}
		for _, w := range d.Windows {
			ds.Windows = append(ds.Windows, platform.SnapshotOf(w, rotation))
		}
		state.Displays = append(state.Displays, ds)
	}

	// Removed windows carry their last known surface and frame.
	removed := p.removed.Drain()
	state.Removed = make([]platform.Snapshot, 0, len(removed))
	for _, w := range removed {
		state.Removed = append(state.Removed, platform.SnapshotOf(w, rotation))
	}

	return state, len(removed), nil
}

// UpdateWindowState sends the full window state to the host. It is called
// once per composition cycle. Removed windows are cleared only when the host
// accepted the update; otherwise they are sent again next cycle.
func (p *Proxy) UpdateWindowState(ctx context.Context) {
	if p.binder == nil || p.wm == nil {
		return
	}

	p.syncMu.Lock()
	defer p.syncMu.Unlock()

	logger := p.logger
	if cycle, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader); err == nil {
		logger = logger.With("cycle", cycle.String())
	}

	p.transition(logger, SyncCollecting)
	state, drained, err := p.BuildWindowState()
	if err != nil {
		logger.Warn("skipping window state update", "error", err)
		p.finish(logger, err)
		return
	}

	data := parcel.NewWriter()
	data.WriteInterfaceToken(platform.InterfaceToken)
	platform.AppendWindowState(data, state)

	p.transition(logger, SyncSending)
	if _, err := p.transact(ctx, platform.TransactionUpdateWindowState, data); err != nil {
		logger.Warn("failed to send window state to host",
			"error", err,
			"pending_removed", p.removed.Len(),
		)
		p.transition(logger, SyncSendFailed)
		p.finish(logger, err)
		return
	}

	p.removed.Commit(drained)
	p.finish(logger, nil)

	logger.Debug("window state sent",
		"displays", len(state.Displays),
		"windows", state.WindowCount(),
		"removed", drained,
		"bytes", data.Len(),
	)
}

func (p *Proxy) transition(logger *slog.Logger, s SyncState) {
	p.state.mu.Lock()
	p.state.current = s
	p.state.mu.Unlock()
	logger.Debug("sync state", "state", s.String())
}

// finish records the outcome of a cycle and returns to idle.
func (p *Proxy) finish(logger *slog.Logger, err error) {
	p.state.mu.Lock()
	p.state.lastErr = err
	if err == nil {
		p.state.lastSync = time.Now()
	}
	p.state.mu.Unlock()
	p.transition(logger, SyncIdle)
}
