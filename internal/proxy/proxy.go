package proxy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/hostsync/internal/parcel"
	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/transport"
)

// WindowManager is the guest window manager as seen by the proxy.
// Displays and their windows are returned in the order the host must see them.
type WindowManager interface {
	Displays() []platform.Display
	Rotation() platform.Rotation
}

// Proxy talks to the host platform service on behalf of the guest.
type Proxy struct {
	binder transport.Binder
	wm     WindowManager
	logger *slog.Logger

	removed RemovedWindows

	// syncMu keeps at most one UpdateWindowState in flight.
	syncMu sync.Mutex
	state  syncStateHolder
}

// New creates a Proxy. A nil binder means the platform service was not
// found; every operation then returns without doing anything. A nil wm
// disables window state updates.
func New(binder transport.Binder, wm WindowManager, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	if binder == nil {
		logger.Warn("platform service not available, host synchronization disabled")
	}
	return &Proxy{
		binder: binder,
		wm:     wm,
		logger: logger,
	}
}

// Connected reports whether the proxy has a binder to the host.
func (p *Proxy) Connected() bool {
	return p.binder != nil
}

// transact sends one request. The interface token has already been written.
func (p *Proxy) transact(ctx context.Context, txn platform.Transaction, data *parcel.Writer) ([]byte, error) {
	return p.binder.Transact(ctx, uint32(txn), data.Bytes())
}

// NotifyBootFinished tells the host the guest has finished booting.
func (p *Proxy) NotifyBootFinished(ctx context.Context) {
	if p.binder == nil {
		return
	}

	p.logger.Info("sending boot finished signal to host")

	data := parcel.NewWriter()
	data.WriteInterfaceToken(platform.InterfaceToken)
	if _, err := p.transact(ctx, platform.TransactionBootFinished, data); err != nil {
		p.logger.Warn("failed to send boot finished signal", "error", err)
	}
}

// NotifyTaskAdded records that the guest created a task. The host learns
// about tasks through window state updates, so nothing is sent.
func (p *Proxy) NotifyTaskAdded(taskID int32) {
	p.logger.Info("task added", "task_id", taskID)
}

// NotifyTaskRemoved records that the guest destroyed a task.
func (p *Proxy) NotifyTaskRemoved(taskID int32) {
	p.logger.Info("task removed", "task_id", taskID)
}

// RemoveWindow records that w left the live window set. It is reported to
// the host with the next successful window state update.
func (p *Proxy) RemoveWindow(w platform.Window) {
	p.removed.MarkRemoved(w)
}

// PendingRemovals returns the number of removed windows not yet delivered.
func (p *Proxy) PendingRemovals() int {
	return p.removed.Len()
}
