package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/hostsync/internal/parcel"
	"github.com/jmylchreest/hostsync/internal/platform"
)

var (
	// ErrUnknownTransaction is returned for codes outside the transaction table.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrNotImplemented is returned for reserved transactions.
	ErrNotImplemented = errors.New("transaction not implemented")
)

// WindowStateHandler is called with every decoded window state update.
type WindowStateHandler func(state *platform.WindowState)

// ClipboardHandler is called when the guest pushes clipboard text.
type ClipboardHandler func(text string)

// Dispatcher serves platform service transactions.
// It implements transport.Handler.
type Dispatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	bootFinished bool
	bootAt       time.Time

	clipboard    string
	hasClipboard bool

	lastState  *platform.WindowState
	lastUpdate time.Time
	updates    int

	onWindowState WindowStateHandler
	onClipboard   ClipboardHandler
}

// NewDispatcher creates a Dispatcher with an empty clipboard.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// SetWindowStateHandler sets the handler called for each window state update.
func (d *Dispatcher) SetWindowStateHandler(handler WindowStateHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onWindowState = handler
}

// SetClipboardHandler sets the handler called when the guest sets the clipboard.
func (d *Dispatcher) SetClipboardHandler(handler ClipboardHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClipboard = handler
}

// SetClipboard sets the host clipboard returned to GetClipboardData.
func (d *Dispatcher) SetClipboard(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clipboard = text
	d.hasClipboard = true
}

// ClearClipboard empties the host clipboard.
func (d *Dispatcher) ClearClipboard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clipboard = ""
	d.hasClipboard = false
}

// Clipboard returns the host clipboard text and whether it is set.
func (d *Dispatcher) Clipboard() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clipboard, d.hasClipboard
}

// BootFinished reports whether the guest signalled boot completion.
func (d *Dispatcher) BootFinished() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bootFinished
}

// LastWindowState returns the most recent window state and the number of
// updates received so far.
func (d *Dispatcher) LastWindowState() (*platform.WindowState, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastState, d.updates
}

// Summary returns a one-line description of what the host has seen.
func (d *Dispatcher) Summary() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	boot := "guest booting"
	if d.bootFinished {
		boot = "guest booted " + humanize.Time(d.bootAt)
	}
	if d.lastState == nil {
		return boot + ", no window state received"
	}
	return fmt.Sprintf("%s, %d updates, last %s: %d displays, %d windows, %d removed",
		boot, d.updates, humanize.Time(d.lastUpdate),
		len(d.lastState.Displays), d.lastState.WindowCount(), len(d.lastState.Removed))
}

// HandleTransaction implements transport.Handler.
func (d *Dispatcher) HandleTransaction(ctx context.Context, code uint32, data []byte) ([]byte, error) {
	txn := platform.Transaction(code)

	r := parcel.NewReader(data)
	if err := r.EnforceInterface(platform.InterfaceToken); err != nil {
		d.logger.Warn("rejecting transaction", "transaction", txn.String(), "error", err)
		return nil, err
	}

	switch txn {
	case platform.TransactionBootFinished:
		return d.handleBootFinished()
	case platform.TransactionUpdateWindowState:
		return d.handleUpdateWindowState(r, len(data))
	case platform.TransactionUpdatePackageList:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, txn)
	case platform.TransactionSetClipboardData:
		return d.handleSetClipboardData(r)
	case platform.TransactionGetClipboardData:
		return d.handleGetClipboardData()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTransaction, code)
	}
}

func (d *Dispatcher) handleBootFinished() ([]byte, error) {
	d.mu.Lock()
	d.bootFinished = true
	d.bootAt = time.Now()
	d.mu.Unlock()

	d.logger.Info("guest boot finished")
	return nil, nil
}

func (d *Dispatcher) handleUpdateWindowState(r *parcel.Reader, size int) ([]byte, error) {
	state, err := platform.ReadWindowState(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode window state: %w", err)
	}

	d.mu.Lock()
	d.lastState = state
	d.lastUpdate = time.Now()
	d.updates++
	handler := d.onWindowState
	d.mu.Unlock()

	d.logger.Debug("window state received",
		"displays", len(state.Displays),
		"windows", state.WindowCount(),
		"removed", len(state.Removed),
		"size", humanize.Bytes(uint64(size)),
	)

	if handler != nil {
		handler(state)
	}
	return nil, nil
}

func (d *Dispatcher) handleSetClipboardData(r *parcel.Reader) ([]byte, error) {
	text, hasData, err := platform.DecodeClipboard(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode clipboard data: %w", err)
	}

	d.mu.Lock()
	d.clipboard = text
	d.hasClipboard = hasData
	handler := d.onClipboard
	d.mu.Unlock()

	d.logger.Debug("clipboard set by guest", "has_data", hasData, "size", humanize.Bytes(uint64(len(text))))

	if handler != nil && hasData {
		handler(text)
	}
	return nil, nil
}

func (d *Dispatcher) handleGetClipboardData() ([]byte, error) {
	text, ok := d.Clipboard()

	reply := parcel.NewWriter()
	platform.EncodeClipboard(reply, ok, text)
	return reply.Bytes(), nil
}
