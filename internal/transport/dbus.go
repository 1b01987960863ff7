package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
)

// ServiceConfig addresses the platform service on the bus.
type ServiceConfig struct {
	Name      string // well-known bus name
	Path      string // exported object path
	Interface string // D-Bus interface carrying the Transact method
}

// TransactMethod is the member name of the exported transaction method.
const TransactMethod = "Transact"

// Dial opens the bus described by bus: "session", "system", or a D-Bus
// address such as "unix:path=/run/hostsync/bus".
// The session and system connections are shared and must not be closed.
func Dial(bus string) (*dbus.Conn, error) {
	switch bus {
	case "", "session":
		conn, err := dbus.SessionBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		return conn, nil
	case "system":
		conn, err := dbus.SystemBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to system bus: %w", err)
		}
		return conn, nil
	default:
		conn, err := dbus.Connect(bus)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to bus %s: %w", bus, err)
		}
		return conn, nil
	}
}

// DBusBinder is a Binder backed by a D-Bus method call.
type DBusBinder struct {
	obj     dbus.BusObject
	method  string
	timeout atomic.Int64 // nanoseconds, 0 = rely on the caller's context
	logger  *slog.Logger
}

// Connect looks up the platform service on conn. It returns
// ErrServiceUnavailable when no process owns the service name.
func Connect(ctx context.Context, conn *dbus.Conn, svc ServiceConfig, timeout time.Duration, logger *slog.Logger) (*DBusBinder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var hasOwner bool
	err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, svc.Name).Store(&hasOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", svc.Name, err)
	}
	if !hasOwner {
		return nil, fmt.Errorf("%w: %s has no owner", ErrServiceUnavailable, svc.Name)
	}

	b := &DBusBinder{
		obj:    conn.Object(svc.Name, dbus.ObjectPath(svc.Path)),
		method: svc.Interface + "." + TransactMethod,
		logger: logger,
	}
	b.SetTimeout(timeout)

	logger.Info("connected to platform service", "name", svc.Name, "path", svc.Path)
	return b, nil
}

// SetTimeout changes the per-call timeout. Safe for concurrent use.
func (b *DBusBinder) SetTimeout(timeout time.Duration) {
	b.timeout.Store(int64(timeout))
}

// Timeout returns the current per-call timeout.
func (b *DBusBinder) Timeout() time.Duration {
	return time.Duration(b.timeout.Load())
}

// Transact implements Binder.
func (b *DBusBinder) Transact(ctx context.Context, code uint32, data []byte) ([]byte, error) {
	if timeout := b.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reply []byte
	err := b.obj.CallWithContext(ctx, b.method, 0, code, data).Store(&reply)
	if err != nil {
		return nil, &CallError{Code: code, Kind: classify(err), Err: err}
	}
	return reply, nil
}

// classify maps a D-Bus call error to ErrRejected (the remote replied with
// an error of its own) or ErrUnavailable (everything else).
func classify(err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return classifyName(dbusErr.Name)
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) {
		return classifyName(dbusErrPtr.Name)
	}
	return ErrUnavailable
}

func classifyName(name string) error {
	// Bus daemon errors mean the call never reached the service.
	if strings.HasPrefix(name, "org.freedesktop.DBus.Error.") {
		return ErrUnavailable
	}
	return ErrRejected
}
