package transport

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hangingObject is a bus object whose method calls never get a reply; they
// complete only when the caller's context is done.
type hangingObject struct {
	dbus.BusObject

	method string
	args   []any
}

func (o *hangingObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call {
	o.method = method
	o.args = args
	<-ctx.Done()
	return &dbus.Call{Method: method, Args: args, Err: ctx.Err()}
}

// replyObject answers every call with a fixed body.
type replyObject struct {
	dbus.BusObject

	reply []byte
}

func (o *replyObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call {
	return &dbus.Call{Method: method, Args: args, Body: []any{o.reply}}
}

func newTestBinder(obj dbus.BusObject, timeout time.Duration) *DBusBinder {
	b := &DBusBinder{
		obj:    obj,
		method: "org.anbox.PlatformService." + TransactMethod,
		logger: discardLogger(),
	}
	b.SetTimeout(timeout)
	return b
}
