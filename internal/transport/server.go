package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// RejectedErrorName is the D-Bus error returned when a handler fails.
const RejectedErrorName = "org.anbox.PlatformService.Error.Rejected"

// Service exports a Handler on the bus under a well-known name.
type Service struct {
	conn    *dbus.Conn
	svc     ServiceConfig
	handler Handler
	logger  *slog.Logger
}

// exportedObject carries the only method visible on the bus.
type exportedObject struct {
	handler Handler
	logger  *slog.Logger
}

// Transact is the D-Bus method: Transact(u code, ay data) -> ay
func (o *exportedObject) Transact(code uint32, data []byte) ([]byte, *dbus.Error) {
	o.logger.Debug("Transact called", "code", code, "bytes", len(data))

	reply, err := o.handler.HandleTransaction(context.Background(), code, data)
	if err != nil {
		o.logger.Warn("transaction rejected", "code", code, "error", err)
		return nil, dbus.NewError(RejectedErrorName, []interface{}{err.Error()})
	}
	if reply == nil {
		reply = []byte{}
	}
	return reply, nil
}

// Export registers h on conn and claims the service name.
func Export(conn *dbus.Conn, svc ServiceConfig, h Handler, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	obj := &exportedObject{handler: h, logger: logger}
	path := dbus.ObjectPath(svc.Path)

	if err := conn.Export(obj, path, svc.Interface); err != nil {
		return nil, fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: svc.Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    svc.Interface,
				Methods: serviceMethods(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(svc.Name, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("bus name %s already taken", svc.Name)
	}

	logger.Info("platform service exported", "name", svc.Name, "path", svc.Path, "interface", svc.Interface)
	return &Service{conn: conn, svc: svc, handler: h, logger: logger}, nil
}

// Close releases the bus name and unexports the object.
func (s *Service) Close() error {
	path := dbus.ObjectPath(s.svc.Path)
	_ = s.conn.Export(nil, path, s.svc.Interface)
	_ = s.conn.Export(nil, path, "org.freedesktop.DBus.Introspectable")

	if _, err := s.conn.ReleaseName(s.svc.Name); err != nil {
		return fmt.Errorf("failed to release bus name: %w", err)
	}
	s.logger.Info("platform service released", "name", s.svc.Name)
	return nil
}

func serviceMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: TransactMethod,
			Args: []introspect.Arg{
				{Name: "code", Type: "u", Direction: "in"},
				{Name: "data", Type: "ay", Direction: "in"},
				{Name: "reply", Type: "ay", Direction: "out"},
			},
		},
	}
}
