package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/hostsync/internal/adapter/guest"
	"github.com/jmylchreest/hostsync/internal/config"
	"github.com/jmylchreest/hostsync/internal/proxy"
	"github.com/jmylchreest/hostsync/internal/transport"
)

// Clipboard is the guest clipboard.
type Clipboard interface {
	Read(ctx context.Context) (*proxy.Clip, error)
	Write(ctx context.Context, clip *proxy.Clip) error
}

// Daemon runs the guest side of the platform service bridge.
type Daemon struct {
	mu     sync.Mutex
	cfg    *config.Config
	logger *slog.Logger
	level  *slog.LevelVar

	configPath string

	binder    transport.Binder
	dbus      *transport.DBusBinder
	conn      *godbus.Conn
	clipboard Clipboard

	proxy  *proxy.Proxy
	state  *guest.StateFile
	syncer *Coalescer

	// lastPushed is the guest clipboard text last sent to or taken from the host.
	lastPushed string
}

// New creates a Daemon. level may be nil when the log level is not adjustable.
func New(cfg *config.Config, logger *slog.Logger, level *slog.LevelVar) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		cfg:    cfg,
		logger: logger,
		level:  level,
	}
}

// SetConfigPath enables hot-reload of the config file at path.
func (d *Daemon) SetConfigPath(path string) {
	d.configPath = path
}

// SetBinder uses b instead of connecting to the bus.
func (d *Daemon) SetBinder(b transport.Binder) {
	d.binder = b
}

// SetClipboard uses c instead of the configured clipboard commands.
func (d *Daemon) SetClipboard(c Clipboard) {
	d.clipboard = c
}

// Proxy returns the proxy once Run has started it.
func (d *Daemon) Proxy() *proxy.Proxy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.proxy
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Run connects to the host and synchronizes until ctx is cancelled.
// A missing platform service is not an error: the daemon keeps running with
// every host operation disabled.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()

	if d.binder == nil {
		d.connect(ctx, cfg)
	}
	defer d.disconnect(cfg)

	d.state = guest.NewStateFile(cfg.Sync.StateFile, d.logger)
	p := proxy.New(d.binder, d.state, d.logger)
	d.state.SetRemovedCallback(p.RemoveWindow)

	d.mu.Lock()
	d.proxy = p
	d.mu.Unlock()

	if err := d.state.Reload(); err != nil {
		d.logger.Warn("failed to load state file", "path", cfg.Sync.StateFile, "error", err)
	}

	p.NotifyBootFinished(ctx)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	// Window state: every state file change and every tick is one cycle
	d.syncer = NewCoalescer(p.UpdateWindowState)
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.syncer.Run(ctx)
	}()
	d.syncer.Trigger()

	if stop := d.watchStateFile(cfg); stop != nil {
		defer stop()
	}

	if interval := cfg.Sync.Interval.Duration(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.tick(ctx, interval, d.syncer.Trigger)
		}()
	}

	if cfg.Clipboard.Enabled && d.openClipboard(cfg) {
		interval := cfg.Clipboard.PollInterval.Duration()
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.SyncClipboard(ctx)
			d.tick(ctx, interval, func() { d.SyncClipboard(ctx) })
		}()
	}

	if stop := d.watchConfig(cfg); stop != nil {
		defer stop()
	}

	d.logger.Info("hostsyncd ready",
		"connected", p.Connected(),
		"state_file", cfg.Sync.StateFile,
		"clipboard", d.clipboard != nil,
	)

	<-ctx.Done()
	return nil
}

// connect looks up the platform service. Failures leave d.binder nil.
func (d *Daemon) connect(ctx context.Context, cfg *config.Config) {
	conn, err := transport.Dial(cfg.Service.Bus)
	if err != nil {
		d.logger.Warn("failed to connect to bus", "bus", cfg.Service.Bus, "error", err)
		return
	}
	d.conn = conn

	b, err := transport.Connect(ctx, conn, cfg.TransportService(), cfg.Transport.CallTimeout.Duration(), d.logger)
	if err != nil {
		if !errors.Is(err, transport.ErrServiceUnavailable) {
			d.logger.Warn("failed to look up platform service", "error", err)
		}
		return
	}

	d.dbus = b
	d.binder = b
}

// disconnect closes private bus connections. Shared ones stay open.
func (d *Daemon) disconnect(cfg *config.Config) {
	if d.conn == nil {
		return
	}
	switch cfg.Service.Bus {
	case "", "session", "system":
	default:
		if err := d.conn.Close(); err != nil {
			d.logger.Debug("error closing bus connection", "error", err)
		}
	}
}

// watchStateFile starts the state file watcher and returns its stop function.
func (d *Daemon) watchStateFile(cfg *config.Config) func() {
	if err := os.MkdirAll(filepath.Dir(cfg.Sync.StateFile), 0755); err != nil {
		d.logger.Warn("failed to create state directory", "error", err)
	}

	fw, err := guest.NewFileWatcher(d.state, d.logger)
	if err != nil {
		d.logger.Warn("failed to create state file watcher", "error", err)
		return nil
	}
	fw.SetChangeCallback(d.syncer.Trigger)
	if err := fw.Start(); err != nil {
		d.logger.Warn("failed to watch state file", "path", cfg.Sync.StateFile, "error", err)
		_ = fw.Stop()
		return nil
	}

	return func() { _ = fw.Stop() }
}

// watchConfig starts the config hot-reload watcher and returns its stop function.
func (d *Daemon) watchConfig(cfg *config.Config) func() {
	if d.configPath == "" {
		return nil
	}

	w, err := config.NewWatcher(d.configPath, cfg, d.logger)
	if err != nil {
		d.logger.Warn("failed to create config watcher", "error", err)
		return nil
	}
	w.SetReloadCallback(d.ApplyConfig)
	if err := w.Start(); err != nil {
		d.logger.Warn("failed to start config watcher", "error", err)
		_ = w.Stop()
		return nil
	}

	return func() { _ = w.Stop() }
}

// openClipboard sets up the configured clipboard commands unless a
// clipboard was injected. It reports whether a clipboard is available.
func (d *Daemon) openClipboard(cfg *config.Config) bool {
	if d.clipboard != nil {
		return true
	}

	c, err := guest.NewCommandClipboard(cfg.Clipboard.ReadCommand, cfg.Clipboard.WriteCommand)
	if err != nil {
		d.logger.Warn("clipboard bridge disabled", "error", err)
		return false
	}

	c.SetTimeout(cfg.Clipboard.CommandTimeout.Duration())

	read, write := c.Commands()
	d.logger.Debug("clipboard commands", "read", read, "write", write, "timeout", cfg.Clipboard.CommandTimeout.Duration())
	d.clipboard = c
	return true
}

// tick calls fn every interval until ctx is cancelled.
func (d *Daemon) tick(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// SyncClipboard runs one clipboard bridge step: guest text that changed
// since the last step is pushed to the host, then the host clipboard is
// pulled and applied to the guest when it differs.
func (d *Daemon) SyncClipboard(ctx context.Context) {
	p := d.Proxy()
	if p == nil || d.clipboard == nil {
		return
	}

	current, err := d.clipboard.Read(ctx)
	if err != nil {
		d.logger.Debug("failed to read guest clipboard", "error", err)
		return
	}

	if current.ItemCount() > 0 && current.Text() != d.lastPushed {
		p.SendClipboardData(ctx, current)
		d.lastPushed = current.Text()
	}

	clip, ok := p.UpdateClipboardIfNecessary(ctx, current)
	if !ok {
		return
	}

	if err := d.clipboard.Write(ctx, clip); err != nil {
		d.logger.Warn("failed to apply host clipboard", "error", err)
		return
	}
	d.lastPushed = clip.Text()
	d.logger.Debug("applied host clipboard", "bytes", len(clip.Text()))
}

// ApplyConfig applies the hot-reloadable parts of cfg: the log level and
// the transport call timeout. Other changes take effect on restart.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	if d.level != nil {
		if level, err := config.ParseLevel(cfg.Log.Level); err == nil {
			d.level.Set(level)
		}
	}

	if d.dbus != nil {
		d.dbus.SetTimeout(cfg.Transport.CallTimeout.Duration())
	}

	if old != nil && (old.Service != cfg.Service || old.Sync != cfg.Sync || old.Clipboard != cfg.Clipboard) {
		d.logger.Warn("some changed settings only take effect after a restart")
	}

	d.logger.Info("configuration applied",
		"log_level", cfg.Log.Level,
		"call_timeout", cfg.Transport.CallTimeout.Duration(),
	)
}
