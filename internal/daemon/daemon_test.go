package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hostsync/internal/adapter/guest"
	"github.com/jmylchreest/hostsync/internal/config"
	"github.com/jmylchreest/hostsync/internal/host"
	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/proxy"
	"github.com/jmylchreest/hostsync/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memClipboard is an in-memory guest clipboard.
type memClipboard struct {
	mu     sync.Mutex
	text   string
	writes int
}

func (m *memClipboard) Read(ctx context.Context) (*proxy.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.text == "" {
		return &proxy.Clip{}, nil
	}
	return proxy.NewPlainTextClip("", m.text), nil
}

func (m *memClipboard) Write(ctx context.Context, clip *proxy.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = clip.Text()
	m.writes++
	return nil
}

func (m *memClipboard) set(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

func (m *memClipboard) get() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.writes
}

const stateWithTwoWindows = `
rotation: 0
displays:
  - id: 0
    windows:
      - id: a
        has_surface: true
        package: org.example.first
        frame: {left: 0, top: 0, right: 100, bottom: 100}
      - id: b
        package: org.example.second
        frame: {left: 0, top: 0, right: 50, bottom: 50}
`

const stateWithOneWindow = `
rotation: 0
displays:
  - id: 0
    windows:
      - id: b
        package: org.example.second
        frame: {left: 0, top: 0, right: 50, bottom: 50}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Sync.StateFile = filepath.Join(t.TempDir(), "windows.yaml")
	cfg.Sync.Interval = config.Duration(20 * time.Millisecond)
	cfg.Clipboard.PollInterval = config.Duration(20 * time.Millisecond)
	return cfg
}

// replaceFile swaps content in atomically, the way a compositor publishes state.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0644))
	require.NoError(t, os.Rename(tmp, path))
}

func startDaemon(t *testing.T, d *Daemon) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop")
		}
	}
}

func TestDaemon_SyncsWindowStateAndRemovals(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Sync.StateFile, []byte(stateWithTwoWindows), 0644))

	dispatcher := host.NewDispatcher(discardLogger())

	var (
		mu     sync.Mutex
		states []*platform.WindowState
	)
	dispatcher.SetWindowStateHandler(func(state *platform.WindowState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	})
	received := func() []*platform.WindowState {
		mu.Lock()
		defer mu.Unlock()
		return append([]*platform.WindowState(nil), states...)
	}

	d := New(cfg, discardLogger(), nil)
	d.SetBinder(transport.NewLoopback(dispatcher))
	d.SetClipboard(&memClipboard{})

	stop := startDaemon(t, d)
	defer stop()

	assert.Eventually(t, dispatcher.BootFinished, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		state, _ := dispatcher.LastWindowState()
		return state != nil && state.WindowCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	replaceFile(t, cfg.Sync.StateFile, stateWithOneWindow)

	// Wait until the removal has been delivered and one more update followed it
	removalAt := func(all []*platform.WindowState) int {
		for i, s := range all {
			if len(s.Removed) > 0 {
				return i
			}
		}
		return -1
	}
	require.Eventually(t, func() bool {
		all := received()
		i := removalAt(all)
		return i >= 0 && i < len(all)-1
	}, 5*time.Second, 10*time.Millisecond)

	all := received()
	i := removalAt(all)
	require.Len(t, all[i].Removed, 1)
	assert.Equal(t, "org.example.first", all[i].Removed[0].PackageName)
	assert.Equal(t, 1, all[i].WindowCount())

	// Removals are reported once
	for _, s := range all[i+1:] {
		assert.Empty(t, s.Removed)
		assert.Equal(t, 1, s.WindowCount())
	}
}

func TestDaemon_ClipboardBridge(t *testing.T) {
	cfg := testConfig(t)

	dispatcher := host.NewDispatcher(discardLogger())
	clip := &memClipboard{}

	d := New(cfg, discardLogger(), nil)
	d.SetBinder(transport.NewLoopback(dispatcher))
	d.SetClipboard(clip)

	stop := startDaemon(t, d)
	defer stop()

	// Host to guest
	dispatcher.SetClipboard("from host")
	assert.Eventually(t, func() bool {
		text, _ := clip.get()
		return text == "from host"
	}, 2*time.Second, 10*time.Millisecond)

	// Guest to host
	clip.set("from guest")
	assert.Eventually(t, func() bool {
		text, ok := dispatcher.Clipboard()
		return ok && text == "from guest"
	}, 2*time.Second, 10*time.Millisecond)

	// Once both sides agree nothing is written back to the guest
	_, writes := clip.get()
	time.Sleep(100 * time.Millisecond)
	_, after := clip.get()
	assert.Equal(t, writes, after)
}

func TestDaemon_SyncClipboardStep(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clipboard.Enabled = false
	cfg.Sync.Interval = 0

	dispatcher := host.NewDispatcher(discardLogger())
	clip := &memClipboard{}

	d := New(cfg, discardLogger(), nil)
	d.SetBinder(transport.NewLoopback(dispatcher))
	d.SetClipboard(clip)

	stop := startDaemon(t, d)
	defer stop()
	require.Eventually(t, func() bool { return d.Proxy() != nil }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()

	clip.set("copied in guest")
	d.SyncClipboard(ctx)
	text, ok := dispatcher.Clipboard()
	assert.True(t, ok)
	assert.Equal(t, "copied in guest", text)

	// The host now echoes the guest text back: no write
	d.SyncClipboard(ctx)
	_, writes := clip.get()
	assert.Equal(t, 0, writes)

	dispatcher.SetClipboard("copied on host")
	d.SyncClipboard(ctx)
	text, writes = clip.get()
	assert.Equal(t, "copied on host", text)
	assert.Equal(t, 1, writes)

	// The applied host text is not pushed back as a guest change
	dispatcher.SetClipboard("newer host text")
	d.SyncClipboard(ctx)
	text, _ = clip.get()
	assert.Equal(t, "newer host text", text)
}

func TestDaemon_RunsWithoutHost(t *testing.T) {
	cfg := testConfig(t)
	cfg.Service.Bus = "unix:path=" + filepath.Join(t.TempDir(), "no-bus")

	d := New(cfg, discardLogger(), nil)
	d.SetClipboard(&memClipboard{})

	stop := startDaemon(t, d)
	require.Eventually(t, func() bool { return d.Proxy() != nil }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, d.Proxy().Connected())
	stop()
}

func TestDaemon_ApplyConfig(t *testing.T) {
	level := new(slog.LevelVar)
	cfg := config.DefaultConfig()
	d := New(cfg, discardLogger(), level)

	updated := config.DefaultConfig()
	updated.Log.Level = "debug"
	d.ApplyConfig(updated)

	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Same(t, updated, d.Config())
}

func TestDaemon_OpenClipboardUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clipboard.ReadCommand = "cat /dev/null"
	cfg.Clipboard.WriteCommand = "tee /dev/null"
	cfg.Clipboard.CommandTimeout = config.Duration(250 * time.Millisecond)

	d := New(cfg, discardLogger(), nil)
	require.True(t, d.openClipboard(cfg))

	c, ok := d.clipboard.(*guest.CommandClipboard)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, c.Timeout())

	read, write := c.Commands()
	assert.Equal(t, "cat /dev/null", read)
	assert.Equal(t, "tee /dev/null", write)
}
