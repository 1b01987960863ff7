package proxy

import (
	"sync"

	"github.com/jmylchreest/hostsync/internal/platform"
)

// RemovedWindows accumulates windows that left the live set since the last
// successful flush. Entries are not deduplicated: a window marked twice is
// sent twice.
type RemovedWindows struct {
	mu      sync.Mutex
	windows []platform.Window
}

// MarkRemoved appends w.
func (t *RemovedWindows) MarkRemoved(w platform.Window) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows = append(t.windows, w)
}

// Drain returns a copy of the current contents without clearing them.
func (t *RemovedWindows) Drain() []platform.Window {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]platform.Window, len(t.windows))
	copy(out, t.windows)
	return out
}

// Commit drops the first n entries, i.e. those returned by the Drain whose
// flush succeeded. Entries appended after that Drain are kept.
func (t *RemovedWindows) Commit(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n >= len(t.windows) {
		t.windows = nil
		return
	}
	if n <= 0 {
		return
	}
	rest := make([]platform.Window, len(t.windows)-n)
	copy(rest, t.windows[n:])
	t.windows = rest
}

// Len returns the number of pending entries.
func (t *RemovedWindows) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}
