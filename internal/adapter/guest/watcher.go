package guest

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a StateFile when the compositor rewrites it.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	state   *StateFile
	logger  *slog.Logger

	onChange func()

	done    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	running bool
}

// NewFileWatcher creates a watcher for the state file.
func NewFileWatcher(state *StateFile, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher: watcher,
		state:   state,
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// SetChangeCallback sets the callback invoked after each successful reload.
func (fw *FileWatcher) SetChangeCallback(callback func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.onChange = callback
}

// Start begins watching the state file.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	// Watch the directory containing the file; compositors usually replace it
	dir := filepath.Dir(fw.state.Path())
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	fw.running = true
	go fw.watch()
	return nil
}

// watch is the main watch loop.
func (fw *FileWatcher) watch() {
	defer close(fw.stopped)
	filename := filepath.Base(fw.state.Path())

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				fw.logger.Debug("state file changed", "file", fw.state.Path(), "op", event.Op.String())
				if err := fw.state.Reload(); err != nil {
					if errors.Is(err, ErrEmptyStateFile) {
						// Mid-write; the following Write event carries the content
						fw.logger.Debug("state file empty, keeping previous state")
					} else {
						fw.logger.Warn("failed to reload state file", "error", err)
					}
					continue
				}

				fw.mu.Lock()
				callback := fw.onChange
				fw.mu.Unlock()
				if callback != nil {
					callback()
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("state file watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// Stop stops the watcher and waits for the watch loop to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.watcher.Close()
	}
	fw.running = false
	close(fw.done)
	fw.mu.Unlock()

	err := fw.watcher.Close()
	<-fw.stopped
	return err
}
