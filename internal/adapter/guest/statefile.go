package guest

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/hostsync/internal/platform"
)

var (
	// ErrDuplicateWindow is returned when a window ID appears twice in one state document.
	ErrDuplicateWindow = errors.New("duplicate window id")
	// ErrEmptyStateFile is returned for a zero-length state file, which is what
	// an in-place writer leaves between truncating and writing.
	ErrEmptyStateFile = errors.New("state file is empty")
)

// StateDocument is the on-disk layout of the compositor state file.
//
//	rotation: 90
//	displays:
//	  - id: 0
//	    windows:
//	      - id: "0x2a"
//	        has_surface: true
//	        package: org.example.app
//	        frame: {left: 0, top: 0, right: 720, bottom: 1280}
//	        has_task: true
//	        task_id: 4
//	        stack_id: 1
type StateDocument struct {
	Rotation int                `yaml:"rotation"` // Degrees
	Displays []platform.Display `yaml:"displays"`
}

// ParseState decodes and validates a state document.
func ParseState(data []byte) (platform.Rotation, []platform.Display, error) {
	var doc StateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return platform.Rotation0, nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	rotation, err := platform.ParseRotation(doc.Rotation)
	if err != nil {
		return platform.Rotation0, nil, err
	}

	seen := make(map[string]bool)
	for _, d := range doc.Displays {
		for _, w := range d.Windows {
			if w.ID == "" {
				return platform.Rotation0, nil, fmt.Errorf("display %d: window without id", d.ID)
			}
			if seen[w.ID] {
				return platform.Rotation0, nil, fmt.Errorf("%w: %q", ErrDuplicateWindow, w.ID)
			}
			seen[w.ID] = true
		}
	}

	return rotation, doc.Displays, nil
}

// MarshalState encodes a state document.
func MarshalState(rotation platform.Rotation, displays []platform.Display) ([]byte, error) {
	return yaml.Marshal(StateDocument{Rotation: rotation.Degrees(), Displays: displays})
}

// StateFile is a proxy.WindowManager backed by a compositor state file.
// A missing file is an empty window list.
type StateFile struct {
	mu     sync.RWMutex
	path   string
	logger *slog.Logger

	rotation platform.Rotation
	displays []platform.Display

	onRemoved func(w platform.Window)
}

// NewStateFile creates a StateFile for path. Nothing is read until Reload.
func NewStateFile(path string, logger *slog.Logger) *StateFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateFile{
		path:   path,
		logger: logger,
	}
}

// Path returns the state file path.
func (s *StateFile) Path() string {
	return s.path
}

// SetRemovedCallback sets the callback invoked for every window that was
// present before a reload and is gone after it.
func (s *StateFile) SetRemovedCallback(callback func(w platform.Window)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemoved = callback
}

// Displays returns a copy of the displays from the last successful reload.
func (s *StateFile) Displays() []platform.Display {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]platform.Display, len(s.displays))
	for i, d := range s.displays {
		out[i] = platform.Display{
			ID:      d.ID,
			Windows: append([]platform.Window(nil), d.Windows...),
		}
	}
	return out
}

// Rotation returns the rotation from the last successful reload.
func (s *StateFile) Rotation() platform.Rotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotation
}

// Reload reads the state file and reports removed windows in their previous
// stacking order. On error the previous state is kept. A missing file means
// no windows; an empty file is treated as a partial write and rejected.
func (s *StateFile) Reload() error {
	var (
		rotation platform.Rotation
		displays []platform.Display
	)

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Compositor has not published anything, or has exited
	case err != nil:
		return fmt.Errorf("failed to read state file: %w", err)
	case len(bytes.TrimSpace(data)) == 0:
		return ErrEmptyStateFile
	default:
		rotation, displays, err = ParseState(data)
		if err != nil {
			return err
		}
	}

	live := make(map[string]bool)
	for _, d := range displays {
		for _, w := range d.Windows {
			live[w.ID] = true
		}
	}

	s.mu.Lock()
	var removed []platform.Window
	for _, d := range s.displays {
		for _, w := range d.Windows {
			if !live[w.ID] {
				removed = append(removed, w)
			}
		}
	}
	s.rotation = rotation
	s.displays = displays
	callback := s.onRemoved
	s.mu.Unlock()

	s.logger.Debug("state file loaded",
		"path", s.path,
		"displays", len(displays),
		"windows", len(live),
		"removed", len(removed),
		"rotation", rotation.Degrees(),
	)

	if callback != nil {
		for _, w := range removed {
			callback(w)
		}
	}
	return nil
}
