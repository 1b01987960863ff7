package platform

import "fmt"

// Rotation is the display rotation reported by the guest compositor.
type Rotation int32

const (
	Rotation0   Rotation = 0 // 0 degrees
	Rotation90  Rotation = 1 // 90 degrees
	Rotation180 Rotation = 2 // 180 degrees
	Rotation270 Rotation = 3 // 270 degrees
)

// Valid reports whether r is one of the four defined rotations.
func (r Rotation) Valid() bool {
	return r >= Rotation0 && r <= Rotation270
}

// Degrees returns the rotation angle in degrees.
func (r Rotation) Degrees() int {
	return int(r) * 90
}

// ParseRotation converts an angle in degrees (0, 90, 180, 270) to a Rotation.
func ParseRotation(degrees int) (Rotation, error) {
	switch degrees {
	case 0:
		return Rotation0, nil
	case 90:
		return Rotation90, nil
	case 180:
		return Rotation180, nil
	case 270:
		return Rotation270, nil
	default:
		return Rotation0, fmt.Errorf("invalid rotation %d, must be one of 0, 90, 180, 270", degrees)
	}
}

// Frame is a window rectangle in display coordinates.
type Frame struct {
	Left   int32 `json:"left" yaml:"left"`
	Top    int32 `json:"top" yaml:"top"`
	Right  int32 `json:"right" yaml:"right"`
	Bottom int32 `json:"bottom" yaml:"bottom"`
}

// Width returns the frame width.
func (f Frame) Width() int32 {
	return f.Right - f.Left
}

// Height returns the frame height.
func (f Frame) Height() int32 {
	return f.Bottom - f.Top
}

// Window is the guest window manager's view of a single window.
// ID is a guest-local handle used for diffing and is never sent to the host.
type Window struct {
	ID          string `json:"id" yaml:"id"`
	HasSurface  bool   `json:"has_surface" yaml:"has_surface"`
	PackageName string `json:"package" yaml:"package"`
	Frame       Frame  `json:"frame" yaml:"frame"`

	// Task association. HasTask false means the window belongs to no task;
	// StackID 0 means the task is on no stack.
	HasTask bool  `json:"has_task,omitempty" yaml:"has_task,omitempty"`
	TaskID  int32 `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	StackID int32 `json:"stack_id,omitempty" yaml:"stack_id,omitempty"`
}

// Display groups the windows shown on one display, in stacking order.
type Display struct {
	ID      int32    `json:"id" yaml:"id"`
	Windows []Window `json:"windows" yaml:"windows"`
}

// Snapshot is the encoded view of one window at the time of a sync.
type Snapshot struct {
	HasSurface  bool     `json:"has_surface" yaml:"has_surface"`
	PackageName string   `json:"package" yaml:"package"`
	Frame       Frame    `json:"frame" yaml:"frame"`
	TaskID      int32    `json:"task_id" yaml:"task_id"`
	StackID     int32    `json:"stack_id" yaml:"stack_id"`
	Rotation    Rotation `json:"rotation" yaml:"rotation"`
}

// SnapshotOf captures w with the given display rotation stamped on it.
// A window without a task encodes task and stack 0, which the host cannot
// tell apart from a task numbered 0.
func SnapshotOf(w Window, rotation Rotation) Snapshot {
	s := Snapshot{
		HasSurface:  w.HasSurface,
		PackageName: w.PackageName,
		Frame:       w.Frame,
		Rotation:    rotation,
	}
	if w.HasTask {
		s.TaskID = w.TaskID
		s.StackID = w.StackID
	}
	return s
}

// DisplayState is one display of a decoded UpdateWindowState message.
type DisplayState struct {
	ID      int32      `json:"id" yaml:"id"`
	Windows []Snapshot `json:"windows" yaml:"windows"`
}

// WindowState is the full content of an UpdateWindowState message.
type WindowState struct {
	Displays []DisplayState `json:"displays" yaml:"displays"`
	Removed  []Snapshot     `json:"removed" yaml:"removed"`
}

// WindowCount returns the number of live windows across all displays.
func (s *WindowState) WindowCount() int {
	n := 0
	for _, d := range s.Displays {
		n += len(d.Windows)
	}
	return n
}
