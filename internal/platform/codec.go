package platform

import (
	"fmt"

	"github.com/jmylchreest/hostsync/internal/parcel"
)

// AppendSnapshot writes s in the fixed window layout:
//
//	hasSurface(byte) packageName(string) left top right bottom taskId stackId rotation (int32)
//
// The host reads these fields positionally.
func AppendSnapshot(w *parcel.Writer, s Snapshot) {
	w.WriteBool(s.HasSurface)
	w.WriteString(s.PackageName)
	w.WriteInt32(s.Frame.Left)
	w.WriteInt32(s.Frame.Top)
	w.WriteInt32(s.Frame.Right)
	w.WriteInt32(s.Frame.Bottom)
	w.WriteInt32(s.TaskID)
	w.WriteInt32(s.StackID)
	w.WriteInt32(int32(s.Rotation))
}

// EncodeSnapshot returns the wire encoding of a single window snapshot.
func EncodeSnapshot(s Snapshot) []byte {
	w := parcel.NewWriter()
	AppendSnapshot(w, s)
	return w.Bytes()
}

// ReadSnapshot reads one window snapshot written by AppendSnapshot.
func ReadSnapshot(r *parcel.Reader) (Snapshot, error) {
	var s Snapshot
	var err error

	if s.HasSurface, err = r.ReadBool(); err != nil {
		return s, fmt.Errorf("has_surface: %w", err)
	}
	if s.PackageName, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("package: %w", err)
	}

	fields := []*int32{
		&s.Frame.Left, &s.Frame.Top, &s.Frame.Right, &s.Frame.Bottom,
		&s.TaskID, &s.StackID,
	}
	for _, f := range fields {
		if *f, err = r.ReadInt32(); err != nil {
			return s, fmt.Errorf("window field: %w", err)
		}
	}

	rot, err := r.ReadInt32()
	if err != nil {
		return s, fmt.Errorf("rotation: %w", err)
	}
	s.Rotation = Rotation(rot)
	return s, nil
}

// AppendWindowState writes the body of an UpdateWindowState request, after
// the interface token: displays in order, then the removed windows.
func AppendWindowState(w *parcel.Writer, state *WindowState) {
	w.WriteInt32(int32(len(state.Displays)))
	for _, d := range state.Displays {
		w.WriteInt32(d.ID)
		w.WriteInt32(int32(len(d.Windows)))
		for _, s := range d.Windows {
			AppendSnapshot(w, s)
		}
	}

	w.WriteInt32(int32(len(state.Removed)))
	for _, s := range state.Removed {
		AppendSnapshot(w, s)
	}
}

// ReadWindowState decodes the body of an UpdateWindowState request. The
// interface token must already have been consumed.
func ReadWindowState(r *parcel.Reader) (*WindowState, error) {
	numDisplays, err := readCount(r, "displays")
	if err != nil {
		return nil, err
	}

	state := &WindowState{Displays: make([]DisplayState, 0, numDisplays)}
	for i := 0; i < numDisplays; i++ {
		id, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("display %d id: %w", i, err)
		}
		numWindows, err := readCount(r, "windows")
		if err != nil {
			return nil, fmt.Errorf("display %d: %w", id, err)
		}

		d := DisplayState{ID: id, Windows: make([]Snapshot, 0, numWindows)}
		for j := 0; j < numWindows; j++ {
			s, err := ReadSnapshot(r)
			if err != nil {
				return nil, fmt.Errorf("display %d window %d: %w", id, j, err)
			}
			d.Windows = append(d.Windows, s)
		}
		state.Displays = append(state.Displays, d)
	}

	numRemoved, err := readCount(r, "removed windows")
	if err != nil {
		return nil, err
	}
	state.Removed = make([]Snapshot, 0, numRemoved)
	for i := 0; i < numRemoved; i++ {
		s, err := ReadSnapshot(r)
		if err != nil {
			return nil, fmt.Errorf("removed window %d: %w", i, err)
		}
		state.Removed = append(state.Removed, s)
	}

	return state, nil
}

// readCount reads an element count and bounds it by the bytes left, so a
// corrupt count cannot trigger a huge allocation.
func readCount(r *parcel.Reader, what string) (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", what, err)
	}
	if n < 0 || int(n) > r.Remaining() {
		return 0, fmt.Errorf("%s count: %w: %d", what, parcel.ErrBadLength, n)
	}
	return int(n), nil
}

// EncodeClipboard writes the body of a SetClipboardData request or a
// GetClipboardData reply. Text is only present when hasData is set.
func EncodeClipboard(w *parcel.Writer, hasData bool, text string) {
	if !hasData {
		w.WriteInt32(0)
		return
	}
	w.WriteInt32(1)
	w.WriteString(text)
}

// DecodeClipboard reads a clipboard body written by EncodeClipboard.
func DecodeClipboard(r *parcel.Reader) (text string, hasData bool, err error) {
	flag, err := r.ReadInt32()
	if err != nil {
		return "", false, fmt.Errorf("has_data: %w", err)
	}
	if flag == 0 {
		return "", false, nil
	}
	text, err = r.ReadString()
	if err != nil {
		return "", false, fmt.Errorf("text: %w", err)
	}
	return text, true, nil
}
