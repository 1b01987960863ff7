package guest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jmylchreest/hostsync/internal/proxy"
)

// ErrNoClipboardCommand is returned when no clipboard tool is configured or installed.
var ErrNoClipboardCommand = errors.New("no clipboard command available")

// DefaultCommandTimeout bounds each clipboard command.
const DefaultCommandTimeout = 5 * time.Second

// CommandClipboard reads and writes the guest clipboard by running external commands.
// The read command prints the clipboard to stdout; the write command takes it on stdin.
type CommandClipboard struct {
	read    []string
	write   []string
	timeout time.Duration
}

// NewCommandClipboard creates a CommandClipboard. Empty commands are auto-detected.
func NewCommandClipboard(readCommand, writeCommand string) (*CommandClipboard, error) {
	if readCommand == "" {
		readCommand = DetectReadCommand()
	}
	if writeCommand == "" {
		writeCommand = DetectWriteCommand()
	}

	read := strings.Fields(readCommand)
	write := strings.Fields(writeCommand)
	if len(read) == 0 || len(write) == 0 {
		return nil, ErrNoClipboardCommand
	}

	return &CommandClipboard{
		read:    read,
		write:   write,
		timeout: DefaultCommandTimeout,
	}, nil
}

// SetTimeout sets the bound on each command run.
func (c *CommandClipboard) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Timeout returns the bound on each command run.
func (c *CommandClipboard) Timeout() time.Duration {
	return c.timeout
}

// Commands returns the read and write command lines in use.
func (c *CommandClipboard) Commands() (read, write string) {
	return strings.Join(c.read, " "), strings.Join(c.write, " ")
}

// Read returns the current clipboard as a plain-text clip. An empty
// clipboard yields a clip with no items.
func (c *CommandClipboard) Read(ctx context.Context) (*proxy.Clip, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.read[0], c.read[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// wl-paste and xclip exit non-zero when nothing has been copied
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return &proxy.Clip{}, nil
		}
		return nil, fmt.Errorf("clipboard read %q: %w", c.read[0], err)
	}

	if stdout.Len() == 0 {
		return &proxy.Clip{}, nil
	}
	return proxy.NewPlainTextClip("", stdout.String()), nil
}

// Write replaces the clipboard with the first item of clip as text.
func (c *CommandClipboard) Write(ctx context.Context, clip *proxy.Clip) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.write[0], c.write[1:]...)
	cmd.Stdin = strings.NewReader(clip.Text())

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard write %q: %w", c.write[0], err)
	}
	return nil
}

// DetectReadCommand returns the first available clipboard read command, or "".
func DetectReadCommand() string {
	// Check for Wayland
	if _, err := exec.LookPath("wl-paste"); err == nil {
		return "wl-paste --no-newline"
	}

	// Check for X11
	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard -o"
	}

	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --output"
	}

	return ""
}

// DetectWriteCommand returns the first available clipboard write command, or "".
func DetectWriteCommand() string {
	if _, err := exec.LookPath("wl-copy"); err == nil {
		return "wl-copy"
	}

	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}

	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}

	return ""
}
