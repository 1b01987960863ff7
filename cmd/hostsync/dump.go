package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/hostsync/internal/adapter/guest"
	"github.com/jmylchreest/hostsync/internal/host"
	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/proxy"
	"github.com/jmylchreest/hostsync/internal/transport"
)

var dumpOpts struct {
	yaml bool
}

var dumpCmd = &cobra.Command{
	Use:   "dump <state.yaml>",
	Short: "Encode a state file and show what the host receives",
	Long: `Load a compositor state file, encode it as an UpdateWindowState
message and decode it again with the reference host, without touching
the bus.

The output shows exactly what the host sees: per-window rotation, task
and stack as sent, with guest-only data such as window IDs dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().BoolVar(&dumpOpts.yaml, "yaml", false,
		"Output the decoded message as YAML")
}

func runDump(cmd *cobra.Command, args []string) error {
	state := guest.NewStateFile(args[0], logger)
	if err := state.Reload(); err != nil {
		return err
	}

	dispatcher := host.NewDispatcher(logger)

	var size int
	recorder := transport.HandlerFunc(func(ctx context.Context, code uint32, data []byte) ([]byte, error) {
		size = len(data)
		return dispatcher.HandleTransaction(ctx, code, data)
	})

	p := proxy.New(transport.NewLoopback(recorder), state, logger)
	p.UpdateWindowState(commandContext(cmd))

	if status := p.SyncStatus(); status.LastError != nil {
		return fmt.Errorf("failed to encode window state: %w", status.LastError)
	}

	decoded, _ := dispatcher.LastWindowState()
	if decoded == nil {
		return fmt.Errorf("no window state was delivered")
	}

	out := cmd.OutOrStdout()
	if dumpOpts.yaml {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(decoded)
	}

	_, _ = fmt.Fprintf(out, "%s (%s)\n", platform.TransactionUpdateWindowState, humanize.Bytes(uint64(size)))
	_, _ = fmt.Fprint(out, renderWindowState(decoded))
	return nil
}

// renderWindowState formats a decoded window state for the terminal.
func renderWindowState(state *platform.WindowState) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))
	removedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	var b strings.Builder
	for _, d := range state.Displays {
		b.WriteString(headerStyle.Render(fmt.Sprintf("display %d", d.ID)))
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %d windows", len(d.Windows))))
		b.WriteString("\n")
		for _, w := range d.Windows {
			b.WriteString("  " + renderSnapshot(w, labelStyle) + "\n")
		}
	}

	if len(state.Removed) > 0 {
		b.WriteString(removedStyle.Render(fmt.Sprintf("removed %d", len(state.Removed))))
		b.WriteString("\n")
		for _, w := range state.Removed {
			b.WriteString("  " + renderSnapshot(w, labelStyle) + "\n")
		}
	}
	return b.String()
}

func renderSnapshot(s platform.Snapshot, label lipgloss.Style) string {
	name := s.PackageName
	if name == "" {
		name = "(no package)"
	}
	surface := ""
	if !s.HasSurface {
		surface = label.Render(" no-surface")
	}
	return fmt.Sprintf("%-32s %s%s",
		name,
		label.Render(fmt.Sprintf("[%d,%d %dx%d] task=%d stack=%d rot=%d",
			s.Frame.Left, s.Frame.Top, s.Frame.Width(), s.Frame.Height(),
			s.TaskID, s.StackID, s.Rotation.Degrees())),
		surface,
	)
}
