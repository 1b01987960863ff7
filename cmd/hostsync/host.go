package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hostsync/internal/host"
	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/transport"
)

var hostOpts struct {
	clipboard string
	quiet     bool
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run a reference platform service on the bus",
	Long: `Claim the platform service name on the bus and serve transactions
until interrupted.

Every window state update and clipboard change from the guest is printed
to stdout. Useful for developing hostsyncd without a real host.`,
	Args: cobra.NoArgs,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVar(&hostOpts.clipboard, "clipboard", "",
		"Initial host clipboard text")
	hostCmd.Flags().BoolVarP(&hostOpts.quiet, "quiet", "q", false,
		"Only print the summary line for window state updates")
}

func runHost(cmd *cobra.Command, args []string) error {
	conn, release, err := dialBus()
	if err != nil {
		return err
	}
	defer release()

	dispatcher := host.NewDispatcher(logger)
	if hostOpts.clipboard != "" {
		dispatcher.SetClipboard(hostOpts.clipboard)
	}

	out := cmd.OutOrStdout()
	dispatcher.SetWindowStateHandler(func(state *platform.WindowState) {
		_, _ = fmt.Fprintln(out, dispatcher.Summary())
		if !hostOpts.quiet {
			_, _ = fmt.Fprint(out, renderWindowState(state))
		}
	})
	dispatcher.SetClipboardHandler(func(text string) {
		_, _ = fmt.Fprintf(out, "clipboard: %q\n", text)
	})

	svc, err := transport.Export(conn, cfg.TransportService(), dispatcher, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	_, _ = fmt.Fprintf(out, "serving %s on %s bus, press Ctrl+C to stop\n", cfg.Service.Name, busLabel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	_, _ = fmt.Fprintln(out, dispatcher.Summary())
	return nil
}

func busLabel() string {
	if cfg.Service.Bus == "" {
		return "session"
	}
	return cfg.Service.Bus
}
