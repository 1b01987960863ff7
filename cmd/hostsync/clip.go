package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hostsync/internal/parcel"
	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/transport"
)

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Read or write the host clipboard",
}

var clipGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the host clipboard",
	Long: `Print the host clipboard text to stdout.

Exits with an error when the host clipboard is empty.`,
	Args: cobra.NoArgs,
	RunE: runClipGet,
}

var clipSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Set the host clipboard",
	Long: `Set the host clipboard to text, or to stdin when no text is given.

Examples:
  hostsync clip set "hello"
  echo hello | hostsync clip set`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClipSet,
}

func init() {
	rootCmd.AddCommand(clipCmd)
	clipCmd.AddCommand(clipGetCmd)
	clipCmd.AddCommand(clipSetCmd)
}

func runClipGet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	binder, release, err := connectHost(ctx)
	if err != nil {
		return err
	}
	defer release()

	text, hasData, err := getHostClipboard(ctx, binder)
	if err != nil {
		return err
	}
	if !hasData {
		return fmt.Errorf("host clipboard is empty")
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runClipSet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSuffix(string(data), "\n")
	}

	binder, release, err := connectHost(ctx)
	if err != nil {
		return err
	}
	defer release()

	return setHostClipboard(ctx, binder, text)
}

// getHostClipboard performs a GetClipboardData transaction.
func getHostClipboard(ctx context.Context, b transport.Binder) (string, bool, error) {
	data := parcel.NewWriter()
	data.WriteInterfaceToken(platform.InterfaceToken)

	reply, err := b.Transact(ctx, uint32(platform.TransactionGetClipboardData), data.Bytes())
	if err != nil {
		return "", false, err
	}

	text, hasData, err := platform.DecodeClipboard(parcel.NewReader(reply))
	if err != nil {
		return "", false, fmt.Errorf("malformed clipboard reply: %w", err)
	}
	return text, hasData, nil
}

// setHostClipboard performs a SetClipboardData transaction.
func setHostClipboard(ctx context.Context, b transport.Binder, text string) error {
	data := parcel.NewWriter()
	data.WriteInterfaceToken(platform.InterfaceToken)
	platform.EncodeClipboard(data, true, text)

	_, err := b.Transact(ctx, uint32(platform.TransactionSetClipboardData), data.Bytes())
	return err
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
