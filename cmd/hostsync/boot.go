package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hostsync/internal/parcel"
	"github.com/jmylchreest/hostsync/internal/platform"
)

var bootFinishedCmd = &cobra.Command{
	Use:   "boot-finished",
	Short: "Tell the host the guest has finished booting",
	Long: `Send the BootFinished transaction to the host.

hostsyncd sends this itself on startup; the command is for guests that
start the daemon late or restart the host side.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		binder, release, err := connectHost(ctx)
		if err != nil {
			return err
		}
		defer release()

		data := parcel.NewWriter()
		data.WriteInterfaceToken(platform.InterfaceToken)
		if _, err := binder.Transact(ctx, uint32(platform.TransactionBootFinished), data.Bytes()); err != nil {
			return fmt.Errorf("failed to send boot finished: %w", err)
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "boot finished sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootFinishedCmd)
}
