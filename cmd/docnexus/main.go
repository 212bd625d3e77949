// Command docnexus is a terminal client for the DocNexus document Q&A
// service: an interactive chat TUI plus scriptable subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docnexus/internal/adapter/tui/uxerror"
)

const rootLongDesc = `DocNexus answers questions about your documents.

Run "docnexus chat" for the interactive terminal UI, or use the
subcommands below from scripts.

Configuration is read from ~/.docnexus/config.yaml; DOCNEXUS_* environment
variables override it.`

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, uxerror.Humanize(err).Render())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "docnexus",
		Short:         "Chat with your documents",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default ~/.docnexus/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newHistoryCmd(opts),
		newThreadCmd(opts),
		newExamplesCmd(),
		newFilesCmd(opts),
		newConfigCmd(),
	)
	return cmd
}
