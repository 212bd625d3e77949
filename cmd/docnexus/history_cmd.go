package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docnexus/internal/adapter/tui/components"
	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
	chatuc "docnexus/internal/usecase/chat"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your chat threads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			loadErr := a.threads.Load(ctx)
			items := a.threads.Items()
			if loadErr != nil {
				if len(items) == 0 {
					return loadErr
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s showing cached threads: %v\n", theme.SymbolWarning, loadErr)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No threads yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTITLE")
			for _, t := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Date, t.Title)
			}
			return tw.Flush()
		},
	}
}

func newThreadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "thread <thread-id>",
		Short: "Print a thread's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.chat.LoadThread(ctx, args[0])
			if err != nil {
				return err
			}
			printThread(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
}

func printThread(w io.Writer, msgs []domain.Message) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if m.Role == domain.RoleUser {
			fmt.Fprintf(w, "%s:\n", theme.SymbolUser)
		} else {
			fmt.Fprintf(w, "%s:\n", theme.SymbolBot)
		}
		if r := components.RenderReasoning(m.Reasoning, 0); r != "" {
			fmt.Fprintln(w, r)
		}
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(w, "%s %s %s\n", theme.SymbolTool, tc.Name, tc.Status)
		}
		fmt.Fprintln(w, strings.TrimRight(m.Content, "\n"))
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the example questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, q := range chatuc.ExampleQuestions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", q.ID, q.Question)
			}
			return nil
		},
	}
}
