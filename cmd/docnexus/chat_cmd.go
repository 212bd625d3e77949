package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docnexus/internal/adapter/tui/chat"
	"docnexus/internal/adapter/tui/files"
	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
	"docnexus/internal/usecase/ingest"
	"docnexus/internal/usecase/stream"
)

const chatLongDesc = `Open the interactive chat UI.

With a thread id the thread's history is loaded; without one the thread
open at the last exit is resumed. Pass --new to start fresh.`

func newChatCmd(opts *rootOptions) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "chat [thread-id]",
		Short: "Open the interactive chat UI",
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return domain.NewDomainError("chat", domain.ErrInvalidInput,
					`the chat UI needs a terminal; use "docnexus ask" from scripts`)
			}
			thread := ""
			if len(args) == 1 {
				thread = args[0]
			}
			return runChat(cmd.Context(), opts, thread, fresh)
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "Start a new chat instead of resuming")
	return cmd
}

func runChat(ctx context.Context, opts *rootOptions, threadID string, fresh bool) error {
	a, err := newApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer a.Close()

	theme.UseASCII(a.cfg.UI.ASCIISymbols || !theme.DetectUnicodeSupport())

	if threadID == "" && !fresh {
		if threadID, err = a.store.LastThread(ctx); err != nil {
			a.logger.Warn("read last thread", "error", err)
		}
	}

	saveLast := func(id string) {
		if err := a.store.SaveLastThread(context.Background(), id); err != nil {
			a.logger.Warn("save last thread", "error", err)
		}
	}

	prog := chat.NewProgram(chat.ChatModelDeps{
		Chat: a.chat,
		Files: files.Deps{
			Service: a.files,
			Watcher: a.poller,
			Staging: ingest.NewStaging(a.cfg.Ingest.MaxUploadBytes),
		},
		OnThreadOpen:  saveLast,
		BreakerState:  func() string { return a.client.BreakerState().String() },
		Username:      a.username(ctx),
		InitialThread: threadID,
		Markdown:      a.cfg.UI.RenderMarkdown,
	}, a.bus, a.threads, a.logger)

	a.logger.Info("chat ui starting", "thread_id", threadID)
	last, err := prog.Run(ctx)
	if err != nil {
		return fmt.Errorf("chat ui: %w", err)
	}
	if last != "" {
		saveLast(last)
	}
	return nil
}

const askLongDesc = `Ask one question and stream the answer to stdout.

Reasoning steps and tool activity are written to stderr so the answer can
be piped. The thread id is printed to stderr at the end; pass it back with
--thread to continue the conversation.`

func newAskCmd(opts *rootOptions) *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the answer",
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return runAsk(cmd.Context(), a, strings.Join(args, " "), threadID, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "Continue an existing thread")
	return cmd
}

func runAsk(ctx context.Context, a *app, question, threadID string, stdout, stderr io.Writer) error {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	p := &askPrinter{out: stdout, diag: stderr}
	msg, err := a.chat.Send(ctx, question, threadID, p.snapshot)
	if err != nil {
		return err
	}
	if msg != nil {
		p.finish(*msg)
	}
	if err := a.store.SaveLastThread(ctx, threadID); err != nil {
		a.logger.Warn("save last thread", "error", err)
	}
	fmt.Fprintf(stderr, "thread: %s\n", threadID)
	return nil
}

// askPrinter writes the parts of each snapshot not yet printed.
type askPrinter struct {
	out, diag io.Writer

	content   string
	reasoning int
	tools     map[string]domain.ToolStatus
}

func (p *askPrinter) snapshot(s stream.Snapshot) {
	for _, r := range s.Reasoning[min(p.reasoning, len(s.Reasoning)):] {
		if r.Kind == domain.ReasoningStep {
			fmt.Fprintf(p.diag, "%s%s\n", theme.SymbolGear, r.Text)
		} else if t := strings.TrimSpace(r.Text); t != "" {
			fmt.Fprintf(p.diag, "  %s\n", t)
		}
	}
	p.reasoning = len(s.Reasoning)

	if p.tools == nil {
		p.tools = make(map[string]domain.ToolStatus)
	}
	for _, tc := range s.ToolCalls {
		key := tc.ID + "\x00" + tc.Name
		if p.tools[key] == tc.Status {
			continue
		}
		p.tools[key] = tc.Status
		if tc.Status == domain.ToolCompleted {
			fmt.Fprintf(p.diag, "%s %s done\n", theme.SymbolTool, tc.Name)
		} else {
			fmt.Fprintf(p.diag, "%s %s ...\n", theme.SymbolTool, tc.Name)
		}
	}

	p.writeContent(s.Content)
}

func (p *askPrinter) writeContent(content string) {
	if strings.HasPrefix(content, p.content) {
		io.WriteString(p.out, content[len(p.content):]) //nolint:errcheck
	} else {
		io.WriteString(p.out, "\n"+content) //nolint:errcheck
	}
	p.content = content
}

func (p *askPrinter) finish(msg domain.Message) {
	p.writeContent(msg.Content)
	if !strings.HasSuffix(p.content, "\n") {
		fmt.Fprintln(p.out)
	}
}
