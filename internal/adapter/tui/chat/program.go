package chat

import (
	"context"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"docnexus/internal/domain"
	chatuc "docnexus/internal/usecase/chat"
)

// Program runs the chat TUI and bridges event bus traffic into it.
type Program struct {
	logger  *slog.Logger
	program atomic.Pointer[tea.Program]
	bus     domain.EventBus
	threads *chatuc.ThreadList
	deps    ChatModelDeps
}

// NewProgram creates the TUI program. bus and threads may be nil.
func NewProgram(deps ChatModelDeps, bus domain.EventBus, threads *chatuc.ThreadList, logger *slog.Logger) *Program {
	if logger == nil {
		logger = slog.Default()
	}
	deps.Logger = logger
	if threads != nil {
		deps.Threads = threads
	}
	return &Program{logger: logger, bus: bus, threads: threads, deps: deps}
}

// send pushes msg into the Bubble Tea update loop. Messages sent before the
// program exists are dropped.
func (p *Program) send(msg tea.Msg) {
	if prog := p.program.Load(); prog != nil {
		prog.Send(msg)
	}
}

// Run creates the Bubble Tea program and blocks until it exits. It returns
// the thread on screen at exit.
func (p *Program) Run(ctx context.Context) (string, error) {
	deps := p.deps
	deps.Emit = p.send
	deps.Files.Emit = p.send
	if deps.Files.Logger == nil {
		deps.Files.Logger = p.logger
	}

	prog := tea.NewProgram(
		NewChatModel(deps),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	p.program.Store(prog)

	var subs []domain.Subscription
	if p.threads != nil {
		p.threads.OnChange(func(items []domain.ThreadSummary) {
			p.send(ThreadsMsg{Items: items})
		})
		if p.bus != nil {
			subs = append(subs, p.threads.Attach(p.bus))
			defer p.threads.Detach()
		}
	}
	if p.bus != nil {
		subs = append(subs,
			p.bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, ev domain.Event) {
				var payload domain.ThreadCreatedPayload
				if err := ev.DecodePayload(&payload); err != nil {
					p.logger.Warn("bad thread.created payload", "error", err)
					return
				}
				if payload.ID == "" {
					payload.ID = ev.ThreadID
				}
				p.send(ThreadCreatedMsg{Thread: domain.ThreadSummary{ID: payload.ID, Title: payload.Title, Date: payload.Date}})
			}),
			p.bus.SubscribeAll(func(_ context.Context, ev domain.Event) {
				p.send(ActivityMsg{Event: ev})
			}),
		)
	}
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	// Monitor context cancellation to quit the program.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.send(QuitMsg{})
		case <-done:
		}
	}()

	final, err := prog.Run()
	p.program.Store(nil)
	if err != nil {
		return "", err
	}
	if m, ok := final.(ChatModel); ok {
		return m.ThreadID(), nil
	}
	return "", nil
}

// Stop signals the Bubble Tea program to quit.
func (p *Program) Stop() {
	p.send(QuitMsg{})
}
