package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"docnexus/internal/usecase/stream"
)

// sendMessageCmd runs one chat turn in a background goroutine with a
// cancellable context. Snapshots are pushed through emit as they arrive;
// gen tags every message so the model can drop those of superseded turns.
func sendMessageCmd(ctx context.Context, svc ChatService, text, threadID string, gen uint64, emit func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		msg, err := svc.Send(ctx, text, threadID, func(s stream.Snapshot) {
			if emit != nil {
				emit(SnapshotMsg{Gen: gen, Snapshot: s})
			}
		})
		return DoneMsg{Gen: gen, ThreadID: threadID, Message: msg, Err: err}
	}
}

func loadThreadCmd(ctx context.Context, svc ChatService, threadID string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := svc.LoadThread(ctx, threadID)
		return ThreadLoadedMsg{ThreadID: threadID, Messages: msgs, Err: err}
	}
}

func loadThreadsCmd(ctx context.Context, src ThreadSource) tea.Cmd {
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		err := src.Load(ctx)
		return ThreadsMsg{Items: src.Items(), Err: err}
	}
}
