package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"docnexus/internal/domain"
)

func quietBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// An upload reports progress once per percent; each report builds its payload.
func BenchmarkUploadProgress(b *testing.B) {
	bus := quietBus()
	defer bus.Close()
	bus.Subscribe(domain.EventUploadProgress, func(context.Context, domain.Event) {})
	ctx := context.Background()

	pct := 0
	for b.Loop() {
		bus.Publish(ctx, domain.NewEvent(domain.EventUploadProgress, "", domain.UploadProgressPayload{Percent: pct % 101, Files: 3}))
		pct++
	}
}

// The chat screen listens to everything for its activity pane while the
// file screen and CLI watcher follow task updates.
func BenchmarkTaskUpdatesWithActivityPane(b *testing.B) {
	bus := quietBus()
	defer bus.Close()
	bus.SubscribeAll(func(context.Context, domain.Event) {})
	bus.Subscribe(domain.EventTaskUpdated, func(context.Context, domain.Event) {})
	bus.Subscribe(domain.EventTaskUpdated, func(context.Context, domain.Event) {})
	ctx := context.Background()
	evt := domain.NewEvent(domain.EventTaskUpdated, "", domain.TaskUpdatePayload{
		TaskID: "task-1",
		Status: domain.TaskStatus{State: domain.TaskProgress, CurrentStage: domain.StageChunking},
	})

	b.ReportAllocs()
	for b.Loop() {
		bus.Publish(ctx, evt)
	}
}

// Thread lists attach and detach every time the TUI opens and closes.
func BenchmarkAttachDetach(b *testing.B) {
	bus := quietBus()
	defer bus.Close()
	bus.SubscribeAll(func(context.Context, domain.Event) {})

	b.ReportAllocs()
	for b.Loop() {
		sub := bus.Subscribe(domain.EventThreadCreated, func(context.Context, domain.Event) {})
		sub.Unsubscribe()
	}
}

func BenchmarkConcurrentStreams(b *testing.B) {
	bus := quietBus()
	defer bus.Close()
	bus.Subscribe(domain.EventStreamCompleted, func(context.Context, domain.Event) {})
	evt := domain.NewEvent(domain.EventStreamCompleted, "t1", domain.StreamCompletedPayload{Lines: 40, ContentBytes: 2048, ToolCalls: 2})

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			bus.Publish(ctx, evt)
		}
	})
}
