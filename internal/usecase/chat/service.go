// Package chat runs chat turns against the DocNexus service and keeps the
// thread list in sync with newly answered conversations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"docnexus/internal/domain"
	"docnexus/internal/infra/tracer"
	"docnexus/internal/usecase/stream"
)

const titleRunes = 50

// Service sends chat turns and projects the streamed answer.
type Service struct {
	api      domain.ChatAPI
	bus      domain.EventBus
	consumer *stream.Consumer
	logger   *slog.Logger
	now      func() time.Time

	view atomic.Pointer[displayState]
}

// displayState is one Display call. epoch grows with every call, so a turn
// whose thread is left and later reopened still sees a different epoch.
type displayState struct {
	threadID string
	epoch    uint64
}

// NewService creates a chat service. bus may be nil.
func NewService(api domain.ChatAPI, bus domain.EventBus, opts stream.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "chat")
	s := &Service{
		api:      api,
		bus:      bus,
		consumer: stream.NewConsumer(opts, logger),
		logger:   logger,
		now:      time.Now,
	}
	s.view.Store(&displayState{})
	return s
}

// Display marks threadID as the thread currently on screen. Every turn
// started before the call stops projecting at its next line, including one
// for threadID itself.
func (s *Service) Display(threadID string) {
	s.display(threadID)
}

func (s *Service) display(threadID string) uint64 {
	for {
		cur := s.view.Load()
		next := &displayState{threadID: threadID, epoch: cur.epoch + 1}
		if s.view.CompareAndSwap(cur, next) {
			return next.epoch
		}
	}
}

// Displayed returns the thread currently on screen, or "" if none.
func (s *Service) Displayed() string {
	return s.view.Load().threadID
}

// NewChat allocates a thread id and displays it.
func (s *Service) NewChat() string {
	id := uuid.NewString()
	s.Display(id)
	return id
}

// gate reports whether the display captured at epoch is still current.
func (s *Service) gate(epoch uint64) stream.Gate {
	return func() bool {
		return s.view.Load().epoch == epoch
	}
}

// Send runs one chat turn. sink receives a snapshot after every line that
// changed state and may be nil.
//
// When Display is called mid-stream the turn is abandoned and Send returns
// (nil, nil): no message is finalised and no thread is announced. This holds
// even if the same thread is displayed again, and also when the caller
// cancels ctx as part of the switch. A plain cancellation is returned
// without a stream.failed event. Any other failure is returned once and
// published as stream.failed.
func (s *Service) Send(ctx context.Context, text, threadID string, sink func(stream.Snapshot)) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewDomainError("chat.send", domain.ErrInvalidInput, "message is empty")
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}
	gate := s.gate(s.display(threadID))

	ctx, span := tracer.StartSpan(ctx, "chat.send",
		trace.WithAttributes(tracer.StringAttr("thread.id", threadID)))
	defer span.End()

	s.publish(ctx, domain.EventStreamStarted, threadID, domain.StreamStartedPayload{Query: text})

	body, err := s.api.ChatStream(ctx, text, threadID)
	if err != nil {
		return s.abort(ctx, span, threadID, gate, err)
	}
	defer body.Close()

	res, err := s.consumer.Consume(ctx, body, gate, sink)
	if err != nil {
		return s.abort(ctx, span, threadID, gate, err)
	}

	msg := res.Message
	span.SetAttributes(
		tracer.IntAttr("stream.lines", res.Lines),
		tracer.IntAttr("stream.content_bytes", len(msg.Content)),
		tracer.IntAttr("stream.tool_calls", len(msg.ToolCalls)),
	)
	tracer.SetOK(span)

	s.publish(ctx, domain.EventStreamCompleted, threadID, domain.StreamCompletedPayload{
		Lines:        res.Lines,
		ContentBytes: len(msg.Content),
		ToolCalls:    len(msg.ToolCalls),
	})
	s.publish(ctx, domain.EventThreadCreated, threadID, domain.ThreadCreatedPayload{
		ID:    threadID,
		Title: Title(text),
		Date:  s.now().UTC().Format(time.RFC3339),
	})
	s.logger.Info("chat turn completed",
		"thread_id", threadID,
		"lines", res.Lines,
		"malformed", res.Malformed,
		"tool_calls", len(msg.ToolCalls),
	)
	return &msg, nil
}

// abort ends a turn that did not complete. A superseded turn is silent and a
// cancelled one is returned without being published as a failure.
func (s *Service) abort(ctx context.Context, span trace.Span, threadID string, gate stream.Gate, err error) (*domain.Message, error) {
	if errors.Is(err, stream.ErrDetached) || !gate() {
		s.logger.Debug("stream detached", "thread_id", threadID)
		span.AddEvent("detached")
		return nil, nil
	}
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("chat turn cancelled", "thread_id", threadID)
		span.AddEvent("cancelled")
		return nil, fmt.Errorf("chat.send: %w", err)
	}
	return nil, s.fail(ctx, span, threadID, err)
}

func (s *Service) fail(ctx context.Context, span trace.Span, threadID string, err error) error {
	tracer.RecordError(span, err)
	s.logger.Warn("chat turn failed", "thread_id", threadID, "error", err)
	s.publish(ctx, domain.EventStreamFailed, threadID, domain.StreamErrorPayload{Error: err.Error()})
	return fmt.Errorf("chat.send: %w", err)
}

func (s *Service) publish(ctx context.Context, t domain.EventType, threadID string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.NewEvent(t, threadID, payload))
}

// LoadThread fetches a thread's history and converts it for display.
func (s *Service) LoadThread(ctx context.Context, threadID string) ([]domain.Message, error) {
	raw, err := s.api.Thread(ctx, threadID)
	if err != nil {
		return nil, domain.WrapOp("chat.load_thread", err)
	}
	return TransformHistory(raw), nil
}

// Title derives a thread title from the first question: its first 50
// characters followed by an ellipsis.
func Title(text string) string {
	r := []rune(text)
	if len(r) > titleRunes {
		r = r[:titleRunes]
	}
	return string(r) + "..."
}
