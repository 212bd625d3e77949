package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
	"docnexus/internal/usecase/eventbus"
	"docnexus/internal/usecase/stream"
)

type fakeChatAPI struct {
	body      func() io.ReadCloser
	streamErr error
	history   []domain.ThreadSummary
	histErr   error
	thread    []domain.RawMessage

	mu      sync.Mutex
	queries []string
	threads []string
}

func (f *fakeChatAPI) ChatStream(_ context.Context, query, threadID string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.threads = append(f.threads, threadID)
	f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.body(), nil
}

func (f *fakeChatAPI) History(context.Context) ([]domain.ThreadSummary, error) {
	return f.history, f.histErr
}

func (f *fakeChatAPI) Thread(context.Context, string) ([]domain.RawMessage, error) {
	return f.thread, nil
}

// scriptedBody yields one chunk per Read and runs before(i) ahead of chunk i.
type scriptedBody struct {
	chunks []string
	before func(i int)
	i      int
	closed bool
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if b.i >= len(b.chunks) {
		return 0, io.EOF
	}
	if b.before != nil {
		b.before(b.i)
	}
	n := copy(p, b.chunks[b.i])
	b.i++
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closed = true
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) handle(_ context.Context, e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServiceWithBus(api domain.ChatAPI) (*Service, *eventbus.Bus, *recorder) {
	bus := eventbus.New(quietLogger())
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)
	return NewService(api, bus, stream.Options{}, quietLogger()), bus, rec
}

func TestSendStreamsAndAnnouncesThread(t *testing.T) {
	body := &scriptedBody{chunks: []string{
		"NODE:retrieve\n",
		`TOOL_CALL:{"id":"c1","name":"search","args":{"q":"softlogic"}}` + "\n",
		`TOOL_END:{"name":"search","output":"board list"}` + "\n",
		"CONTENT:The board ", "includes...\n",
	}}
	api := &fakeChatAPI{body: func() io.ReadCloser { return body }}
	svc, bus, rec := newServiceWithBus(api)

	var snaps []stream.Snapshot
	question := "Who are the in the board of directors at Softlogic? Please list every director."
	msg, err := svc.Send(context.Background(), question, "t-1", func(s stream.Snapshot) {
		snaps = append(snaps, s)
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	bus.Close()

	assert.Equal(t, "The board includes...", msg.Content)
	assert.Equal(t, domain.RoleBot, msg.Role)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "board list", msg.ToolCalls[0].Output)
	assert.NotEmpty(t, snaps)
	assert.True(t, body.closed)
	assert.Equal(t, "t-1", svc.Displayed())

	created := rec.ofType(domain.EventThreadCreated)
	require.Len(t, created, 1)
	var p domain.ThreadCreatedPayload
	require.NoError(t, json.Unmarshal(created[0].Payload, &p))
	assert.Equal(t, "t-1", p.ID)
	assert.Equal(t, Title(question), p.Title)
	assert.True(t, strings.HasSuffix(p.Title, "..."))
	assert.NotEmpty(t, p.Date)

	assert.Len(t, rec.ofType(domain.EventStreamStarted), 1)
	assert.Len(t, rec.ofType(domain.EventStreamCompleted), 1)
	assert.Empty(t, rec.ofType(domain.EventStreamFailed))
}

func TestSendAllocatesThreadID(t *testing.T) {
	api := &fakeChatAPI{body: func() io.ReadCloser {
		return &scriptedBody{chunks: []string{"CONTENT:ok\n"}}
	}}
	svc := NewService(api, nil, stream.Options{}, quietLogger())

	msg, err := svc.Send(context.Background(), "hello", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	require.Len(t, api.threads, 1)
	assert.NotEmpty(t, api.threads[0])
	assert.Equal(t, api.threads[0], svc.Displayed())
}

func TestSendRejectsBlankText(t *testing.T) {
	api := &fakeChatAPI{}
	svc := NewService(api, nil, stream.Options{}, quietLogger())

	_, err := svc.Send(context.Background(), "   \n", "t", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, api.queries)
}

func TestSendSurfacesTransportErrorOnce(t *testing.T) {
	api := &fakeChatAPI{streamErr: domain.ErrServerFailure}
	svc, bus, rec := newServiceWithBus(api)

	msg, err := svc.Send(context.Background(), "question", "t-err", nil)
	bus.Close()

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, domain.ErrServerFailure)
	assert.Len(t, rec.ofType(domain.EventStreamFailed), 1)
	assert.Empty(t, rec.ofType(domain.EventThreadCreated))
}

type failingBody struct{ err error }

func (b failingBody) Read([]byte) (int, error) { return 0, b.err }
func (b failingBody) Close() error             { return nil }

func TestSendMidStreamFailure(t *testing.T) {
	api := &fakeChatAPI{body: func() io.ReadCloser {
		return failingBody{err: errors.New("reset by peer")}
	}}
	svc := NewService(api, nil, stream.Options{}, quietLogger())

	_, err := svc.Send(context.Background(), "question", "t", nil)
	assert.ErrorIs(t, err, domain.ErrStreamFailed)
}

func TestSendStaleStreamIsSilent(t *testing.T) {
	var svc *Service
	body := &scriptedBody{
		chunks: []string{"CONTENT:from A\n", "CONTENT: more A\n", "CONTENT: end\n"},
		before: func(i int) {
			if i == 1 {
				svc.Display("B")
			}
		},
	}
	api := &fakeChatAPI{body: func() io.ReadCloser { return body }}
	var bus *eventbus.Bus
	var rec *recorder
	svc, bus, rec = newServiceWithBus(api)

	var snaps []stream.Snapshot
	msg, err := svc.Send(context.Background(), "question", "A", func(s stream.Snapshot) {
		snaps = append(snaps, s)
	})
	bus.Close()

	require.NoError(t, err)
	assert.Nil(t, msg)
	require.Len(t, snaps, 1)
	assert.Equal(t, "from A", snaps[0].Content)
	assert.True(t, body.closed)
	assert.Empty(t, rec.ofType(domain.EventThreadCreated))
	assert.Empty(t, rec.ofType(domain.EventStreamFailed))
	assert.Equal(t, "B", svc.Displayed())
}

func TestSendStaleAfterReturningToSameThread(t *testing.T) {
	var svc *Service
	body := &scriptedBody{
		chunks: []string{"CONTENT:a\n", "CONTENT:b\n", "CONTENT:c\n"},
		before: func(i int) {
			if i == 1 {
				svc.Display("B")
				svc.Display("A")
			}
		},
	}
	api := &fakeChatAPI{body: func() io.ReadCloser { return body }}
	var bus *eventbus.Bus
	var rec *recorder
	svc, bus, rec = newServiceWithBus(api)

	var snaps []stream.Snapshot
	msg, err := svc.Send(context.Background(), "question", "A", func(s stream.Snapshot) {
		snaps = append(snaps, s)
	})
	bus.Close()

	require.NoError(t, err)
	assert.Nil(t, msg)
	require.Len(t, snaps, 1)
	assert.Equal(t, "a", snaps[0].Content)
	assert.Empty(t, rec.ofType(domain.EventStreamCompleted))
	assert.Empty(t, rec.ofType(domain.EventThreadCreated))
	assert.Empty(t, rec.ofType(domain.EventStreamFailed))
	assert.Equal(t, "A", svc.Displayed())
}

func TestSendCancelledBySwitchIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var svc *Service
	body := &scriptedBody{
		chunks: []string{"CONTENT:a\n", "CONTENT:b\n"},
		before: func(i int) {
			if i == 0 {
				svc.Display("B")
				cancel()
			}
		},
	}
	api := &fakeChatAPI{body: func() io.ReadCloser { return body }}
	var bus *eventbus.Bus
	var rec *recorder
	svc, bus, rec = newServiceWithBus(api)

	msg, err := svc.Send(ctx, "question", "A", nil)
	bus.Close()

	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, rec.ofType(domain.EventStreamFailed))
	assert.Empty(t, rec.ofType(domain.EventThreadCreated))
}

func TestSendUserCancelIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := &scriptedBody{
		chunks: []string{"CONTENT:a\n", "CONTENT:b\n"},
		before: func(i int) {
			if i == 0 {
				cancel()
			}
		},
	}
	api := &fakeChatAPI{body: func() io.ReadCloser { return body }}
	svc, bus, rec := newServiceWithBus(api)

	msg, err := svc.Send(ctx, "question", "A", nil)
	bus.Close()

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.ofType(domain.EventStreamFailed))
	assert.Empty(t, rec.ofType(domain.EventThreadCreated))
	assert.Len(t, rec.ofType(domain.EventStreamStarted), 1)
}

func TestNewChatDisplaysFreshThread(t *testing.T) {
	svc := NewService(&fakeChatAPI{}, nil, stream.Options{}, quietLogger())
	assert.Empty(t, svc.Displayed())

	a := svc.NewChat()
	b := svc.NewChat()
	assert.NotEqual(t, a, b)
	assert.Equal(t, b, svc.Displayed())
}

func TestLoadThread(t *testing.T) {
	api := &fakeChatAPI{thread: []domain.RawMessage{
		{Role: "user", Content: json.RawMessage(`"hi"`)},
		{Type: "ai", Content: json.RawMessage(`"hello"`)},
	}}
	svc := NewService(api, nil, stream.Options{}, quietLogger())

	msgs, err := svc.LoadThread(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "short...", Title("short"))

	long := strings.Repeat("ක", 60)
	got := Title(long)
	assert.Equal(t, strings.Repeat("ක", 50)+"...", got)
}

func TestExampleQuestions(t *testing.T) {
	qs := ExampleQuestions()
	require.Len(t, qs, 3)
	assert.Contains(t, qs[0].Question, "J.F. Packaging")
	assert.Contains(t, qs[1].Question, "Softlogic")
	assert.Contains(t, qs[2].Question, "Lanka Realty")

	q, ok := ExampleQuestionAt(2)
	require.True(t, ok)
	assert.Equal(t, qs[1], q)
	_, ok = ExampleQuestionAt(4)
	assert.False(t, ok)
}
