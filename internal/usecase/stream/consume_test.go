package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
)

// chunkReader returns one preset chunk per Read call, then err (io.EOF if nil).
type chunkReader struct {
	chunks []string
	err    error
	onRead func(i int)
	i      int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	if r.onRead != nil {
		r.onRead(r.i)
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func newTestConsumer(opts Options) *Consumer {
	c := NewConsumer(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestConsumeFragmentedContent(t *testing.T) {
	body := &chunkReader{chunks: []string{"CONTENT:Hel", "lo wor", "ld\nCONTENT:!\n"}}

	var snaps []Snapshot
	res, err := newTestConsumer(Options{}).Consume(context.Background(), body, nil, func(s Snapshot) {
		snaps = append(snaps, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", res.Message.Content)
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, domain.RoleBot, res.Message.Role)
	require.Len(t, snaps, 2)
	assert.Equal(t, "Hello world", snaps[0].Content)
	assert.Equal(t, "Hello world!", snaps[1].Content)
}

func TestConsumeSplitPrefix(t *testing.T) {
	body := &chunkReader{chunks: []string{"CON", "TENT:hi\n"}}
	res, err := newTestConsumer(Options{}).Consume(context.Background(), body, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Message.Content)
}

func TestConsumeChunkingDoesNotChangeResult(t *testing.T) {
	input := strings.Join([]string{
		"NODE:retrieve",
		"THINKING_START",
		"THINKING: part1",
		"THINKING: part2",
		"THINKING_END",
		`TOOL_CALL:{"id":"1","name":"search","args":{"q":"eps"}}`,
		`TOOL_END:{"name":"search","output":"r1"}`,
		"CONTENT:The EPS was ",
		"CONTENT:1.23",
		"",
	}, "\n")

	whole, err := newTestConsumer(Options{}).Consume(context.Background(), strings.NewReader(input), nil, nil)
	require.NoError(t, err)

	for i := 1; i < len(input); i += 7 {
		body := &chunkReader{chunks: []string{input[:i], input[i:]}}
		got, err := newTestConsumer(Options{}).Consume(context.Background(), body, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, whole.Message, got.Message, "split at %d", i)
	}

	msg := whole.Message
	assert.Equal(t, "The EPS was 1.23", msg.Content)
	require.Len(t, msg.Reasoning, 2)
	assert.Equal(t, " part1 part2", msg.Reasoning[1].Text)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, domain.ToolCompleted, msg.ToolCalls[0].Status)
	assert.Equal(t, "r1", msg.ToolCalls[0].Output)
}

func TestConsumeTrailingLine(t *testing.T) {
	input := "CONTENT:a\nCONTENT:b"

	res, err := newTestConsumer(Options{}).Consume(context.Background(), strings.NewReader(input), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Message.Content)
	assert.Equal(t, 1, res.Lines)
	assert.Equal(t, len("CONTENT:b"), res.Dropped)

	res, err = newTestConsumer(Options{FlushTrailing: true}).Consume(context.Background(), strings.NewReader(input), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", res.Message.Content)
	assert.Equal(t, 2, res.Lines)
	assert.Zero(t, res.Dropped)
}

func TestConsumeSkipsMalformedAndUnknownLines(t *testing.T) {
	input := "PING:ok\nTOOL_CALL:{oops\nCONTENT:fine\n"

	var logs bytes.Buffer
	c := NewConsumer(Options{}, slog.New(slog.NewTextHandler(&logs, nil)))
	res, err := c.Consume(context.Background(), strings.NewReader(input), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Message.Content)
	assert.Equal(t, 1, res.Malformed)
	assert.Empty(t, res.Message.ToolCalls)
	assert.Contains(t, logs.String(), "malformed")
}

func TestConsumeTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	body := &chunkReader{chunks: []string{"CONTENT:partial\n"}, err: boom}

	var snaps int
	res, err := newTestConsumer(Options{}).Consume(context.Background(), body, nil, func(Snapshot) { snaps++ })
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrStreamFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, snaps)
}

func TestConsumeDetachesWhenGateCloses(t *testing.T) {
	var displayed atomic.Value
	displayed.Store("A")
	gate := func() bool { return displayed.Load() == "A" }

	body := &chunkReader{
		chunks: []string{"CONTENT:one\n", "CONTENT:two\n", "CONTENT:three\n"},
		onRead: func(i int) {
			if i == 1 {
				displayed.Store("B")
			}
		},
	}

	var snaps []Snapshot
	res, err := newTestConsumer(Options{}).Consume(context.Background(), body, gate, func(s Snapshot) {
		snaps = append(snaps, s)
	})
	assert.ErrorIs(t, err, ErrDetached)
	assert.Nil(t, res)
	require.Len(t, snaps, 1)
	assert.Equal(t, "one", snaps[0].Content)
	assert.Equal(t, 2, body.i, "no reads after the gate closed")
}

func TestConsumeGateClosedAtEnd(t *testing.T) {
	open := true
	gate := func() bool { return open }
	body := &chunkReader{
		chunks: []string{"CONTENT:x"},
		onRead: func(int) { open = false },
	}
	res, err := newTestConsumer(Options{}).Consume(context.Background(), body, gate, nil)
	assert.ErrorIs(t, err, ErrDetached)
	assert.Nil(t, res)
}

func TestConsumeContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	body := &chunkReader{
		chunks: []string{"CONTENT:a\n", "CONTENT:b\n"},
		onRead: func(i int) {
			if i == 0 {
				cancel()
			}
		},
	}
	res, err := newTestConsumer(Options{}).Consume(ctx, body, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}
