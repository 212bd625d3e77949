package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"docnexus/internal/domain"
)

// ErrDetached is returned by Consume when the gate closed mid-stream. It
// signals a superseded stream, not a failure.
var ErrDetached = errors.New("stream detached")

const readBufferSize = 4096

// Gate reports whether projected state is still wanted. It is checked
// before every projection step.
type Gate func() bool

// Result describes a fully consumed stream.
type Result struct {
	Message   domain.Message
	Lines     int
	Dropped   int // trailing bytes discarded at end of stream
	Malformed int // lines skipped for unparseable payloads
}

// Consumer drives one stream from transport to finalised message.
type Consumer struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewConsumer creates a Consumer.
func NewConsumer(opts Options, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{opts: opts, logger: logger, now: time.Now}
}

// Consume reads body chunk by chunk, decodes lines, and projects each event
// into a fresh Accumulator. After every line that changed state, onSnapshot
// receives an immutable copy. Processing is strictly sequential.
//
// If gate reports false before a projection step, Consume stops reading and
// returns ErrDetached; the caller is expected to close body. A read error
// other than io.EOF is wrapped with domain.ErrStreamFailed, and no partial
// message is returned. Consume does not close body.
func (c *Consumer) Consume(ctx context.Context, body io.Reader, gate Gate, onSnapshot func(Snapshot)) (*Result, error) {
	if gate == nil {
		gate = func() bool { return true }
	}
	dec := NewLineDecoder(c.opts)
	acc := NewAccumulator()
	res := &Result{}

	project := func(line string) error {
		if !gate() {
			return ErrDetached
		}
		ev, err := Classify(line)
		if err != nil {
			res.Malformed++
			c.logger.Warn("skipping malformed stream line", "error", err)
			return nil
		}
		if acc.Apply(ev) && onSnapshot != nil {
			onSnapshot(acc.Snapshot())
		}
		return nil
	}

	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range dec.Write(buf[:n]) {
				if err := project(line); err != nil {
					return nil, err
				}
			}
		}
		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStreamFailed, readErr)
	}

	if line, ok := dec.End(); ok {
		if err := project(line); err != nil {
			return nil, err
		}
	}
	if dropped := dec.Dropped(); dropped > 0 {
		c.logger.Debug("discarded unterminated trailing line", "bytes", dropped)
	}
	if n := dec.Oversized(); n > 0 {
		c.logger.Warn("discarded oversized stream lines", "count", n)
	}

	if !gate() {
		return nil, ErrDetached
	}
	res.Lines = dec.Lines()
	res.Dropped = dec.Dropped()
	res.Message = acc.Finalize(c.now())
	return res, nil
}
