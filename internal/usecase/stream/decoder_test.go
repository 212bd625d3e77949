package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(d *LineDecoder, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, d.Write([]byte(c))...)
	}
	return out
}

func TestLineDecoderCompleteLinesAndTrailingFragment(t *testing.T) {
	d := NewLineDecoder(Options{})

	lines := feed(d, "CONTENT:a\nCONTENT:b\nCONT", "ENT:c")
	assert.Equal(t, []string{"CONTENT:a", "CONTENT:b"}, lines)
	assert.Equal(t, len("CONTENT:c"), d.Pending())

	line, ok := d.End()
	assert.False(t, ok, "unterminated trailing line must be dropped by default")
	assert.Empty(t, line)
	assert.Equal(t, len("CONTENT:c"), d.Dropped())
	assert.Equal(t, 2, d.Lines())
	assert.Zero(t, d.Pending())
}

func TestLineDecoderFlushTrailing(t *testing.T) {
	d := NewLineDecoder(Options{FlushTrailing: true})

	lines := feed(d, "CONTENT:a\nCONTENT:tail")
	assert.Equal(t, []string{"CONTENT:a"}, lines)

	line, ok := d.End()
	require.True(t, ok)
	assert.Equal(t, "CONTENT:tail", line)
	assert.Zero(t, d.Dropped())
	assert.Equal(t, 2, d.Lines())
}

func TestLineDecoderEndWithoutFragment(t *testing.T) {
	d := NewLineDecoder(Options{FlushTrailing: true})
	feed(d, "CONTENT:a\n")
	_, ok := d.End()
	assert.False(t, ok)
}

func TestLineDecoderSplitAtEveryOffset(t *testing.T) {
	input := "NODE:retrieve\nCONTENT:hé llo\nTOOL_CALL:{\"id\":\"1\",\"name\":\"search\",\"args\":{}}\n"
	want := []string{
		"NODE:retrieve",
		"CONTENT:hé llo",
		`TOOL_CALL:{"id":"1","name":"search","args":{}}`,
	}

	for i := 0; i <= len(input); i++ {
		d := NewLineDecoder(Options{})
		got := feed(d, input[:i], input[i:])
		assert.Equal(t, want, got, "split at byte %d", i)
	}
}

func TestLineDecoderByteAtATime(t *testing.T) {
	input := "CONTENT:x\n\nCONTENT:y\n"
	d := NewLineDecoder(Options{})
	var got []string
	for i := 0; i < len(input); i++ {
		got = append(got, d.Write([]byte{input[i]})...)
	}
	// Blank lines are still lines; classification ignores them.
	assert.Equal(t, []string{"CONTENT:x", "", "CONTENT:y"}, got)
}

func TestLineDecoderKeepsCarriageReturn(t *testing.T) {
	d := NewLineDecoder(Options{})
	got := feed(d, "CONTENT:a\r\n")
	assert.Equal(t, []string{"CONTENT:a\r"}, got)
}

func TestLineDecoderOversizedLine(t *testing.T) {
	d := NewLineDecoder(Options{MaxLineBytes: 12})

	got := feed(d, "CONTENT:"+strings.Repeat("x", 10), "yyy\nCONTENT:ok\n")
	assert.Equal(t, []string{"CONTENT:ok"}, got)
	assert.Equal(t, 1, d.Oversized())

	got = feed(d, "CONTENT:toolong\n")
	assert.Empty(t, got)
	assert.Equal(t, 2, d.Oversized())
}

func TestLineDecoderWriteDoesNotRetainChunk(t *testing.T) {
	d := NewLineDecoder(Options{FlushTrailing: true})
	chunk := []byte("CONTENT:ab")
	d.Write(chunk)
	copy(chunk, "XXXXXXXXXX")

	line, ok := d.End()
	require.True(t, ok)
	assert.Equal(t, "CONTENT:ab", line)
}
