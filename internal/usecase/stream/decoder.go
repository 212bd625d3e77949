// Package stream decodes the line-oriented chat stream protocol and projects
// it into conversation state.
package stream

import "bytes"

// DefaultMaxLineBytes bounds the carry-over buffer for a single line.
const DefaultMaxLineBytes = 4 << 20 // 4 MB

// Options configures decoding.
type Options struct {
	// FlushTrailing emits a final line that has no terminating newline when
	// the stream ends. By default such a fragment is dropped.
	FlushTrailing bool `yaml:"flush_trailing"`
	// MaxLineBytes caps the carry-over buffer. A line that grows past it is
	// discarded up to its terminating newline. Zero means DefaultMaxLineBytes.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// LineDecoder splits an arbitrarily fragmented byte stream into lines.
// Bytes after the last newline are held as carry-over until a later chunk
// completes them. A LineDecoder is not safe for concurrent use.
type LineDecoder struct {
	opts     Options
	carry    []byte
	skipping bool // discarding an oversized line until its newline

	lines     int
	dropped   int // bytes discarded at end of stream
	oversized int // lines discarded for exceeding MaxLineBytes
}

// NewLineDecoder creates a decoder.
func NewLineDecoder(opts Options) *LineDecoder {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultMaxLineBytes
	}
	return &LineDecoder{opts: opts}
}

// Write consumes one chunk and returns the lines it completed, in order,
// without their terminating newline. The chunk is not retained.
func (d *LineDecoder) Write(chunk []byte) []string {
	var out []string
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			d.hold(chunk)
			break
		}
		if d.skipping {
			d.skipping = false
		} else {
			d.carry = append(d.carry, chunk[:i]...)
			if len(d.carry) > d.opts.MaxLineBytes {
				d.oversized++
			} else {
				out = append(out, string(d.carry))
				d.lines++
			}
		}
		d.carry = d.carry[:0]
		chunk = chunk[i+1:]
	}
	return out
}

func (d *LineDecoder) hold(tail []byte) {
	if d.skipping {
		return
	}
	if len(d.carry)+len(tail) > d.opts.MaxLineBytes {
		d.oversized++
		d.skipping = true
		d.carry = d.carry[:0]
		return
	}
	d.carry = append(d.carry, tail...)
}

// End signals that no more chunks will arrive. The trailing fragment, if
// any, is returned as a final line only when FlushTrailing is set; otherwise
// it is discarded and counted in Dropped. End resets the carry-over.
func (d *LineDecoder) End() (string, bool) {
	defer func() {
		d.carry = d.carry[:0]
		d.skipping = false
	}()
	if len(d.carry) == 0 {
		return "", false
	}
	if !d.opts.FlushTrailing {
		d.dropped += len(d.carry)
		return "", false
	}
	d.lines++
	return string(d.carry), true
}

// Pending returns the number of bytes held as carry-over.
func (d *LineDecoder) Pending() int { return len(d.carry) }

// Lines returns the number of complete lines emitted so far.
func (d *LineDecoder) Lines() int { return d.lines }

// Dropped returns the number of trailing bytes discarded by End.
func (d *LineDecoder) Dropped() int { return d.dropped }

// Oversized returns the number of lines discarded for exceeding MaxLineBytes.
func (d *LineDecoder) Oversized() int { return d.oversized }
