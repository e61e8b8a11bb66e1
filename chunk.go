package streamzip

import "io"

// offsetWriter wraps an io.Writer and counts the bytes actually forwarded to
// it. It is the single accounting point every byte emitted by the encoder
// passes through (spec §4.2): code writing headers snapshots offset() at a
// precise point and later references it when composing central-directory
// records or detecting overflow.
type offsetWriter struct {
	next   io.Writer
	offset uint64
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	n, err := w.next.Write(p)
	w.offset += uint64(n)
	return n, err
}

// chunker re-chunks an uneven stream of writes into blocks of exactly size
// bytes, except possibly the final block flushed at Close. It never
// allocates more than once (the reusable buffer), matching spec §4.1's "must
// not allocate per-byte" and "never buffers more than one inner block plus a
// partial slice" requirements applied to the output side of the pipeline.
type chunker struct {
	sink   io.Writer
	buf    []byte
	filled int
}

func newChunker(sink io.Writer, size int) *chunker {
	return &chunker{sink: sink, buf: make([]byte, size)}
}

func (c *chunker) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := copy(c.buf[c.filled:], p)
		c.filled += n
		p = p[n:]
		written += n
		if c.filled == len(c.buf) {
			if _, err := c.sink.Write(c.buf); err != nil {
				return written, err
			}
			c.filled = 0
		}
	}
	return written, nil
}

// Flush writes any partially-filled final block (length 1..size) to the
// sink. It is a no-op if there is nothing buffered.
func (c *chunker) Flush() error {
	if c.filled == 0 {
		return nil
	}
	_, err := c.sink.Write(c.buf[:c.filled])
	c.filled = 0
	return err
}
