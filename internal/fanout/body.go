// Package fanout streams an upstream response body to a client while
// simultaneously accumulating it into a buffer that gets published into
// the cache store once, and only once, end-of-stream is observed with
// at least one byte accumulated.
//
// The shape mirrors the example corpus's block-flushing reader
// (a decorator io.ReadCloser that buffers what it reads and fires a
// callback at natural boundaries), generalized here to a single
// whole-body publish instead of fixed-size block flushes, since the
// relay's cache has no on-disk block model to align to.
package fanout

import "io"

// Publisher is the narrow slice of cachestore.Store the fan-out body
// needs: insert a completed buffer under a path.
type Publisher interface {
	Insert(path string, buf []byte) bool
}

// Body wraps an upstream io.ReadCloser for a given path, forwarding
// every byte read to the caller while accumulating it locally. Some
// upstreams signal end-of-stream on the final data-bearing Read (n > 0,
// err == io.EOF); others signal it with a separate, empty Read
// afterward (n == 0, err == io.EOF). Both protocols are handled and
// either way, Publish fires exactly once.
type Body struct {
	upstream  io.ReadCloser
	path      string
	publisher Publisher

	buf       []byte
	published bool
}

// New wraps upstream so that its bytes are buffered and, on
// end-of-stream, published to publisher under path.
func New(upstream io.ReadCloser, path string, publisher Publisher) *Body {
	return &Body{upstream: upstream, path: path, publisher: publisher}
}

// Read polls the underlying stream exactly once per call. A data frame
// is appended to the internal buffer; if that same poll also carries
// io.EOF, or a later poll reports io.EOF with no further data, the
// accumulated buffer is published before returning io.EOF to the
// caller. Any other outcome — not-ready, or a non-EOF error — passes
// through untouched, and a non-EOF error means the buffer is never
// published (see Close).
func (b *Body) Read(p []byte) (int, error) {
	n, err := b.upstream.Read(p)
	if n > 0 {
		b.buf = append(b.buf, p[:n]...)
	}

	if err == io.EOF {
		b.publish()
		return n, io.EOF
	}
	return n, err
}

// Close closes the underlying stream. It never publishes: a Close that
// arrives without a prior io.EOF from Read means the body was
// cancelled mid-stream (client disconnect, upstream error), and the
// buffered bytes are discarded along with it.
func (b *Body) Close() error {
	return b.upstream.Close()
}

// publish inserts the accumulated buffer exactly once, only when
// non-empty, then drops the local buffer so a later spurious poll is a
// no-op.
func (b *Body) publish() {
	if b.published {
		return
	}
	b.published = true

	if len(b.buf) == 0 {
		return
	}
	b.publisher.Insert(b.path, b.buf)
	b.buf = nil
}
