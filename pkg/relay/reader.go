// Package relay turns an llm.Stream into an io.ReadCloser suitable for a
// chunked HTTP response body.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"rag-chat-be/pkg/llm"
)

// ErrStreamRelay marks a source failure after the response has started.
var ErrStreamRelay = errors.New("stream relay failed")

// Summary describes a finished relay.
type Summary struct {
	Chunks   int
	Bytes    int
	Err      error
	Duration time.Duration
}

type Option func(*Reader)

// WithCancel is called on Close, typically to release the request context.
func WithCancel(cancel context.CancelFunc) Option {
	return func(r *Reader) {
		r.cancel = cancel
	}
}

// WithFinish registers a hook that runs once, on Close.
func WithFinish(fn func(Summary)) Option {
	return func(r *Reader) {
		r.onFinish = fn
	}
}

// Reader yields at most one source chunk per Read, in arrival order.
// fasthttp writes and flushes one HTTP chunk per Read, so nothing is
// buffered beyond the current chunk.
type Reader struct {
	src     llm.Stream
	pending []byte
	err     error

	started time.Time
	chunks  int
	bytes   int

	cancel   context.CancelFunc
	onFinish func(Summary)

	closeOnce sync.Once
}

func NewReader(src llm.Stream, opts ...Option) *Reader {
	r := &Reader{
		src:     src,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if !r.src.Next() {
			if err := r.src.Err(); err != nil {
				r.err = fmt.Errorf("%w: %w", ErrStreamRelay, err)
			} else {
				r.err = io.EOF
			}
			return 0, r.err
		}
		r.pending = []byte(r.src.Text())
		if len(r.pending) > 0 {
			r.chunks++
		}
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	r.bytes += n
	return n, nil
}

// Close releases the source and the request context. Safe to call more than once.
func (r *Reader) Close() error {
	var closeErr error
	r.closeOnce.Do(func() {
		closeErr = r.src.Close()
		if r.cancel != nil {
			r.cancel()
		}
		if r.onFinish != nil {
			s := Summary{
				Chunks:   r.chunks,
				Bytes:    r.bytes,
				Duration: time.Since(r.started),
			}
			if r.err != nil && !errors.Is(r.err, io.EOF) {
				s.Err = r.err
			} else if r.err == nil {
				// Closed before the source was drained (client went away).
				s.Err = context.Canceled
			}
			r.onFinish(s)
		}
	})
	return closeErr
}
