// Package memsource provides a deterministic, in-memory async_buffer_go.Source
// used by the package's own tests and by callers writing tests against
// AsyncBuffer without a real network or disk source.
package memsource

import (
	"io"
	"sync/atomic"
	"time"

	asyncbuffer "github.com/sushydev/async_buffer_go"
)

var _ asyncbuffer.Source = (*Source)(nil)

// Source serves size bytes of the deterministic pattern byte(i % 251) from
// offset 0. Latency, if non-zero, is slept once per Read call, so tests can
// exercise the cancellation and interrupt paths of AsyncBuffer.
type Source struct {
	size      int64
	streamed  bool
	latency   time.Duration
	pos       int64
	seekCalls atomic.Int64
	closed    bool
}

// Option configures a Source.
type Option func(*Source)

// WithStreamed marks the source as a live, non-seekable stream: Size
// reports 0 with ErrSizeUnknown, and IsStreamed returns true.
func WithStreamed() Option {
	return func(s *Source) { s.streamed = true }
}

// WithLatency sleeps d before satisfying every Read, to simulate a slow
// underlying transport.
func WithLatency(d time.Duration) Option {
	return func(s *Source) { s.latency = d }
}

// New creates a Source exposing size bytes of deterministic content.
func New(size int64, opts ...Option) *Source {
	s := &Source{size: size}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeekCalls reports how many times Seek has been invoked, letting tests
// assert that the short-seek fast path avoided an inner seek.
func (s *Source) SeekCalls() int64 {
	return s.seekCalls.Load()
}

func (s *Source) Read(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.pos >= s.size {
		return 0, io.EOF
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	n := int64(len(p))
	if remaining := s.size - s.pos; n > remaining {
		n = remaining
	}
	for i := int64(0); i < n; i++ {
		p[i] = byte((s.pos + i) % 251)
	}
	s.pos += n
	return int(n), nil
}

func (s *Source) Seek(pos int64, whence int) (int64, error) {
	s.seekCalls.Add(1)

	var target int64
	switch whence {
	case io.SeekStart:
		target = pos
	case io.SeekCurrent:
		target = s.pos + pos
	case io.SeekEnd:
		target = s.size + pos
	default:
		return 0, asyncbuffer.ErrInvalidSeek
	}
	if target < 0 {
		return 0, asyncbuffer.ErrInvalidSeek
	}

	s.pos = target
	return s.pos, nil
}

func (s *Source) Size() (int64, error) {
	if s.streamed {
		return 0, asyncbuffer.ErrSizeUnknown
	}
	return s.size, nil
}

func (s *Source) Close() error {
	s.closed = true
	return nil
}

func (s *Source) IsStreamed() bool {
	return s.streamed
}
