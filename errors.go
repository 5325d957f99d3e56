package async_buffer_go

import "errors"

// ErrClosed is returned by any operation issued after Close.
var ErrClosed = errors.New("async_buffer_go: buffer is closed")

// ErrInterrupted is returned when the interrupt predicate (or Close) fires
// while a Read or Seek is in flight.
var ErrInterrupted = errors.New("async_buffer_go: interrupted")

// ErrInvalidSeek is returned for a bad whence, a negative target, a seek on
// a non-seekable source, or a seek past the known end.
var ErrInvalidSeek = errors.New("async_buffer_go: invalid seek")

// ErrSizeUnknown is returned by a Source's Size method when the underlying
// stream has no well-defined length (e.g. a live network stream).
var ErrSizeUnknown = errors.New("async_buffer_go: size unknown")
