// Package async_buffer_go wraps an arbitrary byte-stream source with a
// bounded ring buffer and a background producer goroutine, so that callers
// reading sequentially (with occasional short forward seeks) are decoupled
// from the latency of the wrapped source.
//
// The package is the Go counterpart of FFmpeg's "async" URLProtocol
// (libavformat/async.c): one producer goroutine fills a fixed-capacity ring
// from a pluggable Source, one consumer goroutine calls Read/Seek/Close.
// Both sides coordinate through a single mutex and two condition variables;
// see AsyncBuffer for the full contract.
package async_buffer_go
