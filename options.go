package async_buffer_go

import "time"

// Tunables matching the reference design's compile-time constants.
const (
	// BufferCapacity is the default ring buffer size.
	BufferCapacity = 4 * 1024 * 1024

	// ShortSeekThreshold bounds how far past the buffered window a forward
	// seek may land and still be served by draining the ring instead of
	// issuing an inner seek.
	ShortSeekThreshold = 256 * 1024

	// FillChunk bounds how many bytes the producer asks the inner source
	// for in a single Read call, so one slow inner read cannot hold up
	// interrupt checks for longer than this one chunk.
	FillChunk = 4096
)

type config struct {
	capacity    int
	shortSeek   int
	fillChunk   int
	interrupt   InterruptFunc
	seekTimeout time.Duration
}

func defaultConfig() config {
	return config{
		capacity:  BufferCapacity,
		shortSeek: ShortSeekThreshold,
		fillChunk: FillChunk,
	}
}

// Option configures an AsyncBuffer at Open time.
type Option func(*config)

// WithCapacity overrides the ring buffer's capacity, in bytes.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithShortSeekThreshold overrides the forward-seek fast-path window.
func WithShortSeekThreshold(n int) Option {
	return func(c *config) { c.shortSeek = n }
}

// WithFillChunk overrides the per-iteration inner read size of the producer.
func WithFillChunk(n int) Option {
	return func(c *config) { c.fillChunk = n }
}

// WithInterrupt registers a host interrupt predicate. It is ORed with the
// internal abort flag before being handed to the inner source, so blocking
// inner I/O also unblocks on Close.
func WithInterrupt(fn InterruptFunc) Option {
	return func(c *config) { c.interrupt = fn }
}

// WithSeekTimeout bounds how long Seek waits for the producer to complete a
// slow-path seek before giving up with ErrInterrupted. The reference design
// has no such timeout; this is the "configurable timeout" it names as
// acceptable future work. Zero (the default) means wait indefinitely.
func WithSeekTimeout(d time.Duration) Option {
	return func(c *config) { c.seekTimeout = d }
}
