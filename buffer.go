package async_buffer_go

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Scheme is the URI scheme this package registers itself under. Open strips
// it before delegating to the supplied SourceOpener.
const Scheme = "async:"

var (
	_ io.Reader = (*AsyncBuffer)(nil)
	_ io.Seeker = (*AsyncBuffer)(nil)
	_ io.Closer = (*AsyncBuffer)(nil)
)

// AsyncBuffer wraps a Source with a bounded ring buffer and a background
// producer goroutine. The zero value is not usable; construct one with
// Open. A single AsyncBuffer must not be used by more than one consumer
// goroutine concurrently (Read/Seek/Close are not reentrant), though
// distinct instances are fully independent.
type AsyncBuffer struct {
	cfg    config
	source Source
	ring   *ringBuffer

	mu           sync.Mutex
	wakeConsumer *sync.Cond
	wakeProducer *sync.Cond

	logicalPos  int64
	logicalSize int64
	streamed    bool

	eofReached bool
	ioErr      error

	seekActive    bool
	seekTarget    int64
	seekCompleted bool
	seekRet       int64

	// pendingSeekAbandoned is set by a WithSeekTimeout waiter that gave up
	// on an in-flight seek before the producer finished it. serviceSeek
	// consults it to poison the instance instead of letting logicalPos
	// drift out of sync with the ring's post-seek content window.
	pendingSeekAbandoned bool

	abort  atomic.Bool
	closed atomic.Bool

	wg sync.WaitGroup
}

// Open allocates the ring buffer, opens the inner source (after stripping a
// leading "async:" scheme prefix from uri) and starts the background
// producer. Operations on the returned AsyncBuffer must not be issued
// before Open returns.
func Open(uri string, opener SourceOpener, opts ...Option) (*AsyncBuffer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity <= 0 {
		return nil, fmt.Errorf("async_buffer_go: capacity must be positive, got %d", cfg.capacity)
	}
	if cfg.fillChunk <= 0 {
		return nil, fmt.Errorf("async_buffer_go: fill chunk must be positive, got %d", cfg.fillChunk)
	}

	ab := &AsyncBuffer{
		cfg:  cfg,
		ring: newRingBuffer(cfg.capacity),
	}
	ab.wakeConsumer = sync.NewCond(&ab.mu)
	ab.wakeProducer = sync.NewCond(&ab.mu)

	inner := strings.TrimPrefix(uri, Scheme)

	source, err := opener(inner, ab.isInterrupted)
	if err != nil {
		return nil, err
	}

	size, sizeErr := source.Size()
	if sizeErr != nil || size <= 0 {
		size = -1
	}

	ab.source = source
	ab.logicalSize = size
	ab.streamed = source.IsStreamed()

	ab.wg.Add(1)
	go func() {
		defer ab.wg.Done()
		ab.runProducer()
	}()

	return ab, nil
}

// IsStreamed reports the flag propagated unchanged from the inner source.
func (ab *AsyncBuffer) IsStreamed() bool {
	return ab.streamed
}

// BufferCapacity reports the ring buffer's configured capacity, in bytes.
func (ab *AsyncBuffer) BufferCapacity() int {
	return ab.ring.Capacity()
}

func (ab *AsyncBuffer) isInterrupted() bool {
	if ab.abort.Load() {
		return true
	}
	if ab.cfg.interrupt != nil {
		return ab.cfg.interrupt()
	}
	return false
}

// Close signals the producer to abort, joins it, and closes the inner
// source. It is idempotent: a second Close is a no-op. Per the reference
// design, Close never surfaces a producer join error; it always releases
// resources.
func (ab *AsyncBuffer) Close() error {
	if !ab.closed.CompareAndSwap(false, true) {
		return nil
	}

	ab.abort.Store(true)

	ab.mu.Lock()
	ab.wakeProducer.Broadcast()
	ab.wakeConsumer.Broadcast()
	ab.mu.Unlock()

	ab.wg.Wait()

	return ab.source.Close()
}

// runProducer is the single background worker: honour abort/interrupt,
// service a pending seek, else fill the ring, else wait.
func (ab *AsyncBuffer) runProducer() {
	for {
		if ab.isInterrupted() {
			ab.mu.Lock()
			ab.eofReached = true
			ab.ioErr = ErrInterrupted
			ab.wakeConsumer.Broadcast()
			ab.mu.Unlock()
			return
		}

		ab.mu.Lock()
		seekActive := ab.seekActive
		ab.mu.Unlock()

		if seekActive {
			ab.serviceSeek()
			continue
		}

		ab.mu.Lock()
		eof := ab.eofReached
		ab.mu.Unlock()

		free := ab.ring.Space()
		if eof || free == 0 {
			ab.mu.Lock()
			ab.wakeConsumer.Broadcast()
			ab.wakeProducer.Wait()
			ab.mu.Unlock()
			continue
		}

		toFill := free
		if toFill > ab.cfg.fillChunk {
			toFill = ab.cfg.fillChunk
		}

		n, err := ab.ring.WriteFrom(ab.source.Read, toFill)

		ab.mu.Lock()
		if n == 0 || err != nil {
			ab.eofReached = true
			if err != nil && err != io.EOF {
				ab.ioErr = err
			}
		}
		ab.wakeConsumer.Broadcast()
		ab.mu.Unlock()
	}
}

// serviceSeek holds the mutex for the whole inner seek call, not just the
// bookkeeping around it -- unlike the fill step, which releases it for the
// blocking read. The reference design does the same: only fill gives up the
// lock during inner I/O.
func (ab *AsyncBuffer) serviceSeek() {
	ab.mu.Lock()
	target := ab.seekTarget

	newPos, err := ab.source.Seek(target, io.SeekStart)

	if err != nil {
		ab.eofReached = true
		ab.ioErr = err
		ab.seekRet = -1
	} else {
		ab.eofReached = false
		ab.ioErr = nil
		ab.seekRet = newPos
	}
	ab.ring.Reset()

	if ab.pendingSeekAbandoned {
		// The caller that requested this seek already gave up via
		// WithSeekTimeout. The ring now starts at newPos (or is empty, on
		// failure) but logicalPos was never advanced to match, since nobody
		// ran the completion handler. Force a sticky error rather than let
		// later reads serve bytes from the wrong logical offset.
		ab.eofReached = true
		ab.ioErr = ErrInterrupted
		ab.pendingSeekAbandoned = false
	}

	ab.seekCompleted = true
	ab.seekActive = false
	ab.wakeConsumer.Broadcast()
	ab.mu.Unlock()
}

// Read implements io.Reader. A short read returns as soon as any bytes are
// available; it blocks only when the ring is empty and EOF has not yet been
// reached.
func (ab *AsyncBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return ab.readInternal(p, len(p), false, false)
}

// readInternal is the shared engine behind Read and the short-seek fast
// path. complete demands that exactly n bytes be gathered before returning
// (used only by Seek); skip discards bytes instead of copying them into dst.
func (ab *AsyncBuffer) readInternal(dst []byte, n int, complete bool, skip bool) (int, error) {
	if ab.closed.Load() {
		return 0, ErrClosed
	}

	ab.mu.Lock()
	defer ab.mu.Unlock()

	total := 0
	remaining := n

	for {
		if ab.isInterrupted() {
			return 0, ErrInterrupted
		}

		avail := ab.ring.Occupancy()
		toCopy := remaining
		if toCopy > avail {
			toCopy = avail
		}

		if toCopy > 0 {
			var got int
			if skip {
				got = ab.ring.Skip(toCopy)
			} else {
				got = ab.ring.ReadInto(dst[total : total+toCopy])
			}
			ab.logicalPos += int64(got)
			total += got
			remaining -= got

			if remaining == 0 || !complete {
				ab.wakeProducer.Signal()
				return total, nil
			}
			continue
		}

		if ab.eofReached {
			ab.wakeProducer.Signal()
			if total > 0 {
				return total, nil
			}
			if ab.ioErr != nil {
				return 0, ab.ioErr
			}
			return 0, io.EOF
		}

		ab.wakeProducer.Signal()
		ab.wakeConsumer.Wait()
	}
}

// Seek implements io.Seeker, plus the package-specific SeekSize whence.
//
// A seek landing within the currently buffered window (plus
// ShortSeekThreshold of look-ahead slack) drains the ring in place instead
// of issuing an inner seek. Anything else is handed to the producer as a
// seek request and blocks until serviced.
//
// If the producer's inner seek fails, Seek returns that error and it stays
// sticky: every later Read returns it until a later slow-path seek
// succeeds, which clears it. The short-seek fast path and SeekSize do not
// report it, and a fast-path seek then returns the unchanged logical
// position. logicalPos is not rewound to any particular value, matching
// the reference design's undocumented behavior here.
func (ab *AsyncBuffer) Seek(offset int64, whence int) (int64, error) {
	if ab.closed.Load() {
		return 0, ErrClosed
	}

	var target int64
	switch whence {
	case SeekSize:
		ab.mu.Lock()
		size := ab.logicalSize
		ab.mu.Unlock()
		return size, nil
	case io.SeekCurrent:
		ab.mu.Lock()
		target = ab.logicalPos + offset
		ab.mu.Unlock()
	case io.SeekStart:
		target = offset
	default:
		return 0, ErrInvalidSeek
	}

	if target < 0 {
		return 0, ErrInvalidSeek
	}

	ab.mu.Lock()
	logicalPos := ab.logicalPos
	logicalSize := ab.logicalSize
	ab.mu.Unlock()
	occupancy := int64(ab.ring.Occupancy())
	shortSeek := int64(ab.cfg.shortSeek)

	switch {
	case target == logicalPos:
		return logicalPos, nil

	case target > logicalPos && target <= logicalPos+occupancy+shortSeek:
		// Whatever the drain returns -- an interrupt, a sticky io error, or
		// nothing -- is discarded entirely, matching the reference design's
		// fast path, which ignores async_read_internal's return value and
		// unconditionally reports the logical position.
		ab.readInternal(nil, int(target-logicalPos), true, true)
		ab.mu.Lock()
		newPos := ab.logicalPos
		ab.mu.Unlock()
		return newPos, nil

	case logicalSize <= 0:
		return 0, ErrInvalidSeek

	case target > logicalSize:
		return 0, ErrInvalidSeek
	}

	return ab.slowSeek(target)
}

func (ab *AsyncBuffer) slowSeek(target int64) (int64, error) {
	ab.mu.Lock()
	ab.seekActive = true
	ab.seekTarget = target
	ab.seekCompleted = false
	ab.seekRet = 0
	ab.wakeProducer.Broadcast()

	var timedOut atomic.Bool
	if ab.cfg.seekTimeout > 0 {
		timer := time.AfterFunc(ab.cfg.seekTimeout, func() {
			ab.mu.Lock()
			// Only abandon if the producer hasn't already finished; if it
			// raced us to completion, the normal path below already has the
			// result and must not be overridden.
			if !ab.seekCompleted {
				timedOut.Store(true)
				ab.pendingSeekAbandoned = true
				ab.wakeConsumer.Broadcast()
			}
			ab.mu.Unlock()
		})
		defer timer.Stop()
	}

	for {
		if ab.isInterrupted() {
			ab.mu.Unlock()
			return 0, ErrInterrupted
		}

		if ab.seekCompleted {
			ret := ab.seekRet
			ioErr := ab.ioErr
			ab.seekCompleted = false
			if ret >= 0 {
				ab.logicalPos = ret
			}
			ab.mu.Unlock()
			if ret < 0 {
				if ioErr != nil {
					return 0, ioErr
				}
				return 0, ErrInvalidSeek
			}
			return ret, nil
		}

		if timedOut.Load() {
			ab.mu.Unlock()
			return 0, ErrInterrupted
		}

		ab.wakeConsumer.Wait()
	}
}
