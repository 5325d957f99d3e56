package async_buffer_go_test

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asyncbuffer "github.com/sushydev/async_buffer_go"
	"github.com/sushydev/async_buffer_go/memsource"
)

func memOpener(src *memsource.Source) asyncbuffer.SourceOpener {
	return func(uri string, _ asyncbuffer.InterruptFunc) (asyncbuffer.Source, error) {
		return src, nil
	}
}

func TestAsyncBuffer_BasicReadAndSeek(t *testing.T) {
	src := memsource.New(1024)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src), asyncbuffer.WithCapacity(64))
	require.NoError(t, err)
	defer buf.Close()

	p := make([]byte, 10)
	n, err := buf.Read(p)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	for i, b := range p {
		assert.Equal(t, byte(i%251), b)
	}

	pos, err := buf.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.EqualValues(t, 10, pos)
}

func TestAsyncBuffer_ReadToEOF(t *testing.T) {
	src := memsource.New(100)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src), asyncbuffer.WithCapacity(32))
	require.NoError(t, err)
	defer buf.Close()

	total := 0
	p := make([]byte, 16)
	for {
		n, err := buf.Read(p)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 100, total)

	// once EOF is reached, further reads keep returning EOF
	n, err := buf.Read(p)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestAsyncBuffer_ShortSeekAvoidsInnerSeek(t *testing.T) {
	src := memsource.New(1 << 20)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src),
		asyncbuffer.WithCapacity(256*1024),
		asyncbuffer.WithShortSeekThreshold(100*1024),
	)
	require.NoError(t, err)
	defer buf.Close()

	p := make([]byte, 64_000)
	_, err = buf.Read(p)
	require.NoError(t, err)

	before := src.SeekCalls()
	pos, err := buf.Seek(64_000+50_000, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 164_000, pos)
	assert.Equal(t, before, src.SeekCalls(), "short seek must not issue an inner seek")

	got := make([]byte, 8)
	n, err := buf.Read(got)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	for i, b := range got {
		assert.Equal(t, byte((164_000+i)%251), b)
	}
}

func TestAsyncBuffer_SlowSeekIssuesInnerSeek(t *testing.T) {
	src := memsource.New(10 << 20)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src),
		asyncbuffer.WithCapacity(4096),
		asyncbuffer.WithShortSeekThreshold(4096),
	)
	require.NoError(t, err)
	defer buf.Close()

	before := src.SeekCalls()
	pos, err := buf.Seek(3_000_000, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 3_000_000, pos)
	assert.Greater(t, src.SeekCalls(), before)

	p := make([]byte, 16)
	n, err := buf.Read(p)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	for i, b := range p {
		assert.Equal(t, byte((3_000_000+i)%251), b)
	}
}

func TestAsyncBuffer_SeekPastEndIsInvalid(t *testing.T) {
	src := memsource.New(1 << 20)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src))
	require.NoError(t, err)
	defer buf.Close()

	_, err = buf.Seek(20_000_000, io.SeekStart)
	assert.ErrorIs(t, err, asyncbuffer.ErrInvalidSeek)
}

func TestAsyncBuffer_NonSeekableSourceRejectsSeek(t *testing.T) {
	src := memsource.New(1<<20, memsource.WithStreamed())
	buf, err := asyncbuffer.Open("async:mem", memOpener(src),
		asyncbuffer.WithCapacity(4096),
		asyncbuffer.WithShortSeekThreshold(4096),
	)
	require.NoError(t, err)
	defer buf.Close()

	_, err = buf.Seek(1_000_000, io.SeekStart)
	assert.ErrorIs(t, err, asyncbuffer.ErrInvalidSeek)

	p := make([]byte, 16)
	n, err := buf.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestAsyncBuffer_SeekIdempotence(t *testing.T) {
	src := memsource.New(10 << 20)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src))
	require.NoError(t, err)
	defer buf.Close()

	_, err = buf.Seek(5_000_000, io.SeekStart)
	require.NoError(t, err)

	pos, err := buf.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.EqualValues(t, 5_000_000, pos)
}

func TestAsyncBuffer_SizeWhence(t *testing.T) {
	src := memsource.New(12345)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src))
	require.NoError(t, err)
	defer buf.Close()

	size, err := buf.Seek(0, asyncbuffer.SeekSize)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, size)
}

func TestAsyncBuffer_Interruption(t *testing.T) {
	// One blocking inner read takes 50ms; the interrupt fires mid-read, at
	// 10ms. The consumer cannot notice sooner than that one in-flight read
	// completes, which bounds (rather than eliminates) the latency.
	src := memsource.New(1<<20, memsource.WithLatency(50*time.Millisecond))
	var interrupted atomic.Bool

	buf, err := asyncbuffer.Open("async:mem", memOpener(src),
		asyncbuffer.WithFillChunk(64),
		asyncbuffer.WithInterrupt(interrupted.Load),
	)
	require.NoError(t, err)
	defer buf.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		interrupted.Store(true)
	}()

	start := time.Now()
	p := make([]byte, 1_000_000)
	n, err := buf.Read(p)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, asyncbuffer.ErrInterrupted)
	assert.Equal(t, 0, n)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestAsyncBuffer_SeekTimeoutPoisonsInstance(t *testing.T) {
	// The producer is parked inside a 200ms fill Read (holding no lock)
	// when the seek request comes in; WithSeekTimeout gives up after 20ms,
	// well before the producer even notices the pending seek. The producer
	// eventually services that seek anyway once its fill Read returns, but
	// by then logicalPos can no longer be trusted against the ring's new
	// content window, so later reads must report a sticky error instead of
	// silently serving data from the wrong offset.
	src := memsource.New(10<<20, memsource.WithLatency(200*time.Millisecond))
	buf, err := asyncbuffer.Open("async:mem", memOpener(src),
		asyncbuffer.WithCapacity(4096),
		asyncbuffer.WithShortSeekThreshold(4096),
		asyncbuffer.WithSeekTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)
	defer buf.Close()

	start := time.Now()
	_, err = buf.Seek(3_000_000, io.SeekStart)
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, asyncbuffer.ErrInterrupted)
	assert.Less(t, elapsed, 100*time.Millisecond, "seek must give up at the configured timeout, not wait for the fill")

	// Give the abandoned producer-side seek time to actually run and hit
	// the poisoning branch.
	time.Sleep(300 * time.Millisecond)

	p := make([]byte, 16)
	_, err = buf.Read(p)
	assert.ErrorIs(t, err, asyncbuffer.ErrInterrupted)

	// Seek's short-seek fast path discards the drain's error entirely and
	// reports the (stale) logical position, exactly like the reference
	// design -- the sticky error only ever surfaces from Read.
	pos, err := buf.Seek(100, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 0, pos)
}

func TestAsyncBuffer_BufferCapacityReportsConfiguredSize(t *testing.T) {
	src := memsource.New(1 << 20)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src), asyncbuffer.WithCapacity(8192))
	require.NoError(t, err)
	defer buf.Close()

	assert.Equal(t, 8192, buf.BufferCapacity())
}

func TestAsyncBuffer_DoubleCloseIsSafe(t *testing.T) {
	src := memsource.New(16)
	buf, err := asyncbuffer.Open("async:mem", memOpener(src))
	require.NoError(t, err)

	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())

	_, err = buf.Read(make([]byte, 1))
	assert.ErrorIs(t, err, asyncbuffer.ErrClosed)
}
