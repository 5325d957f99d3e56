package async_buffer_go

// SeekSize is a whence value, distinct from the io.Seek* constants, that
// asks Seek to report the logical size of the stream without moving the
// cursor. It mirrors libavformat's AVSEEK_SIZE extension to io.Seeker.
const SeekSize = 3

// Source is the narrow capability set AsyncBuffer is polymorphic over: open,
// blocking read, seek, size query, close. Implementations are passed in at
// construction time (see Open); AsyncBuffer never assumes a concrete type.
//
// Only the producer goroutine started by Open calls into a Source; the
// consumer (Read/Seek/Close on AsyncBuffer) never touches it directly.
type Source interface {
	// Read behaves like io.Reader: it may block. A return of (0, io.EOF)
	// signals end of stream; any other non-nil error is sticky and is
	// surfaced to the next consumer call that would otherwise return data.
	Read(p []byte) (n int, err error)

	// Seek behaves like io.Seeker restricted to io.SeekStart semantics; it
	// is only ever called by the producer with whence == io.SeekStart.
	Seek(pos int64, whence int) (int64, error)

	// Size reports the total length of the stream, or a non-positive value
	// (optionally ErrSizeUnknown) when the length is unknown or the source
	// is not seekable.
	Size() (int64, error)

	Close() error

	// IsStreamed reports whether the source should be treated as a live,
	// effectively unseekable stream. Propagated unchanged to callers.
	IsStreamed() bool
}

// SourceOpener opens a Source for a URI. Open calls it once, after stripping
// the "async:" scheme prefix, to obtain the inner source to wrap. The
// interrupt argument is AsyncBuffer's own combined (host-interrupt OR
// abort-flag) predicate, handed down so a Source whose Open/dial step can
// block has something to wire into its own cancellation, mirroring the
// reference design's interrupt-callback wrapping at open time.
type SourceOpener func(uri string, interrupt InterruptFunc) (Source, error)

// InterruptFunc is a caller-supplied predicate polled by both the producer
// and any blocked consumer call. A true return demands prompt termination
// of in-flight operations with ErrInterrupted.
type InterruptFunc func() bool
