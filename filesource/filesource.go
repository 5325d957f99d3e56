// Package filesource adapts *os.File to async_buffer_go.Source, the
// realistic inner source an "async:file:..." URI would resolve to.
package filesource

import (
	"os"

	asyncbuffer "github.com/sushydev/async_buffer_go"
)

var _ asyncbuffer.Source = (*Source)(nil)

// Source wraps an open regular file.
type Source struct {
	f *os.File
}

// Open opens path for reading and wraps it as a Source. It is meant to be
// used as (or from) an async_buffer_go.SourceOpener:
//
//	opener := func(uri string, _ asyncbuffer.InterruptFunc) (asyncbuffer.Source, error) {
//	    return filesource.Open(uri)
//	}
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Source{f: f}, nil
}

func (s *Source) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *Source) Seek(pos int64, whence int) (int64, error) {
	return s.f.Seek(pos, whence)
}

func (s *Source) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *Source) Close() error {
	return s.f.Close()
}

func (s *Source) IsStreamed() bool {
	return false
}
