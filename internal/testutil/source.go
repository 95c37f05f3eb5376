package testutil

import (
	"io"

	"github.com/tallyvid/tallyvid/internal/video"
)

// FakeSource replays a fixed list of frames and then reports io.EOF.
type FakeSource struct {
	MetaValue video.Meta
	Frames    []*video.Frame

	next   int
	Closed bool
}

// Meta returns the scripted stream metadata.
func (s *FakeSource) Meta() video.Meta { return s.MetaValue }

// Next yields the next scripted frame.
func (s *FakeSource) Next() (*video.Frame, error) {
	if s.next >= len(s.Frames) {
		return nil, io.EOF
	}
	f := s.Frames[s.next]
	s.next++
	return f, nil
}

// Close records that the source was closed.
func (s *FakeSource) Close() error {
	s.Closed = true
	return nil
}
