// Package video decodes a video file into a lazy, single-pass sequence of
// frames. Decoding is delegated to an external ffmpeg process streaming raw
// RGB frames; ffprobe supplies the stream geometry and frame rate.
package video

import (
	"image"
	"io"
)

// DefaultFPS is assumed when the container does not report a frame rate.
const DefaultFPS = 30.0

// Frame is a single decoded video frame. It is owned by the consumer for the
// duration of one pipeline step and is never persisted.
type Frame struct {
	Image       *image.NRGBA
	Index       int
	TimestampMS int64
}

// Meta describes the probed video stream.
type Meta struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int64 // 0 when the container does not report it
}

// Source yields frames one at a time. Next returns io.EOF once the sampling
// policy is exhausted or the stream ends. Close must be called on every exit
// path; it is safe to call more than once.
type Source interface {
	Meta() Meta
	Next() (*Frame, error)
	Close() error
}

// Options control which frames a Source materializes.
//
// Exactly one sampling mode applies: when TimestampsMS is non-empty the
// source decodes only the frames nearest those timestamps and terminates as
// soon as all of them have been produced; otherwise every Stride-th frame is
// materialized and the rest are discarded without allocation.
type Options struct {
	Stride       int
	TimestampsMS []int64
}

// TimestampToIndex converts a millisecond timestamp to a frame index using
// the stream frame rate.
func TimestampToIndex(tsMS int64, fps float64) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return int(float64(tsMS)/1000.0*fps + 0.5)
}

// drain reads and discards exactly n bytes from r.
func drain(r io.Reader, buf []byte, n int) error {
	for n > 0 {
		chunk := len(buf)
		if n < chunk {
			chunk = n
		}
		read, err := io.ReadFull(r, buf[:chunk])
		n -= read
		if err != nil {
			return err
		}
	}
	return nil
}
