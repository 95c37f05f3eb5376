package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ffmpegSource streams rawvideo rgb24 frames from an ffmpeg child process.
type ffmpegSource struct {
	meta    Meta
	opts    Options
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	reader  *bufio.Reader
	buf     []byte // one frame of rgb24 bytes, reused across reads
	idx     int    // index of the next frame to read from the stream
	targets map[int]struct{}
	done    bool

	closeOnce sync.Once
	closeErr  error
}

// Open probes the video at path and starts decoding it according to opts.
// A failure to probe or start the decoder is fatal for the whole pipeline.
func Open(ctx context.Context, path string, opts Options) (Source, error) {
	if path == "" {
		return nil, errors.New("empty video path")
	}
	if opts.Stride <= 0 {
		opts.Stride = 1
	}

	meta, err := probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("cannot open video %s: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot open video %s: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot open video %s: %w", path, err)
	}

	s := &ffmpegSource{
		meta:   meta,
		opts:   opts,
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 1<<20),
		buf:    make([]byte, meta.Width*meta.Height*3),
	}
	if len(opts.TimestampsMS) > 0 {
		s.targets = make(map[int]struct{}, len(opts.TimestampsMS))
		for _, ts := range opts.TimestampsMS {
			s.targets[TimestampToIndex(ts, meta.FPS)] = struct{}{}
		}
	}

	slog.Debug("video source opened",
		"path", path,
		"width", meta.Width,
		"height", meta.Height,
		"fps", meta.FPS,
		"frames", meta.FrameCount,
		"timestamp_mode", s.targets != nil)
	return s, nil
}

func (s *ffmpegSource) Meta() Meta { return s.meta }

// Next yields the next materialized frame, honoring the sampling policy.
func (s *ffmpegSource) Next() (*Frame, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.targets != nil {
		return s.nextTarget()
	}
	return s.nextStride()
}

// nextStride materializes every Stride-th frame; other frames are discarded
// into the reusable byte buffer without image allocation.
func (s *ffmpegSource) nextStride() (*Frame, error) {
	for {
		idx := s.idx
		sample := idx%s.opts.Stride == 0
		if err := s.readFrame(!sample); err != nil {
			s.done = true
			return nil, err
		}
		s.idx++
		if sample {
			return s.materialize(idx), nil
		}
	}
}

// nextTarget materializes exactly the requested frame indices and terminates
// the decoder as soon as the last one has been produced.
func (s *ffmpegSource) nextTarget() (*Frame, error) {
	for {
		if len(s.targets) == 0 {
			s.done = true
			_ = s.Close()
			return nil, io.EOF
		}
		idx := s.idx
		_, want := s.targets[idx]
		if err := s.readFrame(!want); err != nil {
			s.done = true
			return nil, err
		}
		s.idx++
		if want {
			delete(s.targets, idx)
			return s.materialize(idx), nil
		}
	}
}

// readFrame reads one frame worth of bytes from the decoder. When discard is
// true the bytes are thrown away chunk-wise instead of filling the buffer.
func (s *ffmpegSource) readFrame(discard bool) error {
	if discard {
		scratch := len(s.buf)
		if scratch > 64*1024 {
			scratch = 64 * 1024
		}
		if err := drain(s.reader, s.buf[:scratch], len(s.buf)); err != nil {
			return eofOr(err)
		}
		return nil
	}
	if _, err := io.ReadFull(s.reader, s.buf); err != nil {
		return eofOr(err)
	}
	return nil
}

// materialize converts the current rgb24 buffer into an NRGBA frame.
func (s *ffmpegSource) materialize(idx int) *Frame {
	w, h := s.meta.Width, s.meta.Height
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range w * h {
		img.Pix[i*4] = s.buf[i*3]
		img.Pix[i*4+1] = s.buf[i*3+1]
		img.Pix[i*4+2] = s.buf[i*3+2]
		img.Pix[i*4+3] = 255
	}
	fps := s.meta.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Frame{
		Image:       img,
		Index:       idx,
		TimestampMS: int64(float64(idx) / fps * 1000.0),
	}
}

// Close terminates the decoder process and releases its pipes. Safe to call
// multiple times and on every exit path.
func (s *ffmpegSource) Close() error {
	s.closeOnce.Do(func() {
		if s.stdout != nil {
			_ = s.stdout.Close()
		}
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		if s.cmd != nil {
			// The process is expected to exit with an error after Kill or a
			// closed pipe; that is not a decode failure.
			_ = s.cmd.Wait()
		}
	})
	return s.closeErr
}

func eofOr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return io.EOF
	}
	return err
}

// probe runs ffprobe to read stream geometry, frame rate and frame count.
func probe(ctx context.Context, path string) (Meta, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Meta{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	meta := Meta{FPS: DefaultFPS}
	for _, line := range strings.Split(string(out), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "width":
			meta.Width, _ = strconv.Atoi(value)
		case "height":
			meta.Height, _ = strconv.Atoi(value)
		case "r_frame_rate":
			if fps := parseFrameRate(value); fps > 0 {
				meta.FPS = fps
			}
		case "nb_frames":
			meta.FrameCount, _ = strconv.ParseInt(value, 10, 64)
		}
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return Meta{}, fmt.Errorf("invalid stream geometry %dx%d", meta.Width, meta.Height)
	}
	return meta, nil
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001", "25/1").
func parseFrameRate(value string) float64 {
	num, den, found := strings.Cut(value, "/")
	if !found {
		fps, _ := strconv.ParseFloat(value, 64)
		return fps
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
