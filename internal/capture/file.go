package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackzfdai/wifi-camera/jpeg"
)

// FileSource replays back-to-back raw YUYV frames from a file. A trailing
// partial frame is ignored.
type FileSource struct {
	f     *os.File
	r     *bufio.Reader
	frame *jpeg.Frame
	loop  bool
	// read counts whole frames delivered since the last rewind.
	read int
}

// OpenFile opens path as a sequence of width x height frames.
func OpenFile(path string, width, height int, loop bool) (*FileSource, error) {
	if width < 2 || height < 1 || width%2 != 0 {
		return nil, fmt.Errorf("capture: invalid frame size %dx%d", width, height)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open raw file: %w", err)
	}
	frame := jpeg.NewFrame(width, height)
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("capture: stat raw file: %w", err)
	}
	if info.Size() < int64(len(frame.Pix)) {
		f.Close()
		return nil, fmt.Errorf("capture: %s holds %d bytes, less than one %dx%d frame",
			path, info.Size(), width, height)
	}
	return &FileSource{
		f:     f,
		r:     bufio.NewReaderSize(f, len(frame.Pix)),
		frame: frame,
		loop:  loop,
	}, nil
}

// Next reads the next frame, rewinding at end of file when looping.
func (s *FileSource) Next(ctx context.Context) (*jpeg.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, err := io.ReadFull(s.r, s.frame.Pix)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if !s.loop || s.read == 0 {
			return nil, ErrExhausted
		}
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("capture: rewind raw file: %w", err)
		}
		s.r.Reset(s.f)
		s.read = 0
		_, err = io.ReadFull(s.r, s.frame.Pix)
	}
	if err != nil {
		return nil, fmt.Errorf("capture: read frame: %w", err)
	}
	s.read++
	return s.frame, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}
