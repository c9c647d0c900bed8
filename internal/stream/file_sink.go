package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrOutputLocked is returned when another wificam process writes to the
// same output directory.
var ErrOutputLocked = errors.New("stream: output directory is locked by another process")

const lockFileName = ".wificam.lock"

// FileSink writes each frame to <dir>/frame-<seq>.jpg. It holds an exclusive
// lock on the directory while open.
type FileSink struct {
	dir  string
	lock *flock.Flock
}

// NewFileSink creates dir if needed and locks it.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("stream: create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("stream: acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, dir)
	}
	return &FileSink{dir: dir, lock: lock}, nil
}

// FramePath returns the file a frame with the given sequence number is
// written to.
func (s *FileSink) FramePath(seq uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("frame-%08d.jpg", seq))
}

// Send writes the frame through a temporary file so readers never see a
// partial JPEG.
func (s *FileSink) Send(ctx context.Context, seq uint64, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	final := s.FramePath(seq)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, frame, 0o644); err != nil {
		return fmt.Errorf("stream: write frame %d: %w", seq, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stream: publish frame %d: %w", seq, err)
	}
	return nil
}

// Close releases the directory lock.
func (s *FileSink) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("stream: release output lock: %w", err)
	}
	return nil
}
