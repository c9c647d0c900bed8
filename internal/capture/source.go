package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzfdai/wifi-camera/internal/config"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

// ErrExhausted is returned by Next once a non-looping source has delivered
// its last frame.
var ErrExhausted = errors.New("capture: source exhausted")

// Source yields raw YUYV frames. The frame returned by Next stays valid until
// the following call to Next or Close.
type Source interface {
	Next(ctx context.Context) (*jpeg.Frame, error)
	Close() error
}

// Open builds the source described by the [capture] section.
func Open(cfg config.Capture, interval time.Duration, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var (
		src Source
		err error
	)
	switch cfg.Source {
	case config.SourceSynthetic:
		src, err = NewSynthetic(cfg.Pattern, cfg.Width, cfg.Height)
	case config.SourceFile:
		src, err = OpenFile(cfg.Path, cfg.Width, cfg.Height, cfg.Loop)
	default:
		return nil, fmt.Errorf("capture: unknown source %q", cfg.Source)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("capture source opened",
		slog.String("source", cfg.Source),
		slog.Int("width", cfg.Width),
		slog.Int("height", cfg.Height),
		slog.Duration("interval", interval),
	)
	if interval > 0 {
		src = Paced(src, interval)
	}
	return src, nil
}

// pacedSource delivers at most one frame per interval.
type pacedSource struct {
	Source
	ticker *time.Ticker
	primed bool
}

// Paced wraps src so that Next returns no faster than once per interval. The
// first frame is returned immediately.
func Paced(src Source, interval time.Duration) Source {
	return &pacedSource{Source: src, ticker: time.NewTicker(interval)}
}

func (p *pacedSource) Next(ctx context.Context) (*jpeg.Frame, error) {
	if p.primed {
		select {
		case <-p.ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.primed = true
	return p.Source.Next(ctx)
}

func (p *pacedSource) Close() error {
	p.ticker.Stop()
	return p.Source.Close()
}
