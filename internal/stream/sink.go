package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzfdai/wifi-camera/internal/config"
)

// Sink receives encoded frames from the consumer. frame aliases pool memory
// and is only valid for the duration of Send; sinks that keep it must copy.
type Sink interface {
	Send(ctx context.Context, seq uint64, frame []byte) error
	Close() error
}

// OpenSink builds the sink named by the [stream] section.
func OpenSink(cfg config.Stream, logger *slog.Logger) (Sink, error) {
	switch cfg.Sink {
	case config.SinkFile:
		return NewFileSink(cfg.OutputDir)
	case config.SinkHTTP:
		s := NewHTTPSink(logger)
		if err := s.Start(cfg.HTTPBind); err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkDiscard:
		return DiscardSink{}, nil
	default:
		return nil, fmt.Errorf("stream: unknown sink %q", cfg.Sink)
	}
}

// DiscardSink accepts and drops every frame.
type DiscardSink struct{}

func (DiscardSink) Send(context.Context, uint64, []byte) error { return nil }
func (DiscardSink) Close() error                               { return nil }
