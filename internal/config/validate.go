package config

import (
	"errors"
	"fmt"

	"github.com/jackzfdai/wifi-camera/framepool"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePool(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePool() error {
	if c.Pool.Slots < 1 {
		return errors.New("pool.slots must be at least 1")
	}
	if c.Pool.SlotBytes < 1 {
		return errors.New("pool.slot_bytes must be positive")
	}
	if _, err := framepool.ParsePolicy(c.Pool.Policy); err != nil {
		return fmt.Errorf("pool.policy: %q must be overwrite-oldest or block", c.Pool.Policy)
	}
	return nil
}

func (c *Config) validateEncoder() error {
	tables := []struct {
		key    string
		values []int
	}{
		{"encoder.luma_quant", c.Encoder.LumaQuant},
		{"encoder.chroma_quant", c.Encoder.ChromaQuant},
	}
	for _, t := range tables {
		if len(t.values) == 0 {
			continue
		}
		if len(t.values) != len(jpeg.QuantTable{}) {
			return fmt.Errorf("%s must have %d entries, got %d", t.key, len(jpeg.QuantTable{}), len(t.values))
		}
		for i, v := range t.values {
			if v < 1 || v > 255 {
				return fmt.Errorf("%s[%d] = %d must be between 1 and 255", t.key, i, v)
			}
		}
	}
	return nil
}

func (c *Config) validateCapture() error {
	switch c.Capture.Source {
	case SourceSynthetic:
		switch c.Capture.Pattern {
		case "gray", "gradient", "bars":
		default:
			return fmt.Errorf("capture.pattern: unsupported value %q", c.Capture.Pattern)
		}
	case SourceFile:
		if c.Capture.Path == "" {
			return errors.New("capture.path is required for the file source")
		}
	default:
		return fmt.Errorf("capture.source: unsupported value %q", c.Capture.Source)
	}
	if c.Capture.Width < 8 || c.Capture.Height < 8 {
		return errors.New("capture.width and capture.height must be at least 8")
	}
	if c.Capture.Width > jpeg.MaxDimension || c.Capture.Height > jpeg.MaxDimension {
		return fmt.Errorf("capture.width and capture.height must be at most %d", jpeg.MaxDimension)
	}
	if c.Capture.Width%2 != 0 {
		return errors.New("capture.width must be even for YUYV")
	}
	if c.Capture.FPS < 0 {
		return errors.New("capture.fps must not be negative")
	}
	return nil
}

func (c *Config) validateStream() error {
	switch c.Stream.Sink {
	case SinkFile, SinkHTTP, SinkDiscard:
	default:
		return fmt.Errorf("stream.sink: unsupported value %q", c.Stream.Sink)
	}
	if c.Stream.ReadTimeoutMS < 0 {
		return errors.New("stream.read_timeout_ms must not be negative")
	}
	if c.Stream.MaxFrames < 0 {
		return errors.New("stream.max_frames must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
