package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizePool()
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	if err := c.normalizeStream(); err != nil {
		return err
	}
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizePool() {
	c.Pool.Policy = strings.ToLower(strings.TrimSpace(c.Pool.Policy))
	if c.Pool.Policy == "" {
		c.Pool.Policy = defaultPoolPolicy
	}
}

func (c *Config) normalizeCapture() error {
	c.Capture.Source = strings.ToLower(strings.TrimSpace(c.Capture.Source))
	if c.Capture.Source == "" {
		c.Capture.Source = defaultCaptureSource
	}
	c.Capture.Pattern = strings.ToLower(strings.TrimSpace(c.Capture.Pattern))
	if c.Capture.Pattern == "" {
		c.Capture.Pattern = defaultPattern
	}
	var err error
	if c.Capture.Path, err = expandPath(strings.TrimSpace(c.Capture.Path)); err != nil {
		return fmt.Errorf("capture.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeStream() error {
	c.Stream.Sink = strings.ToLower(strings.TrimSpace(c.Stream.Sink))
	if c.Stream.Sink == "" {
		c.Stream.Sink = defaultSink
	}
	if strings.TrimSpace(c.Stream.OutputDir) == "" {
		c.Stream.OutputDir = defaultOutputDir
	}
	var err error
	if c.Stream.OutputDir, err = expandPath(c.Stream.OutputDir); err != nil {
		return fmt.Errorf("stream.output_dir: %w", err)
	}
	c.Stream.HTTPBind = strings.TrimSpace(c.Stream.HTTPBind)
	if c.Stream.HTTPBind == "" {
		c.Stream.HTTPBind = defaultHTTPBind
	}
	return nil
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
