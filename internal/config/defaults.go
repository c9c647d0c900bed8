package config

const (
	defaultConfigPath    = "~/.config/wificam/config.toml"
	defaultPoolSlots     = 3
	defaultSlotBytes     = 256 << 10
	defaultPoolPolicy    = "overwrite-oldest"
	defaultCaptureSource = SourceSynthetic
	defaultPattern       = "bars"
	defaultWidth         = 640
	defaultHeight        = 480
	defaultFPS           = 15
	defaultSink          = SinkFile
	defaultOutputDir     = "~/.local/share/wificam/frames"
	defaultHTTPBind      = "127.0.0.1:8640"
	defaultReadTimeoutMS = 500
	defaultJournalPath   = "~/.local/share/wificam/journal.db"
	defaultLogDir        = "~/.local/share/wificam/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Capture sources.
const (
	SourceSynthetic = "synthetic"
	SourceFile      = "file"
)

// Stream sinks.
const (
	SinkFile    = "file"
	SinkHTTP    = "http"
	SinkDiscard = "discard"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pool: Pool{
			Slots:     defaultPoolSlots,
			SlotBytes: defaultSlotBytes,
			Policy:    defaultPoolPolicy,
		},
		Capture: Capture{
			Source:  defaultCaptureSource,
			Pattern: defaultPattern,
			Width:   defaultWidth,
			Height:  defaultHeight,
			FPS:     defaultFPS,
			Loop:    true,
		},
		Stream: Stream{
			Sink:          defaultSink,
			OutputDir:     defaultOutputDir,
			HTTPBind:      defaultHTTPBind,
			ReadTimeoutMS: defaultReadTimeoutMS,
		},
		Journal: Journal{
			Enabled: false,
			Path:    defaultJournalPath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Dir:    defaultLogDir,
		},
	}
}
