package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jackzfdai/wifi-camera/framepool"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

//go:embed sample_config.toml
var sampleConfig string

// Pool contains the frame buffer pool shape. It is fixed for the life of a
// run.
type Pool struct {
	Slots      int    `toml:"slots"`
	SlotBytes  int    `toml:"slot_bytes"`
	Policy     string `toml:"policy"`
	LockMemory bool   `toml:"lock_memory"`
}

// Encoder contains optional quantization table overrides, 64 entries each
// in natural order. Empty tables keep the built-in defaults.
type Encoder struct {
	LumaQuant   []int `toml:"luma_quant"`
	ChromaQuant []int `toml:"chroma_quant"`
}

// Capture contains the raw frame source settings.
type Capture struct {
	// Source is "synthetic" or "file".
	Source string `toml:"source"`
	// Pattern selects the synthetic image: "gray", "gradient" or "bars".
	Pattern string `toml:"pattern"`
	// Path is the raw YUYV file replayed by the file source.
	Path   string `toml:"path"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	FPS    int    `toml:"fps"`
	Loop   bool   `toml:"loop"`
}

// Stream contains the consumer side settings.
type Stream struct {
	// Sink is "file", "http" or "discard".
	Sink          string `toml:"sink"`
	OutputDir     string `toml:"output_dir"`
	HTTPBind      string `toml:"http_bind"`
	ReadTimeoutMS int    `toml:"read_timeout_ms"`
	// MaxFrames stops the run after that many frames were produced. Zero
	// runs until interrupted.
	MaxFrames int `toml:"max_frames"`
}

// Journal contains the SQLite frame journal settings.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for wificam.
//
// Configuration sections by subsystem:
//   - Pool: frame buffer count, capacity and overflow policy
//   - Encoder: quantization table overrides
//   - Capture: raw frame source
//   - Stream: where encoded frames go
//   - Journal: per-frame SQLite history
//   - Logging: log format, level and directory
type Config struct {
	Pool    Pool    `toml:"pool"`
	Encoder Encoder `toml:"encoder"`
	Capture Capture `toml:"capture"`
	Stream  Stream  `toml:"stream"`
	Journal Journal `toml:"journal"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wificam.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, log and journal directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir}
	if c.Stream.Sink == SinkFile {
		dirs = append(dirs, c.Stream.OutputDir)
	}
	if c.Journal.Enabled {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PoolConfig converts the [pool] section for framepool.New.
func (c *Config) PoolConfig() framepool.Config {
	policy, err := framepool.ParsePolicy(c.Pool.Policy)
	if err != nil {
		// Validate rejects unknown names; fall back for unvalidated configs.
		policy = framepool.OverwriteOldest
	}
	return framepool.Config{
		Slots:      c.Pool.Slots,
		SlotBytes:  c.Pool.SlotBytes,
		Policy:     policy,
		LockMemory: c.Pool.LockMemory,
	}
}

// EncoderOptions converts the [encoder] section for jpeg.NewEncoder.
func (c *Config) EncoderOptions() *jpeg.Options {
	return &jpeg.Options{
		LumaQuant:   toQuantTable(c.Encoder.LumaQuant),
		ChromaQuant: toQuantTable(c.Encoder.ChromaQuant),
	}
}

func toQuantTable(values []int) *jpeg.QuantTable {
	if len(values) != len(jpeg.QuantTable{}) {
		return nil
	}
	var t jpeg.QuantTable
	for i, v := range values {
		t[i] = uint8(v)
	}
	return &t
}

// ReadTimeout returns stream.read_timeout_ms as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Stream.ReadTimeoutMS) * time.Millisecond
}

// FrameInterval returns the capture period, or zero when capture is not
// paced.
func (c *Config) FrameInterval() time.Duration {
	if c.Capture.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Capture.FPS)
}

// LogPath returns the log file inside logging.dir, or "" when file logging
// is off.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return ""
	}
	return filepath.Join(c.Logging.Dir, "wificam.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
