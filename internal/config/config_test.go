package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jackzfdai/wifi-camera/framepool"
	"github.com/jackzfdai/wifi-camera/internal/config"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "wificam", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOut := filepath.Join(tempHome, ".local", "share", "wificam", "frames")
	if cfg.Stream.OutputDir != wantOut {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Stream.OutputDir, wantOut)
	}
	if cfg.LogPath() != filepath.Join(tempHome, ".local", "share", "wificam", "logs", "wificam.log") {
		t.Fatalf("unexpected log path: %q", cfg.LogPath())
	}
	if cfg.Pool.Slots != 3 || cfg.Pool.Policy != "overwrite-oldest" {
		t.Fatalf("unexpected pool defaults: %+v", cfg.Pool)
	}
	if cfg.Journal.Enabled {
		t.Fatal("expected journal disabled by default")
	}
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wificam.toml")
	contents := `
[pool]
slots = 5
slot_bytes = 65536
policy = "  BLOCK "

[capture]
source = "file"
path = "` + filepath.ToSlash(filepath.Join(dir, "frames.yuv")) + `"
width = 320
height = 240
fps = 0

[stream]
sink = "discard"
read_timeout_ms = 20
max_frames = 10

[logging]
format = "JSON"
level = "Debug"
dir = ""
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	pc := cfg.PoolConfig()
	if pc.Slots != 5 || pc.SlotBytes != 65536 || pc.Policy != framepool.Block {
		t.Fatalf("unexpected pool config: %+v", pc)
	}
	if cfg.Capture.Source != config.SourceFile || cfg.Capture.Width != 320 {
		t.Fatalf("unexpected capture config: %+v", cfg.Capture)
	}
	if cfg.FrameInterval() != 0 {
		t.Fatalf("expected unpaced capture, got %v", cfg.FrameInterval())
	}
	if cfg.ReadTimeout() != 20*time.Millisecond {
		t.Fatalf("unexpected read timeout %v", cfg.ReadTimeout())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.LogPath() != "" {
		t.Fatalf("expected file logging off, got %q", cfg.LogPath())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wificam.toml")
	if err := os.WriteFile(path, []byte("[pool]\nslotz = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "slotz") {
		t.Fatalf("expected error naming the unknown key, got %v", err)
	}
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wificam.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"XML\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), `"xml"`) {
		t.Fatalf("expected logging.format error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	// The sample must decode and carry the defaults.
	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Pool != def.Pool || cfg.Capture != def.Capture || cfg.Stream != def.Stream {
		t.Fatalf("sample differs from defaults:\n%+v\n%+v", cfg, def)
	}

	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if loaded.EncoderOptions().LumaQuant != nil {
		t.Fatal("empty sample table should keep the built-in luma table")
	}
}

func TestEncoderOptions(t *testing.T) {
	cfg := config.Default()
	for i := 0; i < 64; i++ {
		cfg.Encoder.LumaQuant = append(cfg.Encoder.LumaQuant, i+1)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	opts := cfg.EncoderOptions()
	if opts.LumaQuant == nil || opts.LumaQuant[63] != 64 {
		t.Fatalf("luma table not converted: %v", opts.LumaQuant)
	}
	if opts.ChromaQuant != nil {
		t.Fatal("chroma table should be nil")
	}
	if _, err := jpeg.NewEncoder(opts); err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Stream.OutputDir = filepath.Join(dir, "frames")
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(dir, "db", "journal.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, want := range []string{"frames", "logs", "db"} {
		if info, err := os.Stat(filepath.Join(dir, want)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", want, err)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(*config.Config)
	}{
		{"no slots", func(c *config.Config) { c.Pool.Slots = 0 }},
		{"no capacity", func(c *config.Config) { c.Pool.SlotBytes = 0 }},
		{"bad policy", func(c *config.Config) { c.Pool.Policy = "newest" }},
		{"short quant table", func(c *config.Config) { c.Encoder.ChromaQuant = []int{1, 2, 3} }},
		{"zero quant entry", func(c *config.Config) {
			c.Encoder.LumaQuant = make([]int, 64)
		}},
		{"unknown source", func(c *config.Config) { c.Capture.Source = "v4l2" }},
		{"unknown pattern", func(c *config.Config) { c.Capture.Pattern = "noise" }},
		{"file source without path", func(c *config.Config) { c.Capture.Source = config.SourceFile }},
		{"tiny frame", func(c *config.Config) { c.Capture.Width = 6 }},
		{"odd width", func(c *config.Config) { c.Capture.Width = 641 }},
		{"huge frame", func(c *config.Config) { c.Capture.Height = 1 << 16 }},
		{"negative fps", func(c *config.Config) { c.Capture.FPS = -1 }},
		{"unknown sink", func(c *config.Config) { c.Stream.Sink = "udp" }},
		{"negative timeout", func(c *config.Config) { c.Stream.ReadTimeoutMS = -1 }},
		{"negative max frames", func(c *config.Config) { c.Stream.MaxFrames = -1 }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range testCases {
		cfg := config.Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.desc)
		}
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
}
