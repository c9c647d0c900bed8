package main

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzfdai/wifi-camera/internal/journal"
)

type cliTestEnv struct {
	base       string
	configPath string
	outputDir  string
	journal    string
}

func setupCLITestEnv(t *testing.T, sink string, extra string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	env := &cliTestEnv{
		base:       base,
		configPath: filepath.Join(base, "wificam.toml"),
		outputDir:  filepath.Join(base, "frames"),
		journal:    filepath.Join(base, "journal.db"),
	}
	content := fmt.Sprintf(`[pool]
slots = 2
slot_bytes = 65536
policy = "block"

[capture]
source = "synthetic"
pattern = "gradient"
width = 32
height = 32
fps = 0

[stream]
sink = %q
output_dir = %q
read_timeout_ms = 10
max_frames = 5

[journal]
enabled = true
path = %q

[logging]
level = "error"
dir = ""
%s`, sink, env.outputDir, env.journal, extra)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "discard", "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	// The generated sample loads on its own.
	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t, "file", "")
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Pool memory")
	requireContains(t, out, "128 KiB")
	requireContains(t, out, "synthetic (gradient)")
	requireContains(t, out, "unpaced")
	requireContains(t, out, env.outputDir)
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t, "carrier-pigeon", "")
	if _, _, err := runCLI(t, []string{"config", "show"}, env.configPath); err == nil {
		t.Fatal("expected error for invalid sink")
	}
}

func TestEncodeCommand(t *testing.T) {
	env := setupCLITestEnv(t, "discard", "")
	raw := filepath.Join(env.base, "two.yuv")
	frame := bytes.Repeat([]byte{60, 128}, 32*16)
	if err := os.WriteFile(raw, append(bytes.Repeat([]byte{200, 128}, 32*16), frame...), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	outPath := filepath.Join(env.base, "frame.jpg")

	out, _, err := runCLI(t, []string{
		"encode", "-i", raw, "-o", outPath, "--width", "32", "--height", "16", "--frame", "1",
	}, env.configPath)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	requireContains(t, out, "Wrote 32x16 JPEG")

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Fatalf("unexpected bounds %v", b)
	}
	r, _, _, _ := img.At(5, 5).RGBA()
	// Luma 60 with neutral chroma decodes to a dark gray, not the 200 of frame 0.
	if v := r >> 8; v < 40 || v > 80 {
		t.Fatalf("decoded the wrong frame, red = %d", v)
	}

	if _, _, err := runCLI(t, []string{
		"encode", "-i", raw, "-o", outPath, "--width", "32", "--height", "16", "--frame", "2",
	}, env.configPath); err == nil {
		t.Fatal("expected error for missing frame index")
	}
	if _, _, err := runCLI(t, []string{"encode", "-o", outPath}, env.configPath); err == nil {
		t.Fatal("expected error without input")
	}
}

func TestRunWritesFramesAndJournal(t *testing.T) {
	env := setupCLITestEnv(t, "file", "")

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Completed")

	for seq := 1; seq <= 5; seq++ {
		path := filepath.Join(env.outputDir, fmt.Sprintf("frame-%08d.jpg", seq))
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open frame %d: %v", seq, err)
		}
		cfg, err := jpeg.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode frame %d: %v", seq, err)
		}
		if cfg.Width != 32 || cfg.Height != 32 {
			t.Fatalf("frame %d is %dx%d", seq, cfg.Width, cfg.Height)
		}
	}

	store, err := journal.Open(env.journal)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	sessions, err := store.Sessions(context.Background(), 0)
	store.Close()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Sent != 5 || sessions[0].Published != 5 || sessions[0].FinishedAt == nil {
		t.Fatalf("unexpected journal sessions %#v", sessions)
	}
	id := sessions[0].ID
	requireContains(t, out, id)

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, id)
	requireContains(t, out, "Finished")

	out, _, err = runCLI(t, []string{"history", id, "--limit", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("history %s: %v", id, err)
	}
	requireContains(t, out, "Session "+id)
	if strings.Contains(out, "│   3 │") || !strings.Contains(out, "│   5 │") {
		t.Fatalf("expected only the last two frames:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"history", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestRunFlagOverrides(t *testing.T) {
	env := setupCLITestEnv(t, "file", "")
	out, _, err := runCLI(t, []string{"run", "--sink", "discard", "-n", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Completed")
	if entries, _ := os.ReadDir(env.outputDir); len(entries) != 0 {
		t.Fatalf("discard run wrote %d files", len(entries))
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Discard")
}
