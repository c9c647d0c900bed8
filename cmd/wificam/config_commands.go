package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jackzfdai/wifi-camera/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(configPairs(cfg, ctx.configPath)))
			return nil
		},
	}
}

func configPairs(cfg *config.Config, path string) [][2]string {
	quant := func(values []int) string {
		if len(values) == 0 {
			return "built-in"
		}
		return "custom"
	}
	fps := "unpaced"
	if cfg.Capture.FPS > 0 {
		fps = strconv.Itoa(cfg.Capture.FPS)
	}
	source := cfg.Capture.Source
	switch cfg.Capture.Source {
	case config.SourceSynthetic:
		source += " (" + cfg.Capture.Pattern + ")"
	case config.SourceFile:
		source += " (" + filepath.Base(cfg.Capture.Path) + ", loop " + yesNo(cfg.Capture.Loop) + ")"
	}
	sink := cfg.Stream.Sink
	switch cfg.Stream.Sink {
	case config.SinkFile:
		sink += " at " + cfg.Stream.OutputDir
	case config.SinkHTTP:
		sink += " at http://" + cfg.Stream.HTTPBind + "/"
	}
	maxFrames := "unlimited"
	if cfg.Stream.MaxFrames > 0 {
		maxFrames = humanize.Comma(int64(cfg.Stream.MaxFrames))
	}
	journalState := "disabled"
	if cfg.Journal.Enabled {
		journalState = cfg.Journal.Path
	}
	logPath := cfg.LogPath()
	if logPath == "" {
		logPath = "stderr only"
	}

	return [][2]string{
		{"Config file", path},
		{"Pool slots", strconv.Itoa(cfg.Pool.Slots)},
		{"Slot capacity", humanize.IBytes(uint64(cfg.Pool.SlotBytes))},
		{"Pool memory", humanize.IBytes(uint64(cfg.Pool.Slots * cfg.Pool.SlotBytes))},
		{"Overflow policy", cfg.Pool.Policy},
		{"Lock memory", yesNo(cfg.Pool.LockMemory)},
		{"Luma table", quant(cfg.Encoder.LumaQuant)},
		{"Chroma table", quant(cfg.Encoder.ChromaQuant)},
		{"Source", source},
		{"Frame size", fmt.Sprintf("%dx%d", cfg.Capture.Width, cfg.Capture.Height)},
		{"Frame rate", fps},
		{"Sink", sink},
		{"Read timeout", cfg.ReadTimeout().String()},
		{"Max frames", maxFrames},
		{"Journal", journalState},
		{"Log level", cfg.Logging.Level},
		{"Log format", cfg.Logging.Format},
		{"Log file", logPath},
	}
}
