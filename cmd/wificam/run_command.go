package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jackzfdai/wifi-camera/framepool"
	"github.com/jackzfdai/wifi-camera/internal/capture"
	"github.com/jackzfdai/wifi-camera/internal/config"
	"github.com/jackzfdai/wifi-camera/internal/journal"
	"github.com/jackzfdai/wifi-camera/internal/logging"
	"github.com/jackzfdai/wifi-camera/internal/stream"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		maxFrames int
		sink      string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture, encode and deliver frames until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-frames") {
				cfg.Stream.MaxFrames = maxFrames
			}
			if s := strings.TrimSpace(sink); s != "" {
				cfg.Stream.Sink = strings.ToLower(s)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(runCtx, cfg, logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&maxFrames, "max-frames", "n", 0, "Stop after this many frames (overrides stream.max_frames)")
	cmd.Flags().StringVar(&sink, "sink", "", "Override stream.sink (file, http, discard)")
	return cmd
}

// runSession wires one streaming run and prints its summary to out.
func runSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (err error) {
	sessionID := uuid.NewString()
	logger = logging.WithSession(logger, sessionID)

	pool, err := framepool.New(cfg.PoolConfig(), framepool.WithLogger(logging.NewComponentLogger(logger, "framepool")))
	if err != nil {
		return fmt.Errorf("create frame pool: %w", err)
	}
	defer pool.Close()

	enc, err := jpeg.NewEncoder(cfg.EncoderOptions())
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	w, h := jpeg.EncodedSize(cfg.Capture.Width, cfg.Capture.Height)
	if worst := worstCaseSize(w, h); worst > cfg.Pool.SlotBytes {
		logger.Warn("slot capacity may be too small for detailed frames",
			slog.String("slot", humanize.IBytes(uint64(cfg.Pool.SlotBytes))),
			slog.String("suggested", humanize.IBytes(uint64(worst))),
		)
	}

	src, err := capture.Open(cfg.Capture, cfg.FrameInterval(), logging.NewComponentLogger(logger, "capture"))
	if err != nil {
		return err
	}
	defer src.Close()

	sink, err := stream.OpenSink(cfg.Stream, logging.NewComponentLogger(logger, "sink"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	opts := stream.Options{
		SessionID:   sessionID,
		ReadTimeout: cfg.ReadTimeout(),
		MaxFrames:   cfg.Stream.MaxFrames,
		Logger:      logger,
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		err = store.BeginSession(ctx, journal.Session{
			ID:        sessionID,
			StartedAt: time.Now(),
			Source:    cfg.Capture.Source,
			Sink:      cfg.Stream.Sink,
			Width:     cfg.Capture.Width,
			Height:    cfg.Capture.Height,
			Slots:     cfg.Pool.Slots,
			SlotBytes: cfg.Pool.SlotBytes,
			Policy:    cfg.Pool.Policy,
		})
		if err != nil {
			return err
		}
		opts.Recorder = store
	}

	logger.Info("session started",
		slog.Int("slots", cfg.Pool.Slots),
		slog.String("slot_bytes", humanize.IBytes(uint64(cfg.Pool.SlotBytes))),
		slog.String("policy", cfg.Pool.Policy),
		slog.String("sink", cfg.Stream.Sink),
	)

	res, runErr := stream.New(pool, enc, src, sink, opts).Run(ctx)

	if store != nil {
		totals := journal.Totals{
			Published: res.Pool.Published,
			Dropped:   res.Pool.Dropped,
			Sent:      res.Sent,
			Timeouts:  res.Pool.Timeouts,
			Err:       runErr,
		}
		// ctx may already be cancelled by the signal that ended the run.
		if err := store.FinishSession(context.WithoutCancel(ctx), sessionID, totals); err != nil {
			logger.Warn("journal finish failed", slog.String("error", err.Error()))
		}
	}

	status := sessionStatus(ctx, runErr)
	logger.Info("session finished",
		slog.String("status", status),
		slog.Uint64("sent", res.Sent),
		slog.Uint64("dropped", res.Pool.Dropped),
		slog.Duration("elapsed", res.Elapsed),
	)
	fmt.Fprintln(out, renderRunSummary(sessionID, status, res))
	return runErr
}

// worstCaseSize is a generous bound on a baseline 4:2:0 frame: headers plus
// 1.5 bytes per pixel.
func worstCaseSize(w, h int) int {
	return 1024 + w*h*3/2
}

func sessionStatus(ctx context.Context, err error) string {
	switch {
	case err != nil:
		return "failed"
	case ctx.Err() != nil:
		return "interrupted"
	default:
		return "completed"
	}
}

func renderRunSummary(sessionID, status string, res stream.Result) string {
	title := cases.Title(language.Und)
	fps := 0.0
	if secs := res.Elapsed.Seconds(); secs > 0 {
		fps = float64(res.Sent) / secs
	}
	return renderKeyValues([][2]string{
		{"Session", sessionID},
		{"Status", title.String(status)},
		{"Elapsed", res.Elapsed.Round(time.Millisecond).String()},
		{"Captured", humanize.Comma(int64(res.Captured))},
		{"Published", humanize.Comma(int64(res.Pool.Published))},
		{"Sent", humanize.Comma(int64(res.Sent))},
		{"Dropped", humanize.Comma(int64(res.Pool.Dropped))},
		{"Encode failures", humanize.Comma(int64(res.Failed))},
		{"Read timeouts", humanize.Comma(int64(res.Pool.Timeouts))},
		{"Delivered fps", humanize.FtoaWithDigits(fps, 1)},
	})
}
