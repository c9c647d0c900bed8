package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jackzfdai/wifi-camera/internal/stream"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var (
		in       string
		out      string
		width    int
		height   int
		index    int
		hostPort string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode one raw YUYV frame as a baseline JPEG",
		Long: "Encode one raw YUYV frame as a baseline JPEG. With --http the result is\n" +
			"also served until interrupted, which is handy for checking it in a browser.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(in) == "" || strings.TrimSpace(out) == "" {
				return errors.New("input and output file paths must be specified")
			}
			if width == 0 {
				width = cfg.Capture.Width
			}
			if height == 0 {
				height = cfg.Capture.Height
			}
			if width < 2 || height < 1 || width%2 != 0 {
				return fmt.Errorf("invalid frame size %dx%d", width, height)
			}

			frame, err := readRawFrame(in, width, height, index)
			if err != nil {
				return err
			}
			enc, err := jpeg.NewEncoder(cfg.EncoderOptions())
			if err != nil {
				return fmt.Errorf("create encoder: %w", err)
			}
			w, h := jpeg.EncodedSize(width, height)
			dst := make([]byte, worstCaseSize(w, h))
			n, err := enc.Encode(dst, frame)
			if err != nil {
				return fmt.Errorf("can't encode %s: %w", in, err)
			}
			if err := os.WriteFile(out, dst[:n], 0o644); err != nil {
				return fmt.Errorf("can't write output %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d JPEG (%s) to %s\n", w, h, humanize.IBytes(uint64(n)), out)

			if hostPort == "" {
				return nil
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			sink := stream.NewHTTPSink(logger)
			if err := sink.Send(cmd.Context(), 1, dst[:n]); err != nil {
				return err
			}
			if err := sink.Start(hostPort); err != nil {
				return err
			}
			defer sink.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s/\n", out, sink.Addr())

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-sigCtx.Done()
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "input", "i", "", "Raw YUYV input file")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output JPEG file")
	cmd.Flags().IntVar(&width, "width", 0, "Frame width (defaults to capture.width)")
	cmd.Flags().IntVar(&height, "height", 0, "Frame height (defaults to capture.height)")
	cmd.Flags().IntVar(&index, "frame", 0, "Index of the frame to encode when the file holds several")
	cmd.Flags().StringVar(&hostPort, "http", "", "Host and port to serve the output on")
	return cmd
}

func readRawFrame(path string, width, height, index int) (*jpeg.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open input %s: %w", path, err)
	}
	defer file.Close()

	frame := jpeg.NewFrame(width, height)
	size := int64(len(frame.Pix))
	if index < 0 {
		return nil, fmt.Errorf("invalid frame index %d", index)
	}
	if _, err := file.Seek(int64(index)*size, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to frame %d: %w", index, err)
	}
	if _, err := io.ReadFull(file, frame.Pix); err != nil {
		return nil, fmt.Errorf("%s has no complete %dx%d frame at index %d: %w", path, width, height, index, err)
	}
	return frame, nil
}
