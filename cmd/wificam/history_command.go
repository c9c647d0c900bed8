package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jackzfdai/wifi-camera/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit     int
		pruneDays int
	)
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List journaled sessions, or the frames of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -pruneDays)
				n, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d sessions started before %s\n", n, cutoff.Format(time.DateOnly))
				return nil
			}
			if len(args) == 1 {
				return printSessionFrames(cmd.Context(), store, args[0], limit, cmd)
			}

			sessions, err := store.Sessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			fmt.Fprintln(out, renderSessions(sessions, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete sessions older than this many days instead of listing")
	return cmd
}

func renderSessions(sessions []journal.Session, now time.Time) string {
	title := cases.Title(language.Und)
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		status := "running"
		if s.FinishedAt != nil {
			status = "finished"
			if s.Error != "" {
				status = "failed"
			}
		}
		rows = append(rows, []string{
			s.ID,
			humanize.RelTime(s.StartedAt, now, "ago", "from now"),
			title.String(status),
			fmt.Sprintf("%dx%d", s.Width, s.Height),
			title.String(s.Sink),
			humanize.Comma(int64(s.Published)),
			humanize.Comma(int64(s.Sent)),
			humanize.Comma(int64(s.Dropped)),
		})
	}
	return renderTable(
		[]string{"Session", "Started", "Status", "Size", "Sink", "Published", "Sent", "Dropped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func printSessionFrames(ctx context.Context, store *journal.Store, id string, limit int, cmd *cobra.Command) error {
	sess, err := store.Session(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", id)
	}
	frames, err := store.Frames(ctx, id)
	if err != nil {
		return err
	}
	if limit > 0 && len(frames) > limit {
		frames = frames[len(frames)-limit:]
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: %s %dx%d, %d slots of %s (%s)\n",
		sess.ID, sess.Source, sess.Width, sess.Height, sess.Slots,
		humanize.IBytes(uint64(sess.SlotBytes)), sess.Policy)
	if sess.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", sess.Error)
	}

	rows := make([][]string, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, []string{
			strconv.FormatUint(f.Seq, 10),
			strconv.Itoa(f.Slot),
			humanize.IBytes(uint64(f.Bytes)),
			f.Encode.Round(time.Microsecond).String(),
			f.SentAt.Local().Format(time.TimeOnly),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Seq", "Slot", "Size", "Encode", "Sent"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}
