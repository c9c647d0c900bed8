package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jackzfdai/wifi-camera/internal/journal"
)

func mustOpen(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "db", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(id string, started time.Time) journal.Session {
	return journal.Session{
		ID:        id,
		StartedAt: started,
		Source:    "synthetic",
		Sink:      "file",
		Width:     640,
		Height:    480,
		Slots:     3,
		SlotBytes: 256 << 10,
		Policy:    "overwrite-oldest",
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.BeginSession(ctx, sampleSession("s1", started)); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	sess, err := store.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess == nil || sess.FinishedAt != nil || !sess.StartedAt.Equal(started) {
		t.Fatalf("unexpected open session %#v", sess)
	}

	for seq := uint64(1); seq <= 3; seq++ {
		err := store.RecordFrame(ctx, journal.Frame{
			SessionID: "s1",
			Seq:       seq,
			Slot:      int(seq % 3),
			Bytes:     1000 + int(seq),
			Encode:    1500 * time.Microsecond,
		})
		if err != nil {
			t.Fatalf("RecordFrame %d: %v", seq, err)
		}
	}

	err = store.FinishSession(ctx, "s1", journal.Totals{
		Published: 10, Dropped: 7, Sent: 3, Timeouts: 2,
		Err: errors.New("sink closed"),
	})
	if err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	sess, err = store.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.FinishedAt == nil || sess.Published != 10 || sess.Dropped != 7 || sess.Sent != 3 || sess.Timeouts != 2 {
		t.Fatalf("unexpected finished session %#v", sess)
	}
	if sess.Error != "sink closed" {
		t.Fatalf("unexpected error message %q", sess.Error)
	}

	frames, err := store.Frames(ctx, "s1")
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint64(i+1) || f.Bytes != 1001+i || f.Encode != 1500*time.Microsecond {
			t.Fatalf("unexpected frame %d: %#v", i, f)
		}
		if f.SentAt.IsZero() {
			t.Fatalf("frame %d has no timestamp", i)
		}
	}
}

func TestSessionMissing(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	sess, err := store.Session(ctx, "nope")
	if err != nil || sess != nil {
		t.Fatalf("expected nil session, got %#v, %v", sess, err)
	}
	if err := store.FinishSession(ctx, "nope", journal.Totals{}); err == nil {
		t.Fatal("expected error finishing unknown session")
	}
	if err := store.BeginSession(ctx, journal.Session{}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestDuplicateFrameRejected(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()
	if err := store.BeginSession(ctx, sampleSession("s1", time.Now())); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	f := journal.Frame{SessionID: "s1", Seq: 1, Bytes: 10}
	if err := store.RecordFrame(ctx, f); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	if err := store.RecordFrame(ctx, f); err == nil {
		t.Fatal("expected duplicate seq to be rejected")
	}
}

func TestSessionsNewestFirstAndPrune(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.BeginSession(ctx, sampleSession(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("BeginSession %s: %v", id, err)
		}
		if err := store.RecordFrame(ctx, journal.Frame{SessionID: id, Seq: 1, Bytes: 1}); err != nil {
			t.Fatalf("RecordFrame %s: %v", id, err)
		}
	}

	sessions, err := store.Sessions(ctx, 2)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "c" || sessions[1].ID != "b" {
		t.Fatalf("unexpected order %#v", sessions)
	}

	removed, err := store.Prune(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned sessions, got %d", removed)
	}
	all, err := store.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(all) != 1 || all[0].ID != "c" {
		t.Fatalf("unexpected remaining sessions %#v", all)
	}
	if frames, _ := store.Frames(ctx, "a"); len(frames) != 0 {
		t.Fatalf("frames of pruned session survived: %#v", frames)
	}
}

func TestReopenChecksSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	store, err = journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := journal.Open(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
