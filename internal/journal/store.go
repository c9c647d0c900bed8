package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Session is one wificam run.
type Session struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Source     string
	Sink       string
	Width      int
	Height     int
	Slots      int
	SlotBytes  int
	Policy     string
	Published  uint64
	Dropped    uint64
	Sent       uint64
	Timeouts   uint64
	Error      string
}

// Totals are the counters stored when a session finishes.
type Totals struct {
	Published uint64
	Dropped   uint64
	Sent      uint64
	Timeouts  uint64
	Err       error
}

// Frame is one encoded frame delivered to the sink.
type Frame struct {
	SessionID string
	Seq       uint64
	Slot      int
	Bytes     int
	Encode    time.Duration
	SentAt    time.Time
}

// Store persists sessions and frames in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginSession records the start of a run.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
            id, started_at, source, sink, width, height, slots, slot_bytes, policy
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.StartedAt.UTC().Format(time.RFC3339Nano),
		sess.Source,
		sess.Sink,
		sess.Width,
		sess.Height,
		sess.Slots,
		sess.SlotBytes,
		sess.Policy,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinishSession stores the final counters of a run.
func (s *Store) FinishSession(ctx context.Context, id string, totals Totals) error {
	var errMsg any
	if totals.Err != nil {
		errMsg = totals.Err.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
         SET finished_at = ?, published = ?, dropped = ?, sent = ?, timeouts = ?, error_message = ?
         WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		int64(totals.Published),
		int64(totals.Dropped),
		int64(totals.Sent),
		int64(totals.Timeouts),
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish session: %s not found", id)
	}
	return nil
}

// RecordFrame appends a delivered frame to its session.
func (s *Store) RecordFrame(ctx context.Context, f Frame) error {
	if f.SentAt.IsZero() {
		f.SentAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO frames (session_id, seq, slot, bytes, encode_us, sent_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		f.SessionID,
		int64(f.Seq),
		f.Slot,
		f.Bytes,
		f.Encode.Microseconds(),
		f.SentAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

const sessionColumns = `id, started_at, finished_at, source, sink, width, height, slots,
    slot_bytes, policy, published, dropped, sent, timeouts, error_message`

// Sessions returns up to limit sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Session fetches one session, returning nil when it does not exist.
func (s *Store) Session(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Frames returns the frames of a session in sequence order.
func (s *Store) Frames(ctx context.Context, sessionID string) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, slot, bytes, encode_us, sent_at FROM frames WHERE session_id = ? ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			f        Frame
			seq      int64
			encodeUS int64
			sentAt   string
		)
		if err := rows.Scan(&seq, &f.Slot, &f.Bytes, &encodeUS, &sentAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.SessionID = sessionID
		f.Seq = uint64(seq)
		f.Encode = time.Duration(encodeUS) * time.Microsecond
		f.SentAt = parseTime(sentAt)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// Prune deletes sessions started before cutoff along with their frames.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM frames WHERE session_id IN (SELECT id FROM sessions WHERE started_at < ?)`, ts); err != nil {
		return 0, fmt.Errorf("prune frames: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE started_at < ?`, ts)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess       Session
		startedAt  string
		finishedAt sql.NullString
		published  int64
		dropped    int64
		sent       int64
		timeouts   int64
		errMsg     sql.NullString
	)
	err := row.Scan(
		&sess.ID, &startedAt, &finishedAt, &sess.Source, &sess.Sink,
		&sess.Width, &sess.Height, &sess.Slots, &sess.SlotBytes, &sess.Policy,
		&published, &dropped, &sent, &timeouts, &errMsg,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sess, err
		}
		return sess, fmt.Errorf("scan session: %w", err)
	}
	sess.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		sess.FinishedAt = &t
	}
	sess.Published = uint64(published)
	sess.Dropped = uint64(dropped)
	sess.Sent = uint64(sent)
	sess.Timeouts = uint64(timeouts)
	sess.Error = errMsg.String
	return sess, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
