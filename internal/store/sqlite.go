package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inboxsweep/internal/model"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps user sessions in a local SQLite database. Every session
// expires ttl after it was saved.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	user_id    TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL DEFAULT '',
	picture    TEXT NOT NULL DEFAULT '',
	token_json TEXT NOT NULL,
	login_time INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession inserts or replaces the user's session and restarts its TTL.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess model.Session) error {
	tok, err := json.Marshal(sess.Token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	expires := s.now().Add(s.ttl)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, email, name, picture, token_json, login_time, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email      = excluded.email,
			name       = excluded.name,
			picture    = excluded.picture,
			token_json = excluded.token_json,
			login_time = excluded.login_time,
			expires_at = excluded.expires_at
	`, sess.UserID, sess.Email, sess.Name, sess.Picture, string(tok), sess.LoginTime.UnixMilli(), expires.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession returns the user's live session, or nil when there is none or it expired.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*model.Session, error) {
	var (
		sess      model.Session
		tokenJSON string
		loginMS   int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, name, picture, token_json, login_time
		FROM sessions WHERE user_id = ? AND expires_at > ?
	`, userID, s.now().UnixMilli()).Scan(&sess.UserID, &sess.Email, &sess.Name, &sess.Picture, &tokenJSON, &loginMS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(tokenJSON), &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	sess.Token = &tok
	sess.LoginTime = time.UnixMilli(loginMS)
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired sessions and reports how many were deleted.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}
