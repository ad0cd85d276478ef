// Package store persists chat history in Postgres. Aggregation results
// are deliberately not stored; every aggregation re-fetches upstream.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//
// ========================================================================
// Store Wrapper
// ========================================================================
//

type Store struct {
	DB *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	err = withTimeout(func(ctx context.Context) error {
		return db.PingContext(ctx)
	}, 5*time.Second)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

//
// ========================================================================
// Models
// ========================================================================
//

type StoredMessage struct {
	ID         int
	SessionID  string
	Role       string
	Content    string
	ArtistName string
	CreatedAt  time.Time
}

//
// ========================================================================
// Chat history
// ========================================================================
//

// InsertMessage records one turn of a conversation.
func (s *Store) InsertMessage(ctx context.Context, sessionID, role, content, artistName string) (int, error) {
	const q = `
        INSERT INTO chat_messages (session_id, role, content, artist_name)
        VALUES ($1, $2, $3, $4)
        RETURNING id;
    `

	var id int
	err := s.DB.QueryRowContext(ctx, q, sessionID, role, content, artistName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	return id, nil
}

// History returns the most recent turns for a session, oldest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
        SELECT id, session_id, role, content, artist_name, created_at
        FROM (
            SELECT id, session_id, role, content, artist_name, created_at
            FROM chat_messages
            WHERE session_id = $1
            ORDER BY id DESC
            LIMIT $2
        ) recent
        ORDER BY id ASC;
    `

	rows, err := s.DB.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.ArtistName, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

//
// ========================================================================
// Utility: context timeout
// ========================================================================
//

func withTimeout(fn func(ctx context.Context) error, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return fn(ctx)
}

//
// ========================================================================
// Migration
// ========================================================================
//

func (s *Store) Migrate(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id          SERIAL PRIMARY KEY,
			session_id  TEXT NOT NULL,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			artist_name TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);`

	const ind = `
		CREATE INDEX IF NOT EXISTS chat_messages_session_idx
			ON chat_messages (session_id, id);
	`

	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, ind); err != nil {
		return err
	}
	return nil
}
