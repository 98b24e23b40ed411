package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/mapload/internal/core"
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx used by
// PostgresStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createSessionsTable = `CREATE TABLE IF NOT EXISTS mapload_sessions (
	id         uuid PRIMARY KEY,
	files      jsonb NOT NULL DEFAULT '[]'::jsonb,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

	getSession = `SELECT files FROM mapload_sessions WHERE id = $1`

	upsertSession = `INSERT INTO mapload_sessions (id, files, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET files = EXCLUDED.files, updated_at = now()`

	deleteSession = `DELETE FROM mapload_sessions WHERE id = $1`
)

// PostgresStore persists sessions in the mapload_sessions table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a store over db. Call EnsureSchema once before use.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (core.FileCache, error) {
	key, ok := sessionKey(id)
	if !ok {
		return nil, core.ErrSessionNotFound
	}

	var raw []byte
	err := s.db.QueryRow(ctx, getSession, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return decodeCache(raw)
}

func (s *PostgresStore) Save(ctx context.Context, id string, cache core.FileCache) error {
	key, ok := sessionKey(id)
	if !ok {
		return fmt.Errorf("save session: invalid id %q", id)
	}

	raw, err := encodeCache(cache)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	if _, err := s.db.Exec(ctx, upsertSession, key, raw); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	key, ok := sessionKey(id)
	if !ok {
		return core.ErrSessionNotFound
	}

	tag, err := s.db.Exec(ctx, deleteSession, key)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// sessionKey converts a session id to its column value. Ids that are not
// UUIDs cannot exist in the table.
func sessionKey(id string) (pgtype.UUID, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}
