package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Archive is an optional write-only transcript log. The in-memory Store
// remains the sole source of conversational context; the archive only keeps
// a durable record of turns for later inspection.
type Archive interface {
	SaveTurn(ctx context.Context, userID string, role Role, content string) error
	Close()
}

// NewArchive returns a postgres-backed archive when configured, otherwise a nop.
func NewArchive(ctx context.Context, databaseURL string) (Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NopArchive{}, nil
	}
	return NewPostgresArchive(ctx, databaseURL)
}

type NopArchive struct{}

func (NopArchive) SaveTurn(context.Context, string, Role, string) error { return nil }
func (NopArchive) Close()                                               {}

// PostgresArchive persists turns in PostgreSQL.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresArchive{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS atlas_turns (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_atlas_turns_user_created ON atlas_turns (user_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (a *PostgresArchive) SaveTurn(ctx context.Context, userID string, role Role, content string) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO atlas_turns (id, user_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(),
		userID,
		string(role),
		content,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}
