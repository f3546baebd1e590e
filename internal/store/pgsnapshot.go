package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type userRow struct {
	ID         int64  `db:"id"`
	Alias      string `db:"alias"`
	VideoCount int64  `db:"video_count"`
	AudioCount int64  `db:"audio_count"`
}

// PostgresSnapshot stores the registry in the users table.
type PostgresSnapshot struct {
	db *sqlx.DB
}

// NewPostgresSnapshot returns a snapshotter backed by db. The schema is
// created by the migrations in the migrations directory.
func NewPostgresSnapshot(db *sqlx.DB) *PostgresSnapshot {
	return &PostgresSnapshot{db: db}
}

// Load reads every user row.
func (p *PostgresSnapshot) Load(ctx context.Context) ([]UserRecord, error) {
	var rows []userRow
	if err := p.db.SelectContext(ctx, &rows,
		`SELECT id, alias, video_count, audio_count FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store: load users: %w", err)
	}
	users := make([]UserRecord, 0, len(rows))
	for _, r := range rows {
		users = append(users, UserRecord{
			ID:     r.ID,
			Alias:  r.Alias,
			Counts: Counts{Videos: uint64(r.VideoCount), Audios: uint64(r.AudioCount)},
		})
	}
	return users, nil
}

// Save replaces the table contents in one transaction.
func (p *PostgresSnapshot) Save(ctx context.Context, users []UserRecord) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("store: clear users: %w", err)
	}
	for _, u := range users {
		row := userRow{
			ID:         u.ID,
			Alias:      u.Alias,
			VideoCount: int64(u.Counts.Videos),
			AudioCount: int64(u.Counts.Audios),
		}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO users (id, alias, video_count, audio_count)
			 VALUES (:id, :alias, :video_count, :audio_count)`, row); err != nil {
			return fmt.Errorf("store: insert user %d: %w", u.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
