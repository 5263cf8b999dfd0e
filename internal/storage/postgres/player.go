package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPlayerNotFound is returned when a player lookup yields no results.
var ErrPlayerNotFound = errors.New("player not found")

// PlayerSave is a player's durable progress: stats and the cell they
// last stood on. Keyed by name.
type PlayerSave struct {
	ID         int64
	Name       string
	LevelID    string
	X          int
	Y          int
	CurrentHP  int
	MaxHP      int
	Level      int
	Experience int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PlayerRepository provides player save persistence.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Upsert writes the save for s.Name, creating the row on first save.
//
// Precondition: s.Name must be non-empty.
// Postcondition: Returns the stored save with ID and timestamps set.
func (r *PlayerRepository) Upsert(ctx context.Context, s PlayerSave) (PlayerSave, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO players
			(name, level_id, pos_x, pos_y, current_hp, max_hp, level, experience)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (name) DO UPDATE SET
			level_id = EXCLUDED.level_id,
			pos_x = EXCLUDED.pos_x,
			pos_y = EXCLUDED.pos_y,
			current_hp = EXCLUDED.current_hp,
			max_hp = EXCLUDED.max_hp,
			level = EXCLUDED.level,
			experience = EXCLUDED.experience,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		s.Name, s.LevelID, s.X, s.Y, s.CurrentHP, s.MaxHP, s.Level, s.Experience,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return PlayerSave{}, fmt.Errorf("upserting player save: %w", err)
	}
	return s, nil
}

// GetByName retrieves a player save by name.
//
// Postcondition: Returns the save or ErrPlayerNotFound.
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (PlayerSave, error) {
	var s PlayerSave
	err := r.db.QueryRow(ctx, `
		SELECT id, name, level_id, pos_x, pos_y, current_hp, max_hp, level, experience,
		       created_at, updated_at
		FROM players WHERE name = $1`,
		name,
	).Scan(
		&s.ID, &s.Name, &s.LevelID, &s.X, &s.Y, &s.CurrentHP, &s.MaxHP,
		&s.Level, &s.Experience, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlayerSave{}, ErrPlayerNotFound
		}
		return PlayerSave{}, fmt.Errorf("querying player save: %w", err)
	}
	return s, nil
}
