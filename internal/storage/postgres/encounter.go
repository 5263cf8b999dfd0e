package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Encounter is the persisted summary of one finished combat session.
type Encounter struct {
	ID          int64
	SessionID   string
	PlayerName  string
	Outcome     string
	Turns       int
	DamageDealt int
	DamageTaken int
	Duration    time.Duration
	EndedAt     time.Time
	CreatedAt   time.Time
}

// EncounterRepository persists finished encounters.
type EncounterRepository struct {
	db *pgxpool.Pool
}

// NewEncounterRepository creates an EncounterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEncounterRepository(db *pgxpool.Pool) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// Insert stores one encounter and returns it with ID and CreatedAt set.
//
// Precondition: e.SessionID and e.PlayerName must be non-empty.
func (r *EncounterRepository) Insert(ctx context.Context, e Encounter) (Encounter, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO encounters
			(session_id, player_name, outcome, turns, damage_dealt, damage_taken, duration_ms, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at`,
		e.SessionID, e.PlayerName, e.Outcome, e.Turns,
		e.DamageDealt, e.DamageTaken, e.Duration.Milliseconds(), e.EndedAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Encounter{}, fmt.Errorf("inserting encounter: %w", err)
	}
	return e, nil
}

// ListByPlayer returns a player's encounters, most recent first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *EncounterRepository) ListByPlayer(ctx context.Context, playerName string) ([]Encounter, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, player_name, outcome, turns,
		       damage_dealt, damage_taken, duration_ms, ended_at, created_at
		FROM encounters WHERE player_name = $1 ORDER BY ended_at DESC`,
		playerName,
	)
	if err != nil {
		return nil, fmt.Errorf("listing encounters: %w", err)
	}
	defer rows.Close()

	out := make([]Encounter, 0)
	for rows.Next() {
		var e Encounter
		var durationMs int64
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.PlayerName, &e.Outcome, &e.Turns,
			&e.DamageDealt, &e.DamageTaken, &durationMs, &e.EndedAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning encounter row: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
