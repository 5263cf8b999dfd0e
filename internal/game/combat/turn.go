// Package combat implements the encounter lifecycle: detection, the
// per-turn resolution loop, and termination.
package combat

import (
	"time"

	"github.com/ironvein/delve/internal/game/dungeon"
)

// Outcome is the result of a finished combat session.
type Outcome string

const (
	// OutcomeNone means the session is still running (or was force-ended).
	OutcomeNone Outcome = ""
	// OutcomeVictory means every enemy reached zero hit points.
	OutcomeVictory Outcome = "victory"
	// OutcomeDefeat means the player reached zero hit points.
	OutcomeDefeat Outcome = "defeat"
)

// DamageResult records one resolved hit within a turn.
type DamageResult struct {
	// AttackerID and TargetID name the actors involved; the player is
	// identified by name, enemies by instance id.
	AttackerID string
	TargetID   string
	// Amount is the damage requested, before the target's defense.
	Amount int
	// Applied is the damage that actually landed.
	Applied int
	// TargetHP is the target's hit points after application.
	TargetHP int
	// Defeated is true when this hit dropped the target to zero.
	Defeated bool
}

// CombatTurn is one resolved round: the player's action followed by
// every live enemy's decided action. Turns are appended to the engine's
// in-memory log; the log is cleared by Reset.
type CombatTurn struct {
	// Number is monotonic from 1 within a session.
	Number       int
	PlayerAction dungeon.Action
	EnemyActions []dungeon.Action
	Damage       []DamageResult
	// Outcome is set on the turn that terminated the session.
	Outcome Outcome
}

// Stats holds running totals over processed turns. Damage is counted
// from the player's perspective.
type Stats struct {
	TurnsProcessed int
	DamageDealt    int
	DamageTaken    int
	// Duration accumulates time spent in combat sessions.
	Duration time.Duration
}
