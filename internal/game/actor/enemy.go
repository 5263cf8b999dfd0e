package actor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ironvein/delve/internal/game/dungeon"
)

// Variant is one of the four fixed enemy decision strategies. The set is
// closed: a variant is chosen at spawn time and never changes for the
// actor's lifetime.
type Variant string

const (
	VariantAggressive Variant = "aggressive"
	VariantDefensive  Variant = "defensive"
	VariantPatrol     Variant = "patrol"
	VariantGuard      Variant = "guard"
)

// IsValid reports whether v names a known variant.
func (v Variant) IsValid() bool {
	switch v {
	case VariantAggressive, VariantDefensive, VariantPatrol, VariantGuard:
		return true
	}
	return false
}

// Default tactical ranges, in Manhattan distance.
const (
	DefaultDetectionRange = 3
	DefaultAttackRange    = 1
)

// ErrInvalidEnemyData reports enemy construction with out-of-range
// stats. Construction faults are caller contract violations and are
// fatal: they are never retried.
var ErrInvalidEnemyData = errors.New("invalid enemy data")

// ErrInvalidPatrolPath reports a patrol enemy constructed with fewer
// than two waypoints.
var ErrInvalidPatrolPath = errors.New("patrol path requires at least 2 waypoints")

// Enemy is a hostile actor. Created by a spawning room or encounter,
// mutated every combat turn, and removed when CurrentHP reaches zero.
type Enemy struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's id; empty for ad-hoc enemies.
	TemplateID  string
	Name        string
	Position    dungeon.Coordinate
	CurrentHP   int
	MaxHP       int
	AttackPower int
	Defense     int
	Variant     Variant
	// DetectionRange is the Manhattan distance at which the player is
	// detected; AttackRange the distance at which an attack reaches.
	DetectionRange int
	AttackRange    int
	// PatrolPath holds the waypoints for patrol enemies; patrolCursor
	// indexes the current one.
	PatrolPath   []dungeon.Coordinate
	patrolCursor int
	// GuardPost is the cell a guard enemy returns to when displaced.
	GuardPost dungeon.Coordinate
	// LastAction is the most recent decided action.
	LastAction dungeon.Action
	// ExperienceReward is granted to the player when this enemy falls.
	ExperienceReward int
}

// NewEnemy validates and normalizes e, returning the usable instance.
// Normalization: an empty ID gets a fresh uuid; CurrentHP of zero means
// "full" and becomes MaxHP; zero ranges take the defaults; a guard's
// zero-value post defaults to its spawn position.
//
// Postcondition: Returns ErrInvalidEnemyData (wrapped with detail) when
// MaxHP < 1, CurrentHP is outside [0, MaxHP], AttackPower or Defense is
// negative, ranges are negative, or the variant is unknown; returns
// ErrInvalidPatrolPath for a patrol variant with fewer than two
// waypoints. These are fatal contract faults, not game conditions.
func NewEnemy(e Enemy) (*Enemy, error) {
	if e.MaxHP < 1 {
		return nil, fmt.Errorf("%w: max HP must be >= 1, got %d", ErrInvalidEnemyData, e.MaxHP)
	}
	if e.CurrentHP == 0 {
		e.CurrentHP = e.MaxHP
	}
	if e.CurrentHP < 0 || e.CurrentHP > e.MaxHP {
		return nil, fmt.Errorf("%w: current HP %d outside [0,%d]", ErrInvalidEnemyData, e.CurrentHP, e.MaxHP)
	}
	if e.AttackPower < 0 {
		return nil, fmt.Errorf("%w: attack power must not be negative, got %d", ErrInvalidEnemyData, e.AttackPower)
	}
	if e.Defense < 0 {
		return nil, fmt.Errorf("%w: defense must not be negative, got %d", ErrInvalidEnemyData, e.Defense)
	}
	if !e.Variant.IsValid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidEnemyData, e.Variant)
	}
	if e.DetectionRange < 0 || e.AttackRange < 0 {
		return nil, fmt.Errorf("%w: ranges must not be negative", ErrInvalidEnemyData)
	}
	if e.DetectionRange == 0 {
		e.DetectionRange = DefaultDetectionRange
	}
	if e.AttackRange == 0 {
		e.AttackRange = DefaultAttackRange
	}
	if e.Variant == VariantPatrol && len(e.PatrolPath) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPatrolPath, len(e.PatrolPath))
	}
	if e.Variant == VariantGuard && e.GuardPost == (dungeon.Coordinate{}) {
		e.GuardPost = e.Position
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return &e, nil
}

// Pos returns the enemy's current cell.
func (e *Enemy) Pos() dungeon.Coordinate { return e.Position }

// MoveTo places the enemy at c. Callers must have validated c.
func (e *Enemy) MoveTo(c dungeon.Coordinate) { e.Position = c }

// IsDead reports whether the enemy has zero hit points.
func (e *Enemy) IsDead() bool { return e.CurrentHP <= 0 }

// TakeDamage applies amount: effective damage is max(1, amount-defense),
// so a minimum of one point always lands.
//
// Postcondition: CurrentHP stays within [0, MaxHP]. Returns whether the
// enemy is still alive.
func (e *Enemy) TakeDamage(amount int) bool {
	effective := amount - e.Defense
	if effective < 1 {
		effective = 1
	}
	e.CurrentHP -= effective
	if e.CurrentHP < 0 {
		e.CurrentHP = 0
	}
	return e.CurrentHP > 0
}

// CurrentWaypoint returns the patrol waypoint the enemy is heading for.
//
// Precondition: the enemy must have a non-empty patrol path.
func (e *Enemy) CurrentWaypoint() dungeon.Coordinate {
	return e.PatrolPath[e.patrolCursor]
}

// AdvancePatrol moves the patrol cursor to the next waypoint, wrapping
// modulo the waypoint count.
//
// Precondition: the enemy must have a non-empty patrol path.
func (e *Enemy) AdvancePatrol() {
	e.patrolCursor = (e.patrolCursor + 1) % len(e.PatrolPath)
}
