// Package behavior implements the enemy decision engine: one action per
// hostile actor per turn, dispatched over the closed set of behavior
// variants.
package behavior

import (
	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/dungeon"
)

// PositionCheck reports whether an enemy may step onto a cell. The
// combat engine supplies it, folding in walkability and occupancy; the
// decision logic never inspects the map directly.
type PositionCheck func(dungeon.Coordinate) bool

// Decide returns the enemy's action for this turn and records it as the
// enemy's last action. A dead enemy always defends. Variants never
// transition, except that a patrol enemy defers to the aggressive
// procedure while the player is detected.
//
// Precondition: e and p must be non-nil; isValid must be non-nil.
// Postcondition: Returns exactly one of move, attack, defend; move
// actions carry a direction to a cell isValid accepted.
func Decide(e *actor.Enemy, p *actor.Player, isValid PositionCheck) dungeon.Action {
	var a dungeon.Action
	switch {
	case e.IsDead():
		a = dungeon.NewDefend()
	case e.Variant == actor.VariantAggressive:
		a = decideAggressive(e, p, isValid)
	case e.Variant == actor.VariantDefensive:
		a = decideDefensive(e, p, isValid)
	case e.Variant == actor.VariantPatrol:
		a = decidePatrol(e, p, isValid)
	case e.Variant == actor.VariantGuard:
		a = decideGuard(e, p, isValid)
	default:
		// Unknown variants cannot be constructed (see actor.NewEnemy).
		a = dungeon.NewDefend()
	}
	e.LastAction = a
	return a
}

// decideAggressive closes distance and attacks: defend while the player
// is undetected, attack in range, otherwise one greedy step toward the
// player.
func decideAggressive(e *actor.Enemy, p *actor.Player, isValid PositionCheck) dungeon.Action {
	dist := dungeon.Distance(e.Position, p.Position)
	if dist > e.DetectionRange {
		return dungeon.NewDefend()
	}
	if dist <= e.AttackRange {
		return dungeon.NewAttack(p.Name)
	}
	if dir, ok := greedyStep(e.Position, p.Position, isValid); ok {
		return dungeon.NewMove(dir)
	}
	return dungeon.NewDefend()
}

// decideDefensive keeps distance around 2-3 cells and attacks only when
// cornered: retreat one cell while the player is closer than that,
// attack in range, defend otherwise.
func decideDefensive(e *actor.Enemy, p *actor.Player, isValid PositionCheck) dungeon.Action {
	dist := dungeon.Distance(e.Position, p.Position)
	if dist > e.DetectionRange {
		return dungeon.NewDefend()
	}
	if dist <= e.AttackRange {
		return dungeon.NewAttack(p.Name)
	}
	if dist <= 2 {
		// Step directly away: the offsets toward the player with their
		// signs inverted, larger axis first.
		away := dungeon.Coordinate{
			X: e.Position.X + (e.Position.X - p.Position.X),
			Y: e.Position.Y + (e.Position.Y - p.Position.Y),
		}
		if dir, ok := greedyStep(e.Position, away, isValid); ok {
			return dungeon.NewMove(dir)
		}
	}
	return dungeon.NewDefend()
}

// decidePatrol walks the waypoint loop while the player is undetected
// and hands over to the aggressive procedure once detected. Reaching a
// waypoint advances the cursor (wrapping) and costs this turn.
func decidePatrol(e *actor.Enemy, p *actor.Player, isValid PositionCheck) dungeon.Action {
	if dungeon.Distance(e.Position, p.Position) <= e.DetectionRange {
		return decideAggressive(e, p, isValid)
	}
	if e.Position == e.CurrentWaypoint() {
		e.AdvancePatrol()
		return dungeon.NewDefend()
	}
	if dir, ok := greedyStep(e.Position, e.CurrentWaypoint(), isValid); ok {
		return dungeon.NewMove(dir)
	}
	return dungeon.NewDefend()
}

// decideGuard holds a post: attack when the player is detected in range,
// walk back when displaced, defend otherwise.
func decideGuard(e *actor.Enemy, p *actor.Player, isValid PositionCheck) dungeon.Action {
	dist := dungeon.Distance(e.Position, p.Position)
	if dist <= e.DetectionRange && dist <= e.AttackRange {
		return dungeon.NewAttack(p.Name)
	}
	if dungeon.Distance(e.Position, e.GuardPost) > 0 {
		if dir, ok := greedyStep(e.Position, e.GuardPost, isValid); ok {
			return dungeon.NewMove(dir)
		}
	}
	return dungeon.NewDefend()
}

// greedyStep picks the single cardinal step from from toward to that
// reduces the larger axis offset first, ties resolved toward the Y axis.
// The step is gated by isValid; there is no fallback to the other axis.
//
// Postcondition: Returns (direction, true) only when the destination
// passed isValid.
func greedyStep(from, to dungeon.Coordinate, isValid PositionCheck) (dungeon.Direction, bool) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return "", false
	}

	var dir dungeon.Direction
	if abs(dx) > abs(dy) {
		if dx > 0 {
			dir = dungeon.East
		} else {
			dir = dungeon.West
		}
	} else {
		if dy > 0 {
			dir = dungeon.South
		} else {
			dir = dungeon.North
		}
	}

	dest := from.Step(dir)
	if !isValid(dest) {
		return "", false
	}
	return dir, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
