package combat

import (
	"time"

	"go.uber.org/zap"

	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/behavior"
	"github.com/ironvein/delve/internal/game/dungeon"
)

// State is the shared game state the engine reads and mutates. At most
// one combat session is active at a time; InCombat is the single flag
// guarding it. Turn resets to zero on session end.
//
// The engine assumes exclusive, single-writer access to State for the
// duration of each call; callers own synchronization.
type State struct {
	Player *actor.Player
	// Enemies is the live roster of the current area. The engine prunes
	// fallen enemies from it after each processed turn.
	Enemies  []*actor.Enemy
	InCombat bool
	Turn     int
}

// Engine orchestrates encounter detection, session lifecycle, and
// per-turn action resolution. Within one ProcessCombatTurn call the
// player's action is applied before any enemy decides; enemies are
// processed in stable roster order.
type Engine struct {
	validator *dungeon.Validator
	logger    *zap.Logger

	log          []CombatTurn
	stats        Stats
	sessionStart time.Time
	active       bool
}

// NewEngine creates an Engine over the given validator. A nil logger is
// replaced with a no-op logger.
//
// Precondition: validator must be non-nil.
func NewEngine(validator *dungeon.Validator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{validator: validator, logger: logger}
}

// CheckForEncounter returns the live enemies adjacent to the player.
// The surrounding loop uses a non-empty result to transition out of
// free exploration.
//
// Postcondition: Every returned enemy is alive and at Manhattan
// distance 1 from the player.
func (e *Engine) CheckForEncounter(s *State) []*actor.Enemy {
	var adjacent []*actor.Enemy
	for _, en := range s.Enemies {
		if en.IsDead() {
			continue
		}
		if dungeon.AreAdjacent(en.Position, s.Player.Position) {
			adjacent = append(adjacent, en)
		}
	}
	return adjacent
}

// InitiateCombat starts a session against the given enemies. It is an
// expected no-op — returning false with no state change — when a
// session is already active or the enemy list is empty.
//
// Postcondition: On true, s.InCombat is set and s.Turn is zero.
func (e *Engine) InitiateCombat(s *State, enemies []*actor.Enemy) bool {
	if s.InCombat || len(enemies) == 0 {
		return false
	}
	s.InCombat = true
	s.Turn = 0
	e.sessionStart = time.Now()
	e.active = true
	e.logger.Info("combat initiated",
		zap.String("player", s.Player.Name),
		zap.Int("enemies", len(enemies)),
	)
	return true
}

// ProcessCombatTurn resolves one round: the player's action first, then
// every still-living enemy's decided action, in roster order. The
// resolved CombatTurn is appended to the log and returned. Fallen
// enemies are pruned from s.Enemies after resolution.
//
// Termination: when every enemy is at zero the session ends with
// victory (and the player collects experience rewards); when the player
// is at zero it ends with defeat. Otherwise the session stays active
// for the next call.
//
// Postcondition: Returns nil without mutating anything iff no session
// is active. Turn numbers of consecutive calls within one session
// strictly increase from 1.
func (e *Engine) ProcessCombatTurn(s *State, playerAction dungeon.Action, enemies []*actor.Enemy) *CombatTurn {
	if !s.InCombat {
		return nil
	}

	s.Turn++
	turn := CombatTurn{Number: s.Turn, PlayerAction: playerAction}

	e.applyPlayerAction(s, playerAction, enemies, &turn)

	for _, en := range enemies {
		if en.IsDead() {
			continue
		}
		action := behavior.Decide(en, s.Player, e.stepCheck(s, en))
		turn.EnemyActions = append(turn.EnemyActions, action)
		e.applyEnemyAction(s, en, action, &turn)
	}

	// The defend stance covers only this turn's incoming actions.
	s.Player.SetDefending(false)

	switch {
	case allDead(enemies):
		turn.Outcome = OutcomeVictory
		for _, en := range enemies {
			s.Player.GainExperience(en.ExperienceReward)
		}
		e.endSession(s, OutcomeVictory)
	case s.Player.IsDead():
		turn.Outcome = OutcomeDefeat
		e.endSession(s, OutcomeDefeat)
	}

	s.Enemies = pruneDead(s.Enemies)

	e.stats.TurnsProcessed++
	e.log = append(e.log, turn)
	return &turn
}

// ForceCombatEnd unconditionally clears the in-combat flag, bypassing
// the victory/defeat evaluation. Used for externally triggered
// interruption such as fleeing.
func (e *Engine) ForceCombatEnd(s *State) {
	if !s.InCombat {
		return
	}
	e.endSession(s, OutcomeNone)
}

// Stats returns the running totals. While a session is active the
// duration includes time elapsed since it started.
func (e *Engine) Stats() Stats {
	out := e.stats
	if e.active {
		out.Duration += time.Since(e.sessionStart)
	}
	return out
}

// Log returns the ordered turn history. The returned slice is a copy;
// reading it has no side effects.
func (e *Engine) Log() []CombatTurn {
	out := make([]CombatTurn, len(e.log))
	copy(out, e.log)
	return out
}

// Reset clears the accumulated log and counters. Actor health and
// positions are untouched.
func (e *Engine) Reset() {
	e.log = nil
	e.stats = Stats{}
}

func (e *Engine) applyPlayerAction(s *State, a dungeon.Action, enemies []*actor.Enemy, turn *CombatTurn) {
	switch a.Kind {
	case dungeon.ActionAttack:
		target := findEnemy(enemies, a.TargetID)
		if target == nil || target.IsDead() {
			e.logger.Debug("player attack found no target", zap.String("target", a.TargetID))
			return
		}
		amount := s.Player.AttackDamage()
		before := target.CurrentHP
		alive := target.TakeDamage(amount)
		applied := before - target.CurrentHP
		e.stats.DamageDealt += applied
		turn.Damage = append(turn.Damage, DamageResult{
			AttackerID: s.Player.Name,
			TargetID:   target.ID,
			Amount:     amount,
			Applied:    applied,
			TargetHP:   target.CurrentHP,
			Defeated:   !alive,
		})
	case dungeon.ActionDefend:
		s.Player.SetDefending(true)
	case dungeon.ActionMove:
		e.validator.UpdateActor(s.Player)
		if res := e.validator.ExecuteMovement(a); !res.OK {
			e.logger.Debug("player move blocked", zap.String("reason", string(res.Reason)))
		}
	}
}

func (e *Engine) applyEnemyAction(s *State, en *actor.Enemy, a dungeon.Action, turn *CombatTurn) {
	switch a.Kind {
	case dungeon.ActionAttack:
		amount := en.AttackPower
		before := s.Player.CurrentHP
		alive := s.Player.TakeDamage(amount)
		applied := before - s.Player.CurrentHP
		e.stats.DamageTaken += applied
		turn.Damage = append(turn.Damage, DamageResult{
			AttackerID: en.ID,
			TargetID:   s.Player.Name,
			Amount:     amount,
			Applied:    applied,
			TargetHP:   s.Player.CurrentHP,
			Defeated:   !alive,
		})
	case dungeon.ActionMove:
		// The destination was gated through stepCheck by Decide.
		en.MoveTo(en.Position.Step(a.Direction))
	}
}

// stepCheck builds the position predicate handed to the behavior
// engine: walkable geometry, not the player's cell, and not occupied by
// another live enemy.
func (e *Engine) stepCheck(s *State, moving *actor.Enemy) behavior.PositionCheck {
	return func(c dungeon.Coordinate) bool {
		if !e.validator.ValidateMovement(c).OK {
			return false
		}
		if c == s.Player.Position {
			return false
		}
		for _, other := range s.Enemies {
			if other != moving && !other.IsDead() && other.Position == c {
				return false
			}
		}
		return true
	}
}

func (e *Engine) endSession(s *State, outcome Outcome) {
	s.InCombat = false
	s.Turn = 0
	if e.active {
		e.stats.Duration += time.Since(e.sessionStart)
		e.active = false
	}
	e.logger.Info("combat ended", zap.String("outcome", string(outcome)))
}

func findEnemy(enemies []*actor.Enemy, id string) *actor.Enemy {
	for _, en := range enemies {
		if en.ID == id {
			return en
		}
	}
	return nil
}

func allDead(enemies []*actor.Enemy) bool {
	for _, en := range enemies {
		if !en.IsDead() {
			return false
		}
	}
	return true
}

func pruneDead(enemies []*actor.Enemy) []*actor.Enemy {
	live := enemies[:0]
	for _, en := range enemies {
		if !en.IsDead() {
			live = append(live, en)
		}
	}
	return live
}
