package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/combat"
	"github.com/ironvein/delve/internal/game/dungeon"
)

// openArena is a 10x10 map fully covered by one room, so geometry never
// interferes with the turn logic under test.
func openArena(t *testing.T) *dungeon.Validator {
	t.Helper()
	m := &dungeon.Map{
		Width:  10,
		Height: 10,
		Rooms: []*dungeon.Room{
			{ID: "arena", Position: dungeon.Coordinate{X: 0, Y: 0}, Width: 10, Height: 10},
		},
	}
	require.NoError(t, m.Validate())
	return dungeon.NewValidator(m, nil)
}

func goblinAt(t *testing.T, pos dungeon.Coordinate) *actor.Enemy {
	t.Helper()
	e, err := actor.NewEnemy(actor.Enemy{
		Name:             "Goblin",
		Position:         pos,
		MaxHP:            30,
		AttackPower:      8,
		Defense:          1,
		Variant:          actor.VariantAggressive,
		ExperienceReward: 25,
	})
	require.NoError(t, err)
	return e
}

func newState(t *testing.T, enemies ...*actor.Enemy) *combat.State {
	t.Helper()
	return &combat.State{
		Player:  actor.NewPlayer("Hero", dungeon.Coordinate{X: 3, Y: 3}),
		Enemies: enemies,
	}
}

func TestEngine_CheckForEncounter(t *testing.T) {
	adjacent := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	far := goblinAt(t, dungeon.Coordinate{X: 8, Y: 8})
	dead := goblinAt(t, dungeon.Coordinate{X: 3, Y: 4})
	dead.CurrentHP = 0

	s := newState(t, adjacent, far, dead)
	eng := combat.NewEngine(openArena(t), nil)

	got := eng.CheckForEncounter(s)
	require.Len(t, got, 1)
	assert.Equal(t, adjacent.ID, got[0].ID)
}

func TestEngine_InitiateCombat(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)

	assert.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))
	assert.True(t, s.InCombat)
	assert.Equal(t, 0, s.Turn)
}

func TestEngine_InitiateCombat_AlreadyActive(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)

	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))
	eng.ProcessCombatTurn(s, dungeon.NewDefend(), []*actor.Enemy{g})
	turnBefore := s.Turn

	// Second initiation without an intervening end: rejected, counter
	// untouched.
	assert.False(t, eng.InitiateCombat(s, []*actor.Enemy{g}))
	assert.Equal(t, turnBefore, s.Turn)
}

func TestEngine_InitiateCombat_EmptyEnemyList(t *testing.T) {
	s := newState(t)
	eng := combat.NewEngine(openArena(t), nil)
	assert.False(t, eng.InitiateCombat(s, nil))
	assert.False(t, s.InCombat)
}

func TestEngine_ProcessCombatTurn_NoActiveSession(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)

	assert.Nil(t, eng.ProcessCombatTurn(s, dungeon.NewDefend(), []*actor.Enemy{g}))
	assert.Equal(t, 0, s.Turn)
}

func TestEngine_ProcessCombatTurn_PlayerAttackResolvesFirst(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	turn := eng.ProcessCombatTurn(s, dungeon.NewAttack(g.ID), []*actor.Enemy{g})
	require.NotNil(t, turn)
	assert.Equal(t, 1, turn.Number)

	// Player strength 10 vs defense 1: 9 lands.
	assert.Equal(t, 21, g.CurrentHP)
	// The adjacent aggressive goblin strikes back: 8 vs defense 2 = 6.
	assert.Equal(t, s.Player.MaxHP-6, s.Player.CurrentHP)
	require.Len(t, turn.Damage, 2)
	assert.Equal(t, s.Player.Name, turn.Damage[0].AttackerID, "player action applied before enemy actions")
	assert.Equal(t, g.ID, turn.Damage[1].AttackerID)
	assert.Equal(t, combat.OutcomeNone, turn.Outcome)
	assert.True(t, s.InCombat)
}

func TestEngine_ProcessCombatTurn_DefendHalvesIncoming(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	eng.ProcessCombatTurn(s, dungeon.NewDefend(), []*actor.Enemy{g})
	// 8 halved to 4, minus defense 2: 2 lands instead of 6.
	assert.Equal(t, s.Player.MaxHP-2, s.Player.CurrentHP)

	// The stance does not persist into the next turn.
	eng.ProcessCombatTurn(s, dungeon.NewMove(dungeon.West), []*actor.Enemy{g})
	assert.False(t, s.Player.IsDefending())
}

func TestEngine_ProcessCombatTurn_PlayerMove(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 8, Y: 8})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	eng.ProcessCombatTurn(s, dungeon.NewMove(dungeon.East), []*actor.Enemy{g})
	assert.Equal(t, dungeon.Coordinate{X: 4, Y: 3}, s.Player.Position)
}

func TestEngine_ProcessCombatTurn_AttackUnknownTarget(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	turn := eng.ProcessCombatTurn(s, dungeon.NewAttack("no-such-enemy"), []*actor.Enemy{g})
	require.NotNil(t, turn)
	assert.Equal(t, 30, g.CurrentHP, "no damage resolved against a missing target")
}

func TestEngine_ProcessCombatTurn_Victory(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	g.CurrentHP = 5
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	turn := eng.ProcessCombatTurn(s, dungeon.NewAttack(g.ID), []*actor.Enemy{g})
	require.NotNil(t, turn)
	assert.Equal(t, combat.OutcomeVictory, turn.Outcome)
	assert.True(t, g.IsDead())
	assert.False(t, s.InCombat, "flag cleared once every enemy is down")
	assert.Equal(t, 0, s.Turn)
	assert.Equal(t, 25, s.Player.Experience, "victory grants the enemy's reward")
	assert.Empty(t, s.Enemies, "fallen enemies pruned from the roster")
}

func TestEngine_ProcessCombatTurn_Defeat(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	s.Player.CurrentHP = 3
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	turn := eng.ProcessCombatTurn(s, dungeon.NewAttack(g.ID), []*actor.Enemy{g})
	require.NotNil(t, turn)
	assert.Equal(t, combat.OutcomeDefeat, turn.Outcome)
	assert.True(t, s.Player.IsDead())
	assert.False(t, s.InCombat)
}

func TestEngine_ProcessCombatTurn_DeadEnemySkipped(t *testing.T) {
	g1 := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	g2 := goblinAt(t, dungeon.Coordinate{X: 3, Y: 4})
	g2.CurrentHP = 0
	s := newState(t, g1, g2)
	eng := combat.NewEngine(openArena(t), nil)
	enemies := []*actor.Enemy{g1, g2}
	require.True(t, eng.InitiateCombat(s, enemies))

	turn := eng.ProcessCombatTurn(s, dungeon.NewDefend(), enemies)
	require.NotNil(t, turn)
	assert.Len(t, turn.EnemyActions, 1, "dead enemies take no action")
}

func TestEngine_ProcessCombatTurn_EnemiesDoNotStack(t *testing.T) {
	// Both goblins approach from the east in single file; the second
	// may not step onto the first's cell.
	g1 := goblinAt(t, dungeon.Coordinate{X: 5, Y: 3})
	g2 := goblinAt(t, dungeon.Coordinate{X: 6, Y: 3})
	s := newState(t, g1, g2)
	eng := combat.NewEngine(openArena(t), nil)
	enemies := []*actor.Enemy{g1, g2}
	require.True(t, eng.InitiateCombat(s, enemies))

	eng.ProcessCombatTurn(s, dungeon.NewDefend(), enemies)
	assert.Equal(t, dungeon.Coordinate{X: 4, Y: 3}, g1.Position)
	assert.NotEqual(t, g1.Position, g2.Position)
}

func TestEngine_ForceCombatEnd(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))
	eng.ProcessCombatTurn(s, dungeon.NewDefend(), []*actor.Enemy{g})

	eng.ForceCombatEnd(s)
	assert.False(t, s.InCombat)
	assert.Equal(t, 0, s.Turn)
	assert.False(t, g.IsDead(), "force end does not resolve the fight")

	// A new session can start afterwards.
	assert.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))
}

func TestEngine_StatsAndLog(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))

	eng.ProcessCombatTurn(s, dungeon.NewAttack(g.ID), []*actor.Enemy{g})
	eng.ProcessCombatTurn(s, dungeon.NewDefend(), []*actor.Enemy{g})

	stats := eng.Stats()
	assert.Equal(t, 2, stats.TurnsProcessed)
	assert.Equal(t, 9, stats.DamageDealt)
	assert.Equal(t, 6+2, stats.DamageTaken)
	assert.Greater(t, stats.Duration, time.Duration(0))

	log := eng.Log()
	require.Len(t, log, 2)
	assert.Equal(t, 1, log[0].Number)
	assert.Equal(t, 2, log[1].Number)
}

func TestEngine_Reset(t *testing.T) {
	g := goblinAt(t, dungeon.Coordinate{X: 4, Y: 3})
	s := newState(t, g)
	eng := combat.NewEngine(openArena(t), nil)
	require.True(t, eng.InitiateCombat(s, []*actor.Enemy{g}))
	eng.ProcessCombatTurn(s, dungeon.NewAttack(g.ID), []*actor.Enemy{g})
	hp := g.CurrentHP

	eng.Reset()
	assert.Empty(t, eng.Log())
	assert.Zero(t, eng.Stats().TurnsProcessed)
	assert.Equal(t, hp, g.CurrentHP, "reset leaves actor state alone")
}

func TestEngine_Property_TurnNumbersStrictlyIncrease(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g, err := actor.NewEnemy(actor.Enemy{
			Name:        "Dummy",
			Position:    dungeon.Coordinate{X: 8, Y: 8},
			MaxHP:       1000,
			AttackPower: 0,
			Variant:     actor.VariantGuard,
		})
		require.NoError(rt, err)
		s := &combat.State{
			Player:  actor.NewPlayer("Hero", dungeon.Coordinate{X: 3, Y: 3}),
			Enemies: []*actor.Enemy{g},
		}
		m := &dungeon.Map{Width: 10, Height: 10, Rooms: []*dungeon.Room{
			{ID: "arena", Position: dungeon.Coordinate{}, Width: 10, Height: 10},
		}}
		eng := combat.NewEngine(dungeon.NewValidator(m, nil), nil)
		require.True(rt, eng.InitiateCombat(s, s.Enemies))

		turns := rapid.IntRange(1, 10).Draw(rt, "turns")
		prev := 0
		for i := 0; i < turns; i++ {
			turn := eng.ProcessCombatTurn(s, dungeon.NewDefend(), s.Enemies)
			require.NotNil(rt, turn)
			assert.Equal(rt, prev+1, turn.Number)
			prev = turn.Number
		}
	})
}
