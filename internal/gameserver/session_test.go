package gameserver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/combat"
	"github.com/ironvein/delve/internal/game/dungeon"
	"github.com/ironvein/delve/internal/gameserver"
)

// hallway is a 7x1 entrance room; the player spawns at its center (3,0)
// and the goblin takes the first free cell (0,0).
func hallway(t *testing.T) *dungeon.Map {
	t.Helper()
	m := &dungeon.Map{
		Width:  7,
		Height: 1,
		Rooms: []*dungeon.Room{
			{
				ID:       "hall",
				Position: dungeon.Coordinate{X: 0, Y: 0},
				Width:    7,
				Height:   1,
				Category: dungeon.CategoryEntrance,
				EnemyIDs: []string{"goblin"},
			},
		},
	}
	require.NoError(t, m.Validate())
	return m
}

func goblinTemplates() map[string]*actor.Template {
	return map[string]*actor.Template{
		"goblin": {
			ID:               "goblin",
			Name:             "Goblin",
			MaxHP:            30,
			AttackPower:      8,
			Defense:          1,
			Variant:          string(actor.VariantAggressive),
			ExperienceReward: 25,
		},
	}
}

type captureRecorder struct {
	records []gameserver.EncounterRecord
}

func (c *captureRecorder) RecordEncounter(_ context.Context, rec gameserver.EncounterRecord) error {
	c.records = append(c.records, rec)
	return nil
}

// captureStore is an in-memory PlayerStore: saves append, loads serve
// the preloaded save when names match.
type captureStore struct {
	save  *gameserver.PlayerProgress
	saved []gameserver.PlayerProgress
}

func (c *captureStore) SavePlayer(_ context.Context, p gameserver.PlayerProgress) error {
	c.saved = append(c.saved, p)
	return nil
}

func (c *captureStore) LoadPlayer(_ context.Context, name string) (gameserver.PlayerProgress, bool, error) {
	if c.save == nil || c.save.Name != name {
		return gameserver.PlayerProgress{}, false, nil
	}
	return *c.save, true, nil
}

func newHallSession(t *testing.T, rec gameserver.EncounterRecorder) *gameserver.Session {
	t.Helper()
	s, err := gameserver.NewSession(hallway(t), goblinTemplates(), "Hero", "hall", 0, rec, nil, nil)
	require.NoError(t, err)
	return s
}

func decode[T any](t *testing.T, env gameserver.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Payload, &out))
	return out
}

func TestNewSession_SpawnsPlayerAndEnemies(t *testing.T) {
	s := newHallSession(t, nil)
	snap := s.Snapshot()

	assert.Equal(t, dungeon.Coordinate{X: 3, Y: 0}, snap.Player.Position)
	require.Len(t, snap.Enemies, 1)
	assert.Equal(t, "goblin", snap.Enemies[0].TemplateID)
	assert.Equal(t, dungeon.Coordinate{X: 0, Y: 0}, snap.Enemies[0].Position)
	assert.False(t, snap.InCombat)
}

func TestNewSession_UnknownTemplate(t *testing.T) {
	_, err := gameserver.NewSession(hallway(t), nil, "Hero", "hall", 0, nil, nil, nil)
	assert.Error(t, err)
}

func TestSession_HandleMove_InvalidDirection(t *testing.T) {
	s := newHallSession(t, nil)
	out := s.HandleMove("up")
	require.Len(t, out, 1)
	assert.Equal(t, gameserver.MessageTypeError, out[0].Type)
	assert.Equal(t, gameserver.CodeBadDirection, decode[gameserver.ErrorPayload](t, out[0]).Code)
}

func TestSession_HandleMove_Blocked(t *testing.T) {
	s := newHallSession(t, nil)
	// The hallway is one cell tall; north leads out of the room.
	out := s.HandleMove(dungeon.North)
	require.Len(t, out, 2)
	assert.Equal(t, gameserver.MessageTypeError, out[0].Type)
	assert.Equal(t, gameserver.CodeMoveBlocked, decode[gameserver.ErrorPayload](t, out[0]).Code)
	assert.Equal(t, gameserver.MessageTypeState, out[1].Type)
}

func TestSession_HandleMove_TriggersEncounter(t *testing.T) {
	s := newHallSession(t, nil)

	out := s.HandleMove(dungeon.West)
	require.Len(t, out, 1)
	snap := decode[gameserver.StateSnapshot](t, out[0])
	assert.False(t, snap.InCombat)

	out = s.HandleMove(dungeon.West)
	require.Len(t, out, 2)
	assert.Equal(t, gameserver.MessageTypeCombatStart, out[0].Type)
	snap = decode[gameserver.StateSnapshot](t, out[1])
	assert.True(t, snap.InCombat)
	assert.Equal(t, dungeon.Coordinate{X: 1, Y: 0}, snap.Player.Position)
}

func TestSession_CombatToVictory(t *testing.T) {
	rec := &captureRecorder{}
	s := newHallSession(t, rec)

	s.HandleMove(dungeon.West)
	out := s.HandleMove(dungeon.West)
	require.Equal(t, gameserver.MessageTypeCombatStart, out[0].Type)
	start := decode[gameserver.CombatStartPayload](t, out[0])
	require.Len(t, start.EnemyIDs, 1)
	target := start.EnemyIDs[0]

	// Strength 10 vs defense 1 lands 9 per turn; 30 HP falls on turn 4.
	var last []gameserver.Envelope
	for i := 0; i < 4; i++ {
		last = s.HandleAttack(target)
		require.Equal(t, gameserver.MessageTypeCombatTurn, last[0].Type)
	}

	require.Len(t, last, 2)
	end := decode[gameserver.CombatEndPayload](t, last[1])
	assert.Equal(t, combat.OutcomeVictory, end.Outcome)

	snap := s.Snapshot()
	assert.False(t, snap.InCombat)
	assert.Empty(t, snap.Enemies)
	assert.Equal(t, 25, snap.Player.Experience)

	require.Len(t, rec.records, 1)
	assert.Equal(t, combat.OutcomeVictory, rec.records[0].Outcome)
	assert.Equal(t, 4, rec.records[0].Turns)
	assert.Equal(t, "Hero", rec.records[0].PlayerName)
}

func TestSession_HandleAttack_NoAdjacentEnemy(t *testing.T) {
	s := newHallSession(t, nil)
	out := s.HandleAttack("anything")
	require.Len(t, out, 1)
	assert.Equal(t, gameserver.MessageTypeError, out[0].Type)
}

func TestSession_HandleDefend_OutsideCombat(t *testing.T) {
	s := newHallSession(t, nil)
	out := s.HandleDefend()
	require.Len(t, out, 1)
	assert.Equal(t, gameserver.MessageTypeState, out[0].Type)
}

func TestSession_TurnCapForcesEnd(t *testing.T) {
	rec := &captureRecorder{}
	s, err := gameserver.NewSession(hallway(t), goblinTemplates(), "Hero", "hall", 2, rec, nil, nil)
	require.NoError(t, err)

	s.HandleMove(dungeon.West)
	s.HandleMove(dungeon.West)

	out := s.HandleDefend()
	require.Len(t, out, 1, "first turn stays in combat")

	out = s.HandleDefend()
	require.Len(t, out, 2, "cap reached, session force-ended")
	end := decode[gameserver.CombatEndPayload](t, out[1])
	assert.Equal(t, combat.OutcomeNone, end.Outcome)
	assert.False(t, s.Snapshot().InCombat)
	require.Len(t, rec.records, 1)
}

func TestSession_RecordsEachEncounterSeparately(t *testing.T) {
	rec := &captureRecorder{}
	s, err := gameserver.NewSession(hallway(t), goblinTemplates(), "Hero", "hall", 2, rec, nil, nil)
	require.NoError(t, err)

	s.HandleMove(dungeon.West)
	out := s.HandleMove(dungeon.West)
	require.Equal(t, gameserver.MessageTypeCombatStart, out[0].Type)
	target := decode[gameserver.CombatStartPayload](t, out[0]).EnemyIDs[0]

	// First encounter: two defended turns, then the cap ends it.
	s.HandleDefend()
	s.HandleDefend()
	require.Len(t, rec.records, 1)

	// The goblin is still adjacent; attacking starts a second encounter
	// that the cap ends after two more turns.
	s.HandleAttack(target)
	s.HandleAttack(target)
	require.Len(t, rec.records, 2)

	first, second := rec.records[0], rec.records[1]
	assert.Equal(t, 2, first.Turns)
	assert.Equal(t, 0, first.DamageDealt)
	assert.Equal(t, 4, first.DamageTaken, "two defended goblin hits: (8/2)-2 each")

	assert.Equal(t, 2, second.Turns, "second record covers only its own session")
	assert.Equal(t, 18, second.DamageDealt, "two hits of strength 10 vs defense 1")
	assert.Equal(t, 12, second.DamageTaken)
}

func TestNewSession_RestoresSavedProgress(t *testing.T) {
	store := &captureStore{save: &gameserver.PlayerProgress{
		Name:       "Hero",
		LevelID:    "hall",
		Position:   dungeon.Coordinate{X: 5, Y: 0},
		CurrentHP:  40,
		MaxHP:      55,
		Level:      2,
		Experience: 120,
	}}
	s, err := gameserver.NewSession(hallway(t), goblinTemplates(), "Hero", "hall", 0, nil, store, nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, dungeon.Coordinate{X: 5, Y: 0}, snap.Player.Position)
	assert.Equal(t, 40, snap.Player.CurrentHP)
	assert.Equal(t, 55, snap.Player.MaxHP)
	assert.Equal(t, 2, snap.Player.Level)
	assert.Equal(t, 120, snap.Player.Experience)
}

func TestNewSession_SaveFromOtherLevelKeepsSpawn(t *testing.T) {
	store := &captureStore{save: &gameserver.PlayerProgress{
		Name:       "Hero",
		LevelID:    "elsewhere",
		Position:   dungeon.Coordinate{X: 5, Y: 0},
		CurrentHP:  40,
		MaxHP:      55,
		Level:      2,
		Experience: 120,
	}}
	s, err := gameserver.NewSession(hallway(t), goblinTemplates(), "Hero", "hall", 0, nil, store, nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, dungeon.Coordinate{X: 3, Y: 0}, snap.Player.Position, "stats travel, positions do not")
	assert.Equal(t, 120, snap.Player.Experience)
}

func TestSession_SavesProgressOnCombatEnd(t *testing.T) {
	store := &captureStore{}
	s, err := gameserver.NewSession(hallway(t), goblinTemplates(), "Hero", "hall", 0, nil, store, nil)
	require.NoError(t, err)

	s.HandleMove(dungeon.West)
	out := s.HandleMove(dungeon.West)
	require.Equal(t, gameserver.MessageTypeCombatStart, out[0].Type)
	target := decode[gameserver.CombatStartPayload](t, out[0]).EnemyIDs[0]

	for i := 0; i < 4; i++ {
		s.HandleAttack(target)
	}

	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, "Hero", saved.Name)
	assert.Equal(t, "hall", saved.LevelID)
	assert.Equal(t, dungeon.Coordinate{X: 1, Y: 0}, saved.Position)
	assert.Equal(t, 25, saved.Experience)
	assert.Equal(t, 32, saved.CurrentHP, "three goblin hits of 8 vs defense 2")
}
