package actor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/dungeon"
)

func TestNewPlayer(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{X: 3, Y: 3})
	assert.Equal(t, p.MaxHP, p.CurrentHP)
	assert.Equal(t, 1, p.Level)
	assert.False(t, p.IsDead())
	assert.NotNil(t, p.Equipment)
}

func TestPlayer_MoveTo(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{X: 3, Y: 3})
	p.MoveTo(dungeon.Coordinate{X: 4, Y: 3})
	assert.Equal(t, dungeon.Coordinate{X: 4, Y: 3}, p.Pos())
}

func TestPlayer_TakeDamage_FloorFormula(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{})
	p.Stats.Defense = 3

	alive := p.TakeDamage(10) // max(1, 10-3) = 7
	assert.True(t, alive)
	assert.Equal(t, p.MaxHP-7, p.CurrentHP)

	p.TakeDamage(2) // under defense, still 1 lands
	assert.Equal(t, p.MaxHP-8, p.CurrentHP)
}

func TestPlayer_TakeDamage_DefendingHalvesAndNegates(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{})
	p.Stats.Defense = 2
	p.SetDefending(true)

	p.TakeDamage(10) // halved to 5, max(1, 5-2) = 3
	assert.Equal(t, p.MaxHP-3, p.CurrentHP)

	p.TakeDamage(1) // halves to 0: fully negated
	assert.Equal(t, p.MaxHP-3, p.CurrentHP)

	p.SetDefending(false)
	p.TakeDamage(1)
	assert.Equal(t, p.MaxHP-4, p.CurrentHP)
}

func TestPlayer_Property_HealthBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := actor.NewPlayer("X", dungeon.Coordinate{})
		p.Stats.Defense = rapid.IntRange(0, 20).Draw(rt, "defense")
		hits := rapid.IntRange(1, 30).Draw(rt, "hits")
		for i := 0; i < hits; i++ {
			p.SetDefending(rapid.Bool().Draw(rt, "defending"))
			p.TakeDamage(rapid.IntRange(0, 60).Draw(rt, "amount"))
			assert.GreaterOrEqual(rt, p.CurrentHP, 0)
			assert.LessOrEqual(rt, p.CurrentHP, p.MaxHP)
		}
	})
}

func TestPlayer_AttackDamage_UsesEquippedWeapon(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{})
	base := p.AttackDamage()
	assert.Equal(t, p.Stats.Strength, base)

	p.AddItem(actor.Item{ID: "rusty-sword", Name: "Rusty Sword", Slot: actor.SlotWeapon, Bonus: 4})
	require.True(t, p.Equip("rusty-sword"))
	assert.Equal(t, base+4, p.AttackDamage())
}

func TestPlayer_Equip_SwapsPrevious(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{})
	p.AddItem(actor.Item{ID: "sword", Slot: actor.SlotWeapon, Bonus: 4})
	p.AddItem(actor.Item{ID: "axe", Slot: actor.SlotWeapon, Bonus: 6})

	require.True(t, p.Equip("sword"))
	require.True(t, p.Equip("axe"))

	assert.Equal(t, "axe", p.Equipment[actor.SlotWeapon].ID)
	// The sword went back to the inventory.
	require.Len(t, p.Inventory, 1)
	assert.Equal(t, "sword", p.Inventory[0].ID)
}

func TestPlayer_Equip_UnknownOrSlotless(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{})
	assert.False(t, p.Equip("missing"))

	p.AddItem(actor.Item{ID: "torch"})
	assert.False(t, p.Equip("torch"))
	assert.Len(t, p.Inventory, 1)
}

func TestPlayer_GainExperience_LevelsUp(t *testing.T) {
	p := actor.NewPlayer("Wren", dungeon.Coordinate{})
	startMax := p.MaxHP

	p.GainExperience(90)
	assert.Equal(t, 1, p.Level)

	p.GainExperience(10) // crosses 100 for level 1
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, startMax+5, p.MaxHP)
	assert.Equal(t, 0, p.Experience)

	p.GainExperience(450) // crosses 200 for level 2, leaves 250 toward level 3
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 250, p.Experience)
}
