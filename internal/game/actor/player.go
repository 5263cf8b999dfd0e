// Package actor defines the tactical entities: the player character and
// hostile enemies, with their combat stats and damage rules.
package actor

import "github.com/ironvein/delve/internal/game/dungeon"

// Stats holds the player's four combat attributes.
type Stats struct {
	Strength     int
	Defense      int
	Agility      int
	Intelligence int
}

// EquipSlot names an equipment slot.
type EquipSlot string

const (
	SlotWeapon EquipSlot = "weapon"
	SlotArmor  EquipSlot = "armor"
)

// Item is an inventory entry. Bonus applies to attack damage for weapon
// items and to defense for armor items while equipped.
type Item struct {
	ID    string
	Name  string
	Slot  EquipSlot
	Bonus int
}

// Player is the controlled character. Created once per session; mutated
// by movement and combat.
type Player struct {
	Name       string
	Position   dungeon.Coordinate
	CurrentHP  int
	MaxHP      int
	Level      int
	Experience int
	Stats      Stats
	Inventory  []Item
	Equipment  map[EquipSlot]Item

	defending bool
}

// NewPlayer creates a level-1 player at pos with baseline stats.
//
// Postcondition: CurrentHP == MaxHP; Equipment is non-nil and empty.
func NewPlayer(name string, pos dungeon.Coordinate) *Player {
	return &Player{
		Name:      name,
		Position:  pos,
		CurrentHP: 50,
		MaxHP:     50,
		Level:     1,
		Stats:     Stats{Strength: 10, Defense: 2, Agility: 5, Intelligence: 5},
		Equipment: make(map[EquipSlot]Item),
	}
}

// Pos returns the player's current cell.
func (p *Player) Pos() dungeon.Coordinate { return p.Position }

// MoveTo places the player at c. Callers must have validated c.
func (p *Player) MoveTo(c dungeon.Coordinate) { p.Position = c }

// IsDead reports whether the player has zero hit points.
func (p *Player) IsDead() bool { return p.CurrentHP <= 0 }

// SetDefending toggles the defend stance. While defending, incoming
// damage is halved before the defense formula; a halved amount of zero
// is fully negated.
func (p *Player) SetDefending(on bool) { p.defending = on }

// IsDefending reports whether the defend stance is active.
func (p *Player) IsDefending() bool { return p.defending }

// TakeDamage applies amount to the player: effective damage is
// max(1, amount - defense), so at least one point always lands on an
// undefended hit. Defending halves amount first and negates it entirely
// when the halved amount reaches zero.
//
// Postcondition: CurrentHP stays within [0, MaxHP]. Returns whether the
// player is still alive.
func (p *Player) TakeDamage(amount int) bool {
	if p.defending {
		amount /= 2
		if amount == 0 {
			return p.CurrentHP > 0
		}
	}
	effective := amount - p.EffectiveDefense()
	if effective < 1 {
		effective = 1
	}
	p.CurrentHP -= effective
	if p.CurrentHP < 0 {
		p.CurrentHP = 0
	}
	return p.CurrentHP > 0
}

// AttackDamage returns the damage of one player attack: strength plus
// the equipped weapon's bonus.
func (p *Player) AttackDamage() int {
	dmg := p.Stats.Strength
	if w, ok := p.Equipment[SlotWeapon]; ok {
		dmg += w.Bonus
	}
	return dmg
}

// EffectiveDefense returns base defense plus the equipped armor's bonus.
func (p *Player) EffectiveDefense() int {
	def := p.Stats.Defense
	if a, ok := p.Equipment[SlotArmor]; ok {
		def += a.Bonus
	}
	return def
}

// AddItem appends an item to the inventory.
func (p *Player) AddItem(item Item) {
	p.Inventory = append(p.Inventory, item)
}

// Equip moves the named inventory item into its slot, returning any
// previously equipped item to the inventory.
//
// Postcondition: Returns false if no inventory item has the given id or
// the item has no slot; the player is unchanged in that case.
func (p *Player) Equip(itemID string) bool {
	for i, item := range p.Inventory {
		if item.ID != itemID {
			continue
		}
		if item.Slot == "" {
			return false
		}
		if prev, ok := p.Equipment[item.Slot]; ok {
			p.Inventory = append(p.Inventory, prev)
		}
		p.Equipment[item.Slot] = item
		p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
		return true
	}
	return false
}

// GainExperience adds xp and applies level-ups: each level requires
// level*100 experience, and each level-up raises MaxHP by 5 (healing
// the new maximum's worth of the increase).
func (p *Player) GainExperience(xp int) {
	p.Experience += xp
	for p.Experience >= p.Level*100 {
		p.Experience -= p.Level * 100
		p.Level++
		p.MaxHP += 5
		p.CurrentHP += 5
	}
}
