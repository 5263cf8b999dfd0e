package dungeon

import "fmt"

// RoomCategory tags a room with its gameplay role.
type RoomCategory string

const (
	CategoryEntrance RoomCategory = "entrance"
	CategoryChamber  RoomCategory = "chamber"
	CategoryTreasure RoomCategory = "treasure"
	CategoryLair     RoomCategory = "lair"
)

// Room is a rectangular walkable area. Position is the top-left cell;
// the rectangle covers x in [Position.X, Position.X+Width) and
// y in [Position.Y, Position.Y+Height). Rooms reference corridors by
// string id only — never by pointer — so the map graph stays acyclic.
type Room struct {
	ID       string
	Position Coordinate
	Width    int
	Height   int
	Category RoomCategory
	// ItemIDs and EnemyIDs list the contents placed at map-build time.
	ItemIDs  []string
	EnemyIDs []string
	// ConnectionIDs lists the corridors touching this room.
	ConnectionIDs []string
}

// Contains reports whether c lies inside the room's rectangle.
func (r *Room) Contains(c Coordinate) bool {
	return c.X >= r.Position.X && c.X < r.Position.X+r.Width &&
		c.Y >= r.Position.Y && c.Y < r.Position.Y+r.Height
}

// Corridor is a walkable path linking two rooms, referenced by id.
type Corridor struct {
	ID       string
	FromRoom string
	ToRoom   string
	// Path is the ordered sequence of walkable cells making up the corridor.
	Path []Coordinate
}

// Contains reports whether c is one of the corridor's path cells.
func (cor *Corridor) Contains(c Coordinate) bool {
	for _, p := range cor.Path {
		if p == c {
			return true
		}
	}
	return false
}

// Map is the static level geometry: an ordered set of rooms and
// corridors inside a Width x Height grid. Maps are built once (by the
// loader or the map-generation collaborator) and never mutated; the
// Validator holds a non-owning reference.
type Map struct {
	Width     int
	Height    int
	Rooms     []*Room
	Corridors []*Corridor
}

// InBounds reports whether c lies inside [0,Width) x [0,Height).
func (m *Map) InBounds(c Coordinate) bool {
	return c.X >= 0 && c.X < m.Width && c.Y >= 0 && c.Y < m.Height
}

// IsWalkable reports whether c is inside some room's rectangle or on
// some corridor's path. Cells outside bounds are never walkable.
func (m *Map) IsWalkable(c Coordinate) bool {
	if !m.InBounds(c) {
		return false
	}
	for _, r := range m.Rooms {
		if r.Contains(c) {
			return true
		}
	}
	for _, cor := range m.Corridors {
		if cor.Contains(c) {
			return true
		}
	}
	return false
}

// RoomByID returns the room with the given id, in declaration order.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (m *Map) RoomByID(id string) (*Room, bool) {
	for _, r := range m.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// CorridorByID returns the corridor with the given id.
//
// Postcondition: Returns (corridor, true) if found, or (nil, false) otherwise.
func (m *Map) CorridorByID(id string) (*Corridor, bool) {
	for _, cor := range m.Corridors {
		if cor.ID == id {
			return cor, true
		}
	}
	return nil, false
}

// Validate checks map well-formedness: positive dimensions, unique ids,
// every room inside bounds, every corridor path cell inside bounds, and
// corridor endpoints referencing known rooms. When more than one room
// exists at least one corridor must connect two rooms.
//
// Postcondition: Returns nil if valid, or an error describing the first
// violation.
func (m *Map) Validate() error {
	if m.Width < 1 || m.Height < 1 {
		return fmt.Errorf("map: dimensions must be positive, got %dx%d", m.Width, m.Height)
	}
	roomIDs := make(map[string]struct{}, len(m.Rooms))
	for _, r := range m.Rooms {
		if r.ID == "" {
			return fmt.Errorf("map: room has empty ID")
		}
		if _, dup := roomIDs[r.ID]; dup {
			return fmt.Errorf("map: duplicate room ID %q", r.ID)
		}
		roomIDs[r.ID] = struct{}{}
		if r.Width < 1 || r.Height < 1 {
			return fmt.Errorf("map: room %q: size must be positive, got %dx%d", r.ID, r.Width, r.Height)
		}
		if r.Position.X < 0 || r.Position.Y < 0 ||
			r.Position.X+r.Width > m.Width || r.Position.Y+r.Height > m.Height {
			return fmt.Errorf("map: room %q does not fit inside %dx%d", r.ID, m.Width, m.Height)
		}
	}
	corridorIDs := make(map[string]struct{}, len(m.Corridors))
	for _, cor := range m.Corridors {
		if cor.ID == "" {
			return fmt.Errorf("map: corridor has empty ID")
		}
		if _, dup := corridorIDs[cor.ID]; dup {
			return fmt.Errorf("map: duplicate corridor ID %q", cor.ID)
		}
		corridorIDs[cor.ID] = struct{}{}
		if len(cor.Path) == 0 {
			return fmt.Errorf("map: corridor %q has an empty path", cor.ID)
		}
		if _, ok := roomIDs[cor.FromRoom]; !ok {
			return fmt.Errorf("map: corridor %q references unknown room %q", cor.ID, cor.FromRoom)
		}
		if _, ok := roomIDs[cor.ToRoom]; !ok {
			return fmt.Errorf("map: corridor %q references unknown room %q", cor.ID, cor.ToRoom)
		}
		for _, c := range cor.Path {
			if !m.InBounds(c) {
				return fmt.Errorf("map: corridor %q path cell (%d,%d) is out of bounds", cor.ID, c.X, c.Y)
			}
		}
	}
	if len(m.Rooms) > 1 && len(m.Corridors) == 0 {
		return fmt.Errorf("map: %d rooms but no connecting corridor", len(m.Rooms))
	}
	for _, r := range m.Rooms {
		for _, id := range r.ConnectionIDs {
			if _, ok := corridorIDs[id]; !ok {
				return fmt.Errorf("map: room %q references unknown corridor %q", r.ID, id)
			}
		}
	}
	return nil
}
