// Package dungeon provides the grid geometry for the tactical core:
// coordinates, cardinal directions, the level map model, and the
// movement validator.
package dungeon

// Coordinate is an integer grid cell. Coordinates are value types and
// are copied freely.
type Coordinate struct {
	X int
	Y int
}

// Direction is one of the four cardinal movement directions.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// CardinalDirections lists the four directions in a fixed order. The
// order determines neighbor enumeration in AdjacentPositions.
var CardinalDirections = []Direction{North, South, East, West}

// IsCardinal reports whether d is one of the four cardinal directions.
func (d Direction) IsCardinal() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

// Opposite returns the reverse of a cardinal direction.
// For any other value it returns an empty string.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		return ""
	}
}

// Delta returns the unit offset for a cardinal direction. North decreases
// Y and south increases it; the origin is the top-left corner of the map.
//
// Precondition: d must be cardinal. Panics with "dungeon: invalid movement
// direction" otherwise — an unknown direction is a caller contract
// violation, not a game condition, and must never be caught and retried.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		panic("dungeon: invalid movement direction " + string(d))
	}
}

// Step returns the coordinate one cell from c in direction d.
//
// Precondition: d must be cardinal (see Delta).
func (c Coordinate) Step(d Direction) Coordinate {
	dx, dy := d.Delta()
	return Coordinate{X: c.X + dx, Y: c.Y + dy}
}

// Distance returns the Manhattan distance |Δx| + |Δy| between a and b.
//
// Postcondition: Distance(a, b) == Distance(b, a) >= 0.
func Distance(a, b Coordinate) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// AreAdjacent reports whether a and b are exactly one cardinal step apart.
func AreAdjacent(a, b Coordinate) bool {
	return Distance(a, b) == 1
}

// DirectionTo returns the cardinal direction from a to b when the two
// cells are adjacent.
//
// Postcondition: Returns (direction, true) iff AreAdjacent(a, b).
func DirectionTo(a, b Coordinate) (Direction, bool) {
	if !AreAdjacent(a, b) {
		return "", false
	}
	switch {
	case b.Y < a.Y:
		return North, true
	case b.Y > a.Y:
		return South, true
	case b.X > a.X:
		return East, true
	default:
		return West, true
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
