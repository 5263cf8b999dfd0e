package dungeon

// BlockReason classifies why a movement was rejected. Blocked movement
// is an expected game condition, reported as a result value rather than
// an error.
type BlockReason string

const (
	// ReasonBoundary means the destination lies outside the map grid.
	ReasonBoundary BlockReason = "boundary"
	// ReasonWall means the destination is in no room and on no corridor.
	ReasonWall BlockReason = "wall"
	// ReasonInvalidAction means a non-move action was handed to
	// ExecuteMovement.
	ReasonInvalidAction BlockReason = "invalid action"
)

// MoveResult reports the outcome of a validation or movement attempt.
// Position is meaningful only when OK is true.
type MoveResult struct {
	OK       bool
	Position Coordinate
	Reason   BlockReason
}

// Mover is an actor whose position the Validator may read and mutate.
type Mover interface {
	Pos() Coordinate
	MoveTo(Coordinate)
}

// Validator answers geometric questions about a level: whether a cell
// can be occupied, which cells neighbor it, and whether two cells see
// each other. It holds non-owning references to the current Map and
// actor; both are supplied at construction and replaced only through
// UpdateMap / UpdateActor, so callers control exactly when geometry
// changes take effect. Not safe for concurrent use — the surrounding
// loop owns synchronization.
type Validator struct {
	m     *Map
	actor Mover
}

// NewValidator creates a Validator over the given map and actor.
//
// Precondition: m must be non-nil and well-formed (see Map.Validate);
// the validator does not re-check it.
func NewValidator(m *Map, actor Mover) *Validator {
	return &Validator{m: m, actor: actor}
}

// UpdateMap replaces the borrowed map reference.
func (v *Validator) UpdateMap(m *Map) { v.m = m }

// UpdateActor replaces the borrowed actor reference.
func (v *Validator) UpdateActor(actor Mover) { v.actor = actor }

// ValidateMovement reports whether pos can be occupied: inside the grid
// and on walkable geometry.
//
// Postcondition: On failure, Reason is ReasonBoundary or ReasonWall.
func (v *Validator) ValidateMovement(pos Coordinate) MoveResult {
	if !v.m.InBounds(pos) {
		return MoveResult{Reason: ReasonBoundary}
	}
	if !v.m.IsWalkable(pos) {
		return MoveResult{Reason: ReasonWall}
	}
	return MoveResult{OK: true, Position: pos}
}

// ExecuteMovement applies a move action to the current actor. The
// destination is one cardinal step from the actor's position; on success
// the actor is moved there and the new coordinate returned. A non-move
// action kind fails with ReasonInvalidAction — an expected condition,
// not an error.
//
// Precondition: the actor reference must be non-nil; a.Direction must be
// cardinal for move actions (an unknown direction panics, see
// Direction.Delta).
func (v *Validator) ExecuteMovement(a Action) MoveResult {
	if a.Kind != ActionMove {
		return MoveResult{Reason: ReasonInvalidAction}
	}
	dest := v.actor.Pos().Step(a.Direction)
	res := v.ValidateMovement(dest)
	if !res.OK {
		return res
	}
	v.actor.MoveTo(dest)
	return res
}

// AdjacentPositions returns the walkable cardinal neighbors of pos, in
// CardinalDirections order. The result may be empty.
//
// Postcondition: every returned cell passes ValidateMovement and is
// adjacent to pos.
func (v *Validator) AdjacentPositions(pos Coordinate) []Coordinate {
	var out []Coordinate
	for _, d := range CardinalDirections {
		n := pos.Step(d)
		if v.ValidateMovement(n).OK {
			out = append(out, n)
		}
	}
	return out
}

// HasLineOfSight reports whether every cell on the straight line from a
// to b is walkable. The line is traced with the integer Bresenham walk:
// the doubled error term decides whether the next step moves in X, Y, or
// both. The tie-break favors the X axis, so results are not guaranteed
// symmetric around wall corners; that asymmetry is long-standing observed
// behavior and is pinned by tests rather than corrected.
func (v *Validator) HasLineOfSight(a, b Coordinate) bool {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y

	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := sign(x1 - x0)
	sy := sign(y1 - y0)

	err := dx - dy
	for {
		if !v.m.IsWalkable(Coordinate{X: x0, Y: y0}) {
			return false
		}
		if x0 == x1 && y0 == y1 {
			return true
		}
		e2 := err * 2
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
