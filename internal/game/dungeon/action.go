package dungeon

import "time"

// ActionKind is the closed set of things an actor can do in one turn.
type ActionKind string

const (
	ActionMove   ActionKind = "move"
	ActionAttack ActionKind = "attack"
	ActionDefend ActionKind = "defend"
)

// Action is one actor decision for one turn. Move actions carry a
// cardinal Direction; attack actions carry the target's id. At records
// when the action was decided.
type Action struct {
	Kind      ActionKind
	Direction Direction
	TargetID  string
	At        time.Time
}

// NewMove returns a timestamped move action in direction d.
func NewMove(d Direction) Action {
	return Action{Kind: ActionMove, Direction: d, At: time.Now()}
}

// NewAttack returns a timestamped attack action against targetID.
func NewAttack(targetID string) Action {
	return Action{Kind: ActionAttack, TargetID: targetID, At: time.Now()}
}

// NewDefend returns a timestamped defend action.
func NewDefend() Action {
	return Action{Kind: ActionDefend, At: time.Now()}
}
