package gameserver

import (
	"encoding/json"

	"github.com/ironvein/delve/internal/game/combat"
	"github.com/ironvein/delve/internal/game/dungeon"
)

// MessageType discriminates the JSON envelopes exchanged with clients.
type MessageType string

const (
	// Client to server.
	MessageTypeJoin   MessageType = "join"
	MessageTypeMove   MessageType = "move"
	MessageTypeAttack MessageType = "attack"
	MessageTypeDefend MessageType = "defend"
	MessageTypeState  MessageType = "state"

	// Server to client.
	MessageTypeWelcome     MessageType = "welcome"
	MessageTypeCombatStart MessageType = "combat_start"
	MessageTypeCombatTurn  MessageType = "combat_turn"
	MessageTypeCombatEnd   MessageType = "combat_end"
	MessageTypeError       MessageType = "error"
)

// Envelope is the outer frame of every message. Payload stays raw until
// the type-specific handler decodes it.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload starts a session.
type JoinPayload struct {
	Name string `json:"name"`
}

// MovePayload requests a one-cell step.
type MovePayload struct {
	Direction dungeon.Direction `json:"direction"`
}

// AttackPayload requests an attack against an enemy instance.
type AttackPayload struct {
	TargetID string `json:"target_id"`
}

// ErrorPayload reports a rejected or failed request.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes sent to clients.
const (
	CodeUnknownMessage = "UNKNOWN_MESSAGE_TYPE"
	CodeBadPayload     = "BAD_PAYLOAD"
	CodeNotJoined      = "NOT_JOINED"
	CodeAlreadyJoined  = "ALREADY_JOINED"
	CodeMoveBlocked    = "MOVE_BLOCKED"
	CodeBadDirection   = "INVALID_DIRECTION"
	CodeSessionOver    = "SESSION_OVER"
)

// EnemyView is the client-visible slice of an enemy.
type EnemyView struct {
	ID         string             `json:"id"`
	TemplateID string             `json:"template_id"`
	Name       string             `json:"name"`
	Position   dungeon.Coordinate `json:"position"`
	CurrentHP  int                `json:"current_hp"`
	MaxHP      int                `json:"max_hp"`
	Variant    string             `json:"variant"`
}

// PlayerView is the client-visible slice of the player.
type PlayerView struct {
	Name       string             `json:"name"`
	Position   dungeon.Coordinate `json:"position"`
	CurrentHP  int                `json:"current_hp"`
	MaxHP      int                `json:"max_hp"`
	Level      int                `json:"level"`
	Experience int                `json:"experience"`
}

// StateSnapshot is the full session view streamed after every processed
// command.
type StateSnapshot struct {
	Player   PlayerView  `json:"player"`
	Enemies  []EnemyView `json:"enemies"`
	InCombat bool        `json:"in_combat"`
	Turn     int         `json:"turn"`
}

// TurnPayload carries one resolved combat turn plus the resulting state.
type TurnPayload struct {
	Turn  combat.CombatTurn `json:"turn"`
	State StateSnapshot     `json:"state"`
}

// CombatStartPayload announces the enemies engaged.
type CombatStartPayload struct {
	EnemyIDs []string `json:"enemy_ids"`
}

// CombatEndPayload announces the session outcome.
type CombatEndPayload struct {
	Outcome combat.Outcome `json:"outcome"`
}

// NewEnvelope marshals a payload into an Envelope.
//
// Precondition: payload must be JSON-marshalable.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: raw}, nil
}
