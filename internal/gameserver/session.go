package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/combat"
	"github.com/ironvein/delve/internal/game/dungeon"
)

// EncounterRecord is the durable summary of one finished combat session.
type EncounterRecord struct {
	SessionID   string
	PlayerName  string
	Outcome     combat.Outcome
	Turns       int
	DamageDealt int
	DamageTaken int
	Duration    time.Duration
	EndedAt     time.Time
}

// EncounterRecorder persists finished encounters. Implementations live at
// the storage boundary; a nil recorder disables persistence.
type EncounterRecorder interface {
	RecordEncounter(ctx context.Context, rec EncounterRecord) error
}

// PlayerProgress is the durable slice of a player's run: stats, earned
// experience, and the cell they last stood on. LevelID names the level
// the position belongs to.
type PlayerProgress struct {
	Name       string
	LevelID    string
	Position   dungeon.Coordinate
	CurrentHP  int
	MaxHP      int
	Level      int
	Experience int
}

// PlayerStore loads and saves player progress across sessions. A nil
// store disables save persistence; LoadPlayer reports ok=false when the
// player has no save yet.
type PlayerStore interface {
	SavePlayer(ctx context.Context, p PlayerProgress) error
	LoadPlayer(ctx context.Context, name string) (PlayerProgress, bool, error)
}

// storeTimeout bounds every call across the storage boundary.
const storeTimeout = 5 * time.Second

// Session is one player's run through a level: the loaded map, the live
// enemy roster, and the combat engine driving encounters. All handler
// methods are safe for concurrent use; the read pump is the only caller
// in practice.
type Session struct {
	ID string

	mu        sync.Mutex
	m         *dungeon.Map
	levelID   string
	validator *dungeon.Validator
	engine    *combat.Engine
	state     *combat.State
	maxTurns  int
	recorder  EncounterRecorder
	store     PlayerStore
	logger    *zap.Logger

	// statsBase is the engine's running totals at the start of the
	// current combat session; finished encounters record the delta.
	statsBase combat.Stats
}

// NewSession builds a session over the given map: the player spawns in
// the entrance room and every room's enemy list is instantiated from
// templates. A prior save from the store, when present, restores the
// player's stats before enemies are placed. maxTurns caps a combat
// session; zero means unlimited.
//
// Precondition: m must be validated; templates must cover every enemy id
// referenced by the map's rooms.
func NewSession(m *dungeon.Map, templates map[string]*actor.Template, playerName, levelID string, maxTurns int, recorder EncounterRecorder, store PlayerStore, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	spawn, err := playerSpawn(m)
	if err != nil {
		return nil, err
	}
	player := actor.NewPlayer(playerName, spawn)

	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		prog, ok, err := store.LoadPlayer(ctx, playerName)
		cancel()
		switch {
		case err != nil:
			logger.Warn("loading player save", zap.String("player", playerName), zap.Error(err))
		case ok:
			restoreProgress(player, prog, levelID, m)
		}
	}

	enemies, err := spawnEnemies(m, templates, player.Position)
	if err != nil {
		return nil, err
	}

	validator := dungeon.NewValidator(m, player)
	s := &Session{
		ID:        uuid.NewString(),
		m:         m,
		levelID:   levelID,
		validator: validator,
		engine:    combat.NewEngine(validator, logger),
		state:     &combat.State{Player: player, Enemies: enemies},
		maxTurns:  maxTurns,
		recorder:  recorder,
		store:     store,
		logger:    logger.With(zap.String("session", playerName)),
	}
	s.logger.Info("session created",
		zap.String("id", s.ID),
		zap.Int("enemies", len(enemies)),
	)
	return s, nil
}

// HandleMove processes a movement command: a combat turn while in
// combat, otherwise free exploration followed by an encounter check.
//
// Postcondition: The returned envelopes always end with a state snapshot
// unless the command was rejected outright.
func (s *Session) HandleMove(dir dungeon.Direction) []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !dir.IsCardinal() {
		return []Envelope{errEnvelope(CodeBadDirection, fmt.Sprintf("unknown direction %q", dir))}
	}
	if s.state.Player.IsDead() {
		return []Envelope{errEnvelope(CodeSessionOver, "player is dead")}
	}

	if s.state.InCombat {
		return s.combatTurn(dungeon.NewMove(dir))
	}

	s.validator.UpdateActor(s.state.Player)
	res := s.validator.ExecuteMovement(dungeon.NewMove(dir))
	if !res.OK {
		return []Envelope{
			errEnvelope(CodeMoveBlocked, string(res.Reason)),
			s.snapshotEnvelope(),
		}
	}

	var out []Envelope
	if hostile := s.engine.CheckForEncounter(s.state); len(hostile) > 0 {
		if s.engine.InitiateCombat(s.state, s.state.Enemies) {
			s.statsBase = s.engine.Stats()
			ids := make([]string, len(hostile))
			for i, en := range hostile {
				ids[i] = en.ID
			}
			out = append(out, mustEnvelope(MessageTypeCombatStart, CombatStartPayload{EnemyIDs: ids}))
		}
	}
	return append(out, s.snapshotEnvelope())
}

// HandleAttack processes an attack command. Attacking an adjacent enemy
// while exploring pulls the session into combat first.
func (s *Session) HandleAttack(targetID string) []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Player.IsDead() {
		return []Envelope{errEnvelope(CodeSessionOver, "player is dead")}
	}

	var out []Envelope
	if !s.state.InCombat {
		hostile := s.engine.CheckForEncounter(s.state)
		if len(hostile) == 0 || !s.engine.InitiateCombat(s.state, s.state.Enemies) {
			return []Envelope{errEnvelope(CodeMoveBlocked, "no enemy in reach")}
		}
		s.statsBase = s.engine.Stats()
		ids := make([]string, len(hostile))
		for i, en := range hostile {
			ids[i] = en.ID
		}
		out = append(out, mustEnvelope(MessageTypeCombatStart, CombatStartPayload{EnemyIDs: ids}))
	}
	return append(out, s.combatTurn(dungeon.NewAttack(targetID))...)
}

// HandleDefend processes a defend command; outside combat it is a
// harmless stance with no effect beyond the snapshot.
func (s *Session) HandleDefend() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Player.IsDead() {
		return []Envelope{errEnvelope(CodeSessionOver, "player is dead")}
	}
	if !s.state.InCombat {
		return []Envelope{s.snapshotEnvelope()}
	}
	return s.combatTurn(dungeon.NewDefend())
}

// Snapshot returns the current client-visible state.
func (s *Session) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// combatTurn runs one engine turn and translates the result, enforcing
// the configured turn cap. Callers hold s.mu.
func (s *Session) combatTurn(action dungeon.Action) []Envelope {
	turn := s.engine.ProcessCombatTurn(s.state, action, s.state.Enemies)
	if turn == nil {
		return []Envelope{errEnvelope(CodeSessionOver, "no active combat")}
	}

	out := []Envelope{mustEnvelope(MessageTypeCombatTurn, TurnPayload{Turn: *turn, State: s.snapshot()})}

	if turn.Outcome == combat.OutcomeNone && s.maxTurns > 0 && turn.Number >= s.maxTurns {
		s.logger.Warn("combat turn cap reached", zap.Int("cap", s.maxTurns))
		s.engine.ForceCombatEnd(s.state)
	}

	if !s.state.InCombat {
		out = append(out, mustEnvelope(MessageTypeCombatEnd, CombatEndPayload{Outcome: turn.Outcome}))
		s.recordEncounter(turn.Outcome)
		s.savePlayer()
	}
	return out
}

func (s *Session) recordEncounter(outcome combat.Outcome) {
	if s.recorder == nil {
		return
	}
	// The engine's totals run across sessions; subtract the baseline
	// captured at combat start so the record covers only this session.
	stats := s.engine.Stats()
	rec := EncounterRecord{
		SessionID:   s.ID,
		PlayerName:  s.state.Player.Name,
		Outcome:     outcome,
		Turns:       stats.TurnsProcessed - s.statsBase.TurnsProcessed,
		DamageDealt: stats.DamageDealt - s.statsBase.DamageDealt,
		DamageTaken: stats.DamageTaken - s.statsBase.DamageTaken,
		Duration:    stats.Duration - s.statsBase.Duration,
		EndedAt:     time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.recorder.RecordEncounter(ctx, rec); err != nil {
		s.logger.Error("recording encounter", zap.Error(err))
	}
}

func (s *Session) savePlayer() {
	if s.store == nil {
		return
	}
	p := s.state.Player
	prog := PlayerProgress{
		Name:       p.Name,
		LevelID:    s.levelID,
		Position:   p.Position,
		CurrentHP:  p.CurrentHP,
		MaxHP:      p.MaxHP,
		Level:      p.Level,
		Experience: p.Experience,
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.store.SavePlayer(ctx, prog); err != nil {
		s.logger.Error("saving player progress", zap.Error(err))
	}
}

func (s *Session) snapshot() StateSnapshot {
	p := s.state.Player
	snap := StateSnapshot{
		Player: PlayerView{
			Name:       p.Name,
			Position:   p.Position,
			CurrentHP:  p.CurrentHP,
			MaxHP:      p.MaxHP,
			Level:      p.Level,
			Experience: p.Experience,
		},
		InCombat: s.state.InCombat,
		Turn:     s.state.Turn,
	}
	for _, en := range s.state.Enemies {
		snap.Enemies = append(snap.Enemies, EnemyView{
			ID:         en.ID,
			TemplateID: en.TemplateID,
			Name:       en.Name,
			Position:   en.Position,
			CurrentHP:  en.CurrentHP,
			MaxHP:      en.MaxHP,
			Variant:    string(en.Variant),
		})
	}
	return snap
}

func (s *Session) snapshotEnvelope() Envelope {
	return mustEnvelope(MessageTypeState, s.snapshot())
}

func errEnvelope(code, msg string) Envelope {
	return mustEnvelope(MessageTypeError, ErrorPayload{Code: code, Message: msg})
}

// mustEnvelope wraps NewEnvelope for payload types this package controls.
func mustEnvelope(t MessageType, payload any) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(fmt.Sprintf("gameserver: marshalling %s payload: %v", t, err))
	}
	return env
}

// restoreProgress applies a prior save to a freshly spawned player. A
// save with no health left resumes at full health. The saved position is
// restored only when the save belongs to this level and the cell is
// still walkable; otherwise the entrance spawn stands.
func restoreProgress(player *actor.Player, prog PlayerProgress, levelID string, m *dungeon.Map) {
	if prog.Level > 0 {
		player.Level = prog.Level
	}
	player.Experience = prog.Experience
	if prog.MaxHP > 0 {
		player.MaxHP = prog.MaxHP
	}
	if prog.CurrentHP > 0 {
		player.CurrentHP = prog.CurrentHP
	} else {
		player.CurrentHP = player.MaxHP
	}
	if prog.LevelID == levelID && m.IsWalkable(prog.Position) {
		player.MoveTo(prog.Position)
	}
}

// playerSpawn picks the center of the entrance room, falling back to the
// first room when no entrance is declared.
func playerSpawn(m *dungeon.Map) (dungeon.Coordinate, error) {
	var target *dungeon.Room
	for _, r := range m.Rooms {
		if r.Category == dungeon.CategoryEntrance {
			target = r
			break
		}
	}
	if target == nil && len(m.Rooms) > 0 {
		target = m.Rooms[0]
	}
	if target == nil {
		return dungeon.Coordinate{}, fmt.Errorf("gameserver: map has no rooms to spawn into")
	}
	return dungeon.Coordinate{
		X: target.Position.X + target.Width/2,
		Y: target.Position.Y + target.Height/2,
	}, nil
}

// spawnEnemies instantiates every room's enemy list, placing each enemy
// on the first free cell of its room in row-major order. Patrol enemies
// walk between their spawn cell and the room's far corner.
func spawnEnemies(m *dungeon.Map, templates map[string]*actor.Template, playerPos dungeon.Coordinate) ([]*actor.Enemy, error) {
	occupied := map[dungeon.Coordinate]bool{playerPos: true}
	var enemies []*actor.Enemy

	for _, room := range m.Rooms {
		for _, templateID := range room.EnemyIDs {
			tmpl, ok := templates[templateID]
			if !ok {
				return nil, fmt.Errorf("gameserver: room %q references unknown enemy template %q", room.ID, templateID)
			}
			pos, ok := freeCell(room, occupied)
			if !ok {
				return nil, fmt.Errorf("gameserver: room %q has no free cell for enemy %q", room.ID, templateID)
			}

			var patrol []dungeon.Coordinate
			if actor.Variant(tmpl.Variant) == actor.VariantPatrol {
				far := dungeon.Coordinate{
					X: room.Position.X + room.Width - 1,
					Y: room.Position.Y + room.Height - 1,
				}
				if far == pos {
					far = room.Position
				}
				if far == pos {
					return nil, fmt.Errorf("gameserver: room %q is too small for patrol enemy %q", room.ID, templateID)
				}
				patrol = []dungeon.Coordinate{pos, far}
			}

			en, err := tmpl.Spawn(pos, patrol)
			if err != nil {
				return nil, fmt.Errorf("gameserver: spawning %q in room %q: %w", templateID, room.ID, err)
			}
			occupied[pos] = true
			enemies = append(enemies, en)
		}
	}
	return enemies, nil
}

func freeCell(room *dungeon.Room, occupied map[dungeon.Coordinate]bool) (dungeon.Coordinate, bool) {
	for y := room.Position.Y; y < room.Position.Y+room.Height; y++ {
		for x := room.Position.X; x < room.Position.X+room.Width; x++ {
			c := dungeon.Coordinate{X: x, Y: y}
			if !occupied[c] {
				return c, true
			}
		}
	}
	return dungeon.Coordinate{}, false
}
