package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ironvein/delve/internal/config"
	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/dungeon"
)

// Service is the websocket front door: it accepts client connections,
// runs one Session per connection, and translates JSON envelopes into
// session commands. It implements the server.Service lifecycle contract.
type Service struct {
	cfg       config.ServerConfig
	level     *dungeon.Map
	levelID   string
	templates map[string]*actor.Template
	maxTurns  int
	recorder  EncounterRecorder
	store     PlayerStore
	logger    *zap.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
	wg         sync.WaitGroup
}

// NewService wires the service over preloaded content. levelID names the
// level for player saves. The recorder and store may each be nil to
// disable the corresponding persistence.
//
// Precondition: level must be validated; templates must be keyed by
// template id.
func NewService(cfg config.ServerConfig, level *dungeon.Map, levelID string, templates []*actor.Template, maxTurns int, recorder EncounterRecorder, store PlayerStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[string]*actor.Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	s := &Service{
		cfg:       cfg,
		level:     level,
		levelID:   levelID,
		templates: byID,
		maxTurns:  maxTurns,
		recorder:  recorder,
		store:     store,
		logger:    logger.Named("gameserver"),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.httpServer = &http.Server{Addr: cfg.Addr(), Handler: mux}
	return s
}

// Handler exposes the HTTP routing for tests and embedding.
func (s *Service) Handler() http.Handler { return s.httpServer.Handler }

// Start listens until Stop is called.
//
// Postcondition: Returns nil on graceful shutdown, or the listener error.
func (s *Service) Start() error {
	s.logger.Info("listening", zap.String("addr", s.cfg.Addr()))
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket listener: %w", err)
	}
	return nil
}

// Stop drains open sessions within the configured grace period.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("shutdown", zap.Error(err))
	}
	s.wg.Wait()
}

func (s *Service) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	conn := NewConnection(ws, s.cfg.ReadTimeout, s.cfg.WriteTimeout, s.logger)
	go conn.WritePump()
	defer conn.Close()

	var session *Session
	conn.ReadPump(func(message []byte) {
		for _, env := range s.dispatch(&session, conn, message) {
			conn.Send(env)
		}
	})

	if session != nil {
		s.logger.Info("client disconnected", zap.String("session", session.ID))
	}
}

// dispatch decodes one inbound envelope and routes it. The session
// pointer is populated by the join message and required by every other
// command.
func (s *Service) dispatch(session **Session, conn *Connection, message []byte) []Envelope {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return []Envelope{errEnvelope(CodeBadPayload, "malformed envelope")}
	}

	if env.Type == MessageTypeJoin {
		return s.handleJoin(session, env.Payload)
	}
	if *session == nil {
		return []Envelope{errEnvelope(CodeNotJoined, "join before issuing commands")}
	}

	switch env.Type {
	case MessageTypeMove:
		var p MovePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return []Envelope{errEnvelope(CodeBadPayload, "malformed move payload")}
		}
		return (*session).HandleMove(p.Direction)
	case MessageTypeAttack:
		var p AttackPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return []Envelope{errEnvelope(CodeBadPayload, "malformed attack payload")}
		}
		return (*session).HandleAttack(p.TargetID)
	case MessageTypeDefend:
		return (*session).HandleDefend()
	case MessageTypeState:
		return []Envelope{mustEnvelope(MessageTypeState, (*session).Snapshot())}
	default:
		return []Envelope{errEnvelope(CodeUnknownMessage, fmt.Sprintf("unknown message type %q", env.Type))}
	}
}

func (s *Service) handleJoin(session **Session, payload json.RawMessage) []Envelope {
	if *session != nil {
		return []Envelope{errEnvelope(CodeAlreadyJoined, "session already started")}
	}
	var p JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Name == "" {
		return []Envelope{errEnvelope(CodeBadPayload, "join requires a player name")}
	}

	sess, err := NewSession(s.level, s.templates, p.Name, s.levelID, s.maxTurns, s.recorder, s.store, s.logger)
	if err != nil {
		s.logger.Error("creating session", zap.Error(err))
		return []Envelope{errEnvelope(CodeBadPayload, "could not start session")}
	}
	*session = sess

	return []Envelope{
		mustEnvelope(MessageTypeWelcome, JoinPayload{Name: p.Name}),
		mustEnvelope(MessageTypeState, sess.Snapshot()),
	}
}
