// Package main provides the dungeon server binary: a WebSocket game
// service over the tactical simulation core.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ironvein/delve/internal/config"
	"github.com/ironvein/delve/internal/game/actor"
	"github.com/ironvein/delve/internal/game/dungeon"
	"github.com/ironvein/delve/internal/gameserver"
	"github.com/ironvein/delve/internal/observability"
	"github.com/ironvein/delve/internal/server"
	"github.com/ironvein/delve/internal/storage/postgres"
)

// dbSink adapts the postgres repositories to the gameserver's recorder
// and player-store interfaces.
type dbSink struct {
	encounters *postgres.EncounterRepository
	players    *postgres.PlayerRepository
}

func (s *dbSink) RecordEncounter(ctx context.Context, rec gameserver.EncounterRecord) error {
	_, err := s.encounters.Insert(ctx, postgres.Encounter{
		SessionID:   rec.SessionID,
		PlayerName:  rec.PlayerName,
		Outcome:     string(rec.Outcome),
		Turns:       rec.Turns,
		DamageDealt: rec.DamageDealt,
		DamageTaken: rec.DamageTaken,
		Duration:    rec.Duration,
		EndedAt:     rec.EndedAt,
	})
	return err
}

func (s *dbSink) SavePlayer(ctx context.Context, p gameserver.PlayerProgress) error {
	_, err := s.players.Upsert(ctx, postgres.PlayerSave{
		Name:       p.Name,
		LevelID:    p.LevelID,
		X:          p.Position.X,
		Y:          p.Position.Y,
		CurrentHP:  p.CurrentHP,
		MaxHP:      p.MaxHP,
		Level:      p.Level,
		Experience: p.Experience,
	})
	return err
}

func (s *dbSink) LoadPlayer(ctx context.Context, name string) (gameserver.PlayerProgress, bool, error) {
	save, err := s.players.GetByName(ctx, name)
	if errors.Is(err, postgres.ErrPlayerNotFound) {
		return gameserver.PlayerProgress{}, false, nil
	}
	if err != nil {
		return gameserver.PlayerProgress{}, false, err
	}
	return gameserver.PlayerProgress{
		Name:       save.Name,
		LevelID:    save.LevelID,
		Position:   dungeon.Coordinate{X: save.X, Y: save.Y},
		CurrentHP:  save.CurrentHP,
		MaxHP:      save.MaxHP,
		Level:      save.Level,
		Experience: save.Experience,
	}, true, nil
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	noDB := flag.Bool("no-db", false, "run without PostgreSQL persistence")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting dungeon server",
		zap.String("addr", cfg.Server.Addr()),
	)

	// Validate every level at boot, then pick the starting one.
	levelStart := time.Now()
	levels, err := dungeon.LoadMapsFromDir(cfg.Game.LevelsDir)
	if err != nil {
		logger.Fatal("loading levels", zap.Error(err))
	}
	startingLevel, err := dungeon.LoadMapFromFile(
		filepath.Join(cfg.Game.LevelsDir, cfg.Game.StartingLevel+".yaml"),
	)
	if err != nil {
		logger.Fatal("loading starting level",
			zap.String("level", cfg.Game.StartingLevel),
			zap.Error(err),
		)
	}
	logger.Info("levels loaded",
		zap.Int("count", len(levels)),
		zap.String("starting", cfg.Game.StartingLevel),
		zap.Duration("elapsed", time.Since(levelStart)),
	)

	templates, err := actor.LoadTemplatesFromDir(cfg.Game.EnemiesDir)
	if err != nil {
		logger.Fatal("loading enemy templates", zap.Error(err))
	}
	logger.Info("enemy templates loaded", zap.Int("count", len(templates)))

	lifecycle := server.NewLifecycle(logger)

	var recorder gameserver.EncounterRecorder
	var store gameserver.PlayerStore
	if !*noDB {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		sink := &dbSink{
			encounters: postgres.NewEncounterRepository(pool.DB()),
			players:    postgres.NewPlayerRepository(pool.DB()),
		}
		recorder = sink
		store = sink

		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	svc := gameserver.NewService(
		cfg.Server, startingLevel, cfg.Game.StartingLevel, templates,
		cfg.Game.MaxCombatTurns, recorder, store, logger,
	)
	lifecycle.Add("websocket", svc)

	logger.Info("dungeon server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
