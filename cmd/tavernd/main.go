// Package main provides the Tavern bot binary: it connects the Discord
// gateway to the combat engine and the narrator.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mjholt/tavern/internal/bot"
	"github.com/mjholt/tavern/internal/config"
	"github.com/mjholt/tavern/internal/game/combat"
	"github.com/mjholt/tavern/internal/game/dice"
	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
	"github.com/mjholt/tavern/internal/narrator"
	"github.com/mjholt/tavern/internal/observability"
	"github.com/mjholt/tavern/internal/scripting"
	"github.com/mjholt/tavern/internal/server"
	"github.com/mjholt/tavern/internal/storage/memory"
	"github.com/mjholt/tavern/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
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

	roller := dice.NewRoller(dice.NewCryptoSource(), logger)
	engine := combat.NewEngine(roller, logger)

	if cfg.Game.ScriptsDir != "" {
		flavor, err := scripting.LoadFlavor(cfg.Game.ScriptsDir, logger)
		if err != nil {
			logger.Fatal("loading flavor scripts", zap.Error(err))
		}
		if flavor != nil {
			engine.SetFlavor(flavor)
			logger.Info("flavor scripts loaded", zap.String("dir", cfg.Game.ScriptsDir))
		}
	}

	var store session.Store
	var pool *postgres.Pool
	switch cfg.Game.Storage {
	case "memory":
		store = memory.NewStore()
		logger.Warn("using in-memory storage; sessions will not survive a restart")
	default:
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewStore(pool)
	}
	sessions := session.NewManager(store, logger)

	templates := make(map[string]*encounter.Template)
	if cfg.Game.TemplatesDir != "" {
		loaded, err := encounter.LoadTemplates(cfg.Game.TemplatesDir)
		if err != nil {
			logger.Fatal("loading encounter templates", zap.Error(err))
		}
		for _, t := range loaded {
			templates[strings.ToLower(t.ID)] = t
		}
		logger.Info("loaded encounter templates", zap.Int("count", len(templates)))
	}

	var narr narrator.Narrator = narrator.Disabled{}
	if cfg.Narrator.Enabled {
		narr = narrator.NewClaude(cfg.Narrator, logger)
		logger.Info("narrator enabled", zap.String("model", cfg.Narrator.Model))
	}

	transport, err := bot.NewDiscord(bot.DiscordOpts{Token: cfg.Discord.Token}, logger)
	if err != nil {
		logger.Fatal("creating discord transport", zap.Error(err))
	}

	b := bot.New(cfg, sessions, engine, roller, narr, templates, transport, logger)
	transport.OnMessage(func(m bot.InboundMessage) {
		b.HandleMessage(ctx, m)
	})

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("discord", &server.FuncService{
		StartFn: transport.Start,
		StopFn:  transport.Stop,
	})
	if pool != nil {
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

	logger.Info("tavern initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("storage", cfg.Game.Storage),
		zap.Int("gamemasters", len(cfg.Discord.Gamemasters)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
