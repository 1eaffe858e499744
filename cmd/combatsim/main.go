// Command combatsim runs the configured combatants through the combat engine
// on one or more shards until the run duration elapses or it is signalled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/combatcore/internal/ai"
	"github.com/udisondev/combatcore/internal/config"
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/db"
	"github.com/udisondev/combatcore/internal/game/combat"
	"github.com/udisondev/combatcore/internal/rules"
	"github.com/udisondev/combatcore/internal/sim"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadCombatSim(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	ai.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("combatsim starting",
		"log_level", cfg.LogLevel,
		"shards", cfg.Shards,
		"tick", cfg.TickInterval,
		"spawns", len(cfg.Spawns))

	store, err := data.Load(cfg.TemplatesPath)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	table, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	slog.Info("data loaded", "templates", store.Len(), "rules", table.Len())

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var (
		encounters *db.EncounterRepository
		auras      sim.AuraStore
	)
	if cfg.Persistence {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		encounters = db.NewEncounterRepository(database.Pool())
		auras = db.NewAuraRepository(database.Pool())
	}

	opts := combat.Options{
		StealDurationCapMs:     cfg.Combat.StealDurationCapMs,
		RangedRearmMs:          cfg.Combat.RangedRearmMs,
		PushbackMs:             cfg.Combat.PushbackMs,
		MaxPushbacks:           cfg.Combat.MaxPushbacks,
		GlancingCapPct:         cfg.Combat.GlancingCapPct,
		CombatTimeMs:           cfg.Combat.CombatTimeMs,
		ScriptInstructionLimit: cfg.Combat.ScriptInstructionLimit,
	}

	g, gctx := errgroup.WithContext(ctx)
	var ids []uuid.UUID
	for n := range cfg.Shards {
		shardCfg := sim.Config{
			ID:       n,
			Store:    store,
			Rules:    table,
			Options:  opts,
			Seed:     cfg.Seed,
			Interval: cfg.TickInterval,
			Auras:    auras,
			Log:      combat.SlogLog{Logger: slog.Default().With("shard", n)},
		}

		if encounters != nil {
			id, err := encounters.Begin(ctx, n)
			if err != nil {
				return fmt.Errorf("opening encounter of shard %d: %w", n, err)
			}
			ids = append(ids, id)
			recorder := db.NewKillRecorder(encounters, id, 0)
			shardCfg.Instance = recorder
			g.Go(func() error {
				return recorder.Run(gctx)
			})
		}

		shard := sim.New(shardCfg)
		defer shard.Close()
		if err := shard.Populate(ctx, cfg.Spawns); err != nil {
			return fmt.Errorf("populating shard %d: %w", n, err)
		}
		g.Go(func() error {
			return shard.Run(gctx)
		})
	}

	err = g.Wait()

	for _, id := range ids {
		if endErr := encounters.End(context.WithoutCancel(ctx), id); endErr != nil {
			slog.Error("closing encounter", "encounter", id, "err", endErr)
		}
	}
	if err != nil {
		return fmt.Errorf("running shards: %w", err)
	}

	slog.Info("combatsim stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
