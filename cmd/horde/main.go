package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/effect"
	"github.com/l1jgo/horde/internal/metrics"
	"github.com/l1jgo/horde/internal/persist"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/spawn"
	"github.com/l1jgo/horde/internal/squad"
	"github.com/l1jgo/horde/internal/status"
	"github.com/l1jgo/horde/internal/system"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               horde  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     pooled enemies · group attack chains  \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/horde.toml"
	if p := os.Getenv("HORDE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Load data tables
	printSection("Data")
	protos, err := data.LoadPrototypeTable(cfg.Data.Prototypes)
	if err != nil {
		return fmt.Errorf("prototypes: %w", err)
	}
	printStat("Prototypes", protos.Count())
	effects, err := data.LoadEffectTable(cfg.Data.Effects)
	if err != nil {
		return fmt.Errorf("effects: %w", err)
	}
	printStat("Effects", effects.Count())
	groups, err := data.LoadSpawnGroups(cfg.Data.SpawnGroups, protos)
	if err != nil {
		return fmt.Errorf("spawn groups: %w", err)
	}
	printStat("Spawn groups", len(groups))
	heroProto := protos.Get(cfg.Simulation.Hero)
	if heroProto == nil {
		return fmt.Errorf("hero prototype %q not found", cfg.Simulation.Hero)
	}
	fmt.Println()

	// 4. Scripts
	printSection("Scripts")
	luaEngine, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer luaEngine.Close()
	printOK(fmt.Sprintf("Lua scripts loaded from %s", cfg.Scripts.Dir))

	var watcher *scripting.Watcher
	if cfg.Scripts.HotReload {
		watcher, err = scripting.NewWatcher(cfg.Scripts.Dir, log)
		if err != nil {
			return fmt.Errorf("script watcher: %w", err)
		}
		defer watcher.Close()
		printOK("Hot reload enabled")
	}
	fmt.Println()

	// 5. Optional journal database
	var journal *persist.JournalRepo
	if cfg.Database.DSN != "" {
		printSection("Database")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(dbCtx, db.Pool)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("Migrations applied (schema v%d)", version))
		journal = persist.NewJournalRepo(db)
		fmt.Println()
	}

	// 6. World
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	bus := event.NewBus()
	ecsWorld := ecs.NewWorld()
	graph := squad.NewGraph(cfg.Squad.TurnDelay, rng, bus, log)
	gameWorld := world.NewWorld(ecsWorld, graph, log)
	gameWorld.AddActGate(system.ScriptGate(luaEngine))

	statuses := status.NewSystem(gameWorld, cfg.Status.PoisonInterval, cfg.Status.KnockbackSettle, luaEngine, log)
	coordinator := spawn.NewCoordinator(gameWorld, cfg.Pool.Enemies, bus, log)
	fx := effect.NewSpawner(gameWorld, effects, cfg.Pool.Effects, bus, log)

	hero, err := gameWorld.NewActor(heroProto)
	if err != nil {
		return fmt.Errorf("hero: %w", err)
	}
	hero.SetParent(gameWorld.Active)
	hero.SetActive(true)

	printSection("Pools")
	var enemies []*data.Prototype
	for _, p := range protos.All() {
		if p != heroProto {
			enemies = append(enemies, p)
		}
	}
	coordinator.PrewarmAll(enemies, cfg.Pool.Prewarm)
	for _, p := range effects.All() {
		fx.Pools().GetOrCreate(p).Prewarm(cfg.Pool.Prewarm)
	}
	printStat("Enemy pools", coordinator.Pools().Len())
	printStat("Effect pools", fx.Pools().Len())
	fmt.Println()

	// 7. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventSystem(bus))
	if watcher != nil {
		runner.Register(system.NewScriptReloadSystem(watcher.Events, luaEngine, log))
	}
	arena := system.NewArenaSystem(gameWorld, coordinator, fx, statuses, groups, hero, cfg.Simulation.AggroInterval, log)
	runner.Register(statuses)
	runner.Register(arena)
	runner.Register(graph)
	runner.Register(fx)

	var journalSys *system.JournalSystem
	if journal != nil {
		journalSys = system.NewJournalSystem(bus, journal, runner.Ticks, log, cfg.Database.FlushEvery)
		runner.Register(journalSys)
	}

	if cfg.Metrics.BindAddress != "" {
		collector := metrics.NewCollector()
		reg, err := metrics.NewRegistry(collector)
		if err != nil {
			return fmt.Errorf("metrics registry: %w", err)
		}
		runner.Register(system.NewMetricsSystem(collector, coordinator, fx, graph, runner.Ticks))
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.BindAddress, reg, log); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}
	runner.Register(system.NewCleanupSystem(ecsWorld))

	arena.Start()

	// 8. Game loop
	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("Groups in arena: %d", len(graph.Groups())))
	printReady(fmt.Sprintf("Game loop running (tick: %s, seed: %d)", cfg.Simulation.TickRate, seed))
	if cfg.Metrics.BindAddress != "" {
		printReady(fmt.Sprintf("Metrics on %s/metrics", cfg.Metrics.BindAddress))
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
			if cfg.Simulation.MaxTicks > 0 && runner.Ticks() >= uint64(cfg.Simulation.MaxTicks) {
				log.Info("tick limit reached", zap.Uint64("ticks", runner.Ticks()))
				shutdown(log, journalSys, coordinator, fx, runner, arena)
				return nil
			}
		case <-ctx.Done():
			log.Info("shutdown signal received")
			shutdown(log, journalSys, coordinator, fx, runner, arena)
			return nil
		}
	}
}

func shutdown(log *zap.Logger, journal *system.JournalSystem, sp *spawn.Coordinator, fx *effect.Spawner, runner *coresys.Runner, arena *system.ArenaSystem) {
	if journal != nil {
		journal.Flush()
	}
	fx.Shutdown()
	sp.Shutdown()
	log.Info("simulation stopped",
		zap.Uint64("ticks", runner.Ticks()),
		zap.Duration("elapsed", runner.Elapsed()),
		zap.Int("waves", arena.Waves()),
	)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
