package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/l1jgo/horde/internal/core/pool"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Pool       PoolConfig       `toml:"pool"`
	Squad      SquadConfig      `toml:"squad"`
	Status     StatusConfig     `toml:"status"`
	Data       DataConfig       `toml:"data"`
	Scripts    ScriptsConfig    `toml:"scripts"`
	Database   DatabaseConfig   `toml:"database"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

type SimulationConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	// MaxTicks stops the loop after N ticks (0 = run until signalled).
	MaxTicks int `toml:"max_ticks"`
	// AggroInterval is how often the arena pokes every group leader.
	AggroInterval time.Duration `toml:"aggro_interval"`
	Seed          int64         `toml:"seed"` // 0 = time-based
	// Hero names the prototype standing in for the player.
	Hero string `toml:"hero"`
}

type PoolConfig struct {
	Enemies pool.Capacity `toml:"enemies"`
	Effects pool.Capacity `toml:"effects"`
	Prewarm int           `toml:"prewarm"` // instances per prototype at startup
}

type SquadConfig struct {
	TurnDelay time.Duration `toml:"turn_delay"` // wait after each attack in a chain
}

type StatusConfig struct {
	KnockbackSettle time.Duration `toml:"knockback_settle"`
	PoisonInterval  time.Duration `toml:"poison_interval"`
}

type DataConfig struct {
	Prototypes  string `toml:"prototypes"`
	Effects     string `toml:"effects"`
	SpawnGroups string `toml:"spawn_groups"`
}

type ScriptsConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables the journal
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	FlushEvery      int           `toml:"flush_every"` // ticks between journal flushes
}

type MetricsConfig struct {
	BindAddress string `toml:"bind_address"` // empty disables /metrics
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a TOML file over the defaults. A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive, got %s", c.Simulation.TickRate)
	}
	if c.Squad.TurnDelay < 0 {
		return fmt.Errorf("squad.turn_delay must not be negative, got %s", c.Squad.TurnDelay)
	}
	if c.Pool.Prewarm < 0 {
		return fmt.Errorf("pool.prewarm must not be negative, got %d", c.Pool.Prewarm)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate:      50 * time.Millisecond,
			AggroInterval: 3 * time.Second,
			Hero:          "hero",
		},
		Pool: PoolConfig{
			Enemies: pool.Capacity{Default: 10, Max: 20},
			Effects: pool.Capacity{Default: 8, Max: 32},
			Prewarm: 4,
		},
		Squad: SquadConfig{
			TurnDelay: 600 * time.Millisecond,
		},
		Status: StatusConfig{
			KnockbackSettle: 250 * time.Millisecond,
			PoisonInterval:  time.Second,
		},
		Data: DataConfig{
			Prototypes:  "data/yaml/prototypes.yaml",
			Effects:     "data/yaml/effects.yaml",
			SpawnGroups: "data/yaml/spawn_groups.yaml",
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			FlushEvery:      100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
