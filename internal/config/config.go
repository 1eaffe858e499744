package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath overrides the config file location.
const EnvPath = "COMBATSIM_CONFIG"

// DefaultPath is read when EnvPath is unset.
const DefaultPath = "config/combatsim.yaml"

// CombatSim holds all configuration for the combat simulation server.
type CombatSim struct {
	LogLevel string `yaml:"log_level"`

	// Shards
	Shards       int           `yaml:"shards"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Seed         uint64        `yaml:"seed"`     // 0 seeds randomly
	Duration     time.Duration `yaml:"duration"` // 0 runs until signalled

	// Data
	TemplatesPath string `yaml:"templates_path"`
	RulesPath     string `yaml:"rules_path"`

	// Persistence
	Persistence bool           `yaml:"persistence"`
	Database    DatabaseConfig `yaml:"database"`

	Combat Combat  `yaml:"combat"`
	Spawns []Spawn `yaml:"spawns"`
}

// Combat holds the engine tunables. Zero values select engine defaults.
type Combat struct {
	StealDurationCapMs     int32   `yaml:"steal_duration_cap_ms"`
	RangedRearmMs          int32   `yaml:"ranged_rearm_ms"`
	PushbackMs             int32   `yaml:"pushback_ms"`
	MaxPushbacks           int32   `yaml:"max_pushbacks"`
	GlancingCapPct         float64 `yaml:"glancing_cap_pct"`
	CombatTimeMs           int32   `yaml:"combat_time_ms"`
	ScriptInstructionLimit int     `yaml:"script_instruction_limit"`
}

// Spawn describes one combatant placed into every shard at startup.
type Spawn struct {
	Name     string    `yaml:"name"`
	Kind     string    `yaml:"kind"` // player or creature
	Level    int32     `yaml:"level"`
	Health   int32     `yaml:"health"`
	Mana     int32     `yaml:"mana"`
	Armor    int32     `yaml:"armor"`
	X        int32     `yaml:"x"`
	Y        int32     `yaml:"y"`
	Z        int32     `yaml:"z"`
	Owner    string    `yaml:"owner"` // name of the owning spawn, makes a summon
	Group    string    `yaml:"group"`
	Auras    []uint32  `yaml:"auras"` // applied to self on spawn
	Weapon   Weapon    `yaml:"weapon"`
	Target   string    `yaml:"target"` // attacks it on spawn
	Rotation []Ability `yaml:"rotation"`
}

// Weapon is a main hand weapon.
type Weapon struct {
	MinDamage float64 `yaml:"min_damage"`
	MaxDamage float64 `yaml:"max_damage"`
	SpeedMs   int32   `yaml:"speed_ms"`
}

// Ability is one entry of an AI spell rotation.
type Ability struct {
	Template   uint32 `yaml:"template"`
	CooldownMs int32  `yaml:"cooldown_ms"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultCombatSim returns CombatSim config with sensible defaults.
func DefaultCombatSim() CombatSim {
	return CombatSim{
		LogLevel:      "info",
		Shards:        1,
		TickInterval:  100 * time.Millisecond,
		TemplatesPath: "config/templates.yaml",
		RulesPath:     "config/rules.yaml",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "combatcore",
			Password: "combatcore",
			DBName:   "combatcore",
			SSLMode:  "disable",
		},
	}
}

// Path returns the config location, honouring EnvPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// LoadCombatSim loads the config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadCombatSim(path string) (CombatSim, error) {
	cfg := DefaultCombatSim()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *CombatSim) validate() error {
	if c.Shards < 1 {
		return fmt.Errorf("shards must be positive, got %d", c.Shards)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	names := make(map[string]bool, len(c.Spawns))
	for i, s := range c.Spawns {
		if s.Name == "" {
			return fmt.Errorf("spawn %d has no name", i)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate spawn %q", s.Name)
		}
		names[s.Name] = true
		if s.Kind != "player" && s.Kind != "creature" {
			return fmt.Errorf("spawn %q: unknown kind %q", s.Name, s.Kind)
		}
		if s.Health <= 0 {
			return fmt.Errorf("spawn %q: health must be positive", s.Name)
		}
	}
	for _, s := range c.Spawns {
		for _, ref := range []string{s.Owner, s.Target} {
			if ref != "" && !names[ref] {
				return fmt.Errorf("spawn %q references unknown spawn %q", s.Name, ref)
			}
		}
	}
	return nil
}
