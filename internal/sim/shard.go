// Package sim runs combat shards: it spawns the configured combatants,
// drives the engine and the AI on a fixed tick and saves auras on shutdown.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/combatcore/internal/ai"
	"github.com/udisondev/combatcore/internal/config"
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/game/combat"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
	"github.com/udisondev/combatcore/internal/world"
)

var (
	_ combat.Scheduler     = (*world.Directory)(nil)
	_ combat.Rewarder      = (*Scoreboard)(nil)
	_ combat.GroupResolver = Groups(nil)
	_ ai.Actions           = (*combat.Engine)(nil)
	_ ai.HateSource        = (*combat.ThreatTracker)(nil)
)

// AuraStore keeps unit auras between runs.
type AuraStore interface {
	Save(ctx context.Context, unit string, saved []aura.Saved) error
	Load(ctx context.Context, unit string) ([]aura.Saved, error)
}

// Config assembles one shard.
type Config struct {
	ID       int
	Store    *data.Store
	Rules    *rules.Table
	Options  combat.Options
	Seed     uint64 // 0 seeds randomly
	Interval time.Duration
	IDs      *world.ObjectIDGenerator
	Instance combat.Instance
	Auras    AuraStore
	Log      combat.CombatLog
}

// Shard is one simulation shard.
//
// Not safe for concurrent use: Populate, Step and Run belong to one goroutine.
type Shard struct {
	id       int
	interval time.Duration
	deltaMs  int32

	engine *combat.Engine
	ai     *ai.TickManager
	dir    *world.Directory
	threat *combat.ThreatTracker
	score  *Scoreboard
	groups Groups
	auras  AuraStore
	ids    *world.ObjectIDGenerator

	names map[string]model.ObjectID
	order []string
}

// New creates an empty shard.
func New(cfg Config) *Shard {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.IDs == nil {
		cfg.IDs = world.NewObjectIDGenerator()
	}
	s := &Shard{
		id:       cfg.ID,
		interval: cfg.Interval,
		deltaMs:  int32(cfg.Interval / time.Millisecond),
		ai:       ai.NewTickManager(),
		dir:      world.NewDirectory(),
		threat:   combat.NewThreatTracker(),
		score:    NewScoreboard(),
		groups:   make(Groups),
		auras:    cfg.Auras,
		ids:      cfg.IDs,
		names:    make(map[string]model.ObjectID),
	}

	var rnd combat.Source
	if cfg.Seed != 0 {
		rnd = combat.NewSource(cfg.Seed + uint64(cfg.ID))
	}
	s.engine = combat.NewEngine(cfg.Store, cfg.Rules, rnd, combat.Collaborators{
		Scheduler:  s.dir,
		AI:         s.ai,
		Engagement: s.threat,
		Rewarder:   s.score,
		Instance:   cfg.Instance,
		Summons:    s.ai,
		Groups:     s.groups,
		Log:        cfg.Log,
	}, cfg.Options)
	return s
}

// Engine returns the shard's combat engine.
func (s *Shard) Engine() *combat.Engine { return s.engine }

// Scoreboard returns the shard's tallies.
func (s *Shard) Scoreboard() *Scoreboard { return s.score }

// Directory returns the shard's position index.
func (s *Shard) Directory() *world.Directory { return s.dir }

// Unit returns the id of the spawn called name.
func (s *Shard) Unit(name string) (model.ObjectID, bool) {
	id, ok := s.names[name]
	return id, ok
}

// Controller returns the AI of the spawn called name.
func (s *Shard) Controller(name string) (ai.Controller, error) {
	id, ok := s.names[name]
	if !ok {
		return nil, fmt.Errorf("shard %d: no spawn %q", s.id, name)
	}
	return s.ai.GetController(id)
}

// auraKey names a unit stably across runs.
func (s *Shard) auraKey(name string) string {
	return fmt.Sprintf("shard-%d/%s", s.id, name)
}

// Populate spawns the configured combatants, restores or applies their
// auras and starts the configured fights.
func (s *Shard) Populate(ctx context.Context, spawns []config.Spawn) error {
	for _, sp := range spawns {
		s.names[sp.Name] = s.ids.Next(kindOf(sp))
		s.order = append(s.order, sp.Name)
	}

	leaders := make(map[string]model.ObjectID)
	for _, sp := range spawns {
		id := s.names[sp.Name]
		c := newCombatant(id, sp)
		if sp.Owner != "" {
			c.SetOwnerID(s.names[sp.Owner])
		}
		if _, err := s.engine.Spawn(c); err != nil {
			return fmt.Errorf("shard %d: %w", s.id, err)
		}
		s.dir.Add(id, c.Location())

		if sp.Group != "" {
			leader, ok := leaders[sp.Group]
			if !ok {
				leader = id
				leaders[sp.Group] = id
			}
			s.groups.Join(leader, id)
		}

		rotation := make([]ai.SpellRotation, 0, len(sp.Rotation))
		for _, r := range sp.Rotation {
			rotation = append(rotation, ai.SpellRotation{Template: data.TemplateID(r.Template), CooldownMs: r.CooldownMs})
		}
		if sp.Owner != "" {
			s.ai.Register(id, ai.NewSummonAI(id, s.names[sp.Owner], s.engine, s.threat, rotation...))
		} else {
			s.ai.Register(id, ai.NewAttackableAI(id, s.engine, s.threat, rotation...))
		}

		if err := s.applyAuras(ctx, id, sp); err != nil {
			return err
		}
	}

	for _, sp := range spawns {
		if sp.Target == "" {
			continue
		}
		c, err := s.ai.GetController(s.names[sp.Name])
		if err != nil {
			return err
		}
		if aggro, ok := c.(interface{ Aggro(model.ObjectID) bool }); ok {
			aggro.Aggro(s.names[sp.Target])
		}
	}

	slog.Info("shard populated",
		"shard", s.id,
		"units", len(spawns),
		"groups", len(leaders))
	return nil
}

func kindOf(sp config.Spawn) model.UnitKind {
	if sp.Kind == "player" {
		return model.KindPlayer
	}
	return model.KindCreature
}

func newCombatant(id model.ObjectID, sp config.Spawn) *model.Combatant {
	c := model.NewCombatant(id, sp.Name, kindOf(sp), sp.Level, sp.Health)
	if sp.Mana > 0 {
		c.SetPowerType(model.PowerMana)
		c.SetMaxPower(model.PowerMana, sp.Mana)
	}
	c.Stats.Armor = sp.Armor
	c.Weapons[model.BaseAttack] = model.Weapon{
		MinDamage: sp.Weapon.MinDamage,
		MaxDamage: sp.Weapon.MaxDamage,
		SpeedMs:   sp.Weapon.SpeedMs,
	}
	c.SetLocation(model.Location{X: sp.X, Y: sp.Y, Z: sp.Z})
	return c
}

// applyAuras restores saved auras when there are any, otherwise casts the
// configured ones on the unit itself.
func (s *Shard) applyAuras(ctx context.Context, id model.ObjectID, sp config.Spawn) error {
	if s.auras != nil {
		saved, err := s.auras.Load(ctx, s.auraKey(sp.Name))
		if err != nil {
			return fmt.Errorf("loading auras of %q: %w", sp.Name, err)
		}
		if len(saved) > 0 {
			n, err := s.engine.RestoreAuras(id, saved)
			if err != nil {
				slog.Warn("some auras not restored", "unit", sp.Name, "error", err)
			}
			slog.Debug("auras restored", "unit", sp.Name, "count", n)
			return nil
		}
	}
	for _, tpl := range sp.Auras {
		if err := s.engine.CastSpell(id, id, data.TemplateID(tpl)); err != nil {
			return fmt.Errorf("applying aura %d to %q: %w", tpl, sp.Name, err)
		}
	}
	return nil
}

// Step advances the shard by one tick.
func (s *Shard) Step() {
	s.engine.Update(s.deltaMs)
	s.ai.Tick(s.deltaMs)
}

// Close releases the engine. The shard must not be used afterwards.
func (s *Shard) Close() { s.engine.Close() }

// Run ticks the shard until ctx is done, then saves auras.
func (s *Shard) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("shard started", "shard", s.id, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			err := s.save(context.WithoutCancel(ctx))
			s.report()
			return err
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Shard) save(ctx context.Context) error {
	if s.auras == nil {
		return nil
	}
	var errs []error
	for _, name := range s.order {
		id := s.names[name]
		if err := s.auras.Save(ctx, s.auraKey(name), s.engine.SnapshotAuras(id)); err != nil {
			errs = append(errs, fmt.Errorf("saving auras of %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Shard) report() {
	for _, name := range s.order {
		id := s.names[name]
		sc := s.score.Get(id)
		slog.Info("shard result",
			"shard", s.id,
			"unit", name,
			"alive", s.engine.IsAlive(id),
			"damage", sc.Damage,
			"healing", sc.Healing,
			"kills", sc.Kills,
			"deaths", sc.Deaths)
	}
	slog.Info("shard stopped", "shard", s.id, "ticks", s.engine.Tick())
}
