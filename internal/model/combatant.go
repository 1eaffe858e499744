package model

// Stats holds the combat ratings a combatant brings into a resolution.
// Percent values are plain percents (5.5 means 5.5%).
type Stats struct {
	AttackPower       int32
	RangedAttackPower int32
	SpellPower        int32

	Armor      int32
	Resistance [SchoolCount]int32

	CritChance      float64
	SpellCritChance float64
	DodgeChance     float64
	ParryChance     float64
	BlockChance     float64
	BlockValue      int32

	// WeaponSkill and DefenseSkill default to 5 per level.
	WeaponSkill  int32
	DefenseSkill int32

	HitChance      float64
	SpellHitChance float64
	Expertise      int32
	Resilience     float64
}

// Weapon is the damage range and swing time of one hand.
type Weapon struct {
	MinDamage float64
	MaxDamage float64
	SpeedMs   int32
}

// Equipped reports whether the hand carries a usable weapon.
func (w Weapon) Equipped() bool { return w.SpeedMs > 0 && w.MaxDamage > 0 }

// DefenseFlags disable defensive outcomes or crushing blows for a unit.
type DefenseFlags uint8

const (
	NoDodge DefenseFlags = 1 << iota
	NoParry
	NoBlock
	NoCrush
	CanBlockBehind // "anti-backstab": dodge/parry/block also work from behind
)

// Combatant is any entity that deals or receives damage and hosts effects.
//
// Not safe for concurrent use: the owning shard serialises every access.
type Combatant struct {
	id     ObjectID
	name   string
	kind   UnitKind
	level  int32
	family CreatureType

	health    int32
	maxHealth int32

	powerType Power
	power     [PowerCount]int32
	maxPower  [PowerCount]int32

	attackTimer [AttackTypeCount]int32

	Stats   Stats
	Weapons [AttackTypeCount]Weapon
	Flags   DefenseFlags

	ownerID    ObjectID
	stand      StandState
	state      UnitState
	deathState DeathState
	immunities Immunities

	lastDamager     ObjectID
	lastDamagerTick uint64

	loc Location
}

// NewCombatant creates a living combatant at full health.
func NewCombatant(id ObjectID, name string, kind UnitKind, level, maxHealth int32) *Combatant {
	c := &Combatant{
		id:        id,
		name:      name,
		kind:      kind,
		level:     level,
		health:    maxHealth,
		maxHealth: maxHealth,
	}
	c.Stats.WeaponSkill = level * 5
	c.Stats.DefenseSkill = level * 5
	return c
}

func (c *Combatant) ID() ObjectID         { return c.id }
func (c *Combatant) Name() string         { return c.name }
func (c *Combatant) Kind() UnitKind       { return c.kind }
func (c *Combatant) IsPlayer() bool       { return c.kind == KindPlayer }
func (c *Combatant) Level() int32         { return c.level }
func (c *Combatant) SetLevel(l int32)     { c.level = l }
func (c *Combatant) Family() CreatureType { return c.family }

// SetFamily sets the creature type used by versus-creature bonuses.
func (c *Combatant) SetFamily(t CreatureType) { c.family = t }

// OwnerID returns the summoner or pet master, zero if none.
func (c *Combatant) OwnerID() ObjectID { return c.ownerID }

// SetOwnerID marks the combatant as controlled by owner.
func (c *Combatant) SetOwnerID(owner ObjectID) { c.ownerID = owner }

// IsPet reports whether a creature has an owner.
func (c *Combatant) IsPet() bool { return c.kind == KindCreature && c.ownerID != 0 }

func (c *Combatant) Health() int32    { return c.health }
func (c *Combatant) MaxHealth() int32 { return c.maxHealth }

// SetHealth sets current health clamped to [0, maxHealth].
func (c *Combatant) SetHealth(hp int32) {
	c.health = clamp32(hp, 0, c.maxHealth)
}

// SetMaxHealth changes the maximum; current health is lowered if it exceeds it.
func (c *Combatant) SetMaxHealth(maxHP int32) {
	c.maxHealth = max(maxHP, 1)
	if c.health > c.maxHealth {
		c.health = c.maxHealth
	}
}

// ModifyHealth adds delta within [0, maxHealth] and returns the delta applied.
func (c *Combatant) ModifyHealth(delta int32) int32 {
	before := c.health
	next := min(max(int64(c.health)+int64(delta), 0), int64(c.maxHealth))
	c.health = int32(next)
	return c.health - before
}

// HealthPct returns current health in percent of maximum.
func (c *Combatant) HealthPct() float64 {
	if c.maxHealth <= 0 {
		return 0
	}
	return float64(c.health) * 100 / float64(c.maxHealth)
}

func (c *Combatant) PowerType() Power       { return c.powerType }
func (c *Combatant) SetPowerType(p Power)   { c.powerType = p }
func (c *Combatant) Power(p Power) int32    { return c.power[p] }
func (c *Combatant) MaxPower(p Power) int32 { return c.maxPower[p] }

// SetMaxPower sets the pool maximum and fills the pool.
func (c *Combatant) SetMaxPower(p Power, v int32) {
	c.maxPower[p] = max(v, 0)
	c.power[p] = c.maxPower[p]
}

// ModifyPower adds delta within [0, max] and returns the delta applied.
func (c *Combatant) ModifyPower(p Power, delta int32) int32 {
	before := c.power[p]
	c.power[p] = clamp32(before+delta, 0, c.maxPower[p])
	return c.power[p] - before
}

// AttackTimer returns the remaining swing time of a hand in milliseconds.
func (c *Combatant) AttackTimer(at AttackType) int32 { return c.attackTimer[at] }

// SetAttackTimer sets the remaining swing time, never negative.
func (c *Combatant) SetAttackTimer(at AttackType, ms int32) { c.attackTimer[at] = max(ms, 0) }

// ResetAttackTimer re-arms the hand with its weapon speed.
func (c *Combatant) ResetAttackTimer(at AttackType) { c.attackTimer[at] = c.Weapons[at].SpeedMs }

// DualWield reports whether the off hand carries a weapon.
func (c *Combatant) DualWield() bool { return c.Weapons[OffAttack].Equipped() }

func (c *Combatant) StandState() StandState     { return c.stand }
func (c *Combatant) SetStandState(s StandState) { c.stand = s }

func (c *Combatant) HasState(s UnitState) bool { return c.state&s != 0 }
func (c *Combatant) AddState(s UnitState)      { c.state |= s }
func (c *Combatant) ClearState(s UnitState)    { c.state &^= s }

// CanDodge reports whether dodge rolls apply against this combatant.
func (c *Combatant) CanDodge() bool {
	return c.Flags&NoDodge == 0 && !c.HasState(StateStunned)
}

// CanParry reports whether parry rolls apply against this combatant.
func (c *Combatant) CanParry() bool {
	return c.Flags&NoParry == 0 && !c.HasState(StateStunned)
}

// CanBlock reports whether block rolls apply against this combatant.
func (c *Combatant) CanBlock() bool {
	return c.Flags&NoBlock == 0 && !c.HasState(StateStunned)
}

func (c *Combatant) DeathState() DeathState     { return c.deathState }
func (c *Combatant) SetDeathState(s DeathState) { c.deathState = s }

// IsAlive reports whether the combatant has not entered any death state.
func (c *Combatant) IsAlive() bool { return c.deathState == Alive }

// Targetable reports whether the combatant can be affected by attacks.
func (c *Combatant) Targetable() bool {
	return c.IsAlive() && !c.HasState(StateUntargetable|StateEvading)
}

// Immunities returns the mutable immunity lists.
func (c *Combatant) Immunities() *Immunities { return &c.immunities }

// LastDamager returns the attacker that most recently dealt damage and the tick it happened.
func (c *Combatant) LastDamager() (ObjectID, uint64) { return c.lastDamager, c.lastDamagerTick }

// SetLastDamager records damage credit.
func (c *Combatant) SetLastDamager(id ObjectID, tick uint64) {
	c.lastDamager = id
	c.lastDamagerTick = tick
}

func (c *Combatant) Location() Location     { return c.loc }
func (c *Combatant) SetLocation(l Location) { c.loc = l }

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
