package model

// ObjectID identifies a combatant inside a shard.
// Zero is never assigned and means "no unit".
type ObjectID uint32

// UnitKind separates player-controlled characters from creatures.
type UnitKind uint8

const (
	KindCreature UnitKind = iota
	KindPlayer
)

// School is a single damage school index.
type School uint8

const (
	SchoolNormal School = iota // physical
	SchoolHoly
	SchoolFire
	SchoolNature
	SchoolFrost
	SchoolShadow
	SchoolArcane
	SchoolCount
)

var schoolNames = [SchoolCount]string{"normal", "holy", "fire", "nature", "frost", "shadow", "arcane"}

func (s School) String() string {
	if s < SchoolCount {
		return schoolNames[s]
	}
	return "unknown"
}

// ParseSchool returns the school with the given lowercase name.
func ParseSchool(name string) (School, bool) {
	for i, n := range schoolNames {
		if n == name {
			return School(i), true
		}
	}
	return 0, false
}

// SchoolMask is a bit set of schools.
type SchoolMask uint8

const (
	MaskNormal SchoolMask = 1 << iota
	MaskHoly
	MaskFire
	MaskNature
	MaskFrost
	MaskShadow
	MaskArcane

	MaskMagic = MaskHoly | MaskFire | MaskNature | MaskFrost | MaskShadow | MaskArcane
	MaskAll   = MaskNormal | MaskMagic
)

// Mask returns the single-bit mask of s.
func (s School) Mask() SchoolMask { return 1 << s }

// Has reports whether the mask contains school s.
func (m SchoolMask) Has(s School) bool { return m&s.Mask() != 0 }

// Intersects reports whether both masks share at least one school.
func (m SchoolMask) Intersects(o SchoolMask) bool { return m&o != 0 }

// IsPhysical reports whether the mask includes the normal school.
func (m SchoolMask) IsPhysical() bool { return m&MaskNormal != 0 }

// First returns the lowest school in the mask (normal for an empty mask).
func (m SchoolMask) First() School {
	for s := School(0); s < SchoolCount; s++ {
		if m.Has(s) {
			return s
		}
	}
	return SchoolNormal
}

// Mechanic is a crowd-control or effect mechanic.
type Mechanic uint8

const (
	MechanicNone Mechanic = iota
	MechanicCharm
	MechanicDisorient
	MechanicDisarm
	MechanicDistract
	MechanicFear
	MechanicRoot
	MechanicSilence
	MechanicSleep
	MechanicSnare
	MechanicStun
	MechanicFreeze
	MechanicKnockout
	MechanicBleed
	MechanicBandage
	MechanicPolymorph
	MechanicBanish
	MechanicShield
	MechanicMount
	MechanicInvulnerability
	MechanicInterrupt
	MechanicCount
)

var mechanicNames = [MechanicCount]string{
	"none", "charm", "disorient", "disarm", "distract", "fear", "root", "silence",
	"sleep", "snare", "stun", "freeze", "knockout", "bleed", "bandage", "polymorph",
	"banish", "shield", "mount", "invulnerability", "interrupt",
}

func (m Mechanic) String() string {
	if m < MechanicCount {
		return mechanicNames[m]
	}
	return "unknown"
}

// ParseMechanic returns the mechanic with the given lowercase name.
func ParseMechanic(name string) (Mechanic, bool) {
	for i, n := range mechanicNames {
		if n == name {
			return Mechanic(i), true
		}
	}
	return 0, false
}

// DispelType groups effects for dispel and dispel immunity.
type DispelType uint8

const (
	DispelNone DispelType = iota
	DispelMagic
	DispelCurse
	DispelDisease
	DispelPoison
	DispelStealth
	DispelEnrage
	DispelCount
)

var dispelNames = [DispelCount]string{"none", "magic", "curse", "disease", "poison", "stealth", "enrage"}

func (d DispelType) String() string {
	if d < DispelCount {
		return dispelNames[d]
	}
	return "unknown"
}

// ParseDispelType returns the dispel type with the given lowercase name.
func ParseDispelType(name string) (DispelType, bool) {
	for i, n := range dispelNames {
		if n == name {
			return DispelType(i), true
		}
	}
	return 0, false
}

// AttackType selects a weapon hand.
type AttackType uint8

const (
	BaseAttack AttackType = iota
	OffAttack
	RangedAttack
	AttackTypeCount
)

// Power is a secondary resource pool.
type Power uint8

const (
	PowerMana Power = iota
	PowerRage
	PowerFocus
	PowerEnergy
	PowerCount
)

// CreatureType is the family used by versus-creature bonuses.
type CreatureType uint8

const (
	CreatureNone CreatureType = iota
	CreatureBeast
	CreatureDragonkin
	CreatureDemon
	CreatureElemental
	CreatureGiant
	CreatureUndead
	CreatureHumanoid
	CreatureCritter
	CreatureMechanical
	CreatureTypeCount
)

// DeathState is the life-cycle position of a combatant.
type DeathState uint8

const (
	Alive       DeathState = iota
	DeadPending            // lethal commit seen, death hooks running
	JustDied
	Corpse
)

// StandState is the posture of a combatant.
type StandState uint8

const (
	StandStanding StandState = iota
	StandSitting
	StandSleeping
)

// UnitState is a bit set of transient states.
type UnitState uint32

const (
	StateStunned UnitState = 1 << iota
	StateRooted
	StateConfused
	StateFleeing
	StateEvading
	StateUntargetable
	StateInCombat
	StatePossessed
	StateControlled // vehicle or mind control
)
