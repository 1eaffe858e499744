package combat

import (
	"log/slog"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// EntryKind tells what a combat log entry records.
type EntryKind uint8

const (
	EntryMelee EntryKind = iota
	EntrySpell
	EntryPeriodic
	EntryHeal
	EntryAura
	EntryDeath
)

var entryKindNames = [...]string{"melee", "spell", "periodic", "heal", "aura", "death"}

func (k EntryKind) String() string {
	if int(k) < len(entryKindNames) {
		return entryKindNames[k]
	}
	return "unknown"
}

// Entry is one structured result record for outbound logging.
type Entry struct {
	Tick     uint64
	Kind     EntryKind
	Source   model.ObjectID
	Target   model.ObjectID
	Template data.TemplateID
	Outcome  Outcome
	Schools  model.SchoolMask

	Amount   int32
	Absorbed int32
	Resisted int32
	Blocked  int32
	Clean    int32
	Overkill int32
}

// CombatLog receives every resolved attempt.
type CombatLog interface {
	Record(e Entry)
}

// SlogLog writes entries to a structured logger at debug level.
type SlogLog struct {
	Logger *slog.Logger
}

// Record implements CombatLog.
func (l SlogLog) Record(e Entry) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("combat",
		"tick", e.Tick,
		"kind", e.Kind,
		"source", e.Source,
		"target", e.Target,
		"template", e.Template,
		"outcome", e.Outcome,
		"amount", e.Amount,
		"absorbed", e.Absorbed,
		"resisted", e.Resisted,
		"blocked", e.Blocked,
		"clean", e.Clean,
		"overkill", e.Overkill)
}

// MemoryLog keeps entries in memory; the simulation and tests read them back.
type MemoryLog struct {
	Entries []Entry
}

// Record implements CombatLog.
func (l *MemoryLog) Record(e Entry) { l.Entries = append(l.Entries, e) }

// Filter returns the entries of one kind.
func (l *MemoryLog) Filter(kind EntryKind) []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
