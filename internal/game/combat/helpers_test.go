package combat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

// scriptedSource returns queued draws, then n-1 once the queue is empty.
// n-1 is the least eventful roll: no crit, no miss, no proc.
type scriptedSource struct {
	draws []int
}

func (s *scriptedSource) IntN(n int) int {
	if len(s.draws) == 0 {
		return n - 1
	}
	v := s.draws[0]
	s.draws = s.draws[1:]
	return min(v, n-1)
}

func (s *scriptedSource) push(draws ...int) { s.draws = append(s.draws, draws...) }

// recorder captures collaborator calls in the order they happen.
type recorder struct {
	NopAI
	events []string
	groups map[model.ObjectID][]model.ObjectID
	reward []model.ObjectID
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) EnterCombat(self, enemy model.ObjectID) { r.add("enter %d %d", self, enemy) }
func (r *recorder) JustDied(self, killer model.ObjectID)   { r.add("died %d %d", self, killer) }
func (r *recorder) KilledUnit(self, victim model.ObjectID) { r.add("killed %d %d", self, victim) }
func (r *recorder) OwnerKilledUnit(pet, victim model.ObjectID) {
	r.add("owner-killed %d %d", pet, victim)
}
func (r *recorder) SummonDied(owner, summon model.ObjectID) { r.add("summon %d %d", owner, summon) }
func (r *recorder) UnitKilled(killer model.ObjectID, victim *model.Combatant) {
	r.add("instance %d %d", killer, victim.ID())
}
func (r *recorder) KillReward(victim *model.Combatant, recipients []model.ObjectID) {
	r.add("reward %d", victim.ID())
	r.reward = recipients
}
func (r *recorder) DamageDone(model.ObjectID, model.ObjectID, int32) {}
func (r *recorder) HealDone(model.ObjectID, model.ObjectID, int32)   {}
func (r *recorder) Group(id model.ObjectID) []model.ObjectID         { return r.groups[id] }

func (r *recorder) only(prefixes ...string) []string {
	var out []string
	for _, e := range r.events {
		for _, p := range prefixes {
			if len(e) >= len(p) && e[:len(p)] == p {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// fieldScheduler measures distances from the units' own locations.
type fieldScheduler struct {
	e       *Engine
	blocked map[[2]model.ObjectID]bool
}

func (s *fieldScheduler) Nearby(center model.ObjectID, radius float64) []model.ObjectID {
	c := s.e.Unit(center)
	if c == nil {
		return nil
	}
	var out []model.ObjectID
	for _, u := range s.e.Units() {
		if u.ID() != center && float64(c.Location().DistanceSquared(u.Location())) <= radius*radius {
			out = append(out, u.ID())
		}
	}
	return out
}

func (s *fieldScheduler) InLineOfSight(a, b model.ObjectID) bool {
	return !s.blocked[[2]model.ObjectID{a, b}]
}

type harness struct {
	*Engine
	src    *scriptedSource
	log    *MemoryLog
	rec    *recorder
	threat *ThreatTracker
	field  *fieldScheduler
}

func newHarness(t *testing.T, templates []*data.Template, rs ...*rules.Rule) *harness {
	t.Helper()
	store, err := data.NewStore(templates...)
	require.NoError(t, err)
	tbl, err := rules.NewTable(rs...)
	require.NoError(t, err)

	h := &harness{
		src:    &scriptedSource{},
		log:    &MemoryLog{},
		rec:    &recorder{groups: make(map[model.ObjectID][]model.ObjectID)},
		threat: NewThreatTracker(),
		field:  &fieldScheduler{blocked: make(map[[2]model.ObjectID]bool)},
	}
	h.Engine = NewEngine(store, tbl, h.src, Collaborators{
		Scheduler:  h.field,
		AI:         h.rec,
		Engagement: h.threat,
		Rewarder:   h.rec,
		Instance:   h.rec,
		Summons:    h.rec,
		Groups:     h.rec,
		Log:        h.log,
	}, Options{})
	h.field.e = h.Engine
	t.Cleanup(h.Close)
	return h
}

func (h *harness) spawn(t *testing.T, id model.ObjectID, kind model.UnitKind, level, hp int32) *Unit {
	t.Helper()
	u, err := h.Spawn(model.NewCombatant(id, fmt.Sprintf("unit-%d", id), kind, level, hp))
	require.NoError(t, err)
	return u
}

func magicTemplate(id data.TemplateID, school model.SchoolMask, dmg int32) *data.Template {
	t := &data.Template{
		ID:         id,
		Name:       "bolt",
		Schools:    school,
		DmgClass:   data.ClassMagic,
		DurationMs: 0,
	}
	t.Effects[0] = data.EffectDef{Kind: data.EffectSchoolDamage, BasePoints: dmg}
	return t
}

func buffTemplate(id data.TemplateID, aura data.AuraType, amount, misc int32) *data.Template {
	t := &data.Template{
		ID:         id,
		Name:       "buff",
		Schools:    model.MaskHoly,
		DmgClass:   data.ClassMagic,
		Attributes: data.AttrPositive,
		DurationMs: 30000,
	}
	t.Effects[0] = data.EffectDef{Kind: data.EffectApplyAura, Aura: aura, BasePoints: amount, MiscValue: misc}
	return t
}

func dotTemplate(id data.TemplateID, perTick, amplitudeMs, durationMs int32) *data.Template {
	t := &data.Template{
		ID:         id,
		Name:       "dot",
		Schools:    model.MaskShadow,
		DmgClass:   data.ClassMagic,
		DurationMs: durationMs,
	}
	t.Effects[0] = data.EffectDef{
		Kind:        data.EffectApplyAura,
		Aura:        data.AuraPeriodicDamage,
		BasePoints:  perTick,
		AmplitudeMs: amplitudeMs,
	}
	return t
}

func (h *harness) apply(t *testing.T, caster, target model.ObjectID, id data.TemplateID) {
	t.Helper()
	require.NoError(t, h.CastSpell(caster, target, id))
}
