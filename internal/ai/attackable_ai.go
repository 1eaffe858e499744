package ai

import (
	"log/slog"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// maxAttackTimeoutMs drops a fight that no hit has refreshed for two minutes.
const maxAttackTimeoutMs = 120000

// SpellRotation is one ability the AI casts whenever it is off cooldown.
type SpellRotation struct {
	Template   data.TemplateID `yaml:"template"`
	CooldownMs int32           `yaml:"cooldown_ms"`
}

// AttackableAI fights back: it attacks whoever hit it, follows the top of
// its hate list and casts its rotation on cooldown.
// State machine: rest intention → ATTACK → rest intention.
type AttackableAI struct {
	id        model.ObjectID
	intention model.Intention
	rest      model.Intention
	running   bool

	target    model.ObjectID
	timeoutMs int32

	rotation  []SpellRotation
	cooldowns map[data.TemplateID]int32

	actions Actions
	hate    HateSource
}

// NewAttackableAI creates the controller of unit id.
func NewAttackableAI(id model.ObjectID, actions Actions, hate HateSource, rotation ...SpellRotation) *AttackableAI {
	return &AttackableAI{
		id:        id,
		rest:      model.IntentionIdle,
		rotation:  rotation,
		cooldowns: make(map[data.TemplateID]int32),
		actions:   actions,
		hate:      hate,
	}
}

// Start starts the controller at rest.
func (ai *AttackableAI) Start() {
	ai.running = true
	ai.SetIntention(ai.rest)

	if IsDebugEnabled() {
		slog.Debug("attackable AI started",
			"unit", ai.id,
			"rotation", len(ai.rotation))
	}
}

// Stop stops the controller and its auto-attack.
func (ai *AttackableAI) Stop() {
	ai.running = false
	ai.disengage()
	clear(ai.cooldowns)

	if IsDebugEnabled() {
		slog.Debug("attackable AI stopped", "unit", ai.id)
	}
}

// SetIntention sets the AI intention.
func (ai *AttackableAI) SetIntention(intention model.Intention) {
	old := ai.intention
	ai.intention = intention

	if old != intention && IsDebugEnabled() {
		slog.Debug("AI intention changed",
			"unit", ai.id,
			"from", old,
			"to", intention)
	}
}

// CurrentIntention returns the AI intention.
func (ai *AttackableAI) CurrentIntention() model.Intention { return ai.intention }

// Target returns the current victim, zero at rest.
func (ai *AttackableAI) Target() model.ObjectID { return ai.target }

// NotifyAttacked switches a resting unit to attack and refreshes the fight
// timeout.
func (ai *AttackableAI) NotifyAttacked(attacker model.ObjectID) {
	if !ai.running || !ai.actions.IsAlive(ai.id) {
		return
	}
	ai.timeoutMs = maxAttackTimeoutMs
	if ai.intention != model.IntentionAttack {
		ai.engage(attacker)
	}
}

// Aggro makes a resting unit attack target on its own initiative.
func (ai *AttackableAI) Aggro(target model.ObjectID) bool {
	if !ai.running || ai.intention == model.IntentionAttack || !ai.actions.IsAlive(ai.id) {
		return false
	}
	ai.timeoutMs = maxAttackTimeoutMs
	return ai.engage(target)
}

// NotifyDied drops the fight.
func (ai *AttackableAI) NotifyDied(killer model.ObjectID) {
	ai.target = 0
	clear(ai.cooldowns)
	ai.SetIntention(ai.rest)

	if IsDebugEnabled() {
		slog.Debug("AI unit died", "unit", ai.id, "killer", killer)
	}
}

// NotifyKilled forgets a dead victim; the next tick picks a new one.
func (ai *AttackableAI) NotifyKilled(victim model.ObjectID) {
	if ai.target == victim {
		ai.target = 0
	}
}

// Tick counts cooldowns down, re-targets to the most hated enemy and casts
// the first ready ability of the rotation.
func (ai *AttackableAI) Tick(deltaMs int32) {
	if !ai.running || !ai.actions.IsAlive(ai.id) {
		return
	}
	for id, left := range ai.cooldowns {
		if left -= deltaMs; left > 0 {
			ai.cooldowns[id] = left
		} else {
			delete(ai.cooldowns, id)
		}
	}

	if ai.intention != model.IntentionAttack {
		return
	}
	ai.timeoutMs -= deltaMs
	next := ai.hate.MostHated(ai.id)
	if next == 0 || !ai.actions.IsAlive(next) {
		next = ai.target
	}
	if ai.timeoutMs <= 0 || next == 0 || !ai.actions.IsAlive(next) {
		ai.disengage()
		return
	}
	if next != ai.target && !ai.engage(next) {
		ai.disengage()
		return
	}
	ai.castReady()
}

func (ai *AttackableAI) engage(target model.ObjectID) bool {
	if err := ai.actions.Attack(ai.id, target); err != nil {
		if IsDebugEnabled() {
			slog.Debug("AI attack refused",
				"unit", ai.id,
				"target", target,
				"error", err)
		}
		return false
	}
	ai.target = target
	if ai.timeoutMs <= 0 {
		ai.timeoutMs = maxAttackTimeoutMs
	}
	ai.SetIntention(model.IntentionAttack)
	return true
}

func (ai *AttackableAI) disengage() {
	if ai.target != 0 {
		ai.actions.StopAttack(ai.id)
	}
	ai.target = 0
	ai.SetIntention(ai.rest)
}

func (ai *AttackableAI) castReady() {
	for _, s := range ai.rotation {
		if _, cooling := ai.cooldowns[s.Template]; cooling {
			continue
		}
		if err := ai.actions.CastSpell(ai.id, ai.target, s.Template); err != nil {
			if IsDebugEnabled() {
				slog.Debug("AI cast refused",
					"unit", ai.id,
					"template", s.Template,
					"error", err)
			}
			continue
		}
		if s.CooldownMs > 0 {
			ai.cooldowns[s.Template] = s.CooldownMs
		}
		return
	}
}
