package combat

import (
	"fmt"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

const (
	// defaultSwingMs is the swing time of an empty hand.
	defaultSwingMs = 2000
	// offHandDelayMs keeps the two hands from landing on the same tick.
	offHandDelayMs = 200
)

// Attack starts auto-attacking victim with the melee weapons.
func (e *Engine) Attack(attackerID, victimID model.ObjectID) error {
	attacker, victim := e.units[attackerID], e.units[victimID]
	if attacker == nil || victim == nil {
		return fmt.Errorf("attack %d -> %d: %w", attackerID, victimID, ErrUnknownUnit)
	}
	if attacker == victim || !victim.IsAlive() || !victim.Targetable() {
		return fmt.Errorf("attack %d -> %d: %w", attackerID, victimID, ErrInvalidTarget)
	}
	attacker.victim = victimID
	return nil
}

// StopAttack ends auto-attack.
func (e *Engine) StopAttack(attackerID model.ObjectID) {
	if u := e.units[attackerID]; u != nil {
		u.victim = 0
	}
}

// updateSwings counts the swing timers down and swings the ready hands.
func (e *Engine) updateSwings(u *Unit, deltaMs int32) {
	for at := range model.AttackTypeCount {
		if t := u.AttackTimer(at); t > 0 {
			u.SetAttackTimer(at, t-deltaMs)
		}
	}

	if u.victim == 0 {
		return
	}
	victim := e.units[u.victim]
	if victim == nil || !victim.IsAlive() || !u.IsAlive() {
		u.victim = 0
		return
	}
	if u.HasState(model.StateStunned | model.StateConfused | model.StateFleeing) {
		return
	}
	if u.Actions.IsNonMeleeCasting(false, false, true) {
		return
	}

	if u.AttackTimer(model.BaseAttack) == 0 {
		if u.DualWield() && u.AttackTimer(model.OffAttack) < offHandDelayMs {
			u.SetAttackTimer(model.OffAttack, offHandDelayMs)
		}
		e.swing(u, victim, model.BaseAttack)
		resetSwing(u, model.BaseAttack)
	}
	if u.DualWield() && u.victim != 0 && u.AttackTimer(model.OffAttack) == 0 {
		if u.AttackTimer(model.BaseAttack) < offHandDelayMs {
			u.SetAttackTimer(model.BaseAttack, offHandDelayMs)
		}
		e.swing(u, victim, model.OffAttack)
		resetSwing(u, model.OffAttack)
	}
}

// swing performs one white swing, or the pending next-swing ability on the
// main hand.
func (e *Engine) swing(attacker, victim *Unit, at model.AttackType) {
	if !victim.IsAlive() {
		return
	}
	if at == model.BaseAttack && attacker.Actions.FireNextSwing() {
		return
	}
	attacker.Auras.RemoveWithInterruptFlag(data.AuraInterruptOnMelee, 0)

	res := e.Resolve(attacker, victim, nil, at)
	d := newDamage(attacker, victim, nil, res.Outcome)
	d.AttackType = at
	d.Raw = e.weaponRoll(attacker, at)
	e.dealDamage(attacker, victim, d)
}

// weaponRoll returns a uniform roll over the weapon's damage range plus the
// attack power bonus for its speed. The off hand deals half.
func (e *Engine) weaponRoll(u *Unit, at model.AttackType) int32 {
	w := u.Weapons[at]
	dmg := w.MinDamage
	if w.MaxDamage > w.MinDamage {
		dmg += (w.MaxDamage - w.MinDamage) * float64(e.rnd.IntN(1001)) / 1000
	}
	speed := w.SpeedMs
	if speed <= 0 {
		speed = defaultSwingMs
	}
	dmg += float64(attackPower(u, at)) / 14 * float64(speed) / 1000
	if at == model.OffAttack {
		dmg /= 2
	}
	return max(round32(dmg), 1)
}

func resetSwing(u *Unit, at model.AttackType) {
	if u.Weapons[at].SpeedMs <= 0 {
		u.SetAttackTimer(at, defaultSwingMs)
		return
	}
	u.ResetAttackTimer(at)
}
