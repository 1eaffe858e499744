package ai

import (
	"log/slog"

	"github.com/udisondev/combatcore/internal/model"
)

// SummonAI is the controller of a pet or summon. It rests in FOLLOW, fights
// back like an attackable unit and defends its owner.
type SummonAI struct {
	*AttackableAI
	owner model.ObjectID
}

// NewSummonAI creates the controller of summon id serving owner.
func NewSummonAI(id, owner model.ObjectID, actions Actions, hate HateSource, rotation ...SpellRotation) *SummonAI {
	base := NewAttackableAI(id, actions, hate, rotation...)
	base.rest = model.IntentionFollow
	return &SummonAI{AttackableAI: base, owner: owner}
}

// Owner returns the unit the summon serves.
func (ai *SummonAI) Owner() model.ObjectID { return ai.owner }

// DefendOwner makes an idle summon attack whoever hit its owner.
func (ai *SummonAI) DefendOwner(attacker model.ObjectID) {
	if !ai.running || attacker == ai.id || ai.intention == model.IntentionAttack {
		return
	}
	if !ai.actions.IsAlive(ai.id) {
		return
	}
	if ai.engage(attacker) {
		ai.timeoutMs = maxAttackTimeoutMs
		if IsDebugEnabled() {
			slog.Debug("summon defends owner",
				"unit", ai.id,
				"owner", ai.owner,
				"attacker", attacker)
		}
	}
}
