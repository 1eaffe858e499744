package model

// Intention is what a unit's AI is currently trying to do.
type Intention uint8

const (
	// IntentionIdle: no target, not fighting.
	IntentionIdle Intention = iota
	// IntentionAttack: auto-attacking its current target.
	IntentionAttack
	// IntentionCast: waiting for an ability to finish before swinging again.
	IntentionCast
	// IntentionFollow: a pet staying with its owner.
	IntentionFollow
)

var intentionNames = [...]string{"IDLE", "ATTACK", "CAST", "FOLLOW"}

func (i Intention) String() string {
	if int(i) < len(intentionNames) {
		return intentionNames[i]
	}
	return "UNKNOWN"
}
