package model

// AggroInfo is the hate and damage one attacker built up on a victim.
type AggroInfo struct {
	hate   float64
	damage int64
}

// Hate returns the accumulated hate.
func (a *AggroInfo) Hate() float64 { return a.hate }

// Damage returns the total damage dealt.
func (a *AggroInfo) Damage() int64 { return a.damage }

// AggroList is the hate table of one victim.
//
// Not safe for concurrent use: the owning shard serialises every call.
type AggroList struct {
	entries map[ObjectID]*AggroInfo
}

// NewAggroList creates an empty list.
func NewAggroList() *AggroList {
	return &AggroList{entries: make(map[ObjectID]*AggroInfo)}
}

// AddHate adds hate for an attacker, creating its entry on first sight.
// Zero hate only registers the attacker.
func (l *AggroList) AddHate(id ObjectID, hate float64) {
	l.getOrCreate(id).hate += hate
}

// AddDamage records damage from an attacker.
func (l *AggroList) AddDamage(id ObjectID, damage int64) {
	l.getOrCreate(id).damage += damage
}

// MostHated returns the attacker with the highest hate, the lowest id on a
// tie. Returns 0 if the list is empty.
func (l *AggroList) MostHated() ObjectID {
	var best ObjectID
	var bestHate float64
	for id, info := range l.entries {
		if best == 0 || info.hate > bestHate || (info.hate == bestHate && id < best) {
			best, bestHate = id, info.hate
		}
	}
	return best
}

// Get returns the entry of an attacker, nil if absent.
func (l *AggroList) Get(id ObjectID) *AggroInfo { return l.entries[id] }

// Remove drops an attacker.
func (l *AggroList) Remove(id ObjectID) { delete(l.entries, id) }

// Clear drops every attacker.
func (l *AggroList) Clear() { clear(l.entries) }

// Len returns the number of attackers.
func (l *AggroList) Len() int { return len(l.entries) }

// IsEmpty reports whether nobody is on the list.
func (l *AggroList) IsEmpty() bool { return len(l.entries) == 0 }

func (l *AggroList) getOrCreate(id ObjectID) *AggroInfo {
	info, ok := l.entries[id]
	if !ok {
		info = &AggroInfo{}
		l.entries[id] = info
	}
	return info
}
