package model

// ImmunityKind selects which immunity list an entry lives in.
type ImmunityKind uint8

const (
	ImmuneSchool ImmunityKind = iota
	ImmuneMechanic
	ImmuneAura
	ImmuneDispel
	immunityKindCount
)

type immunityEntry struct {
	value  uint32
	source uint64
}

// Immunities keeps per-kind immunity entries keyed by the source that granted
// them, so overlapping grants from different effects release independently.
type Immunities struct {
	lists [immunityKindCount][]immunityEntry
}

// Add grants an immunity. The same (value, source) pair is stored once.
func (im *Immunities) Add(kind ImmunityKind, value uint32, source uint64) {
	for _, e := range im.lists[kind] {
		if e.value == value && e.source == source {
			return
		}
	}
	im.lists[kind] = append(im.lists[kind], immunityEntry{value: value, source: source})
}

// Remove drops the immunity granted by source.
func (im *Immunities) Remove(kind ImmunityKind, value uint32, source uint64) {
	list := im.lists[kind]
	for i, e := range list {
		if e.value == value && e.source == source {
			im.lists[kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// RemoveSource drops every immunity granted by source.
func (im *Immunities) RemoveSource(source uint64) {
	for k := range im.lists {
		list := im.lists[k][:0]
		for _, e := range im.lists[k] {
			if e.source != source {
				list = append(list, e)
			}
		}
		im.lists[k] = list
	}
}

// SchoolImmune reports whether every school in mask is covered by granted
// school immunities. An empty mask is never immune.
func (im *Immunities) SchoolImmune(mask SchoolMask) bool {
	if mask == 0 {
		return false
	}
	var covered SchoolMask
	for _, e := range im.lists[ImmuneSchool] {
		covered |= SchoolMask(e.value)
	}
	return mask&covered == mask
}

// MechanicImmune reports whether mechanic m is covered.
func (im *Immunities) MechanicImmune(m Mechanic) bool {
	if m == MechanicNone {
		return false
	}
	return im.has(ImmuneMechanic, uint32(m))
}

// DispelImmune reports whether dispel type d is covered.
func (im *Immunities) DispelImmune(d DispelType) bool {
	if d == DispelNone {
		return false
	}
	return im.has(ImmuneDispel, uint32(d))
}

// AuraImmune reports whether aura type value t is covered.
func (im *Immunities) AuraImmune(t uint32) bool {
	return im.has(ImmuneAura, t)
}

// Len returns the number of entries of the given kind.
func (im *Immunities) Len(kind ImmunityKind) int {
	return len(im.lists[kind])
}

func (im *Immunities) has(kind ImmunityKind, value uint32) bool {
	for _, e := range im.lists[kind] {
		if e.value == value {
			return true
		}
	}
	return false
}
