// Package slots holds the fixed five-slot publication table: per-slot
// freshness windows and topical focus. The table is compiled in, not
// runtime-configurable.
package slots

import "time"

// Count is the number of slots in every issue.
const Count = 5

// MaxSourcePicks caps how often a single source may appear per issue.
const MaxSourcePicks = 2

// Profile describes one publication slot.
type Profile struct {
	Slot     int
	Window   time.Duration
	Focus    string
	Guidance string
}

var table = [Count]Profile{
	{
		Slot:     1,
		Window:   24 * time.Hour,
		Focus:    "macro impact",
		Guidance: "broad economic significance: jobs, economy, markets",
	},
	{
		Slot:     2,
		Window:   48 * time.Hour,
		Focus:    "tier-1 organizations and research",
		Guidance: "named tier-1 organizations, labs and notable research",
	},
	{
		Slot:     3,
		Window:   168 * time.Hour,
		Focus:    "industry verticals",
		Guidance: "named industry verticals: healthcare, legal, finance, manufacturing",
	},
	{
		Slot:     4,
		Window:   48 * time.Hour,
		Focus:    "emerging organizations",
		Guidance: "emerging organizations, funding rounds, product launches",
	},
	{
		Slot:     5,
		Window:   168 * time.Hour,
		Focus:    "consumer and human interest",
		Guidance: "consumer applications, human-interest stories, ethics",
	},
}

// Valid reports whether slot is within 1..Count.
func Valid(slot int) bool {
	return slot >= 1 && slot <= Count
}

// Get returns the profile for a slot. It panics on an invalid slot;
// callers are expected to range over 1..Count or check Valid first.
func Get(slot int) Profile {
	return table[slot-1]
}

// Window returns the maximum item age for a slot.
func Window(slot int) time.Duration {
	return table[slot-1].Window
}

// Eligible reports whether an item of the given age may fill the slot.
// The boundary is inclusive: an item at exactly the window edge is in.
func Eligible(age time.Duration, slot int) bool {
	if !Valid(slot) || age < 0 {
		return false
	}
	return age <= table[slot-1].Window
}

// All returns the slot profiles in order.
func All() []Profile {
	out := make([]Profile, Count)
	copy(out, table[:])
	return out
}
