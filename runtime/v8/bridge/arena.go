package bridge

import (
	"github.com/yaoapp/kun/log"
)

// ArenaSlots the number of transient string slots per runtime
const ArenaSlots = 50

// Arena a monotonically-cycling table of owned argument strings. A slot's
// content is only valid for the native call that assigned it: the 51st
// string assigned since BeginCall overwrites the oldest live slot.
type Arena struct {
	slots [ArenaSlots]string
	cur   int
	live  int
}

// BeginCall mark the start of a native call for overflow accounting. The
// cursor keeps cycling across calls; only the live counter resets.
func (arena *Arena) BeginCall() {
	arena.live = 0
}

// Assign take ownership of a string and return the owned copy
func (arena *Arena) Assign(value string) string {
	if arena.live >= ArenaSlots {
		// capacity limit, not a bug to fix: the oldest live slot is
		// reused and any native still holding it reads the new content
		log.Error("[V8] string arena overflow: more than %d string arguments in one native call, reusing slot %d", ArenaSlots, arena.cur)
	}

	arena.slots[arena.cur] = value
	owned := arena.slots[arena.cur]

	arena.cur = (arena.cur + 1) % ArenaSlots
	arena.live++

	return owned
}

// Live the number of strings assigned since BeginCall
func (arena *Arena) Live() int {
	return arena.live
}
