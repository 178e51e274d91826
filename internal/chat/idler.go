package chat

import (
	"sync"
	"time"

	"github.com/vovakirdan/ircgate/internal/config"
)

// Idler picks filler phrases for rooms nobody has written to for a while.
// The phrase cursor is shared by all rooms of a session.
type Idler struct {
	enabled  bool
	idleTime time.Duration
	phrases  []string

	mu       sync.Mutex
	cursor   int
	previous map[string]string
}

// NewIdler builds an idler from configuration. A disabled idler is never due.
func NewIdler(cfg config.IdlerConfig) *Idler {
	return &Idler{
		enabled:  cfg.Enabled && len(cfg.Phrases) > 0,
		idleTime: cfg.IdleTime,
		phrases:  append([]string(nil), cfg.Phrases...),
		cursor:   -1,
		previous: make(map[string]string),
	}
}

// Enabled reports whether the idler may fire.
func (i *Idler) Enabled() bool { return i.enabled }

// IdleTime is the inactivity threshold.
func (i *Idler) IdleTime() time.Duration { return i.idleTime }

// Due reports whether a room last touched at ts should get a filler phrase.
func (i *Idler) Due(now, ts time.Time) bool {
	return i.enabled && now.Sub(ts) > i.idleTime
}

// Next advances the cursor and returns the phrase for roomID. A phrase equal to
// last (the room's last sent text) or to the room's previous filler is skipped.
// When only the previous filler avoids last, the previous filler is still avoided.
func (i *Idler) Next(roomID, last string) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := len(i.phrases)
	if n == 0 {
		return ""
	}

	previous := i.previous[roomID]
	pick, fallback := -1, -1
	for k := 1; k <= n; k++ {
		idx := (i.cursor + k) % n
		phrase := i.phrases[idx]
		if phrase == previous {
			continue
		}
		if fallback < 0 {
			fallback = idx
		}
		if phrase != last {
			pick = idx
			break
		}
	}
	if pick < 0 {
		pick = fallback
	}
	if pick < 0 {
		pick = (i.cursor + 1) % n
	}

	i.cursor = pick
	i.previous[roomID] = i.phrases[pick]
	return i.phrases[pick]
}

// Forget drops the per-room state of a room that was left.
func (i *Idler) Forget(roomID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.previous, roomID)
}
