package game

import (
	"sync"
	"time"
)

// RoundScheduler arms one deadline timer per session. Arming a new round's
// timer supersedes the previous one. Cancel is best-effort only: a callback
// already dispatched by the runtime may still run, so every callback has to
// re-check round identity and the finalize flag before doing anything.
type RoundScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewRoundScheduler() *RoundScheduler {
	return &RoundScheduler{timers: make(map[string]*time.Timer)}
}

func (rs *RoundScheduler) Arm(sessionCode string, d time.Duration, fn func()) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if t, ok := rs.timers[sessionCode]; ok {
		t.Stop()
	}
	rs.timers[sessionCode] = time.AfterFunc(d, fn)
}

func (rs *RoundScheduler) Cancel(sessionCode string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if t, ok := rs.timers[sessionCode]; ok {
		t.Stop()
		delete(rs.timers, sessionCode)
	}
}
