package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically reclaims sessions whose host has been gone longer
// than the grace window. Sessions with a merely-empty room but a connected
// host are left alone; those are handled synchronously on departure.
type Sweeper struct {
	reg      *Registry
	interval time.Duration
	grace    time.Duration
}

func NewSweeper(reg *Registry, interval, grace time.Duration) *Sweeper {
	return &Sweeper{reg: reg, interval: interval, grace: grace}
}

func (sw *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(sw.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sw.Sweep(time.Now())
		}
	}
}

// Sweep removes every orphaned session, canceling its timer first, and
// returns how many were reclaimed.
func (sw *Sweeper) Sweep(now time.Time) int {
	removed := 0
	for _, s := range sw.reg.Sessions() {
		if !s.OrphanedLongerThan(now, sw.grace) {
			continue
		}
		s.Close()
		sw.reg.Remove(s.Code)
		removed++
		log.Info().Str("code", s.Code).Msg("reclaimed orphaned session")
	}
	return removed
}
