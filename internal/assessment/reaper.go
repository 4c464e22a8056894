package assessment

import (
	"context"
	"log"
	"time"
)

// Reaper marks expired in_progress attempts as abandoned. The attempt
// lifecycle never expires itself; this is the external policy that closes
// sessions whose students walked away.
type Reaper struct {
	store    Store
	interval time.Duration
}

func NewReaper(store Store, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{store: store, interval: interval}
}

func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.store.AbandonExpired(ctx, time.Now().Unix())
			if err != nil {
				log.Printf("reaper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("reaper: abandoned %d expired attempts", n)
			}
		}
	}
}
