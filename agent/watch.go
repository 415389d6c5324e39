package agent

import (
	"time"

	"github.com/d11dpool/channel/state"
)

// WatchFunding polls the chain observer every period until the channel's
// funding output confirms, then stops. The returned cancel function stops
// the polling early.
func (a *Agent) WatchFunding(period time.Duration) (cancel func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			err := a.CheckFunding()
			if err != nil {
				log.Errorf("Error checking funding: %v", err)
				continue
			}
			c := a.Channel()
			if c != nil && c.State() != state.StateUnfunded {
				return
			}
		}
	}()
	return func() { close(done) }
}
