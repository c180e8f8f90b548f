package game

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// countdown is the handle for one armed question timer. The tick goroutine
// only forwards clock ticks onto the command loop; all countdown state lives
// in the Session and is mutated there. Closing stop ends the goroutine.
type countdown struct {
	stop chan struct{}
}

// armTimer starts the per-question countdown, cancelling any prior one first
// so there is never more than one live timer per session.
func (c *Controller) armTimer() {
	c.cancelTimer()

	cd := &countdown{stop: make(chan struct{})}
	c.timer = cd

	go func(clock clockwork.Clock) {
		ticker := clock.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				select {
				case c.cmds <- command{kind: cmdTick, timer: cd}:
				case <-cd.stop:
					return
				}
			case <-cd.stop:
				return
			}
		}
	}(c.clock)
}

// cancelTimer synchronously disowns the active countdown. Ticks already in
// flight on the command channel carry their countdown handle and are dropped
// as stale when they no longer match.
func (c *Controller) cancelTimer() {
	if c.timer != nil {
		close(c.timer.stop)
		c.timer = nil
	}
}
