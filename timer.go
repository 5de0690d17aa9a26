package eredis

import (
	"sync"
	"time"
)

// timer wraps time.Timer to make it easier to re-use for the reconnect
// cooldown, which is armed and disarmed repeatedly over a client's life.
type timer struct {
	*time.Timer
}

func (t *timer) Reset(d time.Duration) {
	if t.Timer == nil {
		t.Timer = time.NewTimer(d)
		return
	}

	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Timer.Reset(d)
}

// global pool of *time.Timer's.
var timerPool sync.Pool

// getTimer returns a timer that completes after the given duration.
func getTimer(d time.Duration) *time.Timer {
	t, _ := timerPool.Get().(*time.Timer)
	tt := timer{t}
	tt.Reset(d)
	return tt.Timer
}

// putTimer pools t. The caller must have already drained or stopped it.
func putTimer(t *time.Timer) {
	timerPool.Put(t)
}
