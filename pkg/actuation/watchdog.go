package actuation

import (
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/relayrx/pkg/framework"
)

// Timeout is how long a non-zero mask may stay without a fresh command.
const Timeout = 500 * time.Millisecond

// Watchdog forces everything off once commands stop arriving.
type Watchdog struct {
	Engine  *Engine
	Timeout time.Duration

	expired int
}

// NewWatchdog creates a Watchdog with the default Timeout.
func NewWatchdog(e *Engine) *Watchdog {
	return &Watchdog{Engine: e, Timeout: Timeout}
}

// Check compares now with the last application. Once Timeout has
// elapsed, a non-zero mask is switched off, and in any case the
// timing restarts. It returns true when outputs were forced off.
func (w *Watchdog) Check(now time.Time) (bool, error) {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = Timeout
	}
	st := w.Engine.State()
	if now.Sub(st.Applied) < timeout {
		return false, nil
	}
	if st.Mask == 0 {
		w.Engine.Touch(now)
		return false, nil
	}
	w.expired++
	glog.Warningf("no command for %v, all off", now.Sub(st.Applied))
	err := w.Engine.AllOff()
	w.Engine.Touch(now)
	return true, err
}

// Expired counts forced all-off events.
func (w *Watchdog) Expired() int {
	return w.expired
}

// Control implements framework.Controller.
func (w *Watchdog) Control(cc fx.ControlContext) error {
	_, err := w.Check(cc.Time())
	return err
}
