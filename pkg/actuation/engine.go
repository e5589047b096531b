// Package actuation applies masks to the relay bank and enforces the
// command timeout.
package actuation

import (
	"time"

	fx "github.com/robotalks/relayrx/pkg/framework"
	"github.com/robotalks/relayrx/pkg/relay"
)

// ChannelDriver writes one channel state to its output line.
type ChannelDriver interface {
	SetChannelOutput(line relay.Line, on bool) error
}

// StatusLight reflects whether any channel is on.
type StatusLight interface {
	Set(on bool) error
}

// State is the last applied mask.
type State struct {
	Mask    relay.Mask
	Applied time.Time
}

// Observer is notified after every application. It runs on the
// loop and must not block.
type Observer interface {
	MaskApplied(State)
}

// ObserverFunc is the func form of Observer.
type ObserverFunc func(State)

// MaskApplied implements Observer.
func (f ObserverFunc) MaskApplied(s State) {
	f(s)
}

// Engine applies masks through the current channel map. It is
// owned by the loop and not safe for concurrent use.
type Engine struct {
	Channels *relay.ChannelMap
	Driver   ChannelDriver
	Light    StatusLight
	Clock    func() time.Time

	observers []Observer
	state     State
}

// NewEngine creates an Engine.
func NewEngine(channels *relay.ChannelMap, driver ChannelDriver, light StatusLight) *Engine {
	return &Engine{
		Channels: channels,
		Driver:   driver,
		Light:    light,
		Clock:    time.Now,
	}
}

// Observe registers observers.
func (e *Engine) Observe(observers ...Observer) {
	e.observers = append(e.observers, observers...)
}

// ApplyMask drives channel i to bit i of the mask, using the assignment
// at the time of the call. Every channel is attempted, the mask is recorded
// even when some writes fail.
func (e *Engine) ApplyMask(mask relay.Mask) error {
	mask &= relay.MaskBits
	var errs fx.AggregatedError
	assignment := e.Channels.Assignment()
	for i, line := range assignment {
		errs.Add(e.Driver.SetChannelOutput(line, mask.IsOn(i)))
	}
	e.state = State{Mask: mask, Applied: e.Clock()}
	if e.Light != nil {
		errs.Add(e.Light.Set(mask != 0))
	}
	for _, o := range e.observers {
		o.MaskApplied(e.state)
	}
	return errs.Aggregate()
}

// AllOff switches every channel off.
func (e *Engine) AllOff() error {
	return e.ApplyMask(0)
}

// DriveInactive sets every currently assigned line to the inactive level
// without touching the recorded state.
func (e *Engine) DriveInactive() error {
	var errs fx.AggregatedError
	for _, line := range e.Channels.Assignment() {
		errs.Add(e.Driver.SetChannelOutput(line, false))
	}
	return errs.Aggregate()
}

// State returns the last applied mask and when it was applied.
func (e *Engine) State() State {
	return e.state
}

// Touch restarts the timing of the current state.
func (e *Engine) Touch(now time.Time) {
	e.state.Applied = now
}
