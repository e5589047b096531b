// Package receiver ties the relay bank to its command link: lines from the
// link become masks, masks become output levels, and silence on the link
// switches everything off.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/relayrx/pkg/actuation"
	fx "github.com/robotalks/relayrx/pkg/framework"
	"github.com/robotalks/relayrx/pkg/link"
	"github.com/robotalks/relayrx/pkg/relay"
	"github.com/robotalks/relayrx/pkg/store"
)

// Store persists the channel assignment.
type Store interface {
	Load() (store.LoadResult, error)
	Save(relay.Assignment) error
}

var (
	// ErrNotRunning is returned by requests before the receiver joins a loop.
	ErrNotRunning = errors.New("receiver not running")
	// ErrNotPersisted indicates a replacement took effect but wasn't saved.
	ErrNotPersisted = errors.New("assignment not persisted")
)

// Receiver owns the channel map, the engine, the watchdog and the framer.
// All of them are only touched from the loop stages, other goroutines
// go through Replace, Snapshot and Restart.
type Receiver struct {
	Channels *relay.ChannelMap
	Engine   *actuation.Engine
	Watchdog *actuation.Watchdog
	Store    Store
	// Bytes is the link input, drained in the transport stage.
	Bytes <-chan byte
	// OnRestart is invoked on the loop once a restart was requested
	// and outputs are off.
	OnRestart func()

	framer   link.Framer
	loopCtl  fx.LoopControl
	commands int
	ignored  int
}

// New creates a Receiver with the default assignment.
func New(driver actuation.ChannelDriver, light actuation.StatusLight, st Store) *Receiver {
	channels := relay.NewChannelMap()
	engine := actuation.NewEngine(channels, driver, light)
	return &Receiver{
		Channels: channels,
		Engine:   engine,
		Watchdog: actuation.NewWatchdog(engine),
		Store:    st,
	}
}

// Snapshot is a read-only view of the receiver.
type Snapshot struct {
	Channels []relay.Channel
	State    actuation.State
	Commands int
	Ignored  int
	Expired  int
	Overflow int
}

// Start loads the persisted assignment and brings every output to off.
// It must be called before the loop runs.
func (r *Receiver) Start() error {
	var errs fx.AggregatedError
	if r.Store != nil {
		res, err := r.Store.Load()
		if err != nil {
			glog.Errorf("load assignment: %v", err)
		}
		if res.Rejected != nil {
			glog.Warningf("stored assignment rejected, using defaults: %v", res.Rejected)
		} else if len(res.Defaulted) > 0 {
			glog.V(1).Infof("channels %v use default lines", res.Defaulted)
		}
		if err := r.Channels.Replace(res.Assignment); err != nil {
			glog.Errorf("load assignment: %v", err)
		}
	}
	errs.Add(r.Engine.DriveInactive(), r.Engine.AllOff())
	glog.Infof("relay order: %s", relay.Labels)
	glog.Infof("relay lines: %s", r.Channels.Assignment())
	return errs.Aggregate()
}

// Shutdown switches everything off. Call it after the loop stopped.
func (r *Receiver) Shutdown() error {
	glog.Info("all relays off")
	return r.Engine.AllOff()
}

// AddToLoop implements LoopAdder.
func (r *Receiver) AddToLoop(loop *fx.Loop) {
	r.loopCtl = loop
	loop.AddController(fx.StageConfig, fx.ControlFunc(r.serviceRequests))
	loop.AddController(fx.StageTransport, fx.ControlFunc(r.serviceTransport))
	loop.AddController(fx.StageWatchdog, r.Watchdog)
}

// serviceTransport drains the bytes available now and stops at the
// first complete line, so at most one command is applied per iteration.
func (r *Receiver) serviceTransport(cc fx.ControlContext) error {
	if r.Bytes == nil {
		return nil
	}
	overflows := r.framer.Overflows()
	defer func() {
		if n := r.framer.Overflows() - overflows; n > 0 {
			glog.V(2).Infof("link: %d over-long line(s) dropped", n)
		}
	}()
	budget := cap(r.Bytes)
	if budget < 1 {
		budget = 1
	}
	for ; budget > 0; budget-- {
		select {
		case b := <-r.Bytes:
			line, ok := r.framer.Feed(b)
			if !ok {
				continue
			}
			if len(r.Bytes) > 0 {
				cc.TriggerNext()
			}
			return r.handleLine(line)
		default:
			return nil
		}
	}
	cc.TriggerNext()
	return nil
}

func (r *Receiver) handleLine(line []byte) error {
	mask, ok := link.ParseCommand(line)
	if !ok {
		r.ignored++
		glog.V(2).Infof("link: ignore %q", line)
		return nil
	}
	r.commands++
	err := r.Engine.ApplyMask(mask)
	glog.V(1).Infof("Mask: %s  Active: %s", mask, mask.ActiveString())
	return err
}

type replaceRequest struct {
	assignment relay.Assignment
	reply      chan error
}

type snapshotRequest struct {
	reply chan Snapshot
}

type restartRequest struct {
	reply chan error
}

func (r *Receiver) serviceRequests(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		switch req := mc.CurrentMessage().(type) {
		case *replaceRequest:
			mc.MessageTaken()
			req.reply <- r.replace(req.assignment)
		case *snapshotRequest:
			mc.MessageTaken()
			req.reply <- r.snapshot()
		case *restartRequest:
			mc.MessageTaken()
			err := r.Engine.AllOff()
			req.reply <- err
			glog.Info("restart requested")
			if r.OnRestart != nil {
				r.OnRestart()
			}
		}
	}))
	return nil
}

// replace switches off through the old assignment before the swap, then
// leaves every new line inactive.
func (r *Receiver) replace(a relay.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	var errs fx.AggregatedError
	errs.Add(r.Engine.AllOff())
	if err := r.Channels.Replace(a); err != nil {
		return err
	}
	errs.Add(r.Engine.DriveInactive())
	if err := errs.Aggregate(); err != nil {
		glog.Errorf("replace assignment: %v", err)
	}
	glog.Infof("relay lines: %s", a)
	if r.Store != nil {
		if err := r.Store.Save(a); err != nil {
			glog.Errorf("save assignment: %v", err)
			return fmt.Errorf("%w: %v", ErrNotPersisted, err)
		}
	}
	return nil
}

func (r *Receiver) snapshot() Snapshot {
	return Snapshot{
		Channels: r.Channels.Snapshot(),
		State:    r.Engine.State(),
		Commands: r.commands,
		Ignored:  r.ignored,
		Expired:  r.Watchdog.Expired(),
		Overflow: r.framer.Overflows(),
	}
}

func (r *Receiver) post(msg fx.Message) error {
	if r.loopCtl == nil {
		return ErrNotRunning
	}
	r.loopCtl.PostMessage(msg)
	r.loopCtl.TriggerNext()
	return nil
}

// Replace validates and installs a new assignment. A rejected candidate
// returns a *relay.ValidationError and leaves everything untouched.
func (r *Receiver) Replace(ctx context.Context, a relay.Assignment) error {
	req := &replaceRequest{assignment: a, reply: make(chan error, 1)}
	if err := r.post(req); err != nil {
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current channels and state.
func (r *Receiver) Snapshot(ctx context.Context) (Snapshot, error) {
	req := &snapshotRequest{reply: make(chan Snapshot, 1)}
	if err := r.post(req); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// RestartDelay is how long a restart waits after being acknowledged.
const RestartDelay = 200 * time.Millisecond

// Restart switches everything off and invokes OnRestart.
func (r *Receiver) Restart(ctx context.Context) error {
	req := &restartRequest{reply: make(chan error, 1)}
	if err := r.post(req); err != nil {
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
