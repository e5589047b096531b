// Package transmitter sends relay masks to a receiver and talks to its
// configurator.
package transmitter

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/relayrx/pkg/link"
	"github.com/robotalks/relayrx/pkg/relay"
)

// DefaultKeepAlive is the resend period, well below the receiver watchdog.
const DefaultKeepAlive = 200 * time.Millisecond

// Transmitter holds the desired mask and keeps sending it.
type Transmitter struct {
	Sink      io.Writer
	KeepAlive time.Duration

	lock sync.Mutex
	mask relay.Mask
	sent int
}

// New creates a Transmitter.
func New(sink io.Writer) *Transmitter {
	return &Transmitter{Sink: sink, KeepAlive: DefaultKeepAlive}
}

// Name implements Named.
func (t *Transmitter) Name() string { return "transmitter" }

// Mask returns the desired mask.
func (t *Transmitter) Mask() relay.Mask {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.mask
}

// Sent returns the number of commands written.
func (t *Transmitter) Sent() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.sent
}

// Set replaces the desired mask and sends it immediately.
func (t *Transmitter) Set(mask relay.Mask) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.mask = mask & relay.MaskBits
	return t.sendLocked()
}

// Update modifies the desired mask and sends it immediately.
func (t *Transmitter) Update(set, clear relay.Mask) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.mask = (t.mask | set) &^ clear & relay.MaskBits
	return t.sendLocked()
}

// Send writes the current mask once.
func (t *Transmitter) Send() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.sendLocked()
}

func (t *Transmitter) sendLocked() error {
	if _, err := t.Sink.Write(link.FormatCommand(t.mask)); err != nil {
		return err
	}
	t.sent++
	return nil
}

// Run implements Runnable. It resends the mask every KeepAlive.
func (t *Transmitter) Run(ctx context.Context) error {
	interval := t.KeepAlive
	if interval <= 0 {
		interval = DefaultKeepAlive
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.Send(); err != nil {
				glog.Warningf("keep-alive: %v", err)
			}
		}
	}
}

// ParseLabels converts labels like "CB" or "c b" to a mask.
func ParseLabels(args ...string) (relay.Mask, error) {
	var mask relay.Mask
	for _, arg := range args {
		for _, r := range arg {
			if r == ',' {
				continue
			}
			i, ok := relay.IndexOf(string(r))
			if !ok {
				return 0, &UnknownLabelError{Label: string(r)}
			}
			mask |= relay.MaskOf(i)
		}
	}
	return mask, nil
}

// UnknownLabelError reports a label no channel has.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return "unknown relay " + e.Label + ", expect one of " + relay.Labels
}
