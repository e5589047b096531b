package link

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/relayrx/pkg/framework"
)

// Source opens the byte stream of a link.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc is the func form of Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// Defaults of Pump.
const (
	DefaultBacklog       = 256
	DefaultRetryInterval = time.Second
)

// Pump keeps a Source open and moves its bytes into a bounded queue.
// It never interprets the bytes, the loop drains the queue from
// Bytes in its transport stage.
type Pump struct {
	Source        Source
	RetryInterval time.Duration

	bytes chan byte
}

// NewPump creates a Pump with a queue of backlog bytes.
func NewPump(src Source, backlog int) *Pump {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Pump{
		Source:        src,
		RetryInterval: DefaultRetryInterval,
		bytes:         make(chan byte, backlog),
	}
}

// Bytes returns the receiving side of the queue.
func (p *Pump) Bytes() <-chan byte {
	return p.bytes
}

// Name implements framework.Named.
func (p *Pump) Name() string {
	return "link"
}

// Run implements Runnable. Open and read failures are logged and the
// source is reopened after RetryInterval.
func (p *Pump) Run(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	for {
		rc, err := p.Source.Open(ctx)
		if err != nil {
			if IsNotFound(err) {
				glog.V(2).Infof("link open: %v", err)
			} else {
				glog.Warningf("link open: %v", err)
			}
		} else {
			glog.Info("link opened")
			err = fx.RunWithContextCloser(ctx, rc, func() error {
				return p.readLoop(ctx, rc, loopCtl)
			})
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Warningf("link closed: %v", err)
		}
		if err := fx.Sleep(ctx, p.RetryInterval); err != nil {
			return err
		}
	}
}

func (p *Pump) readLoop(ctx context.Context, r io.Reader, loopCtl fx.LoopControl) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.bytes <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if n > 0 && loopCtl != nil {
			loopCtl.TriggerNext()
		}
		if err != nil {
			return err
		}
	}
}
