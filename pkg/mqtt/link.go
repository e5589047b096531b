package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
)

// CommandTopic is where command lines are published, relative to the device.
const CommandTopic = "cmd"

// Link is a command source: every message on <prefix><id>/cmd is one or
// more command lines, fed to the receiver as if they came from the radio.
type Link struct {
	BrokerURL string
	ID        string
	Backlog   int
}

// NewLink creates a Link.
func NewLink(brokerURL, id string) *Link {
	return &Link{BrokerURL: brokerURL, ID: id, Backlog: 16}
}

// Topic returns the command topic relative to the prefix.
func (l *Link) Topic() string {
	return l.ID + "/" + CommandTopic
}

// Open implements link.Source.
func (l *Link) Open(ctx context.Context) (io.ReadCloser, error) {
	opts, prefix, err := ClientOptionsFromURL(l.BrokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("relayrx:" + l.ID + ":link")
	}
	q := NewQueue(opts, prefix)
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	r := newMessageReader(l.Backlog)
	r.closer = q
	r.sub = q.Sub(l.Topic(), r.push)
	return r, nil
}

// messageReader turns message payloads into a byte stream.
type messageReader struct {
	msgs   chan []byte
	done   chan struct{}
	once   sync.Once
	cur    []byte
	sub    *Subscription
	closer io.Closer
}

func newMessageReader(backlog int) *messageReader {
	if backlog <= 0 {
		backlog = 1
	}
	return &messageReader{
		msgs: make(chan []byte, backlog),
		done: make(chan struct{}),
	}
}

// push queues a payload, terminated with '\n' if it isn't already.
func (r *messageReader) push(topic string, payload []byte) {
	data := make([]byte, len(payload), len(payload)+1)
	copy(data, payload)
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	select {
	case r.msgs <- data:
	case <-r.done:
	default:
		glog.Warningf("mqtt link: backlog full, drop %q", payload)
	}
}

func (r *messageReader) Read(p []byte) (int, error) {
	for len(r.cur) == 0 {
		select {
		case data := <-r.msgs:
			r.cur = data
		case <-r.done:
			return 0, io.EOF
		}
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

func (r *messageReader) Close() (err error) {
	r.once.Do(func() {
		close(r.done)
		if r.sub != nil {
			r.sub.Close()
		}
		if r.closer != nil {
			err = r.closer.Close()
		}
	})
	return
}

// CommandWriter publishes each Write as one message on <prefix><id>/cmd.
type CommandWriter struct {
	Publisher Publisher
	Topic     string

	queue *Queue
}

// OpenCommandWriter connects to the broker for sending commands to id.
func OpenCommandWriter(brokerURL, id string) (*CommandWriter, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("relaytx:" + id)
	}
	q := NewQueue(opts, prefix)
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &CommandWriter{Publisher: q, Topic: id + "/" + CommandTopic, queue: q}, nil
}

// Write implements io.Writer.
func (w *CommandWriter) Write(p []byte) (int, error) {
	payload := make([]byte, len(p))
	copy(payload, p)
	token := w.Publisher.PubWith(w.Topic, payload, 0, false)
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (w *CommandWriter) Close() error {
	if w.queue != nil {
		return w.queue.Close()
	}
	return nil
}
