package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/relayrx/pkg/actuation"
	"github.com/robotalks/relayrx/pkg/relay"
)

// Topics relative to the device.
const (
	StateTopic = "state"
	MetaTopic  = "meta"
)

// Publisher publishes to relative topics.
type Publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Meta describes the device, published retained to <id>/meta.
type Meta struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Labels   string `json:"labels"`
	Channels int    `json:"channels"`
}

// Reporter publishes every applied state to <id>/state.
type Reporter struct {
	ID        string
	Publisher Publisher

	queue    *Queue
	metaJSON []byte
}

// NewReporter creates a Reporter connected to brokerURL.
func NewReporter(brokerURL, id string) (*Reporter, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+id+"/"+MetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("relayrx:" + id)
	}
	r := newReporter(id, nil)
	r.queue = NewQueue(opts, topicPrefix)
	r.queue.OnConnect = func(*Queue) { r.publishMeta() }
	r.Publisher = r.queue
	return r, nil
}

func newReporter(id string, pub Publisher) *Reporter {
	meta, err := json.Marshal(&Meta{
		Type:     "relayrx",
		ID:       id,
		Labels:   relay.Labels,
		Channels: relay.Channels,
	})
	if err != nil {
		panic(err)
	}
	return &Reporter{ID: id, Publisher: pub, metaJSON: meta}
}

// Name implements Named.
func (r *Reporter) Name() string { return "reporter" }

// MaskApplied implements actuation.Observer.
func (r *Reporter) MaskApplied(st actuation.State) {
	if r.queue != nil && !r.queue.Client.IsConnected() {
		return
	}
	data, err := proto.Marshal(NewRelayState(r.ID, st))
	if err != nil {
		glog.Errorf("reporter: %v", err)
		return
	}
	r.Publisher.PubWith(r.ID+"/"+StateTopic, data, 0, false)
}

// Run implements Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	if r.queue == nil {
		<-ctx.Done()
		return nil
	}
	r.queue.Connect()
	<-ctx.Done()
	r.queue.PubWith(r.ID+"/"+MetaTopic, nil, 1, true).Wait()
	r.queue.Close()
	return nil
}

func (r *Reporter) publishMeta() {
	r.Publisher.PubWith(r.ID+"/"+MetaTopic, r.metaJSON, 1, true)
}
