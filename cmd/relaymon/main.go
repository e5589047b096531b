package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robotalks/relayrx/pkg/mqtt"
	"github.com/robotalks/relayrx/pkg/relay"
)

var (
	mqttURL = "mqtt://localhost:1883/relayrx/"
)

func init() {
	if val := os.Getenv("RELAYRX_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.MetaTopic):
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/"+mqtt.CommandTopic):
			log.Printf("%s: %q", topic, string(payload))
		case strings.HasSuffix(topic, "/"+mqtt.StateTopic):
			msg, err := mqtt.DecodeRelayState(payload)
			if err != nil {
				log.Printf("%s: bad message: %v", topic, err)
				return
			}
			st := msg.State()
			log.Printf("%s: Mask: %s  Active: %s  (applied %s)", topic,
				st.Mask, st.Mask.ActiveString(), st.Applied.Format(time.RFC3339Nano))
		default:
			log.Printf("%s: %d bytes", topic, len(payload))
		}
	}))
	log.Printf("monitoring %d relays %s", relay.Channels, relay.Labels)
	<-(chan struct{})(nil)
}
