package configurator

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/relayrx/pkg/actuation"
)

// StateDoc is the JSON form of the relay state.
type StateDoc struct {
	Mask      string    `json:"mask"`
	Bits      uint16    `json:"bits"`
	Active    []string  `json:"active"`
	Applied   time.Time `json:"applied"`
	Commands  int       `json:"commands,omitempty"`
	Ignored   int       `json:"ignored,omitempty"`
	Expired   int       `json:"expired,omitempty"`
	Overflows int       `json:"overflows,omitempty"`
}

// NewStateDoc converts the engine state.
func NewStateDoc(st actuation.State) *StateDoc {
	active := st.Mask.Active()
	if active == nil {
		active = []string{}
	}
	return &StateDoc{
		Mask:    st.Mask.String(),
		Bits:    uint16(st.Mask),
		Active:  active,
		Applied: st.Applied,
	}
}

// Hub streams every applied state to websocket clients.
// A client too slow to keep up misses states.
type Hub struct {
	lock    sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

const clientBacklog = 8

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// MaskApplied implements actuation.Observer.
func (h *Hub) MaskApplied(st actuation.State) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(NewStateDoc(st))
	if err != nil {
		glog.Errorf("hub: %v", err)
		return
	}
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
		}
	}
}

func (h *Hub) add() chan []byte {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		return nil
	}
	ch := make(chan []byte, clientBacklog)
	h.clients[ch] = struct{}{}
	return ch
}

func (h *Hub) remove(ch chan []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// Serve is the websocket handler.
func (h *Hub) Serve(conn *websocket.Conn) {
	defer conn.Close()
	ch := h.add()
	if ch == nil {
		return
	}
	defer h.remove(ch)
	glog.V(1).Infof("hub: client %s connected", conn.Request().RemoteAddr)
	// Reading detects the client going away.
	go func() {
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
		h.remove(ch)
	}()
	for data := range ch {
		if err := websocket.Message.Send(conn, string(data)); err != nil {
			glog.V(1).Infof("hub: client %s: %v", conn.Request().RemoteAddr, err)
			return
		}
	}
}
