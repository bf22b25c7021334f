package sse

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tienminhktvn/dataops-project/logger"
)

// Publisher is the side of the hub RunStream depends on.
type Publisher interface {
	Publish(ev Event)
}

// Client is one connected subscriber.
type Client struct {
	id     string
	topic  string
	events chan []byte
}

// NewClient creates a client subscribed to the topic pattern topic.
func NewClient(id, topic string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{id: id, topic: topic, events: make(chan []byte, buffer)}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Topic() string { return c.topic }

// Events returns the encoded frames for this client. It is closed when the
// client is unregistered or the hub stops.
func (c *Client) Events() <-chan []byte {
	return c.events
}

// send queues a frame and reports false when the client is too slow.
func (c *Client) send(frame []byte) bool {
	select {
	case c.events <- frame:
		return true
	default:
		return false
	}
}

// matches reports whether topic falls under the client's pattern.
func (c *Client) matches(topic string) bool {
	ok, err := filepath.Match(c.topic, topic)
	return err == nil && ok
}

type frame struct {
	topic string
	data  []byte
}

// Hub manages clients and fans published events out to them. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	log *logger.Logger
	seq atomic.Uint64

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan frame
	done       chan struct{}
	stopOnce   sync.Once

	mu    sync.RWMutex
	count int
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a hub; call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Get("sse")
	}
	return &Hub{
		log:        log,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan frame, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns after Stop, closing every client.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for id, c := range h.clients {
				close(c.events)
				delete(h.clients, id)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c.id] = c
			h.setCount(len(h.clients))
			h.log.Debug("event client connected", logger.Fields("client_id", c.id, "topic", c.topic, logger.FieldCount, len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			h.setCount(len(h.clients))
			h.log.Debug("event client disconnected", logger.Fields("client_id", c.id, logger.FieldCount, len(h.clients)))

		case f := <-h.broadcast:
			h.fanOut(f)
		}
	}
}

func (h *Hub) fanOut(f frame) {
	for _, c := range h.clients {
		if !c.matches(f.topic) {
			continue
		}
		if !c.send(f.data) {
			h.log.Warn("event client too slow, frame dropped", logger.Fields("client_id", c.id, "topic", f.topic))
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c and reports false when the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c. It is a no-op once the hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish encodes ev and queues it for delivery. Events published when the
// queue is full or after Stop are dropped so a run never waits on clients.
func (h *Hub) Publish(ev Event) {
	data, err := encode(h.seq.Add(1), ev)
	if err != nil {
		h.log.Error("event encode failed", logger.Fields("event", ev.Name, logger.FieldError, err.Error()))
		return
	}
	select {
	case h.broadcast <- frame{topic: ev.Topic, data: data}:
	case <-h.done:
	default:
		h.log.Warn("event queue full, event dropped", logger.Fields("event", ev.Name, "topic", ev.Topic))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// encode renders ev as one SSE frame.
func encode(id uint64, ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", strconv.FormatUint(id, 10), ev.Name, data)), nil
}
