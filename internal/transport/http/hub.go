package http

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/domain"
)

const sendBuffer = 32

// Hub tracks the websocket connections of this instance by player and implements
// app.Notifier for them. A player may hold several connections; each gets every event.
type Hub struct {
	log logrus.FieldLogger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

type client struct {
	playerID string
	send     chan []byte

	// serializes producers so overflow handling keeps frames in order
	mu sync.Mutex
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{log: log, clients: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(playerID string) *client {
	c := &client{playerID: playerID, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[playerID] == nil {
		h.clients[playerID] = make(map[*client]struct{})
	}
	h.clients[playerID][c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[c.playerID], c)
	if len(h.clients[c.playerID]) == 0 {
		delete(h.clients, c.playerID)
	}
}

// Connected reports whether playerID has a connection on this instance.
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID]) > 0
}

// Send delivers e to every local connection of playerID. A player connected elsewhere (or
// not at all) is not an error.
func (h *Hub) Send(_ context.Context, playerID string, e domain.Event) error {
	frame, err := domain.EncodeEvent(e)
	if err != nil {
		return err
	}
	h.SendFrame(playerID, frame)
	return nil
}

// SendFrame delivers an encoded frame and reports whether any local connection took it.
func (h *Hub) SendFrame(playerID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := false
	for c := range h.clients[playerID] {
		if dropped, ok := c.enqueue(frame); !ok {
			h.log.WithFields(logrus.Fields{
				"player_id": playerID,
				"event":     dropped,
			}).Warn("hub: dropped frame for slow client")
		}
		delivered = true
	}
	return delivered
}

// enqueue never blocks. On a full buffer live updates go first: an incoming liveUpdate is
// dropped, otherwise the oldest buffered liveUpdate, otherwise the oldest frame. It returns
// the dropped frame's kind and false when a frame was lost.
func (c *client) enqueue(frame []byte) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case c.send <- frame:
		return "", true
	default:
	}

	if kind := frameKind(frame); kind == domain.EventLiveUpdate {
		return kind, false
	}

	buffered := make([][]byte, 0, cap(c.send))
drain:
	for {
		select {
		case f := <-c.send:
			buffered = append(buffered, f)
		default:
			break drain
		}
	}

	victim := 0
	for i, f := range buffered {
		if frameKind(f) == domain.EventLiveUpdate {
			victim = i
			break
		}
	}
	ok, dropped := true, ""
	if len(buffered) == cap(c.send) {
		ok, dropped = false, frameKind(buffered[victim])
		buffered = append(buffered[:victim], buffered[victim+1:]...)
	}

	for _, f := range append(buffered, frame) {
		select {
		case c.send <- f:
		default:
		}
	}
	return dropped, ok
}

func frameKind(frame []byte) string {
	var f struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &f); err != nil {
		return ""
	}
	return f.Type
}
