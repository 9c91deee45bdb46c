package realtime

import (
	"strconv"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

const (
	EventCart     = "cart"
	EventWishlist = "wishlist"
	EventAuth     = "auth"
	EventOrder    = "order"
)

const TopicOrdersAdmin = "orders:admin"

// Event is the payload pushed to websocket clients. Clients only use it as an
// invalidation signal and refetch the affected resource.
type Event struct {
	Type   string      `json:"type"`
	Action string      `json:"action,omitempty"`
	Topic  string      `json:"topic"`
	UserID int64       `json:"user_id,string,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	At     time.Time   `json:"at"`
}

func CartTopic(uid int64) string     { return "cart:" + strconv.FormatInt(uid, 10) }
func WishlistTopic(uid int64) string { return "wishlist:" + strconv.FormatInt(uid, 10) }
func AuthTopic(uid int64) string     { return "auth:" + strconv.FormatInt(uid, 10) }

// UserTopics returns every topic a signed-in user listens to.
func UserTopics(uid int64) []string {
	return []string{CartTopic(uid), WishlistTopic(uid), AuthTopic(uid)}
}

// Publisher publishes change events. *Hub implements it.
type Publisher interface {
	Publish(topic string, ev Event)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(string, Event) {}

// Hub fans out bus events to channel subscribers.
//
// A single deliver callback is registered on the bus per topic. EventBus
// matches callbacks by function pointer when unsubscribing, so per-subscriber
// closures cannot be removed individually.
type Hub struct {
	bus   EventBus.Bus
	regMu sync.Mutex // serializes bus (un)subscription
	mu    sync.RWMutex
	subs  map[string]map[uint64]chan Event
	seq   uint64
}

func NewHub() *Hub {
	return &Hub{
		bus:  EventBus.New(),
		subs: make(map[string]map[uint64]chan Event),
	}
}

// Publish sends ev to every subscriber of topic. It never blocks on slow readers.
func (h *Hub) Publish(topic string, ev Event) {
	ev.Topic = topic
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if !h.bus.HasCallback(topic) {
		return
	}
	h.bus.Publish(topic, ev)
}

// Subscribe returns a channel receiving topic events and a cancel func that
// closes it. Cancel is safe to call more than once.
func (h *Hub) Subscribe(topic string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.regMu.Lock()
	h.mu.Lock()
	h.seq++
	id := h.seq
	set, exists := h.subs[topic]
	if !exists {
		set = make(map[uint64]chan Event)
		h.subs[topic] = set
	}
	set[id] = ch
	h.mu.Unlock()
	if !exists {
		if err := h.bus.Subscribe(topic, h.deliver); err != nil {
			zap.L().Error("realtime subscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	h.regMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.regMu.Lock()
			defer h.regMu.Unlock()
			h.mu.Lock()
			last := false
			if set, ok := h.subs[topic]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(h.subs, topic)
					last = true
				}
			}
			close(ch)
			h.mu.Unlock()
			if last {
				_ = h.bus.Unsubscribe(topic, h.deliver)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers of topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// deliver runs inside the bus publish lock; it must not call back into the bus.
func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			zap.L().Debug("realtime subscriber full, event dropped",
				zap.String("namespace", "realtime"),
				zap.String("topic", ev.Topic))
		}
	}
}
