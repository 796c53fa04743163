package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/models"
)

// EventType identifies what a controller event asks the host to do
type EventType string

const (
	// EventRender asks the host to redraw from the attached snapshot.
	EventRender EventType = "render"
	// EventToken carries the markup of a reply that is still streaming.
	EventToken EventType = "token"
	// EventNotice asks the host to show a toast.
	EventNotice EventType = "notice"
)

// NoticeLevel is the severity of a notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Event is published by a controller after every visible state change
type Event struct {
	Type       EventType `json:"type"`
	InstanceID string    `json:"instanceId"`

	// render
	Snapshot       *Snapshot `json:"snapshot,omitempty"`
	PreserveScroll bool      `json:"preserveScroll,omitempty"`

	// token
	SessionID string `json:"sessionId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Markup    string `json:"markup,omitempty"`
	// First is set on the token that replaces the loading indicator.
	First bool `json:"first,omitempty"`

	// notice
	Level   NoticeLevel      `json:"level,omitempty"`
	Kind    models.ErrorKind `json:"kind,omitempty"`
	Message string           `json:"message,omitempty"`
}

// EventSink receives controller events. Publish is called with the
// controller lock held and must not block or call back into the controller.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Publish(Event) {}

const subscriberBuffer = 256

// Hub fans controller events out to the subscribers of each instance
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
	log    *logrus.Entry
}

// NewHub creates an empty hub
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		subs: make(map[string]map[int]chan Event),
		log:  log,
	}
}

// Publish delivers e to every subscriber of its instance. Subscribers whose
// buffer is full miss the event.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs[e.InstanceID] {
		select {
		case ch <- e:
		default:
			h.log.WithFields(logrus.Fields{
				"instance_id":   e.InstanceID,
				"subscriber_id": id,
				"event":         e.Type,
			}).Warn("Subscriber buffer full, dropping event")
		}
	}
}

// Subscribe registers a listener for one instance. The returned cancel
// function unregisters it and closes the channel.
func (h *Hub) Subscribe(instanceID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	id := h.nextID
	h.nextID++

	if h.subs[instanceID] == nil {
		h.subs[instanceID] = make(map[int]chan Event)
	}
	h.subs[instanceID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(instanceID, id) })
	}
}

// CloseInstance drops all subscribers of an instance.
func (h *Hub) CloseInstance(instanceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[instanceID] {
		close(ch)
	}
	delete(h.subs, instanceID)
}

// SubscriberCount returns the number of listeners of an instance.
func (h *Hub) SubscriberCount(instanceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[instanceID])
}

func (h *Hub) remove(instanceID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[instanceID]
	ch, ok := subs[id]
	if !ok {
		return
	}
	close(ch)
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.subs, instanceID)
	}
}
