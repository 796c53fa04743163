package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/logging"
)

func TestHubDeliversToInstanceSubscribers(t *testing.T) {
	hub := NewHub(logging.Discard().WithField("component", "hub"))

	a, cancelA := hub.Subscribe("w1")
	defer cancelA()
	b, cancelB := hub.Subscribe("w2")
	defer cancelB()

	hub.Publish(Event{Type: EventNotice, InstanceID: "w1", Message: "hello"})

	require.Len(t, a, 1)
	assert.Equal(t, "hello", (<-a).Message)
	assert.Len(t, b, 0)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logging.Discard().WithField("component", "hub"))
	ch, cancel := hub.Subscribe("w1")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(Event{Type: EventToken, InstanceID: "w1"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub(logging.Discard().WithField("component", "hub"))
	ch, cancel := hub.Subscribe("w1")
	assert.Equal(t, 1, hub.SubscriberCount("w1"))

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.SubscriberCount("w1"))
}

func TestHubCloseInstance(t *testing.T) {
	hub := NewHub(logging.Discard().WithField("component", "hub"))
	ch, cancel := hub.Subscribe("w1")

	hub.CloseInstance("w1")
	_, ok := <-ch
	assert.False(t, ok)

	// cancelling after the instance closed must not close twice
	cancel()
	assert.Equal(t, 0, hub.SubscriberCount("w1"))
}
