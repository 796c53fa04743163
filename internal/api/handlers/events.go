package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/services"
)

// EventsUpgrade rejects non-websocket requests and unknown widgets before
// the connection is upgraded
func EventsUpgrade(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if _, err := svc.Widgets.Get(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	}
}

// WidgetEvents streams the controller events of one widget as JSON. The
// first message is the current snapshot.
func WidgetEvents(svc *services.Services, log *logrus.Entry) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		id := conn.Params("id")
		ctrl, err := svc.Widgets.Get(id)
		if err != nil {
			conn.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
			return
		}

		events, cancel := svc.Hub.Subscribe(id)
		defer cancel()

		if err := conn.WriteJSON(services.Event{
			Type:       services.EventRender,
			InstanceID: id,
			Snapshot:   ctrl.Snapshot(),
		}); err != nil {
			return
		}

		// the reader only notices the client going away
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		log.WithField("instance_id", id).Debug("Event subscriber connected")
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					log.WithError(err).WithField("instance_id", id).Debug("Event subscriber write failed")
					return
				}
			case <-closed:
				return
			}
		}
	}
}
