// Package realtime pushes confirmed collection changes to every open session
// of the same user over socket.io.
package realtime

import (
	"context"
	"net/http"
	"time"

	"gamedex/core"
	"gamedex/middleware"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventSubscribe         = "subscribe"
	EventSubscribed        = "subscribed"
	EventUnauthorized      = "unauthorized"
	EventCollectionChanged = "collection-changed"

	verifyTimeout = 5 * time.Second
)

// Hub owns the socket.io server. Clients emit "subscribe" with their bearer
// token and join the room of the user it resolves to.
type Hub struct {
	io       *socketio.Server
	handler  http.Handler
	verifier middleware.TokenVerifier
	emit     func(room socketio.Room, event string, args ...any)
	log      *logrus.Entry
}

// NewHub builds the socket.io server, served under /socket.io.
func NewHub(verifier middleware.TokenVerifier) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	// Subscriptions authenticate with a bearer token, never with cookies.
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: false,
	})

	h := &Hub{
		io:       socketio.NewServer(nil, opts),
		verifier: verifier,
		log:      logrus.WithField("component", "realtime"),
	}
	// Binding the engine here lets Close run before anything was served.
	h.handler = h.io.ServeHandler(nil)
	h.emit = func(room socketio.Room, event string, args ...any) {
		h.io.To(room).Emit(event, args...)
	}

	h.io.On("connection", func(clients ...any) {
		socket := clients[0].(*socketio.Socket)
		id := socket.Id()
		h.log.WithField("socket", id).Debug("Socket connected")

		socket.On(EventSubscribe, func(datas ...any) {
			h.subscribe(tokenFrom(datas),
				func(room socketio.Room) { socket.Join(room) },
				func(event string, args ...any) { socket.Emit(event, args...) },
			)
		})
		socket.On("disconnect", func(datas ...any) {
			h.log.WithField("socket", id).Debug("Socket disconnected")
			socket.RemoveAllListeners("")
		})
	})
	return h
}

// Handler serves the socket.io transport.
func (h *Hub) Handler() http.Handler {
	return h.handler
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.io.Close(nil)
}

// CollectionChanged notifies the user's sessions of a confirmed write.
func (h *Hub) CollectionChanged(userID string, event core.CollectionEvent) {
	h.log.WithFields(logrus.Fields{
		"userID": userID,
		"action": event.Action,
		"gameID": event.GameID,
	}).Debug("Broadcasting collection change")
	h.emit(userRoom(userID), EventCollectionChanged, event)
}

func (h *Hub) subscribe(token string, join func(socketio.Room), reply func(string, ...any)) {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	user, err := h.verifier.GetUser(ctx, token)
	if err != nil || user == nil {
		h.log.WithField("error", err).Debug("Rejected socket subscription")
		reply(EventUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	join(userRoom(user.ID))
	reply(EventSubscribed, map[string]string{"userId": user.ID})
}

func userRoom(userID string) socketio.Room {
	return socketio.Room("user:" + userID)
}

// tokenFrom accepts either a bare token string or {"token": "..."}.
func tokenFrom(datas []any) string {
	if len(datas) == 0 {
		return ""
	}
	switch v := datas[0].(type) {
	case string:
		return v
	case map[string]any:
		token, _ := v["token"].(string)
		return token
	}
	return ""
}
