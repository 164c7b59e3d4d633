package server

import (
	"net/http"

	"bosko/core/events"
	"bosko/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventsHandler upgrades to a websocket that streams the caller's publication events.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := events.NewClient(s.Hub, conn, userIDFrom(r.Context()))
	s.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
