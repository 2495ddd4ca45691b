package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WessleyAI/marquee/engine/dispatch"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 8 << 10
)

// wsReply is one answer on the chat socket. Error is set instead of the
// response fields when the turn failed.
type wsReply struct {
	dispatch.Response
	Error string `json:"error,omitempty"`
}

// handleWS runs a chat session: each {"user_input": …} frame gets one reply
// frame, in order.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.reg.WSConnections.Inc()
	defer s.reg.WSConnections.Dec()

	conn.SetReadLimit(wsMaxMessage)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go ping(conn, done)

	ctx := r.Context()
	for {
		var msg askRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket closed", "err", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var reply wsReply
		if msg.UserInput == "" {
			reply.Error = "No input provided"
		} else if resp, err := s.asst.Ask(ctx, msg.UserInput); err != nil {
			_, reply.Error = askStatus(err)
		} else {
			reply.Response = resp
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			s.log.Warn("websocket write failed", "err", err)
			return
		}
	}
}

// ping keeps the connection alive until done closes. WriteControl is safe
// alongside the session's data writes.
func ping(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
