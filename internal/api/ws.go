package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	Events []string `json:"events"`
}

// RunStreamHandler streams run and fleet events for the caller's tenant over
// WebSocket. Protocol: client sends connection_init, then subscribe with an
// optional event-type filter; server replies next/complete per subscription.
func (s *Server) RunStreamHandler(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		ch     chan RunEvent
		filter map[string]bool
	}
	subs := map[string]sub{}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	write := func(v any) error { return conn.WriteJSON(v) }

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := write(wsMessage{Type: "ping"}); err != nil {
						return
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			var filter map[string]bool
			if len(pl.Events) > 0 {
				filter = map[string]bool{}
				for _, e := range pl.Events {
					filter[e] = true
				}
			}
			ch := s.Broker.Subscribe(pr.Tenant)
			subs[msg.ID] = sub{ch: ch, filter: filter}
			go func(id string, c chan RunEvent, filter map[string]bool) {
				for evt := range c {
					if filter != nil && !filter[evt.Type] {
						continue
					}
					payload, _ := json.Marshal(map[string]any{"type": evt.Type, "data": evt.Data})
					if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
						return
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch, filter)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(pr.Tenant, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(pr.Tenant, s0.ch)
		delete(subs, id)
	}
}
